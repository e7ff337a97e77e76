// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachments

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngA = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 'a')
	pngB = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 'b')
)

func allowAll() Policy {
	return Policy{AllowFiles: true, AllowImages: true}
}

func TestAddImage_DedupesPreviews(t *testing.T) {
	s := NewStore(allowAll())

	added, err := s.AddImage("a.png", pngA)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddImage("copy-of-a.png", pngA)
	require.NoError(t, err)
	assert.False(t, added, "identical content must not be staged twice")

	added, err = s.AddImage("b.png", pngB)
	require.NoError(t, err)
	assert.True(t, added)

	snap := s.Snapshot()
	require.Len(t, snap.Images, 2)
	previews := snap.Previews()
	require.Len(t, previews, 2)
	assert.Equal(t, "a.png", snap.Images[0].Name)
	assert.True(t, strings.HasPrefix(previews[0], "data:image/png;base64,"))
	assert.NotEqual(t, previews[0], previews[1])
}

func TestAddImage_RejectsNonImage(t *testing.T) {
	s := NewStore(allowAll())
	_, err := s.AddImage("notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestPolicy_Disabled(t *testing.T) {
	s := NewStore(Policy{})
	assert.ErrorIs(t, s.AddFile("a.pdf", []byte("%PDF-1.4")), ErrFilesDisabled)
	_, err := s.AddImage("a.png", pngA)
	assert.ErrorIs(t, err, ErrImagesDisabled)
	assert.True(t, s.Empty())
}

func TestPolicy_MaxBytes(t *testing.T) {
	s := NewStore(Policy{AllowFiles: true, MaxBytes: 4})
	err := s.AddFile("big.bin", []byte("12345"))
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestRemoveImage_RealignsPreviews(t *testing.T) {
	s := NewStore(allowAll())
	_, _ = s.AddImage("a.png", pngA)
	_, _ = s.AddImage("b.png", pngB)

	require.NoError(t, s.RemoveImage(0))
	snap := s.Snapshot()
	require.Len(t, snap.Images, 1)
	assert.Equal(t, "b.png", snap.Images[0].Name)
	assert.Equal(t, snap.Images[0].Preview, snap.Previews()[0])

	// The removed content can be staged again.
	added, err := s.AddImage("a.png", pngA)
	require.NoError(t, err)
	assert.True(t, added)

	assert.ErrorIs(t, s.RemoveImage(5), ErrIndex)
}

func TestRemoveFile(t *testing.T) {
	s := NewStore(allowAll())
	require.NoError(t, s.AddFile("a.txt", []byte("a")))
	require.NoError(t, s.AddFile("b.txt", []byte("b")))
	require.NoError(t, s.RemoveFile(0))
	snap := s.Snapshot()
	require.Len(t, snap.Files, 1)
	assert.Equal(t, "b.txt", snap.Files[0].Name)
	assert.ErrorIs(t, s.RemoveFile(-1), ErrIndex)
}

func TestTake_ClearsAtomically(t *testing.T) {
	s := NewStore(allowAll())
	require.NoError(t, s.AddFile("report.pdf", []byte("%PDF-1.4 data")))
	_, _ = s.AddImage("a.png", pngA)

	staged := s.Take()
	assert.Len(t, staged.Files, 1)
	assert.Len(t, staged.Images, 1)
	assert.True(t, s.Empty())

	att := staged.Attachments()
	require.Len(t, att.Files, 1)
	assert.Equal(t, "report.pdf", att.Files[0].Name)
	assert.Equal(t, int64(len("%PDF-1.4 data")), att.Files[0].Size)
	assert.Len(t, att.ImagePreviews, 1)

	// Dedup state is reset with the rest.
	added, err := s.AddImage("a.png", pngA)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestAddPath_Classifies(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "photo.png")
	docPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(imgPath, pngA, 0600))
	require.NoError(t, os.WriteFile(docPath, []byte("meeting notes"), 0600))

	s := NewStore(allowAll())
	kind, err := s.AddPath(imgPath)
	require.NoError(t, err)
	assert.Equal(t, KindImage, kind)

	kind, err = s.AddPath(docPath)
	require.NoError(t, err)
	assert.Equal(t, KindFile, kind)

	snap := s.Snapshot()
	assert.Len(t, snap.Images, 1)
	assert.Len(t, snap.Files, 1)
	assert.Equal(t, "notes.txt", snap.Files[0].Name)
}

func TestAddPath_ImageAsFileWhenImagesDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, pngA, 0600))

	s := NewStore(Policy{AllowFiles: true})
	kind, err := s.AddPath(path)
	require.NoError(t, err)
	assert.Equal(t, KindFile, kind)
}

func TestAddPath_Missing(t *testing.T) {
	s := NewStore(allowAll())
	_, err := s.AddPath(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDataURI_StripsParams(t *testing.T) {
	assert.Equal(t, "data:text/plain;base64,aGk=", DataURI("text/plain; charset=utf-8", []byte("hi")))
}

func TestHumanSize(t *testing.T) {
	f := File{Data: make([]byte, 1500)}
	assert.Equal(t, "1.5 kB", f.HumanSize())
}
