// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachments stages files and images for the next outgoing message.
//
// Images carry a data-URI preview; previews are deduplicated by content and
// stay index-aligned with the staged images. Everything staged is cleared in
// one step when a message is sent. Nothing is persisted.
package attachments

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/jeranaias/vachat/internal/model"
)

// DefaultMaxBytes is the per-attachment size cap.
const DefaultMaxBytes int64 = 20 * 1024 * 1024

var (
	// ErrFilesDisabled is returned when file uploads are switched off.
	ErrFilesDisabled = errors.New("file attachments are disabled")
	// ErrImagesDisabled is returned when image uploads are switched off.
	ErrImagesDisabled = errors.New("image attachments are disabled")
	// ErrNotImage is returned when AddImage receives non-image content.
	ErrNotImage = errors.New("content is not an image")
	// ErrTooLarge is returned when an attachment exceeds the size cap.
	ErrTooLarge = errors.New("attachment too large")
	// ErrIndex is returned for an out-of-range removal.
	ErrIndex = errors.New("attachment index out of range")
)

// Kind classifies a staged attachment.
type Kind int

const (
	KindFile Kind = iota
	KindImage
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "file"
}

// File is a staged upload.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Size returns the file size in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// HumanSize returns the size in human-readable form ("1.2 MB").
func (f File) HumanSize() string {
	return humanize.Bytes(uint64(len(f.Data)))
}

// Image is a staged image with its data-URI preview.
type Image struct {
	File
	Preview string
}

// Policy controls what may be staged.
type Policy struct {
	AllowFiles  bool
	AllowImages bool
	MaxBytes    int64
}

// Staged is a snapshot of everything staged.
type Staged struct {
	Files  []File
	Images []Image
}

// Empty reports whether nothing is staged.
func (s Staged) Empty() bool {
	return len(s.Files) == 0 && len(s.Images) == 0
}

// Previews returns the image previews in staging order.
func (s Staged) Previews() []string {
	out := make([]string, len(s.Images))
	for i, img := range s.Images {
		out[i] = img.Preview
	}
	return out
}

// Attachments converts the snapshot into message attachments.
func (s Staged) Attachments() model.Attachments {
	var a model.Attachments
	for _, f := range s.Files {
		a.Files = append(a.Files, model.FileRef{Name: f.Name, Size: f.Size()})
	}
	a.ImagePreviews = s.Previews()
	return a
}

// =============================================================================
// STORE
// =============================================================================

// Store holds staged attachments. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	policy   Policy
	files    []File
	images   []Image
	previews map[string]struct{}
}

// NewStore creates an empty store.
func NewStore(policy Policy) *Store {
	if policy.MaxBytes <= 0 {
		policy.MaxBytes = DefaultMaxBytes
	}
	return &Store{policy: policy, previews: make(map[string]struct{})}
}

// Policy returns the store's staging policy.
func (s *Store) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// AddPath reads a file from disk and stages it, as an image when its
// content sniffs as one and images are allowed, otherwise as a file.
func (s *Store) AddPath(path string) (Kind, error) {
	data, err := readLimited(path, s.Policy().MaxBytes)
	if err != nil {
		return KindFile, err
	}
	name := filepath.Base(path)
	mt := mimetype.Detect(data)
	if isImage(mt) && s.Policy().AllowImages {
		_, err := s.addImage(name, mt.String(), data)
		return KindImage, err
	}
	return KindFile, s.addFile(name, mt.String(), data)
}

// AddFile stages a file upload.
func (s *Store) AddFile(name string, data []byte) error {
	return s.addFile(name, mimetype.Detect(data).String(), data)
}

// AddImage stages an image. Content identical to an already staged image is
// ignored and reported as added=false.
func (s *Store) AddImage(name string, data []byte) (added bool, err error) {
	mt := mimetype.Detect(data)
	if !isImage(mt) {
		return false, fmt.Errorf("%s: %w (%s)", name, ErrNotImage, mt.String())
	}
	return s.addImage(name, mt.String(), data)
}

func (s *Store) addFile(name, mime string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.policy.AllowFiles {
		return ErrFilesDisabled
	}
	if err := s.checkSize(name, data); err != nil {
		return err
	}
	s.files = append(s.files, File{Name: name, MIME: mime, Data: data})
	return nil
}

func (s *Store) addImage(name, mime string, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.policy.AllowImages {
		return false, ErrImagesDisabled
	}
	if err := s.checkSize(name, data); err != nil {
		return false, err
	}
	preview := DataURI(mime, data)
	if _, dup := s.previews[preview]; dup {
		return false, nil
	}
	s.previews[preview] = struct{}{}
	s.images = append(s.images, Image{File: File{Name: name, MIME: mime, Data: data}, Preview: preview})
	return true, nil
}

func (s *Store) checkSize(name string, data []byte) error {
	if int64(len(data)) > s.policy.MaxBytes {
		return fmt.Errorf("%s is %s, limit %s: %w", name,
			humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(s.policy.MaxBytes)), ErrTooLarge)
	}
	return nil
}

// RemoveFile unstages the file at index i.
func (s *Store) RemoveFile(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.files) {
		return ErrIndex
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	return nil
}

// RemoveImage unstages the image at index i together with its preview.
func (s *Store) RemoveImage(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.images) {
		return ErrIndex
	}
	delete(s.previews, s.images[i].Preview)
	s.images = append(s.images[:i], s.images[i+1:]...)
	return nil
}

// Clear drops everything staged.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.files = nil
	s.images = nil
	s.previews = make(map[string]struct{})
}

// Snapshot returns the staged attachments without clearing them.
func (s *Store) Snapshot() Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Staged{
		Files:  append([]File(nil), s.files...),
		Images: append([]Image(nil), s.images...),
	}
}

// Take returns the staged attachments and clears the store in one step.
func (s *Store) Take() Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := Staged{Files: s.files, Images: s.images}
	s.clearLocked()
	return staged
}

// Empty reports whether nothing is staged.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files) == 0 && len(s.images) == 0
}

// =============================================================================
// HELPERS
// =============================================================================

// DataURI encodes data as a base64 data URI.
func DataURI(mime string, data []byte) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func readLimited(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > max {
		return nil, fmt.Errorf("%s is %s, limit %s: %w", filepath.Base(path),
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(max)), ErrTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return data, nil
}
