// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrSourceEmpty is returned when a document source is blank.
var ErrSourceEmpty = errors.New("document source is empty")

// maxDocumentSize caps client documents read from disk or the network.
const maxDocumentSize = 4 * 1024 * 1024

// Language is one entry of the client document's language list.
type Language struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Flag  string `json:"flag"`
}

// ClientDocument is the deployment-level client configuration.
type ClientDocument struct {
	SetupAPI     string `json:"setupApi"`
	FeedbackAPI  string `json:"feedbackApi"`
	InputEnable  bool   `json:"-"`
	Logo         string `json:"logo"`
	Title        string `json:"title"`
	TabText      string `json:"tabText"`
	PluginsTitle string `json:"pluginsTitle"`

	Languages         []Language `json:"languages"`
	PreferredLanguage string     `json:"preferedLanguage"`

	// Per-language button labels keyed by language code.
	NewChatButton           map[string]string `json:"newChatButton"`
	DarkModeButton          map[string]string `json:"darkModeButton"`
	LightModeButton         map[string]string `json:"lightModeButton"`
	AvailableLanguagesTitle map[string]string `json:"availableLanguagesTitle"`

	SpeechKey    string            `json:"speechKey"`
	SpeechRegion string            `json:"speechRegion"`
	Voices       map[string]string `json:"voices"`

	Features FeatureFlags `json:"-"`
}

type clientDocumentWire struct {
	ClientDocument
	InputEnable *bool            `json:"inputEnable"`
	Features    *rawFeatureFlags `json:"enableFeatures"`
}

// DefaultClientDocument returns the document used when loading fails.
func DefaultClientDocument() *ClientDocument {
	doc := &ClientDocument{
		InputEnable:  true,
		Title:        "Title",
		TabText:      "Logo",
		PluginsTitle: "Plugins",
		Features:     DefaultFeatureFlags(),
	}
	return doc
}

// ParseClientDocument decodes a client document, resolving absent flags to
// their defaults.
func ParseClientDocument(data []byte) (*ClientDocument, error) {
	var wire clientDocumentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode client document: %w", err)
	}
	doc := wire.ClientDocument
	doc.InputEnable = wire.InputEnable == nil || *wire.InputEnable
	doc.Features = wire.Features.resolve()

	defaults := DefaultClientDocument()
	if doc.Title == "" {
		doc.Title = defaults.Title
	}
	if doc.TabText == "" {
		doc.TabText = defaults.TabText
	}
	if doc.PluginsTitle == "" {
		doc.PluginsTitle = defaults.PluginsTitle
	}
	return &doc, nil
}

// LoadClientDocument reads the client document from a file path or URL.
// On any failure it returns the default document together with the error,
// so callers can log and continue.
func LoadClientDocument(ctx context.Context, source string) (*ClientDocument, error) {
	data, err := ReadSource(ctx, source)
	if err != nil {
		return DefaultClientDocument(), err
	}
	doc, err := ParseClientDocument(data)
	if err != nil {
		return DefaultClientDocument(), err
	}
	return doc, nil
}

// Label returns a per-language label with fallback to "en" then to fallback.
func Label(labels map[string]string, lang, fallback string) string {
	if v := labels[lang]; v != "" {
		return v
	}
	if v := labels["en"]; v != "" {
		return v
	}
	return fallback
}

// Voice returns the synthesis voice configured for lang, trying the exact
// code and then its primary subtag.
func (d *ClientDocument) Voice(lang string) string {
	if v := d.Voices[lang]; v != "" {
		return v
	}
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return d.Voices[lang[:i]]
	}
	return ""
}

// HasLanguage reports whether code is in the document's language list.
func (d *ClientDocument) HasLanguage(code string) bool {
	for _, l := range d.Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// ReadSource reads a document from an http(s) URL or a local file.
func ReadSource(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrSourceEmpty
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchURL(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return data, nil
}

func fetchURL(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
