// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultVoice is used when no voice is configured for a language.
	DefaultVoice = "en-US-JennyNeural"

	// DefaultOutputFormat is a container ffplay and most players accept.
	DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"

	maxAudioSize = 32 * 1024 * 1024
)

var (
	// ErrNoCredentials is returned when no subscription key or region is set.
	ErrNoCredentials = errors.New("speech key and region are required")

	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("nothing to synthesize")
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// SynthesisError carries a non-2xx reply from the speech service.
type SynthesisError struct {
	StatusCode int
	Body       string
}

func (e *SynthesisError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("speech service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("speech service returned %d: %s", e.StatusCode, e.Body)
}

// AzureSynthesizer calls the Azure Speech text-to-speech REST API.
type AzureSynthesizer struct {
	key     string
	region  string
	voices  map[string]string
	baseURL string
	format  string
	client  *http.Client
}

// NewAzureSynthesizer creates a synthesizer for the given region. voices maps
// language codes ("en-US" or "en") to voice names.
func NewAzureSynthesizer(key, region string, voices map[string]string) *AzureSynthesizer {
	return &AzureSynthesizer{
		key:    key,
		region: region,
		voices: voices,
		format: DefaultOutputFormat,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the regional endpoint. Used by tests.
func (s *AzureSynthesizer) WithBaseURL(url string) *AzureSynthesizer {
	s.baseURL = strings.TrimRight(url, "/")
	return s
}

// WithHTTPClient replaces the HTTP client.
func (s *AzureSynthesizer) WithHTTPClient(hc *http.Client) *AzureSynthesizer {
	s.client = hc
	return s
}

// WithOutputFormat sets the X-Microsoft-OutputFormat value.
func (s *AzureSynthesizer) WithOutputFormat(format string) *AzureSynthesizer {
	s.format = format
	return s
}

func (s *AzureSynthesizer) endpoint() string {
	if s.baseURL != "" {
		return s.baseURL + "/cognitiveservices/v1"
	}
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", s.region)
}

// Voice picks the voice for language: exact code, then primary subtag, then
// DefaultVoice.
func (s *AzureSynthesizer) Voice(language string) string {
	if v := s.voices[language]; v != "" {
		return v
	}
	if base, _, ok := strings.Cut(language, "-"); ok {
		if v := s.voices[base]; v != "" {
			return v
		}
	}
	return DefaultVoice
}

// Synthesize renders text as audio in the configured output format.
func (s *AzureSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if s.key == "" || (s.region == "" && s.baseURL == "") {
		return nil, ErrNoCredentials
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if language == "" {
		language = "en-US"
	}

	ssml, err := buildSSML(text, language, s.Voice(language))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("X-Microsoft-OutputFormat", s.format)
	req.Header.Set("User-Agent", "vachat")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(data)
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(body)}
	}
	return data, nil
}

func buildSSML(text, language, voice string) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, fmt.Errorf("escape text: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s">`, language)
	fmt.Fprintf(&buf, `<voice name="%s">%s</voice></speak>`, voice, escaped.String())
	return buf.Bytes(), nil
}
