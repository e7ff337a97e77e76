// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package locale

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/vachat/internal/config"
)

func TestStrings_Fallback(t *testing.T) {
	tbl, err := Parse([]byte(`{
		"expiredText": {"en-US": "Session expired", "pt-PT": "Sessão expirada"},
		"endedText": {"en": "Chat ended"}
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		key, lang, want string
	}{
		{KeyExpiredText, "pt-PT", "Sessão expirada"},
		{KeyExpiredText, "de", "Session expired"},
		{KeyEndedText, "pt-PT", "Chat ended"},
		{KeyUpdateButton, "pt-PT", builtin[KeyUpdateButton]},
		{"unknownKey", "en", "unknownKey"},
	}
	for _, tt := range tests {
		if got := tbl.Get(tt.key, tt.lang); got != tt.want {
			t.Errorf("Get(%q, %q) = %q, want %q", tt.key, tt.lang, got, tt.want)
		}
	}
}

func TestStrings_NilTable(t *testing.T) {
	var tbl *Strings
	if got := tbl.Get(KeyChatPlaceholder, "en"); got != builtin[KeyChatPlaceholder] {
		t.Errorf("nil table Get() = %q", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	tbl, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if tbl == nil || tbl.Get(KeyEndedText, "en") != builtin[KeyEndedText] {
		t.Error("Load() should return a usable built-in table on failure")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"chatPlaceholder":{"es":"Escribe..."}}`), 0600); err != nil {
		t.Fatal(err)
	}
	tbl, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := tbl.Get(KeyChatPlaceholder, "es"); got != "Escribe..." {
		t.Errorf("Get() = %q, want %q", got, "Escribe...")
	}
}

func docWith(flags func(*config.FeatureFlags)) *config.ClientDocument {
	doc := config.DefaultClientDocument()
	doc.Languages = []config.Language{{Code: "en"}, {Code: "pt"}, {Code: "es-ES"}}
	doc.PreferredLanguage = "pt"
	if flags != nil {
		flags(&doc.Features)
	}
	return doc
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		doc   *config.ClientDocument
		saved string
		env   string
		want  Choice
	}{
		{
			name:  "saved language",
			doc:   docWith(nil),
			saved: "en",
			want:  Choice{Language: "en"},
		},
		{
			name: "nothing saved shows picker",
			doc:  docWith(nil),
			want: Choice{ShowPicker: true},
		},
		{
			name:  "preferred language",
			doc:   docWith(func(f *config.FeatureFlags) { f.PreferenceLanguage = true }),
			saved: "en",
			want:  Choice{Language: "pt"},
		},
		{
			name: "browser language primary subtag",
			doc:  docWith(func(f *config.FeatureFlags) { f.BrowserLanguage = true }),
			env:  "pt-BR",
			want: Choice{Language: "pt"},
		},
		{
			name: "browser language regional match",
			doc:  docWith(func(f *config.FeatureFlags) { f.BrowserLanguage = true }),
			env:  "es-ES",
			want: Choice{Language: "es-ES"},
		},
		{
			name: "browser language no match",
			doc:  docWith(func(f *config.FeatureFlags) { f.BrowserLanguage = true }),
			env:  "ja-JP",
			want: Choice{ShowPicker: true},
		},
		{
			name: "both flags fall back to saved",
			doc: docWith(func(f *config.FeatureFlags) {
				f.BrowserLanguage = true
				f.PreferenceLanguage = true
			}),
			saved: "es-ES",
			want:  Choice{Language: "es-ES"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.doc, tt.saved, tt.env); got != tt.want {
				t.Errorf("Select() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEnvironmentLanguage(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "pt_PT.UTF-8")
	if got := EnvironmentLanguage(); got != "pt-PT" {
		t.Errorf("EnvironmentLanguage() = %q, want %q", got, "pt-PT")
	}

	t.Setenv("LC_ALL", "C")
	if got := EnvironmentLanguage(); got != "" {
		t.Errorf("EnvironmentLanguage() with C locale = %q, want empty", got)
	}
}
