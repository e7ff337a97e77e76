// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/jeranaias/vachat/internal/config"
)

// Choice is the result of display-language selection.
type Choice struct {
	// Language is the chosen code, empty when the picker must be shown.
	Language string
	// ShowPicker reports that the user has to choose a language.
	ShowPicker bool
}

// Select picks the display language.
//
// With preferenceLanguage on (and browserLanguage off) the document's
// preferred language wins. With browserLanguage on (and preferenceLanguage
// off) the environment language is matched against the document's list.
// Otherwise the saved language is used. Anything unresolved shows the picker.
func Select(doc *config.ClientDocument, saved, envLang string) Choice {
	flags := doc.Features
	switch {
	case flags.PreferenceLanguage && !flags.BrowserLanguage:
		if doc.PreferredLanguage != "" {
			return Choice{Language: doc.PreferredLanguage}
		}
	case flags.BrowserLanguage && !flags.PreferenceLanguage:
		if code := MatchLanguage(doc.Languages, envLang); code != "" {
			return Choice{Language: code}
		}
	default:
		if saved != "" {
			return Choice{Language: saved}
		}
	}
	if !flags.EnableLanguages && doc.PreferredLanguage != "" {
		return Choice{Language: doc.PreferredLanguage}
	}
	return Choice{ShowPicker: true}
}

// MatchLanguage returns the code from langs that best matches the tag, or
// "" when nothing matches with at least high confidence.
func MatchLanguage(langs []config.Language, tag string) string {
	if tag == "" || len(langs) == 0 {
		return ""
	}
	want, err := language.Parse(tag)
	if err != nil {
		return ""
	}

	// Exact primary-subtag match first, as a browser "pt-BR" maps to "pt".
	base, _ := want.Base()
	for _, l := range langs {
		if l.Code == base.String() {
			return l.Code
		}
	}

	supported := make([]language.Tag, 0, len(langs))
	codes := make([]string, 0, len(langs))
	for _, l := range langs {
		t, err := language.Parse(l.Code)
		if err != nil {
			continue
		}
		supported = append(supported, t)
		codes = append(codes, l.Code)
	}
	if len(supported) == 0 {
		return ""
	}
	_, idx, conf := language.NewMatcher(supported).Match(want)
	if conf < language.High {
		return ""
	}
	return codes[idx]
}

// EnvironmentLanguage derives a BCP 47 tag from LC_ALL, LC_MESSAGES or LANG
// ("pt_PT.UTF-8" becomes "pt-PT"). Returns "" for C/POSIX locales.
func EnvironmentLanguage() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if v == "" || v == "C" || v == "POSIX" {
			return ""
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}
