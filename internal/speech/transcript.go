// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	fillerPattern = regexp.MustCompile(`(?i)\b(hum|uhm|mm|ahm|um|uh|err|ah)\b`)
	spacePattern  = regexp.MustCompile(`\s+`)
	// Punctuation left floating after a filler was removed.
	loosePunct = regexp.MustCompile(`\s+([,.!?;:])`)
)

// corrections maps phrases recognizers commonly mishear to the intended
// wording. Keys are lower case.
var corrections = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`\bazure speed stack\b`), "Azure Speech SDK"},
	{regexp.MustCompile(`\bchat pod\b`), "chatbot"},
	{regexp.MustCompile(`\bre-cog nation\b`), "recognition"},
}

// CleanTranscript normalizes a recognized utterance: NFC, lower case, filler
// words removed, known mishearings corrected, whitespace collapsed and each
// sentence capitalized.
func CleanTranscript(text string) string {
	text = norm.NFC.String(text)
	text = strings.ToLower(text)
	text = fillerPattern.ReplaceAllString(text, "")
	for _, c := range corrections {
		text = c.pattern.ReplaceAllString(text, c.replace)
	}
	text = spacePattern.ReplaceAllString(text, " ")
	text = loosePunct.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, ",;: ")
	return capitalizeSentences(text)
}

func capitalizeSentences(text string) string {
	runes := []rune(text)
	upper := true
	for i, r := range runes {
		switch {
		case upper && unicode.IsLetter(r):
			runes[i] = unicode.ToUpper(r)
			upper = false
		case r == '.' || r == '!' || r == '?':
			upper = true
		case upper && !unicode.IsSpace(r):
			upper = false
		}
	}
	return string(runes)
}

// AppendTranscript joins a new utterance onto existing input text.
func AppendTranscript(prev, text string) string {
	if text == "" {
		return prev
	}
	if prev == "" {
		return text
	}
	return prev + " " + text
}
