/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package pipeline

import (
	"fmt"
	"strings"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// hallucinations are phrases speech models emit for near-silent audio.
// A transcription that is nothing but one of these gets dropped.
var hallucinations = map[string]bool{
	"thank you":              true,
	"thanks for watching":    true,
	"thank you for watching": true,
	"you":                    true,
	"bye":                    true,
	"bye bye":                true,
	"so":                     true,
	"the end":                true,
	"subtitles by":           true,
}

// IsHallucination reports whether text is a known silent-audio artifact
func IsHallucination(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, ".!?,")
	normalized = strings.TrimSpace(normalized)
	return normalized == "" || hallucinations[normalized]
}

// ApplyCorrections runs the user's replacement dictionary over text.
// Matches are case-insensitive on word boundaries and may span multiple
// words, so "cooper netties" can map to "kubernetes".
func ApplyCorrections(text string, corrections map[string]string) string {
	for from, to := range corrections {
		text = replacePhrase(text, from, to)
	}
	return text
}

func replacePhrase(text, from, to string) string {
	if from == "" {
		return text
	}

	lower := strings.ToLower(text)
	needle := strings.ToLower(from)

	var out strings.Builder
	start := 0
	for {
		idx := strings.Index(lower[start:], needle)
		if idx < 0 {
			out.WriteString(text[start:])
			return out.String()
		}
		idx += start
		end := idx + len(needle)

		if wordBoundary(lower, idx, end) {
			out.WriteString(text[start:idx])
			out.WriteString(to)
		} else {
			out.WriteString(text[start:end])
		}
		start = end
	}
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 && isWordChar(s[start-1]) {
		return false
	}
	if end < len(s) && isWordChar(s[end]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ComposeOutput builds the delivered text from raw and corrected
// transcriptions according to the output mode
func ComposeOutput(raw, corrected string, mode config.OutputMode) string {
	switch mode {
	case config.OutputRawOnly:
		return raw
	case config.OutputCorrectedOnly:
		if corrected != "" {
			return corrected
		}
		return raw
	default: // OutputBoth
		if corrected == "" || corrected == raw {
			return raw
		}
		return fmt.Sprintf("%s [%s]", corrected, raw)
	}
}

// VocabPrompt renders the user vocabulary as a transcription bias prompt
func VocabPrompt(vocabulary []string) string {
	if len(vocabulary) == 0 {
		return ""
	}
	return "Vocabulary: " + strings.Join(vocabulary, ", ")
}
