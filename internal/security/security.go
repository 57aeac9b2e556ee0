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

package security

import (
	"errors"
	"strings"
	"unicode"
)

const maxTermLength = 64

// ErrInvalidTerm is returned when a lexicon term fails validation
var ErrInvalidTerm = errors.New("invalid lexicon term")

// SanitizeLogInput removes newline characters to prevent log injection attacks.
// Transcribed text is user-controlled and must pass through here before logging.
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", " ")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateTerm checks a vocabulary or correction entry. Terms reach the
// STT prompt and the correction pipeline, so control characters and
// oversized entries are rejected.
func ValidateTerm(term string) error {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return ErrInvalidTerm
	}
	if len(trimmed) > maxTermLength {
		return ErrInvalidTerm
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return ErrInvalidTerm
		}
	}
	return nil
}
