//go:build !whisper

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
	"context"
	"fmt"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// WhisperTranscriber stub implementation when whisper is disabled
type WhisperTranscriber struct{}

// NewWhisperTranscriber creates a stub transcriber when whisper is disabled
func NewWhisperTranscriber(cfg config.STTConfig) (*WhisperTranscriber, error) {
	return &WhisperTranscriber{}, nil
}

// Transcribe stub implementation always fails
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int, prompt string) (string, error) {
	return "", fmt.Errorf("whisper transcription disabled (build with -tags whisper, or set STT_ENGINE=rest)")
}

// Close stub implementation
func (wt *WhisperTranscriber) Close() error {
	return nil
}
