//go:build whisper

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
	"os"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// WhisperTranscriber runs speech-to-text on a local Whisper model
type WhisperTranscriber struct {
	mu       sync.Mutex
	model    whisper.Model
	language string
}

// NewWhisperTranscriber loads the Whisper model from disk
func NewWhisperTranscriber(cfg config.STTConfig) (*WhisperTranscriber, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found at %s", cfg.ModelPath)
	}

	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	logging.Sugar.Infow("🧠 Whisper model loaded", "path", cfg.ModelPath)
	return &WhisperTranscriber{
		model:    model,
		language: cfg.Language,
	}, nil
}

// Transcribe converts audio samples to text. Whisper inference is not
// reentrant, so calls serialize on the model lock; the context is checked
// before starting since inference itself cannot be interrupted.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.model == nil {
		return "", fmt.Errorf("whisper model not initialized")
	}

	wctx, err := wt.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	if wt.language != "" {
		if err := wctx.SetLanguage(wt.language); err != nil {
			return "", fmt.Errorf("failed to set language: %w", err)
		}
	}
	if prompt != "" {
		wctx.SetInitialPrompt(prompt)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("failed to process audio: %w", err)
	}

	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	return strings.TrimSpace(transcript.String()), nil
}

// Close releases the Whisper model
func (wt *WhisperTranscriber) Close() error {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.model != nil {
		wt.model.Close()
		wt.model = nil
		logging.Sugar.Infow("🧠 Whisper model closed")
	}
	return nil
}
