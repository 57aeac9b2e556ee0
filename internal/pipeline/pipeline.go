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

// Package pipeline holds the transcribe, correct and deliver stages that
// turn a captured audio buffer into typed text.
package pipeline

import (
	"context"
	"fmt"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// Stage names a pipeline stage for errors, logs and metrics
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageCorrect    Stage = "correct"
	StageDeliver    Stage = "deliver"
)

// StageError wraps a failure with the stage it happened in. The
// orchestrator's failure policy keys off the stage: a transcribe failure
// ends the session, a correct failure falls back to raw text, a deliver
// failure surfaces a notification.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with its stage
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Transcriber converts an audio buffer to text. The prompt biases the
// model toward user vocabulary.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int, prompt string) (string, error)
	Close() error
}

// Corrector cleans up a raw transcription
type Corrector interface {
	Correct(ctx context.Context, text string, snap config.Snapshot) (string, error)
}

// Deliverer types text into the focused application, returning the name
// of the backend that succeeded
type Deliverer interface {
	Deliver(ctx context.Context, text string) (string, error)
}

// NewTranscriber builds the configured transcription engine
func NewTranscriber(cfg config.STTConfig) (Transcriber, error) {
	switch cfg.Engine {
	case "whisper":
		return NewWhisperTranscriber(cfg)
	case "rest":
		return NewRESTTranscriber(cfg), nil
	default:
		return nil, fmt.Errorf("unknown STT engine: %q", cfg.Engine)
	}
}
