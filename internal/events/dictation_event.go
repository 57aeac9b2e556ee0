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

package events

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// TriggerKind identifies what started or stopped a capture session
type TriggerKind string

const (
	TriggerHotkey   TriggerKind = "hotkey"
	TriggerWakeWord TriggerKind = "wake_word"
	TriggerAPI      TriggerKind = "api"
)

// Outcome classifies how a dictation session ended
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeEmpty     Outcome = "empty"     // silence gate or hallucination filter dropped it
	OutcomeCancelled Outcome = "cancelled" // user cancelled mid-session
	OutcomeFailed    Outcome = "failed"    // a required stage failed
)

// DictationEvent records one complete capture-to-delivery session with
// per-stage latencies for the history database
type DictationEvent struct {
	UUID      string      `json:"uuid" db:"uuid"`
	SessionID uint64      `json:"session_id" db:"session_id"`
	Timestamp time.Time   `json:"timestamp" db:"timestamp"`
	Trigger   TriggerKind `json:"trigger" db:"trigger"`

	// Audio metadata
	AudioHash     string  `json:"audio_hash" db:"audio_hash"`
	AudioDuration float64 `json:"audio_duration" db:"audio_duration"`
	SampleRate    int     `json:"sample_rate" db:"sample_rate"`
	AutoStopped   bool    `json:"auto_stopped" db:"auto_stopped"`

	// Pipeline results. CorrectionFailed marks a delivered session whose
	// correction stage errored and fell back to the dictionary pass.
	RawText          string `json:"raw_text" db:"raw_text"`
	CorrectedText    string `json:"corrected_text" db:"corrected_text"`
	CorrectionFailed bool   `json:"correction_failed" db:"correction_failed"`
	DeliveredText    string `json:"delivered_text" db:"delivered_text"`
	OutputMode       string `json:"output_mode" db:"output_mode"`
	Backend          string `json:"backend" db:"backend"`

	// Per-stage latencies in milliseconds
	TranscribeMs int64 `json:"transcribe_ms" db:"transcribe_ms"`
	CorrectMs    int64 `json:"correct_ms" db:"correct_ms"`
	DeliverMs    int64 `json:"deliver_ms" db:"deliver_ms"`
	TotalMs      int64 `json:"total_ms" db:"total_ms"`

	Outcome      Outcome `json:"outcome" db:"outcome"`
	ErrorMessage string  `json:"error_message,omitempty" db:"error_message"`
}

// NewDictationEvent creates a DictationEvent with a generated UUID and the
// current timestamp
func NewDictationEvent(sessionID uint64, trigger TriggerKind) *DictationEvent {
	return &DictationEvent{
		UUID:      uuid.NewString(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Trigger:   trigger,
		Outcome:   OutcomeDelivered,
	}
}

// SetAudioMetadata records audio details for the captured buffer
func (de *DictationEvent) SetAudioMetadata(samples []float32, sampleRate int, autoStopped bool) {
	de.AudioHash = hashSamples(samples)
	if sampleRate > 0 {
		de.AudioDuration = float64(len(samples)) / float64(sampleRate)
	}
	de.SampleRate = sampleRate
	de.AutoStopped = autoStopped
}

// Finish stamps the total latency and outcome
func (de *DictationEvent) Finish(outcome Outcome) {
	de.Outcome = outcome
	de.TotalMs = time.Since(de.Timestamp).Milliseconds()
}

// SetError marks the event as failed with an error message
func (de *DictationEvent) SetError(err error) {
	de.Outcome = OutcomeFailed
	de.ErrorMessage = err.Error()
	de.TotalMs = time.Since(de.Timestamp).Milliseconds()
}

// hashSamples generates a SHA-256 hash of the audio data for duplicate detection
func hashSamples(samples []float32) string {
	hasher := sha256.New()

	for i := range samples {
		bytes := (*[4]byte)(unsafe.Pointer(&samples[i]))[:]
		hasher.Write(bytes)
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// IsValid performs basic validation on the dictation event
func (de *DictationEvent) IsValid() error {
	if de.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if de.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	switch de.Trigger {
	case TriggerHotkey, TriggerWakeWord, TriggerAPI:
	default:
		return fmt.Errorf("unknown trigger kind: %q", de.Trigger)
	}

	switch de.Outcome {
	case OutcomeDelivered, OutcomeEmpty, OutcomeCancelled, OutcomeFailed:
	default:
		return fmt.Errorf("unknown outcome: %q", de.Outcome)
	}

	return nil
}

// String returns a human-readable representation of the dictation event
func (de *DictationEvent) String() string {
	return fmt.Sprintf("DictationEvent{UUID: %s, Session: %d, Trigger: %s, Raw: %q, Outcome: %s}",
		de.UUID, de.SessionID, de.Trigger, de.RawText, de.Outcome)
}
