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
	"time"

	"github.com/google/uuid"
)

// TTSOutcome classifies how a spoken notification ended
type TTSOutcome string

const (
	TTSOutcomeSpoken    TTSOutcome = "spoken"
	TTSOutcomeCancelled TTSOutcome = "cancelled"
	TTSOutcomeFailed    TTSOutcome = "failed"
)

// TTSEvent records one spoken notification for the history database
type TTSEvent struct {
	UUID       string     `json:"uuid" db:"uuid"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
	Text       string     `json:"text" db:"text"`
	SpokenText string     `json:"spoken_text" db:"spoken_text"`
	Summarized bool       `json:"summarized" db:"summarized"`
	Reminder   bool       `json:"reminder" db:"reminder"`
	LatencyMs  int64      `json:"latency_ms" db:"latency_ms"`
	Outcome    TTSOutcome `json:"outcome" db:"outcome"`
}

// NewTTSEvent creates a TTSEvent with a generated UUID and the current timestamp
func NewTTSEvent(text string) *TTSEvent {
	return &TTSEvent{
		UUID:      uuid.NewString(),
		Timestamp: time.Now(),
		Text:      text,
		Outcome:   TTSOutcomeSpoken,
	}
}

// Finish stamps the latency and outcome
func (te *TTSEvent) Finish(outcome TTSOutcome) {
	te.Outcome = outcome
	te.LatencyMs = time.Since(te.Timestamp).Milliseconds()
}
