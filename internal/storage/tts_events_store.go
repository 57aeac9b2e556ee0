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

package storage

import (
	"fmt"

	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// TTSEventsStore handles database operations for spoken notifications
type TTSEventsStore struct {
	db *Database
}

// NewTTSEventsStore creates a new TTS events store
func NewTTSEventsStore(db *Database) *TTSEventsStore {
	return &TTSEventsStore{db: db}
}

// Insert stores a spoken notification record
func (s *TTSEventsStore) Insert(event *events.TTSEvent) error {
	query := `
		INSERT INTO tts_events (
			uuid, timestamp, text, spoken_text, summarized, reminder, latency_ms, outcome
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.Timestamp, event.Text, event.SpokenText,
		event.Summarized, event.Reminder, event.LatencyMs, string(event.Outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to insert TTS event: %w", err)
	}

	logging.LogDatabaseOperation("insert", "tts_events")
	return nil
}

// Recent returns the latest spoken notifications, newest first
func (s *TTSEventsStore) Recent(limit int) ([]*events.TTSEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT uuid, timestamp, text, spoken_text, summarized, reminder, latency_ms, outcome
		FROM tts_events ORDER BY timestamp DESC, id DESC LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent TTS events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*events.TTSEvent
	for rows.Next() {
		var event events.TTSEvent
		var outcome string
		if err := rows.Scan(
			&event.UUID, &event.Timestamp, &event.Text, &event.SpokenText,
			&event.Summarized, &event.Reminder, &event.LatencyMs, &outcome,
		); err != nil {
			return nil, fmt.Errorf("failed to scan TTS event: %w", err)
		}
		event.Outcome = events.TTSOutcome(outcome)
		out = append(out, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate TTS events: %w", err)
	}
	return out, nil
}
