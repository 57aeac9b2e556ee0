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
	"database/sql"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// DictationEventsStore handles database operations for dictation history
type DictationEventsStore struct {
	db *Database
}

// NewDictationEventsStore creates a new dictation events store
func NewDictationEventsStore(db *Database) *DictationEventsStore {
	return &DictationEventsStore{db: db}
}

// Insert stores a completed dictation session
func (s *DictationEventsStore) Insert(event *events.DictationEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid dictation event: %w", err)
	}

	query := `
		INSERT INTO dictation_events (
			uuid, session_id, timestamp, trigger_kind,
			audio_hash, audio_duration, sample_rate, auto_stopped,
			raw_text, corrected_text, correction_failed, delivered_text, output_mode, backend,
			transcribe_ms, correct_ms, deliver_ms, total_ms,
			outcome, error_message
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?
		)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.SessionID, event.Timestamp, string(event.Trigger),
		event.AudioHash, event.AudioDuration, event.SampleRate, event.AutoStopped,
		event.RawText, event.CorrectedText, event.CorrectionFailed, event.DeliveredText, event.OutputMode, event.Backend,
		event.TranscribeMs, event.CorrectMs, event.DeliverMs, event.TotalMs,
		string(event.Outcome), event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert dictation event: %w", err)
	}

	logging.LogDatabaseOperation("insert", "dictation_events")
	return nil
}

// GetByUUID retrieves one dictation event
func (s *DictationEventsStore) GetByUUID(uuid string) (*events.DictationEvent, error) {
	query := selectColumns + ` WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dictation event not found: %s", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dictation event: %w", err)
	}
	return event, nil
}

// Recent returns the latest delivered transcriptions, newest first
func (s *DictationEventsStore) Recent(limit int) ([]*events.DictationEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := selectColumns + ` ORDER BY timestamp DESC, id DESC LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEvents(rows)
}

// ListByDay returns all events whose timestamp falls on the given day
func (s *DictationEventsStore) ListByDay(day time.Time) ([]*events.DictationEvent, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := selectColumns + ` WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp`

	rows, err := s.db.DB().Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by day: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEvents(rows)
}

// DailyReport aggregates one day of dictation activity
type DailyReport struct {
	Day          string  `json:"day"`
	Sessions     int     `json:"sessions"`
	Delivered    int     `json:"delivered"`
	Failed       int     `json:"failed"`
	Empty        int     `json:"empty"`
	Cancelled    int     `json:"cancelled"`
	AudioSeconds float64 `json:"audio_seconds"`
	AvgTotalMs   float64 `json:"avg_total_ms"`
	Words        int     `json:"words"`
	Chars        int     `json:"chars"`
	// WordsPerMinute relates words typed to audio spoken, a rough
	// dictation speed indicator
	WordsPerMinute float64 `json:"words_per_minute"`
}

// Report computes aggregate statistics for the given day
func (s *DictationEventsStore) Report(day time.Time) (*DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'delivered' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'empty' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(audio_duration), 0),
			COALESCE(AVG(CASE WHEN outcome = 'delivered' THEN total_ms END), 0),
			COALESCE(SUM(LENGTH(delivered_text) - LENGTH(REPLACE(delivered_text, ' ', '')) +
				CASE WHEN LENGTH(delivered_text) > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(delivered_text)), 0)
		FROM dictation_events
		WHERE timestamp >= ? AND timestamp < ?`

	report := &DailyReport{Day: start.Format("2006-01-02")}
	err := s.db.DB().QueryRow(query, start, end).Scan(
		&report.Sessions, &report.Delivered, &report.Failed, &report.Empty,
		&report.Cancelled, &report.AudioSeconds, &report.AvgTotalMs, &report.Words,
		&report.Chars,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily report: %w", err)
	}

	if report.AudioSeconds > 0 {
		report.WordsPerMinute = float64(report.Words) / (report.AudioSeconds / 60)
	}

	return report, nil
}

const selectColumns = `
	SELECT uuid, session_id, timestamp, trigger_kind,
		audio_hash, audio_duration, sample_rate, auto_stopped,
		raw_text, corrected_text, correction_failed, delivered_text, output_mode, backend,
		transcribe_ms, correct_ms, deliver_ms, total_ms,
		outcome, error_message
	FROM dictation_events`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*events.DictationEvent, error) {
	var event events.DictationEvent
	var trigger, outcome string

	err := row.Scan(
		&event.UUID, &event.SessionID, &event.Timestamp, &trigger,
		&event.AudioHash, &event.AudioDuration, &event.SampleRate, &event.AutoStopped,
		&event.RawText, &event.CorrectedText, &event.CorrectionFailed, &event.DeliveredText, &event.OutputMode, &event.Backend,
		&event.TranscribeMs, &event.CorrectMs, &event.DeliverMs, &event.TotalMs,
		&outcome, &event.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	event.Trigger = events.TriggerKind(trigger)
	event.Outcome = events.Outcome(outcome)
	return &event, nil
}

func collectEvents(rows *sql.Rows) ([]*events.DictationEvent, error) {
	var out []*events.DictationEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dictation event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dictation events: %w", err)
	}
	return out, nil
}
