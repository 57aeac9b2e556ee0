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
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/events"
)

func TestTTSEventsStore_InsertAndRecent(t *testing.T) {
	store := NewTTSEventsStore(newTestDatabase(t))

	first := events.NewTTSEvent("build finished")
	first.SpokenText = "build finished"
	first.Finish(events.TTSOutcomeSpoken)
	if err := store.Insert(first); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	second := events.NewTTSEvent("a very long deploy notification with lots of detail")
	second.SpokenText = "deploy done"
	second.Summarized = true
	second.Reminder = true
	second.Finish(events.TTSOutcomeCancelled)
	if err := store.Insert(second); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}

	latest := got[0]
	if latest.UUID != second.UUID {
		t.Errorf("Expected newest event first, got UUID %s", latest.UUID)
	}
	if !latest.Summarized || !latest.Reminder {
		t.Errorf("Expected summarized reminder event, got %+v", latest)
	}
	if latest.Outcome != events.TTSOutcomeCancelled {
		t.Errorf("Expected outcome %q, got %q", events.TTSOutcomeCancelled, latest.Outcome)
	}
}

func TestTTSEventsStore_RecentLimit(t *testing.T) {
	store := NewTTSEventsStore(newTestDatabase(t))

	for i := 0; i < 5; i++ {
		event := events.NewTTSEvent("notification")
		event.SpokenText = "notification"
		if err := store.Insert(event); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	got, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 events, got %d", len(got))
	}
}
