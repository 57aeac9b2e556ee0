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

package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// statePayload is the on-disk JSON other tools read to show dictation
// status. The daemon only ever writes it.
type statePayload struct {
	State                State             `json:"state"`
	OutputMode           config.OutputMode `json:"output_mode"`
	CorrectionEnabled    bool              `json:"correction_enabled"`
	RecentTranscriptions []string          `json:"recent_transcriptions"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// StateFile mirrors orchestrator status to a JSON file. Writes are
// debounced so rapid state flips cost one disk write.
type StateFile struct {
	path      string
	mu        sync.Mutex
	pending   statePayload
	debounced func(func())
}

// NewStateFile creates a mirror writing to path. An empty path disables it.
func NewStateFile(path string) *StateFile {
	if path == "" {
		return nil
	}
	return &StateFile{
		path:      path,
		debounced: debounce.New(250 * time.Millisecond),
	}
}

// Update schedules a write with the latest status
func (s *StateFile) Update(state State, snap config.Snapshot, recent []string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.pending = statePayload{
		State:                state,
		OutputMode:           snap.OutputMode,
		CorrectionEnabled:    snap.CorrectionEnabled,
		RecentTranscriptions: recent,
		UpdatedAt:            time.Now(),
	}
	s.mu.Unlock()

	s.debounced(s.flush)
}

// Flush writes the pending state immediately, for shutdown
func (s *StateFile) Flush() {
	if s == nil {
		return
	}
	s.flush()
}

func (s *StateFile) flush() {
	s.mu.Lock()
	payload := s.pending
	s.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logging.LogError(err, "Failed to marshal state file")
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		logging.LogError(err, "Failed to create state directory")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		logging.LogError(err, "Failed to write state file")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		logging.LogError(err, "Failed to replace state file")
	}
}
