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

// Package notify shows desktop notifications for session milestones so
// the user knows when capture starts, text lands, or something broke.
package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const appTitle = "Loqa Dictate"

// Notifier shows desktop notifications. A nil-safe no-op when disabled.
type Notifier struct {
	enabled bool
}

// New creates a notifier
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// RecordingStarted announces a new capture
func (n *Notifier) RecordingStarted() {
	n.show("Recording…", "")
}

// Delivered announces typed text, truncated for the toast
func (n *Notifier) Delivered(text string) {
	if len(text) > 120 {
		text = text[:117] + "…"
	}
	n.show("Typed", text)
}

// Dropped announces a session that produced nothing
func (n *Notifier) Dropped(reason string) {
	n.show("Nothing typed", reason)
}

// Failed announces a pipeline failure
func (n *Notifier) Failed(message string) {
	n.show("Dictation failed", message)
}

func (n *Notifier) show(title, body string) {
	if n == nil || !n.enabled {
		return
	}
	if err := beeep.Notify(appTitle+": "+title, body, ""); err != nil {
		logging.Sugar.Debugw("Desktop notification failed", "error", err)
	}
}
