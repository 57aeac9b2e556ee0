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

// Package trigger turns hotkey chords and wake-word detections into a
// single ordered stream of capture events.
package trigger

import (
	"time"

	"github.com/loqalabs/loqa-dictate/internal/events"
)

// Action is what a trigger event asks the orchestrator to do
type Action string

const (
	// ActionToggle starts a capture when idle, stops it when capturing,
	// and cancels in-flight processing. The control surface emits this.
	ActionToggle Action = "toggle"
	// ActionStart starts a capture when idle. Chord presses and wake
	// words emit this.
	ActionStart Action = "start"
	// ActionStop stops the active capture. Chord releases and the
	// control surface emit this.
	ActionStop Action = "stop"
)

// Event is one trigger firing
type Event struct {
	Action Action
	Kind   events.TriggerKind
	At     time.Time
}

// Source is anything that produces trigger events into a channel
type Source interface {
	// Run delivers events to out until stop is closed
	Run(out chan<- Event, stop <-chan struct{})
}
