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

package trigger

import (
	"sync"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/metrics"
)

// suppressWindow coalesces near-simultaneous fires from different
// sources (hotkey and wake word both catching the same moment)
const suppressWindow = 250 * time.Millisecond

// Merger fans multiple trigger sources into one bounded stream. The
// first event in a suppress window wins; later duplicates of the same
// action are dropped, as are events the orchestrator is too busy to take.
type Merger struct {
	out chan Event

	mu       sync.Mutex
	lastSeen map[Action]time.Time
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewMerger creates a merger with a small bounded output buffer
func NewMerger() *Merger {
	return &Merger{
		out:      make(chan Event, 4),
		lastSeen: make(map[Action]time.Time),
		stop:     make(chan struct{}),
	}
}

// Add starts consuming a source
func (m *Merger) Add(src Source) {
	in := make(chan Event, 4)

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		src.Run(in, m.stop)
	}()
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stop:
				return
			case ev := <-in:
				m.offer(ev)
			}
		}
	}()
}

func (m *Merger) offer(ev Event) {
	m.mu.Lock()
	last, seen := m.lastSeen[ev.Action]
	if seen && ev.At.Sub(last) < suppressWindow {
		m.mu.Unlock()
		logging.Sugar.Debugw("Trigger suppressed as duplicate", "action", ev.Action, "kind", ev.Kind)
		return
	}
	m.lastSeen[ev.Action] = ev.At
	m.mu.Unlock()

	select {
	case m.out <- ev:
	default:
		// Orchestrator is behind; dropping beats queueing a stale trigger.
		metrics.TriggersDropped.Inc()
		logging.LogWarn("Trigger dropped, event queue full")
	}
}

// Events returns the merged event stream
func (m *Merger) Events() <-chan Event {
	return m.out
}

// Close stops all sources and waits for them to exit
func (m *Merger) Close() {
	close(m.stop)
	m.wg.Wait()
}
