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
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
)

// Scorer scores an audio frame for wake-word presence, returning a
// confidence in [0, 1]
type Scorer interface {
	Score(samples []float32) (float64, error)
}

// WakeGate turns raw wake-word scores into start events, applying the
// detection threshold and a cooldown so one utterance fires once.
type WakeGate struct {
	threshold float64
	cooldown  time.Duration
	lastFire  time.Time
	now       func() time.Time
}

// NewWakeGate creates a gate from wake-word configuration
func NewWakeGate(cfg config.WakeWordConfig) *WakeGate {
	return &WakeGate{
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		now:       time.Now,
	}
}

// Offer feeds one score and reports whether a wake event should fire
func (g *WakeGate) Offer(score float64) bool {
	if score < g.threshold {
		return false
	}

	now := g.now()
	if !g.lastFire.IsZero() && now.Sub(g.lastFire) < g.cooldown {
		return false
	}

	g.lastFire = now
	return true
}

// WakeWordSource scores incoming audio frames and emits a start event
// when the gate opens
type WakeWordSource struct {
	scorer Scorer
	gate   *WakeGate
	frames <-chan []float32
}

// NewWakeWordSource creates a source scoring frames from the given channel
func NewWakeWordSource(cfg config.WakeWordConfig, scorer Scorer, frames <-chan []float32) *WakeWordSource {
	return &WakeWordSource{
		scorer: scorer,
		gate:   NewWakeGate(cfg),
		frames: frames,
	}
}

// Run scores frames until stop is closed
func (w *WakeWordSource) Run(out chan<- Event, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case frame, ok := <-w.frames:
			if !ok {
				return
			}
			score, err := w.scorer.Score(frame)
			if err != nil {
				continue
			}
			if w.gate.Offer(score) {
				out <- Event{Action: ActionStart, Kind: events.TriggerWakeWord, At: time.Now()}
			}
		}
	}
}
