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

// Package vad implements the silence-based auto-stop decision for
// capture sessions.
package vad

import (
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// SilenceDetector decides when a capture should auto-stop: sustained
// silence ends the session, whether or not speech was ever heard. Feed
// it one RMS level per audio buffer.
type SilenceDetector struct {
	threshold float64
	duration  time.Duration
	minSpeech time.Duration

	speechHeard  bool
	silenceSince time.Duration // capture offset where the current silence run began
	inSilence    bool
}

// NewSilenceDetector creates a detector from silence configuration
func NewSilenceDetector(cfg config.SilenceConfig) *SilenceDetector {
	return &SilenceDetector{
		threshold: cfg.Threshold,
		duration:  cfg.Duration,
		minSpeech: cfg.MinSpeech,
	}
}

// Feed consumes one RMS measurement taken at the given capture offset and
// reports whether the capture should auto-stop now.
//
// Auto-stop requires both of:
//   - at least minSpeech of capture has elapsed
//   - silence has been sustained for the configured duration
func (d *SilenceDetector) Feed(rms float64, captured time.Duration) bool {
	if rms >= d.threshold {
		d.speechHeard = true
		d.inSilence = false
		return false
	}

	if !d.inSilence {
		d.inSilence = true
		d.silenceSince = captured
		return false
	}

	if captured < d.minSpeech {
		return false
	}

	return captured-d.silenceSince >= d.duration
}

// SpeechHeard reports whether any speech has been detected this capture
func (d *SilenceDetector) SpeechHeard() bool {
	return d.speechHeard
}

// Reset clears detector state for a new capture
func (d *SilenceDetector) Reset() {
	d.speechHeard = false
	d.inSilence = false
	d.silenceSince = 0
}
