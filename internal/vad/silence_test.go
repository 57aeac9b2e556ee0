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

package vad

import (
	"testing"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

func testConfig() config.SilenceConfig {
	return config.SilenceConfig{
		Threshold: 0.01,
		Duration:  1500 * time.Millisecond,
		MinSpeech: 500 * time.Millisecond,
	}
}

// feedRun feeds n levels of the given RMS, 100ms apart, starting at offset
func feedRun(d *SilenceDetector, rms float64, start time.Duration, n int) (bool, time.Duration) {
	offset := start
	for i := 0; i < n; i++ {
		offset += 100 * time.Millisecond
		if d.Feed(rms, offset) {
			return true, offset
		}
	}
	return false, offset
}

func TestSilenceDetector_SpeechThenSilenceStops(t *testing.T) {
	d := NewSilenceDetector(testConfig())

	stopped, offset := feedRun(d, 0.1, 0, 10) // 1s of speech
	if stopped {
		t.Fatal("Detector stopped during speech")
	}

	stopped, stopAt := feedRun(d, 0.001, offset, 30)
	if !stopped {
		t.Fatal("Detector never stopped after sustained silence")
	}

	// Silence began at offset+100ms; stop should come 1.5s later.
	expected := offset + 100*time.Millisecond + 1500*time.Millisecond
	if stopAt != expected {
		t.Errorf("Expected stop at %v, got %v", expected, stopAt)
	}
}

func TestSilenceDetector_SilenceOnlyCaptureStops(t *testing.T) {
	d := NewSilenceDetector(testConfig())

	// A capture that never contains speech still auto-stops once the
	// silence duration elapses; it must not run to the capture ceiling.
	stopped, stopAt := feedRun(d, 0.001, 0, 20)
	if !stopped {
		t.Fatal("Detector never auto-stopped a silence-only capture")
	}

	// Silence run begins at the first buffer (100ms); stop 1.5s later.
	expected := 100*time.Millisecond + 1500*time.Millisecond
	if stopAt != expected {
		t.Errorf("Expected stop at %v, got %v", expected, stopAt)
	}
	if d.SpeechHeard() {
		t.Error("SpeechHeard() true for silent capture")
	}
}

func TestSilenceDetector_BriefPauseDoesNotStop(t *testing.T) {
	d := NewSilenceDetector(testConfig())

	feedRun(d, 0.1, 0, 10) // speech
	offset := time.Second

	// 1s pause, below the 1.5s silence duration.
	stopped, offset := feedRun(d, 0.001, offset, 10)
	if stopped {
		t.Fatal("Detector stopped during a brief pause")
	}

	// Speech resumes; the silence run must reset.
	stopped, offset = feedRun(d, 0.1, offset, 5)
	if stopped {
		t.Fatal("Detector stopped after speech resumed")
	}

	// Stopping now still takes a full 1.5s of silence.
	stopped, stopAt := feedRun(d, 0.001, offset, 30)
	if !stopped {
		t.Fatal("Detector never stopped after final silence")
	}
	expected := offset + 100*time.Millisecond + 1500*time.Millisecond
	if stopAt != expected {
		t.Errorf("Expected stop at %v, got %v", expected, stopAt)
	}
}

func TestSilenceDetector_MinSpeechGuard(t *testing.T) {
	cfg := testConfig()
	cfg.Duration = 200 * time.Millisecond
	d := NewSilenceDetector(cfg)

	// One loud buffer right at the start, then silence. Even though the
	// silence duration elapses quickly, no stop before MinSpeech.
	if d.Feed(0.1, 100*time.Millisecond) {
		t.Fatal("Stopped on first speech buffer")
	}
	if d.Feed(0.001, 200*time.Millisecond) {
		t.Fatal("Stopped before min speech duration")
	}
	if d.Feed(0.001, 400*time.Millisecond) {
		t.Fatal("Stopped before min speech duration")
	}
	if !d.Feed(0.001, 600*time.Millisecond) {
		t.Error("Expected stop after min speech duration elapsed")
	}
}

func TestSilenceDetector_Reset(t *testing.T) {
	d := NewSilenceDetector(testConfig())

	feedRun(d, 0.1, 0, 10)
	d.Reset()

	if d.SpeechHeard() {
		t.Error("SpeechHeard() true after reset")
	}

	// The silence clock starts over for the new capture.
	stopped, stopAt := feedRun(d, 0.001, 0, 20)
	if !stopped {
		t.Fatal("Detector never stopped after reset")
	}
	expected := 100*time.Millisecond + 1500*time.Millisecond
	if stopAt != expected {
		t.Errorf("Expected stop at %v, got %v", expected, stopAt)
	}
}
