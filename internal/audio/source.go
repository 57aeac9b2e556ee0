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

package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// Level is one RMS measurement emitted per input buffer while capturing
type Level struct {
	RMS      float64
	Captured time.Duration // capture length so far
}

// Source owns the always-open microphone stream. The stream stays open
// across sessions so the pre-roll ring keeps filling; BeginCapture and
// EndCapture bracket the samples a session keeps.
type Source struct {
	cfg config.AudioConfig

	mu        sync.Mutex
	stream    *portaudio.Stream
	ring      *Ring
	capturing bool
	capture   []float32
	lastTick  time.Time

	levels chan Level
	wake   chan []float32
	lost   chan error
	fatal  chan error
	done   chan struct{}
}

// NewSource initializes PortAudio and opens the default input stream
func NewSource(cfg config.AudioConfig) (*Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	s := &Source{
		cfg:    cfg,
		ring:   NewRing(samplesFor(cfg.PreRoll, cfg.SampleRate)),
		levels: make(chan Level, 16),
		lost:   make(chan error, 1),
		fatal:  make(chan error, 1),
		done:   make(chan struct{}),
	}

	if err := s.open(); err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	logging.Sugar.Infow("🎙️ Audio source ready",
		"sample_rate", cfg.SampleRate,
		"frames_per_buffer", cfg.FramesPerBuffer,
		"preroll", cfg.PreRoll,
	)

	go s.watchdog()

	return s, nil
}

func (s *Source) open() error {
	stream, err := portaudio.OpenDefaultStream(
		s.cfg.Channels, 0, float64(s.cfg.SampleRate), s.cfg.FramesPerBuffer, s.process)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.lastTick = time.Now()
	s.mu.Unlock()

	return nil
}

// process runs on the PortAudio callback thread. It must stay cheap:
// copy into the ring or capture buffer, push an RMS level, return.
func (s *Source) process(in []float32) {
	s.mu.Lock()
	s.lastTick = time.Now()

	if s.capturing {
		s.capture = append(s.capture, in...)
		level := Level{
			RMS:      RMS(in),
			Captured: time.Duration(len(s.capture)) * time.Second / time.Duration(s.cfg.SampleRate),
		}
		s.mu.Unlock()

		// Never block the audio thread; a full channel drops the level.
		select {
		case s.levels <- level:
		default:
		}
		return
	}

	s.ring.Write(in)
	wake := s.wake
	s.mu.Unlock()

	if wake != nil {
		frame := make([]float32, len(in))
		copy(frame, in)
		select {
		case wake <- frame:
		default:
		}
	}
}

// EnableWakeTap makes idle frames available for wake-word scoring. Frames
// are dropped rather than queued when the consumer lags.
func (s *Source) EnableWakeTap() <-chan []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake == nil {
		s.wake = make(chan []float32, 8)
	}
	return s.wake
}

// BeginCapture starts retaining samples, seeding the capture buffer with
// the pre-roll ring contents so speech onset before the trigger is kept
func (s *Source) BeginCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capturing {
		return
	}

	preroll := s.ring.Snapshot()
	s.capture = make([]float32, 0, len(preroll)+s.cfg.SampleRate)
	s.capture = append(s.capture, preroll...)
	s.ring.Reset()
	s.capturing = true

	// Drop stale levels from a previous capture.
	for {
		select {
		case <-s.levels:
		default:
			return
		}
	}
}

// EndCapture stops retaining samples and hands the buffer to the caller.
// The Source keeps no reference to the returned slice.
func (s *Source) EndCapture() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.capturing {
		return nil
	}

	buf := s.capture
	s.capture = nil
	s.capturing = false
	return buf
}

// Capturing reports whether a capture is in progress
func (s *Source) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// Levels returns the per-buffer RMS channel, populated only while capturing
func (s *Source) Levels() <-chan Level {
	return s.levels
}

// Lost returns a channel that receives an error each time the device
// stalls, before reacquisition is attempted. Any capture that was open
// spans a dead-device gap and should be aborted by the consumer.
func (s *Source) Lost() <-chan error {
	return s.lost
}

// Fatal returns a channel that receives the error when the device is lost
// and could not be reacquired
func (s *Source) Fatal() <-chan error {
	return s.fatal
}

// watchdog detects a stalled stream (device unplugged, server died) and
// tries to reopen it with exponential backoff before giving up
func (s *Source) watchdog() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		stalled := time.Since(s.lastTick) > 2*time.Second
		s.mu.Unlock()

		if !stalled {
			continue
		}

		logging.Sugar.Warnw("⚠️ Audio stream stalled, attempting to reacquire device")

		select {
		case s.lost <- fmt.Errorf("audio stream stalled"):
		default:
		}

		if err := s.reacquire(); err != nil {
			select {
			case s.fatal <- err:
			default:
			}
			return
		}
	}
}

func (s *Source) reacquire() error {
	s.mu.Lock()
	if s.stream != nil {
		_ = s.stream.Abort()
		_ = s.stream.Close()
		s.stream = nil
	}
	s.mu.Unlock()

	var lastErr error
	delay := s.cfg.RetryBaseDelay
	for attempt := 1; attempt <= s.cfg.DeviceRetries; attempt++ {
		select {
		case <-s.done:
			return fmt.Errorf("audio source closed during reacquire")
		case <-time.After(delay):
		}

		if err := s.open(); err != nil {
			lastErr = err
			logging.Sugar.Warnw("⚠️ Device reacquire failed",
				"attempt", attempt,
				"error", err,
				zap.Duration("next_delay", delay*2),
			)
			delay *= 2
			continue
		}

		logging.Sugar.Infow("🎙️ Audio device reacquired", "attempt", attempt)
		return nil
	}

	return fmt.Errorf("audio device lost after %d reacquire attempts: %w", s.cfg.DeviceRetries, lastErr)
}

// Close stops the stream and releases PortAudio
func (s *Source) Close() error {
	close(s.done)

	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Stop()
		if err := stream.Close(); err != nil {
			_ = portaudio.Terminate()
			return fmt.Errorf("failed to close input stream: %w", err)
		}
	}

	return portaudio.Terminate()
}

// RMS computes the root-mean-square level of a sample buffer
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}
