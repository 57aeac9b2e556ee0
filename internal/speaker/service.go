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

package speaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/metrics"
)

// Synthesizer turns text into encoded audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays encoded audio until done or cancelled
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Summarizer shortens long notifications for speech
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// TTSStore persists spoken notification history
type TTSStore interface {
	Insert(*events.TTSEvent) error
}

// SpokenPublisher announces finished notifications on the bus
type SpokenPublisher interface {
	PublishSpoken(*events.TTSEvent) error
}

// Status is a point-in-time view of the speaker for the HTTP API
type Status struct {
	Speaking       bool `json:"speaking"`
	QueueLength    int  `json:"queue_length"`
	ReminderActive bool `json:"reminder_active"`
}

type request struct {
	text     string
	reminder bool
	repeat   int // 0 for the initial announcement
}

// Service is the spoken-notification pipeline. One worker goroutine
// drains the queue; Cancel interrupts the current utterance between
// sentences and clears everything queued behind it.
type Service struct {
	cfg   config.TTSConfig
	synth Synthesizer
	play  Player
	summ  Summarizer
	store TTSStore
	pub   SpokenPublisher

	queue chan request

	mu            sync.Mutex
	speaking      bool
	cancelCurrent context.CancelFunc
	reminderStop  chan struct{}
}

// NewService creates the speaker service
func NewService(cfg config.TTSConfig, synth Synthesizer, play Player, summ Summarizer, store TTSStore, pub SpokenPublisher) *Service {
	return &Service{
		cfg:   cfg,
		synth: synth,
		play:  play,
		summ:  summ,
		store: store,
		pub:   pub,
		queue: make(chan request, 8),
	}
}

// Speak enqueues a notification. When reminder is set, the text is
// re-spoken every ReminderInterval until CancelReminder is called.
func (s *Service) Speak(text string, reminder bool) error {
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	select {
	case s.queue <- request{text: text, reminder: reminder}:
	default:
		return fmt.Errorf("speak queue full")
	}

	if reminder {
		s.startReminder(text)
	}
	return nil
}

// Cancel stops the current utterance and clears the queue. The reminder
// loop, if any, keeps running; use CancelReminder to stop it.
func (s *Service) Cancel() {
	s.mu.Lock()
	cancel := s.cancelCurrent
	s.mu.Unlock()

	for {
		select {
		case <-s.queue:
		default:
			if cancel != nil {
				cancel()
			}
			logging.LogTTSOperation("cancel")
			return
		}
	}
}

// CancelReminder stops the active reminder loop
func (s *Service) CancelReminder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reminderStop != nil {
		close(s.reminderStop)
		s.reminderStop = nil
		metrics.RemindersActive.Dec()
		logging.LogTTSOperation("cancel-reminder")
	}
}

// Status reports current speaker activity
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Speaking:       s.speaking,
		QueueLength:    len(s.queue),
		ReminderActive: s.reminderStop != nil,
	}
}

// Run drains the queue until ctx is cancelled
func (s *Service) Run(ctx context.Context) {
	logging.LogTTSOperation("run", zap.Duration("reminder_interval", s.cfg.ReminderInterval))

	for {
		select {
		case <-ctx.Done():
			s.CancelReminder()
			return
		case req := <-s.queue:
			s.speak(ctx, req)
		}
	}
}

// startReminder replaces any active reminder loop with a new one
func (s *Service) startReminder(text string) {
	s.mu.Lock()
	if s.reminderStop != nil {
		close(s.reminderStop)
	} else {
		metrics.RemindersActive.Inc()
	}
	stop := make(chan struct{})
	s.reminderStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cfg.ReminderInterval)
		defer ticker.Stop()

		repeat := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				repeat++
				select {
				case s.queue <- request{text: text, reminder: true, repeat: repeat}:
				default:
					logging.LogWarn("Reminder dropped, speak queue full")
				}
			}
		}
	}()
}

func (s *Service) speak(ctx context.Context, req request) {
	sctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.speaking = true
	s.cancelCurrent = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.speaking = false
		s.cancelCurrent = nil
		s.mu.Unlock()
	}()

	event := events.NewTTSEvent(req.text)
	event.Reminder = req.repeat > 0

	spoken := req.text
	if len(spoken) > s.cfg.MaxDirectChars && s.summ != nil {
		summary, err := s.summ.Summarize(sctx, spoken)
		if err == nil && summary != "" {
			spoken = summary
			event.Summarized = true
		}
	}
	if req.repeat > 0 {
		spoken = fmt.Sprintf("Reminder %d: %s", req.repeat, spoken)
	}
	event.SpokenText = spoken

	outcome := s.speakSentences(sctx, spoken)
	event.Finish(outcome)
	metrics.SpeakTotal.WithLabelValues(string(outcome)).Inc()

	if s.store != nil {
		if err := s.store.Insert(event); err != nil {
			logging.LogError(err, "Failed to store TTS event")
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishSpoken(event); err != nil {
			logging.LogError(err, "Failed to publish TTS event")
		}
	}
}

// speakSentences synthesizes and plays sentence by sentence, checking for
// cancellation between each so a cancel lands quickly
func (s *Service) speakSentences(ctx context.Context, text string) events.TTSOutcome {
	for _, sentence := range SplitSentences(text) {
		if ctx.Err() != nil {
			return events.TTSOutcomeCancelled
		}

		audio, err := s.synth.Synthesize(ctx, sentence)
		if err != nil {
			if ctx.Err() != nil {
				return events.TTSOutcomeCancelled
			}
			logging.LogError(err, "Synthesis failed", zap.String("sentence", sentence))
			return events.TTSOutcomeFailed
		}

		if err := s.play.Play(ctx, audio); err != nil {
			if ctx.Err() != nil {
				return events.TTSOutcomeCancelled
			}
			logging.LogError(err, "Playback failed")
			return events.TTSOutcomeFailed
		}
	}
	return events.TTSOutcomeSpoken
}
