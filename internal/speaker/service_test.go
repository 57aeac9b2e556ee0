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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	return []byte("audio:" + text), nil
}

func (f *fakeSynth) sentences() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakePlayer struct {
	mu    sync.Mutex
	delay time.Duration
	plays int
}

func (f *fakePlayer) Play(ctx context.Context, audio []byte) error {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakePlayer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

type fakeSummarizer struct{ summary string }

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return f.summary, nil
}

type fakeTTSStore struct {
	mu     sync.Mutex
	events []*events.TTSEvent
}

func (f *fakeTTSStore) Insert(event *events.TTSEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeTTSStore) all() []*events.TTSEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*events.TTSEvent, len(f.events))
	copy(out, f.events)
	return out
}

func testTTSConfig() config.TTSConfig {
	return config.TTSConfig{
		Enabled:          true,
		MaxDirectChars:   60,
		ReminderInterval: 100 * time.Millisecond,
		Timeout:          time.Second,
	}
}

func newTestService(t *testing.T, cfg config.TTSConfig, synth *fakeSynth, player *fakePlayer, summ Summarizer, store *fakeTTSStore) *Service {
	t.Helper()

	svc := NewService(cfg, synth, player, summ, store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	t.Cleanup(cancel)
	return svc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestService_SpeaksSentenceBySentence(t *testing.T) {
	synth := &fakeSynth{}
	store := &fakeTTSStore{}
	svc := newTestService(t, testTTSConfig(), synth, &fakePlayer{}, nil, store)

	if err := svc.Speak("First one. Second one.", false); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}

	waitFor(t, "stored event", func() bool { return len(store.all()) == 1 })

	got := synth.sentences()
	if len(got) != 2 || got[0] != "First one." || got[1] != "Second one." {
		t.Errorf("Expected per-sentence synthesis, got %v", got)
	}

	event := store.all()[0]
	if event.Outcome != events.TTSOutcomeSpoken {
		t.Errorf("Expected spoken outcome, got %q", event.Outcome)
	}
	if event.Summarized || event.Reminder {
		t.Errorf("Unexpected flags: %+v", event)
	}
}

func TestService_LongTextGetsSummarized(t *testing.T) {
	synth := &fakeSynth{}
	store := &fakeTTSStore{}
	long := strings.Repeat("A long notification about a build. ", 10)
	svc := newTestService(t, testTTSConfig(), synth, &fakePlayer{},
		&fakeSummarizer{summary: "Build finished."}, store)

	if err := svc.Speak(long, false); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}

	waitFor(t, "stored event", func() bool { return len(store.all()) == 1 })

	event := store.all()[0]
	if !event.Summarized {
		t.Error("Expected summarized flag")
	}
	if event.SpokenText != "Build finished." {
		t.Errorf("Expected summary to be spoken, got %q", event.SpokenText)
	}
	if event.Text != long {
		t.Error("Original text must be kept on the event")
	}
}

func TestService_CancelStopsBetweenSentences(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{delay: 200 * time.Millisecond}
	store := &fakeTTSStore{}
	svc := newTestService(t, testTTSConfig(), synth, player, nil, store)

	if err := svc.Speak("One. Two. Three. Four. Five.", false); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}

	waitFor(t, "playback start", func() bool { return player.count() > 0 })
	svc.Cancel()

	waitFor(t, "stored event", func() bool { return len(store.all()) == 1 })

	event := store.all()[0]
	if event.Outcome != events.TTSOutcomeCancelled {
		t.Errorf("Expected cancelled outcome, got %q", event.Outcome)
	}
	if len(synth.sentences()) >= 5 {
		t.Errorf("Expected cancellation before all sentences, synthesized %d", len(synth.sentences()))
	}
}

func TestService_CancelClearsQueue(t *testing.T) {
	player := &fakePlayer{delay: 150 * time.Millisecond}
	store := &fakeTTSStore{}
	svc := newTestService(t, testTTSConfig(), &fakeSynth{}, player, nil, store)

	if err := svc.Speak("First message.", false); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}
	waitFor(t, "playback start", func() bool { return player.count() > 0 })

	if err := svc.Speak("Queued message.", false); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}
	svc.Cancel()

	waitFor(t, "first event stored", func() bool { return len(store.all()) >= 1 })
	time.Sleep(300 * time.Millisecond)

	if got := len(store.all()); got != 1 {
		t.Errorf("Expected queued message to be cleared, got %d events", got)
	}
}

func TestService_ReminderRepeatsUntilCancelled(t *testing.T) {
	synth := &fakeSynth{}
	store := &fakeTTSStore{}
	svc := newTestService(t, testTTSConfig(), synth, &fakePlayer{}, nil, store)

	if err := svc.Speak("Check the oven.", true); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}

	waitFor(t, "initial plus two reminders", func() bool { return len(store.all()) >= 3 })
	svc.CancelReminder()

	countAtCancel := len(store.all())
	time.Sleep(300 * time.Millisecond)
	if got := len(store.all()); got > countAtCancel+1 {
		t.Errorf("Reminders kept firing after cancel: %d -> %d", countAtCancel, got)
	}

	all := store.all()
	if all[0].Reminder {
		t.Error("Initial announcement must not be flagged as reminder")
	}
	if !all[1].Reminder {
		t.Error("Repeat must be flagged as reminder")
	}
	if !strings.HasPrefix(all[1].SpokenText, "Reminder 1:") {
		t.Errorf("Expected escalating reminder prefix, got %q", all[1].SpokenText)
	}
	if svc.Status().ReminderActive {
		t.Error("Reminder still active after cancel")
	}
}

func TestService_StatusReflectsActivity(t *testing.T) {
	player := &fakePlayer{delay: 200 * time.Millisecond}
	svc := newTestService(t, testTTSConfig(), &fakeSynth{}, player, nil, &fakeTTSStore{})

	if svc.Status().Speaking {
		t.Error("Expected idle status initially")
	}

	if err := svc.Speak("Something to say.", false); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}
	waitFor(t, "speaking status", func() bool { return svc.Status().Speaking })
	waitFor(t, "idle status", func() bool { return !svc.Status().Speaking })
}

func TestService_EmptyTextRejected(t *testing.T) {
	svc := newTestService(t, testTTSConfig(), &fakeSynth{}, &fakePlayer{}, nil, &fakeTTSStore{})
	if err := svc.Speak("", false); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"single", "Hello there.", []string{"Hello there."}},
		{"multiple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"no terminator", "trailing fragment", []string{"trailing fragment"}},
		{"mixed", "Done. and then some", []string{"Done.", "and then some"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("SplitSentences(%q) = %v, expected %v", tt.text, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Sentence %d = %q, expected %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestFirstSentences(t *testing.T) {
	text := "One. Two. Three. Four."
	if got := FirstSentences(text, 2); got != "One. Two." {
		t.Errorf("FirstSentences() = %q, expected %q", got, "One. Two.")
	}
	if got := FirstSentences("short", 2); got != "short" {
		t.Errorf("FirstSentences() = %q, expected %q", got, "short")
	}
}
