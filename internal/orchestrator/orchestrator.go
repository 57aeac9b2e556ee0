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

// Package orchestrator runs the dictation state machine: it owns the
// capture lifecycle, reacts to triggers and silence, and drives the
// transcribe-correct-deliver pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/metrics"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
	"github.com/loqalabs/loqa-dictate/internal/security"
	"github.com/loqalabs/loqa-dictate/internal/trigger"
	"github.com/loqalabs/loqa-dictate/internal/vad"
)

// State is the orchestrator's lifecycle phase
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

// AudioSource is the capture surface the orchestrator drives
type AudioSource interface {
	BeginCapture()
	EndCapture() []float32
	Levels() <-chan audio.Level
	Lost() <-chan error
	Fatal() <-chan error
}

// EventStore persists completed sessions
type EventStore interface {
	Insert(*events.DictationEvent) error
}

// Publisher announces completed sessions on the bus
type Publisher interface {
	PublishSession(*events.DictationEvent) error
}

// Notifier surfaces session milestones to the user
type Notifier interface {
	RecordingStarted()
	Delivered(text string)
	Dropped(reason string)
	Failed(message string)
}

// Deps are the orchestrator's collaborators
type Deps struct {
	Config      *config.Config
	Settings    *config.Settings
	Source      AudioSource
	Transcriber pipeline.Transcriber
	Corrector   pipeline.Corrector
	Deliverer   pipeline.Deliverer
	Store       EventStore
	Publisher   Publisher
	Notifier    Notifier
	Triggers    <-chan trigger.Event
	StateFile   *StateFile
}

// session is one capture in flight
type session struct {
	id       uint64
	kind     events.TriggerKind
	snap     config.Snapshot
	detector *vad.SilenceDetector
	maxTimer *time.Timer
	cancel   context.CancelFunc
}

type stageResult struct {
	sessionID uint64
	event     *events.DictationEvent
}

// Orchestrator is the single-goroutine state machine. All state below is
// owned by the Run loop; only the atomics are read from outside.
type Orchestrator struct {
	deps Deps

	state   atomic.Value // State
	nextID  uint64
	sess    *session
	results chan stageResult
	injects chan trigger.Event

	recent *recentList
}

// New creates an orchestrator
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		deps:    deps,
		results: make(chan stageResult, 4),
		injects: make(chan trigger.Event, 4),
		recent:  newRecentList(20),
	}
	o.state.Store(StateIdle)
	return o
}

// State returns the current lifecycle phase
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

// RecentTranscriptions returns the latest delivered texts, newest first
func (o *Orchestrator) RecentTranscriptions() []string {
	return o.recent.items()
}

// Inject feeds a trigger event from the control surface or HTTP API
func (o *Orchestrator) Inject(ev trigger.Event) {
	select {
	case o.injects <- ev:
	default:
		logging.LogWarn("Injected trigger dropped, queue full")
	}
}

// Run drives the state machine until ctx is cancelled or the audio
// device is irrecoverably lost
func (o *Orchestrator) Run(ctx context.Context) error {
	o.writeState()
	logging.Sugar.Infow("🎛️ Orchestrator running")

	for {
		var maxC <-chan time.Time
		if o.sess != nil && o.State() == StateRecording {
			maxC = o.sess.maxTimer.C
		}

		select {
		case <-ctx.Done():
			o.shutdown(nil)
			return nil

		case err := <-o.deps.Source.Lost():
			// A stalled device spans a gap in any open capture; abort the
			// session rather than let it record through the outage.
			if o.State() == StateRecording && o.sess != nil {
				logging.LogSession(o.sess.id, "Audio device lost, aborting capture")
				o.abortRecording(fmt.Errorf("audio device lost: %w", err))
			}

		case err := <-o.deps.Source.Fatal():
			o.shutdown(fmt.Errorf("audio device lost: %w", err))
			return fmt.Errorf("audio device lost: %w", err)

		case ev := <-o.deps.Triggers:
			o.handleTrigger(ctx, ev)

		case ev := <-o.injects:
			o.handleTrigger(ctx, ev)

		case level := <-o.deps.Source.Levels():
			// Hotkey sessions are bounded by chord release, not silence.
			if o.State() == StateRecording && o.sess != nil && o.sess.kind != events.TriggerHotkey {
				if o.sess.detector.Feed(level.RMS, level.Captured) {
					logging.LogSession(o.sess.id, "Silence detected, stopping capture")
					o.finishCapture(ctx, true)
				}
			}

		case <-maxC:
			logging.LogSession(o.sess.id, "Max capture duration reached, stopping")
			o.finishCapture(ctx, true)

		case res := <-o.results:
			o.finalize(res)
		}
	}
}

func (o *Orchestrator) handleTrigger(ctx context.Context, ev trigger.Event) {
	state := o.State()

	switch {
	case state == StateIdle && (ev.Action == trigger.ActionToggle || ev.Action == trigger.ActionStart):
		o.startSession(ev.Kind)

	case state == StateRecording && (ev.Action == trigger.ActionToggle || ev.Action == trigger.ActionStop):
		// A chord release only ends the session its press opened; a
		// wake-word session keeps capturing through stray releases.
		if ev.Action == trigger.ActionStop && ev.Kind == events.TriggerHotkey &&
			o.sess != nil && o.sess.kind != events.TriggerHotkey {
			logging.Sugar.Debugw("Chord release ignored for non-chord session",
				"session_kind", o.sess.kind)
			return
		}
		o.finishCapture(ctx, false)

	case state == StateProcessing &&
		(ev.Action == trigger.ActionToggle ||
			(ev.Action == trigger.ActionStart && ev.Kind == events.TriggerHotkey)):
		// Pressing the chord again while the pipeline runs aborts it.
		o.cancelProcessing()

	default:
		// Start while recording, stop while idle: nothing to do.
		logging.Sugar.Debugw("Trigger ignored in current state",
			"state", state, "action", ev.Action, "kind", ev.Kind)
	}
}

func (o *Orchestrator) startSession(kind events.TriggerKind) {
	o.nextID++
	o.sess = &session{
		id:       o.nextID,
		kind:     kind,
		snap:     o.deps.Settings.Snapshot(),
		detector: vad.NewSilenceDetector(o.deps.Config.Silence),
		maxTimer: time.NewTimer(o.deps.Config.Audio.MaxCapture),
	}

	o.deps.Source.BeginCapture()
	o.setState(StateRecording)
	o.deps.Notifier.RecordingStarted()

	logging.LogSession(o.sess.id, "Recording started", zap.String("trigger", string(kind)))
}

func (o *Orchestrator) finishCapture(ctx context.Context, autoStopped bool) {
	sess := o.sess
	if sess == nil {
		return
	}
	sess.maxTimer.Stop()

	samples := o.deps.Source.EndCapture()
	metrics.CaptureSeconds.Observe(float64(len(samples)) / float64(o.deps.Config.Audio.SampleRate))

	event := events.NewDictationEvent(sess.id, sess.kind)
	event.OutputMode = string(sess.snap.OutputMode)
	event.SetAudioMetadata(samples, o.deps.Config.Audio.SampleRate, autoStopped)

	o.setState(StateProcessing)

	pctx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel
	go o.process(pctx, sess, event, samples)

	logging.LogSession(sess.id, "Capture finished",
		zap.Float64("audio_seconds", event.AudioDuration),
		zap.Bool("auto_stopped", autoStopped),
	)
}

// abortRecording ends the open capture without running the pipeline.
// The session is still archived and announced exactly once: as failed
// when a cause is given, as cancelled otherwise.
func (o *Orchestrator) abortRecording(cause error) {
	sess := o.sess
	if sess == nil {
		return
	}
	sess.maxTimer.Stop()

	samples := o.deps.Source.EndCapture()

	event := events.NewDictationEvent(sess.id, sess.kind)
	event.OutputMode = string(sess.snap.OutputMode)
	event.SetAudioMetadata(samples, o.deps.Config.Audio.SampleRate, false)

	o.sess = nil
	if cause != nil {
		event.SetError(cause)
		o.record(event)
		o.deps.Notifier.Failed(event.ErrorMessage)
	} else {
		event.Finish(events.OutcomeCancelled)
		o.record(event)
		o.deps.Notifier.Dropped("cancelled")
	}
	o.setState(StateIdle)
}

// cancelProcessing abandons the in-flight pipeline. The session is
// finalized as cancelled immediately; the stale stage result is
// discarded when it eventually arrives.
func (o *Orchestrator) cancelProcessing() {
	sess := o.sess
	if sess == nil {
		return
	}
	if sess.cancel != nil {
		sess.cancel()
	}

	event := events.NewDictationEvent(sess.id, sess.kind)
	event.OutputMode = string(sess.snap.OutputMode)
	event.Finish(events.OutcomeCancelled)

	logging.LogSession(sess.id, "Session cancelled")

	o.sess = nil
	o.record(event)
	o.deps.Notifier.Dropped("cancelled")
	o.setState(StateIdle)
}

// process runs the pipeline off the event loop and reports back on the
// results channel. It never touches orchestrator state directly.
func (o *Orchestrator) process(ctx context.Context, sess *session, event *events.DictationEvent, samples []float32) {
	defer func() {
		select {
		case o.results <- stageResult{sessionID: sess.id, event: event}:
		case <-ctx.Done():
		}
	}()

	cfg := o.deps.Config

	// Whole-buffer silence gate: do not burn model time on an empty take.
	if len(samples) == 0 || audio.RMS(samples) < cfg.Silence.Threshold {
		event.Finish(events.OutcomeEmpty)
		logging.LogStage(sess.id, "silence-gate", zap.String("result", "dropped"))
		return
	}

	raw, err := o.transcribe(ctx, sess, event, samples)
	if err != nil {
		event.SetError(pipeline.NewStageError(pipeline.StageTranscribe, err))
		return
	}

	if pipeline.IsHallucination(raw) {
		event.RawText = raw
		event.Finish(events.OutcomeEmpty)
		logging.LogStage(sess.id, "hallucination-filter",
			zap.String("dropped", security.SanitizeLogInput(raw)))
		return
	}
	event.RawText = raw

	corrected := o.correct(ctx, sess, event, raw)
	event.CorrectedText = corrected

	output := pipeline.ComposeOutput(raw, corrected, sess.snap.OutputMode)

	if err := o.deliver(ctx, sess, event, output); err != nil {
		event.SetError(pipeline.NewStageError(pipeline.StageDeliver, err))
		return
	}

	event.DeliveredText = output
	event.Finish(events.OutcomeDelivered)
}

func (o *Orchestrator) transcribe(ctx context.Context, sess *session, event *events.DictationEvent, samples []float32) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, o.deps.Config.STT.Timeout)
	defer cancel()

	started := time.Now()
	padded := pipeline.PadSamples(samples, o.deps.Config.Audio.SampleRate)
	raw, err := o.deps.Transcriber.Transcribe(tctx, padded, o.deps.Config.Audio.SampleRate,
		pipeline.VocabPrompt(sess.snap.Vocabulary))
	event.TranscribeMs = time.Since(started).Milliseconds()

	metrics.StageDuration.WithLabelValues(string(pipeline.StageTranscribe)).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.StageFailures.WithLabelValues(string(pipeline.StageTranscribe)).Inc()
		return "", err
	}

	logging.LogStage(sess.id, string(pipeline.StageTranscribe),
		zap.Int64("ms", event.TranscribeMs),
		zap.Int("chars", len(raw)),
	)
	return raw, nil
}

// correct runs the optional cleanup stage. Failures fall back to the raw
// text rather than failing the session.
func (o *Orchestrator) correct(ctx context.Context, sess *session, event *events.DictationEvent, raw string) string {
	if !sess.snap.CorrectionEnabled || sess.snap.OutputMode == config.OutputRawOnly {
		return ""
	}

	cctx, cancel := context.WithTimeout(ctx, o.deps.Config.Correct.Timeout)
	defer cancel()

	started := time.Now()
	corrected, err := o.deps.Corrector.Correct(cctx, raw, sess.snap)
	event.CorrectMs = time.Since(started).Milliseconds()

	metrics.StageDuration.WithLabelValues(string(pipeline.StageCorrect)).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.StageFailures.WithLabelValues(string(pipeline.StageCorrect)).Inc()
		event.CorrectionFailed = true
		logging.LogWarn("Correction failed, delivering raw text",
			zap.Uint64("session_id", sess.id),
			zap.Error(err),
		)
		// The corrector returns its dictionary pass even on failure.
		return corrected
	}

	logging.LogStage(sess.id, string(pipeline.StageCorrect), zap.Int64("ms", event.CorrectMs))
	return corrected
}

func (o *Orchestrator) deliver(ctx context.Context, sess *session, event *events.DictationEvent, text string) error {
	dctx, cancel := context.WithTimeout(ctx, o.deps.Config.Deliver.Timeout)
	defer cancel()

	started := time.Now()
	backend, err := o.deps.Deliverer.Deliver(dctx, text)
	event.DeliverMs = time.Since(started).Milliseconds()

	metrics.StageDuration.WithLabelValues(string(pipeline.StageDeliver)).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.StageFailures.WithLabelValues(string(pipeline.StageDeliver)).Inc()
		return err
	}

	event.Backend = backend
	logging.LogStage(sess.id, string(pipeline.StageDeliver), zap.String("backend", backend))
	return nil
}

// finalize handles a pipeline result on the event loop
func (o *Orchestrator) finalize(res stageResult) {
	if o.sess == nil || o.sess.id != res.sessionID {
		logging.Sugar.Debugw("Discarding stale pipeline result", "session_id", res.sessionID)
		return
	}
	if o.sess.cancel != nil {
		o.sess.cancel()
	}
	o.sess = nil

	event := res.event
	o.record(event)

	switch event.Outcome {
	case events.OutcomeDelivered:
		o.recent.add(event.DeliveredText)
		o.deps.Notifier.Delivered(event.DeliveredText)
	case events.OutcomeEmpty:
		o.deps.Notifier.Dropped("no speech detected")
	case events.OutcomeFailed:
		o.deps.Notifier.Failed(event.ErrorMessage)
		logging.LogError(fmt.Errorf("%s", event.ErrorMessage), "Session failed",
			zap.Uint64("session_id", event.SessionID))
	}

	o.setState(StateIdle)
}

// record persists and publishes the event; storage failures are logged
// but never block the next session
func (o *Orchestrator) record(event *events.DictationEvent) {
	metrics.SessionsTotal.WithLabelValues(string(event.Trigger), string(event.Outcome)).Inc()

	if o.deps.Store != nil {
		if err := o.deps.Store.Insert(event); err != nil {
			logging.LogError(err, "Failed to store dictation event")
		}
	}
	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.PublishSession(event); err != nil {
			logging.LogError(err, "Failed to publish dictation event")
		}
	}
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(s)
	o.writeState()
}

func (o *Orchestrator) writeState() {
	if o.deps.StateFile == nil {
		return
	}
	o.deps.StateFile.Update(o.State(), o.deps.Settings.Snapshot(), o.recent.items())
}

// shutdown archives any in-flight session before the loop exits, so a
// capture open at shutdown still gets its history record and notification
func (o *Orchestrator) shutdown(cause error) {
	switch {
	case o.sess != nil && o.State() == StateRecording:
		o.abortRecording(cause)
	case o.sess != nil:
		o.cancelProcessing()
	default:
		o.setState(StateIdle)
	}
	logging.Sugar.Infow("🎛️ Orchestrator stopped")
}
