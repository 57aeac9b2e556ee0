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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/control"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/messaging"
	"github.com/loqalabs/loqa-dictate/internal/notify"
	"github.com/loqalabs/loqa-dictate/internal/orchestrator"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
	"github.com/loqalabs/loqa-dictate/internal/server"
	"github.com/loqalabs/loqa-dictate/internal/speaker"
	"github.com/loqalabs/loqa-dictate/internal/storage"
	"github.com/loqalabs/loqa-dictate/internal/trigger"
)

func main() {
	reportDay := flag.String("report", "", "print the daily report for YYYY-MM-DD (or 'today') and exit")
	flag.Parse()

	if *reportDay != "" {
		if err := printReport(*reportDay); err != nil {
			log.Fatalf("Report failed: %v", err)
		}
		return
	}

	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	if err := run(); err != nil {
		logging.Sugar.Fatalw("💥 Loqa Dictate failed", "error", err)
	}
}

// printReport queries the history database and writes the day's aggregate
// report to stdout
func printReport(dayArg string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	day := time.Now()
	if dayArg != "today" {
		parsed, err := time.ParseInLocation("2006-01-02", dayArg, time.Local)
		if err != nil {
			return fmt.Errorf("invalid day %q, want YYYY-MM-DD or 'today'", dayArg)
		}
		day = parsed
	}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	report, err := storage.NewDictationEventsStore(db).Report(day)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	settings, err := config.NewSettings(cfg)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// History database
	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	eventsStore := storage.NewDictationEventsStore(db)
	ttsStore := storage.NewTTSEventsStore(db)

	// NATS is optional; the daemon works standalone without it
	nats := messaging.NewNATSService(cfg.NATS)
	if err := nats.Connect(); err != nil {
		logging.Sugar.Warnw("⚠️ NATS unavailable, continuing without messaging", "error", err)
		nats = nil
	}
	defer nats.Close()

	// Microphone stream stays open for the life of the process
	source, err := audio.NewSource(cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to open audio source: %w", err)
	}
	defer func() { _ = source.Close() }()

	// Triggers: hotkey chords always, wake word when enabled
	merger := trigger.NewMerger()
	defer merger.Close()

	hotkeys, err := trigger.NewHotkeySource(cfg.Hotkey)
	if err != nil {
		return fmt.Errorf("failed to register hotkeys: %w", err)
	}
	merger.Add(hotkeys)

	if cfg.WakeWord.Enabled {
		scorer := trigger.NewRESTScorer(cfg.WakeWord, cfg.Audio.SampleRate)
		frames := source.EnableWakeTap()
		merger.Add(trigger.NewWakeWordSource(cfg.WakeWord, scorer, frames))
		logging.Sugar.Infow("👂 Wake word enabled",
			"model", cfg.WakeWord.Model,
			"threshold", cfg.WakeWord.Threshold)
	}

	// Transcribe -> correct -> deliver pipeline
	transcriber, err := pipeline.NewTranscriber(cfg.STT)
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Config:      cfg,
		Settings:    settings,
		Source:      source,
		Transcriber: transcriber,
		Corrector:   pipeline.NewOllamaCorrector(cfg.Correct),
		Deliverer:   pipeline.NewExecDeliverer(cfg.Deliver),
		Store:       eventsStore,
		Publisher:   nats,
		Notifier:    notify.New(cfg.Deliver.Notifications),
		Triggers:    merger.Events(),
		StateFile:   orchestrator.NewStateFile(cfg.Control.StatePath),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Spoken notification pipeline
	var spk server.Speaker = disabledSpeaker{}
	if cfg.TTS.Enabled {
		synth, err := speaker.NewKokoroClient(cfg.TTS)
		if err != nil {
			return fmt.Errorf("failed to create TTS client: %w", err)
		}
		summarizer := speaker.NewOllamaSummarizer(cfg.Correct.OllamaURL, cfg.TTS.SummarizerModel, cfg.TTS)
		svc := speaker.NewService(cfg.TTS, synth, speaker.NewExecPlayer(), summarizer, ttsStore, nats)
		go svc.Run(ctx)
		spk = svc

		if nats != nil {
			if err := nats.SubscribeSpeak(func(req messaging.SpeakRequest) {
				if err := svc.Speak(req.Text, req.Reminder); err != nil {
					logging.Sugar.Warnw("⚠️ Dropped speak request from NATS", "error", err)
				}
			}); err != nil {
				logging.Sugar.Warnw("⚠️ Failed to subscribe to speak requests", "error", err)
			}
		}
	}

	// Control surfaces
	httpServer := server.New(cfg, settings, orch, spk, eventsStore)
	go func() {
		if err := httpServer.Start(); err != nil {
			logging.Sugar.Errorw("HTTP server stopped", "error", err)
			stop()
		}
	}()

	mcpServer := control.NewServer(settings, orch, eventsStore)
	go func() {
		addr := ":" + strconv.Itoa(cfg.Control.MCPPort)
		if err := mcpServer.Start(addr); err != nil {
			logging.Sugar.Errorw("MCP server stopped", "error", err)
		}
	}()

	logging.Sugar.Infow("🚀 Loqa Dictate ready",
		"http_port", cfg.Server.Port,
		"mcp_port", cfg.Control.MCPPort,
		"stt_engine", cfg.STT.Engine,
		"db_path", cfg.Storage.DBPath,
	)

	// Run the dictation state machine until signalled
	runErr := orch.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Stop(); err != nil {
		logging.Sugar.Warnw("HTTP shutdown failed", "error", err)
	}
	if err := mcpServer.Shutdown(shutdownCtx); err != nil {
		logging.Sugar.Warnw("MCP shutdown failed", "error", err)
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	logging.Sugar.Infow("✅ Loqa Dictate shut down")
	return nil
}

// disabledSpeaker backs the /speak API when TTS is turned off
type disabledSpeaker struct{}

func (disabledSpeaker) Speak(string, bool) error { return fmt.Errorf("TTS is disabled") }
func (disabledSpeaker) Cancel()                  {}
func (disabledSpeaker) CancelReminder()          {}
func (disabledSpeaker) Status() speaker.Status   { return speaker.Status{} }
