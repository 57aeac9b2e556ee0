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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/orchestrator"
	"github.com/loqalabs/loqa-dictate/internal/speaker"
	"github.com/loqalabs/loqa-dictate/internal/storage"
	"github.com/loqalabs/loqa-dictate/internal/trigger"
)

// Dictation is the orchestrator surface the HTTP API uses
type Dictation interface {
	State() orchestrator.State
	RecentTranscriptions() []string
	Inject(ev trigger.Event)
}

// Speaker is the TTS surface the HTTP API uses
type Speaker interface {
	Speak(text string, reminder bool) error
	Cancel()
	CancelReminder()
	Status() speaker.Status
}

// History reads stored dictation events
type History interface {
	Recent(limit int) ([]*events.DictationEvent, error)
	Report(day time.Time) (*storage.DailyReport, error)
}

// Server is the local HTTP control surface of the dictation daemon
type Server struct {
	cfg      *config.Config
	settings *config.Settings
	mux      *http.ServeMux
	server   *http.Server

	dictation Dictation
	speaker   Speaker
	history   History
}

// New creates the HTTP server wired to the daemon components
func New(cfg *config.Config, settings *config.Settings, dictation Dictation, spk Speaker, history History) *Server {
	s := &Server{
		cfg:       cfg,
		settings:  settings,
		mux:       http.NewServeMux(),
		dictation: dictation,
		speaker:   spk,
		history:   history,
	}

	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()
	return s
}

// Start runs the HTTP server until Stop is called
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 Loqa Dictate HTTP API starting",
		"http_port", s.cfg.Server.Port)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down HTTP API")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", promhttp.Handler())

	// Dictation control
	s.mux.HandleFunc("/api/dictation/start", s.handleTrigger(trigger.ActionStart))
	s.mux.HandleFunc("/api/dictation/stop", s.handleTrigger(trigger.ActionStop))
	s.mux.HandleFunc("/api/dictation/toggle", s.handleTrigger(trigger.ActionToggle))
	s.mux.HandleFunc("/api/transcriptions", s.handleTranscriptions)
	s.mux.HandleFunc("/api/report", s.handleReport)

	// Spoken notifications
	s.mux.HandleFunc("/speak", s.handleSpeak)
	s.mux.HandleFunc("/cancel", s.handleCancel)
	s.mux.HandleFunc("/cancel-reminder", s.handleCancelReminder)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"speak_endpoint", "/speak",
		"status_endpoint", "/status",
		"metrics_endpoint", "/metrics")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"state":     s.dictation.State(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, health); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.settings.Snapshot()
	tts := s.speaker.Status()

	status := map[string]interface{}{
		"state":              s.dictation.State(),
		"output_mode":        snap.OutputMode,
		"correction_enabled": snap.CorrectionEnabled,
		"recent":             s.dictation.RecentTranscriptions(),
		"tts": map[string]interface{}{
			"speaking":        tts.Speaking,
			"queue_length":    tts.QueueLength,
			"reminder_active": tts.ReminderActive,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, status); err != nil {
		logging.Sugar.Errorw("Failed to write status response", "error", err)
	}
}

// handleTrigger injects an API trigger into the dictation state machine
func (s *Server) handleTrigger(action trigger.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.dictation.Inject(trigger.Event{
			Action: action,
			Kind:   events.TriggerAPI,
			At:     time.Now(),
		})

		w.Header().Set("Content-Type", "application/json")
		if err := writeJSON(w, map[string]string{"status": "accepted"}); err != nil {
			logging.Sugar.Errorw("Failed to write trigger response", "error", err)
		}
	}
}

func (s *Server) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recent, err := s.history.Recent(limit)
	if err != nil {
		logging.Sugar.Errorw("Failed to load transcriptions", "error", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, recent); err != nil {
		logging.Sugar.Errorw("Failed to write transcriptions response", "error", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			http.Error(w, "Invalid day, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	report, err := s.history.Report(day)
	if err != nil {
		logging.Sugar.Errorw("Failed to build report", "error", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, report); err != nil {
		logging.Sugar.Errorw("Failed to write report response", "error", err)
	}
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Text     string `json:"text"`
		Reminder bool   `json:"reminder"`
	}

	if err := readJSON(r, &request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if request.Text == "" {
		http.Error(w, "Text required", http.StatusBadRequest)
		return
	}

	if err := s.speaker.Speak(request.Text, request.Reminder); err != nil {
		logging.Sugar.Errorw("Speak request rejected", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]string{"status": "queued"}); err != nil {
		logging.Sugar.Errorw("Failed to write speak response", "error", err)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.speaker.Cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]string{"status": "cancelled"}); err != nil {
		logging.Sugar.Errorw("Failed to write cancel response", "error", err)
	}
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.speaker.CancelReminder()

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]string{"status": "cancelled"}); err != nil {
		logging.Sugar.Errorw("Failed to write cancel-reminder response", "error", err)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

func readJSON(r *http.Request, data interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()

	return json.Unmarshal(body, data)
}
