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

package control

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/orchestrator"
	"github.com/loqalabs/loqa-dictate/internal/storage"
)

type fakeStatus struct {
	state  orchestrator.State
	recent []string
}

func (f *fakeStatus) State() orchestrator.State      { return f.state }
func (f *fakeStatus) RecentTranscriptions() []string { return f.recent }

type fakeReporter struct {
	report *storage.DailyReport
	err    error
	day    time.Time
}

func (f *fakeReporter) Report(day time.Time) (*storage.DailyReport, error) {
	f.day = day
	return f.report, f.err
}

func newTestServer(t *testing.T) (*Server, *config.Settings, *fakeStatus, *fakeReporter) {
	t.Helper()

	if err := logging.Initialize(); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	cfg := &config.Config{}
	cfg.Correct.Enabled = true
	cfg.Correct.LexiconPath = filepath.Join(t.TempDir(), "lexicon.yaml")

	settings, err := config.NewSettings(cfg)
	if err != nil {
		t.Fatalf("NewSettings: %v", err)
	}

	status := &fakeStatus{state: orchestrator.StateIdle, recent: []string{"hello world"}}
	reports := &fakeReporter{report: &storage.DailyReport{Sessions: 3, Delivered: 2}}

	return NewServer(settings, status, reports), settings, status, reports
}

func callReq(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content is not text: %#v", res.Content[0])
	}
	return text.Text
}

func TestSetOutputMode(t *testing.T) {
	srv, settings, _, _ := newTestServer(t)

	res, err := srv.handleSetOutputMode(context.Background(), callReq("set_output_mode", map[string]interface{}{
		"mode": "raw_only",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if got := settings.OutputMode(); got != config.OutputRawOnly {
		t.Errorf("output mode = %q, want raw_only", got)
	}
}

func TestSetOutputMode_Invalid(t *testing.T) {
	srv, settings, _, _ := newTestServer(t)

	res, err := srv.handleSetOutputMode(context.Background(), callReq("set_output_mode", map[string]interface{}{
		"mode": "loud",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for invalid mode")
	}
	if got := settings.OutputMode(); got != config.OutputBoth {
		t.Errorf("output mode changed to %q on invalid input", got)
	}
}

func TestSetCorrection(t *testing.T) {
	srv, settings, _, _ := newTestServer(t)

	res, err := srv.handleSetCorrection(context.Background(), callReq("set_correction", map[string]interface{}{
		"enabled": false,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if settings.CorrectionEnabled() {
		t.Error("correction still enabled")
	}
}

func TestVocabularyRoundTrip(t *testing.T) {
	srv, settings, _, _ := newTestServer(t)

	if _, err := srv.handleAddVocabulary(context.Background(), callReq("add_vocabulary", map[string]interface{}{
		"term": "kubernetes",
	})); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := settings.Snapshot()
	if len(snap.Vocabulary) != 1 || snap.Vocabulary[0] != "kubernetes" {
		t.Fatalf("vocabulary = %v", snap.Vocabulary)
	}

	if _, err := srv.handleRemoveVocabulary(context.Background(), callReq("remove_vocabulary", map[string]interface{}{
		"term": "kubernetes",
	})); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if snap := settings.Snapshot(); len(snap.Vocabulary) != 0 {
		t.Errorf("vocabulary after remove = %v", snap.Vocabulary)
	}
}

func TestCorrectionRoundTrip(t *testing.T) {
	srv, settings, _, _ := newTestServer(t)

	if _, err := srv.handleAddCorrection(context.Background(), callReq("add_correction", map[string]interface{}{
		"from": "get hub",
		"to":   "github",
	})); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := settings.Snapshot().Corrections["get hub"]; got != "github" {
		t.Errorf("correction = %q, want github", got)
	}

	if _, err := srv.handleRemoveCorrection(context.Background(), callReq("remove_correction", map[string]interface{}{
		"from": "get hub",
	})); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got := settings.Snapshot().Corrections; len(got) != 0 {
		t.Errorf("corrections after remove = %v", got)
	}
}

func TestGetStatus(t *testing.T) {
	srv, _, status, _ := newTestServer(t)
	status.state = orchestrator.StateRecording

	res, err := srv.handleGetStatus(context.Background(), callReq("get_status", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	text := resultText(t, res)
	if !strings.Contains(text, "recording") {
		t.Errorf("status output missing state: %s", text)
	}
	if !strings.Contains(text, "both") {
		t.Errorf("status output missing output mode: %s", text)
	}
}

func TestGetRecent(t *testing.T) {
	srv, _, status, _ := newTestServer(t)

	res, err := srv.handleGetRecent(context.Background(), callReq("get_recent_transcriptions", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "hello world") {
		t.Errorf("recent output = %s", text)
	}

	status.recent = nil
	res, err = srv.handleGetRecent(context.Background(), callReq("get_recent_transcriptions", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "No transcriptions") {
		t.Errorf("empty recent output = %s", text)
	}
}

func TestDailyReport(t *testing.T) {
	srv, _, _, reports := newTestServer(t)

	res, err := srv.handleDailyReport(context.Background(), callReq("daily_report", map[string]interface{}{
		"day": "2025-06-01",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := reports.day.Format("2006-01-02"); got != "2025-06-01" {
		t.Errorf("queried day = %q", got)
	}
	if text := resultText(t, res); !strings.Contains(text, "\"sessions\": 3") {
		t.Errorf("report output = %s", text)
	}
}
