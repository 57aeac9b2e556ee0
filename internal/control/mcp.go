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

// Package control exposes runtime settings and status to LLM agents over
// the Model Context Protocol, so an assistant can flip output modes or
// read recent dictations mid-conversation.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/orchestrator"
	"github.com/loqalabs/loqa-dictate/internal/storage"
)

// StatusSource is the orchestrator surface the control server reads
type StatusSource interface {
	State() orchestrator.State
	RecentTranscriptions() []string
}

// Reporter aggregates stored dictation events into a daily summary
type Reporter interface {
	Report(day time.Time) (*storage.DailyReport, error)
}

// Server exposes the MCP tool surface
type Server struct {
	settings *config.Settings
	status   StatusSource
	reports  Reporter
	mcp      *server.MCPServer
	sse      *server.SSEServer
}

// NewServer builds the MCP server and registers its tools
func NewServer(settings *config.Settings, status StatusSource, reports Reporter) *Server {
	s := &Server{
		settings: settings,
		status:   status,
		reports:  reports,
	}

	s.mcp = server.NewMCPServer("loqa-dictate", "1.0.0",
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	setMode := mcp.NewTool("set_output_mode",
		mcp.WithDescription("Set which transcription text gets typed: both, raw_only, or corrected_only"),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("Output mode: both, raw_only, or corrected_only"),
		),
	)
	s.mcp.AddTool(setMode, s.handleSetOutputMode)

	setCorrection := mcp.NewTool("set_correction",
		mcp.WithDescription("Enable or disable LLM correction of transcriptions"),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("Whether correction should run"),
		),
	)
	s.mcp.AddTool(setCorrection, s.handleSetCorrection)

	addVocab := mcp.NewTool("add_vocabulary",
		mcp.WithDescription("Add a domain term so transcription recognizes it"),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("The term to add"),
		),
	)
	s.mcp.AddTool(addVocab, s.handleAddVocabulary)

	addCorrection := mcp.NewTool("add_correction",
		mcp.WithDescription("Add a replacement the pipeline always applies, e.g. 'get hub' -> 'github'"),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("The misheard phrase"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("The replacement text"),
		),
	)
	s.mcp.AddTool(addCorrection, s.handleAddCorrection)

	removeVocab := mcp.NewTool("remove_vocabulary",
		mcp.WithDescription("Remove a term from the transcription vocabulary"),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("The term to remove"),
		),
	)
	s.mcp.AddTool(removeVocab, s.handleRemoveVocabulary)

	removeCorrection := mcp.NewTool("remove_correction",
		mcp.WithDescription("Remove a phrase replacement"),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("The misheard phrase to stop replacing"),
		),
	)
	s.mcp.AddTool(removeCorrection, s.handleRemoveCorrection)

	dailyReport := mcp.NewTool("daily_report",
		mcp.WithDescription("Summarize a day's dictation activity: sessions, outcomes, words typed, audio seconds"),
		mcp.WithString("day",
			mcp.Description("Day in YYYY-MM-DD form, defaults to today"),
		),
	)
	s.mcp.AddTool(dailyReport, s.handleDailyReport)

	getStatus := mcp.NewTool("get_status",
		mcp.WithDescription("Get the dictation daemon's current state and settings"),
	)
	s.mcp.AddTool(getStatus, s.handleGetStatus)

	getRecent := mcp.NewTool("get_recent_transcriptions",
		mcp.WithDescription("Get the most recently typed transcriptions, newest first"),
	)
	s.mcp.AddTool(getRecent, s.handleGetRecent)
}

func (s *Server) handleSetOutputMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.settings.SetOutputMode(config.OutputMode(mode)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	logging.Sugar.Infow("🎛️ Output mode changed via MCP", "mode", mode)
	return mcp.NewToolResultText(fmt.Sprintf("Output mode set to %s", mode)), nil
}

func (s *Server) handleSetCorrection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.settings.SetCorrectionEnabled(enabled)

	logging.Sugar.Infow("🎛️ Correction toggled via MCP", "enabled", enabled)
	if enabled {
		return mcp.NewToolResultText("Correction enabled"), nil
	}
	return mcp.NewToolResultText("Correction disabled"), nil
}

func (s *Server) handleAddVocabulary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.settings.AddVocabulary(term); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added %q to vocabulary", term)), nil
}

func (s *Server) handleAddCorrection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.settings.SetCorrection(from, to); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added correction %q -> %q", from, to)), nil
}

func (s *Server) handleRemoveVocabulary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.settings.RemoveVocabulary(term); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Removed %q from vocabulary", term)), nil
}

func (s *Server) handleRemoveCorrection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.settings.DeleteCorrection(from); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Removed correction for %q", from)), nil
}

func (s *Server) handleDailyReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := time.Now()
	if raw := req.GetString("day", ""); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid day %q, want YYYY-MM-DD", raw)), nil
		}
		day = parsed
	}

	report, err := s.reports.Report(day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.settings.Snapshot()

	payload := map[string]interface{}{
		"state":              s.status.State(),
		"output_mode":        snap.OutputMode,
		"correction_enabled": snap.CorrectionEnabled,
		"vocabulary":         snap.Vocabulary,
		"corrections":        snap.Corrections,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recent := s.status.RecentTranscriptions()
	if len(recent) == 0 {
		return mcp.NewToolResultText("No transcriptions yet"), nil
	}

	data, err := json.MarshalIndent(recent, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Start serves MCP over SSE on the given address. Blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.sse = server.NewSSEServer(s.mcp)
	logging.Sugar.Infow("🔧 MCP control server listening", "addr", addr)
	return s.sse.Start(addr)
}

// Shutdown stops the SSE listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sse == nil {
		return nil
	}
	return s.sse.Shutdown(ctx)
}
