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

package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

func newTestCorrector(url string) *OllamaCorrector {
	return NewOllamaCorrector(config.CorrectConfig{
		OllamaURL: url,
		Model:     "test-model",
		Timeout:   5 * time.Second,
	})
}

func TestOllamaCorrector_Success(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "\"Hello, world.\""})
	}))
	defer server.Close()

	corrector := newTestCorrector(server.URL)
	got, err := corrector.Correct(context.Background(), "helo world", config.Snapshot{})
	if err != nil {
		t.Fatalf("Correct() failed: %v", err)
	}

	if got != "Hello, world." {
		t.Errorf("Expected cleaned correction, got %q", got)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("Expected model test-model, got %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("Expected non-streaming request")
	}
	if gotReq.Options["temperature"] != 0.1 {
		t.Errorf("Expected temperature 0.1, got %v", gotReq.Options["temperature"])
	}
}

func TestOllamaCorrector_DictionaryRunsBeforeModel(t *testing.T) {
	var promptedText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		promptedText = req.Prompt
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "ignored"})
	}))
	defer server.Close()

	corrector := newTestCorrector(server.URL)
	snap := config.Snapshot{
		Corrections: map[string]string{"get hub": "github"},
	}

	if _, err := corrector.Correct(context.Background(), "push to get hub", snap); err != nil {
		t.Fatalf("Correct() failed: %v", err)
	}

	if !strings.Contains(promptedText, "push to github") {
		t.Errorf("Expected dictionary pass before model call, prompt was: %q", promptedText)
	}
}

func TestOllamaCorrector_FailureReturnsDictionaryText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	corrector := newTestCorrector(server.URL)
	snap := config.Snapshot{
		Corrections: map[string]string{"postgress": "postgres"},
	}

	got, err := corrector.Correct(context.Background(), "restart postgress", snap)
	if err == nil {
		t.Fatal("Expected error from failing model")
	}

	// The dictionary pass must survive a model failure.
	if got != "restart postgres" {
		t.Errorf("Expected dictionary-corrected fallback, got %q", got)
	}
}

func TestOllamaCorrector_EmptyModelOutputFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "  "})
	}))
	defer server.Close()

	corrector := newTestCorrector(server.URL)
	got, err := corrector.Correct(context.Background(), "original text", config.Snapshot{})
	if err != nil {
		t.Fatalf("Correct() failed: %v", err)
	}
	if got != "original text" {
		t.Errorf("Expected original text for empty model output, got %q", got)
	}
}
