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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const summaryPrompt = `Summarize the following notification in one short spoken sentence. Output only the sentence.

%s`

// OllamaSummarizer shortens long notifications before they are spoken
type OllamaSummarizer struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaSummarizer creates a summarizer using the configured model
func NewOllamaSummarizer(ollamaURL, model string, cfg config.TTSConfig) *OllamaSummarizer {
	return &OllamaSummarizer{
		baseURL: strings.TrimSuffix(ollamaURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type summaryRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type summaryResponse struct {
	Response string `json:"response"`
}

// Summarize returns a one-sentence spoken form of text. On any failure it
// falls back to the first sentences of the input, so something always
// gets spoken.
func (sm *OllamaSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	summary, err := sm.summarizeWithModel(ctx, text)
	if err != nil {
		logging.LogWarn("Summarizer failed, falling back to leading sentences")
		return FirstSentences(text, 2), nil
	}
	if summary == "" {
		return FirstSentences(text, 2), nil
	}
	return summary, nil
}

func (sm *OllamaSummarizer) summarizeWithModel(ctx context.Context, text string) (string, error) {
	reqBody := summaryRequest{
		Model:  sm.model,
		Prompt: fmt.Sprintf(summaryPrompt, text),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.2,
			"num_predict": 80,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sm.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sm.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(msg))
	}

	var result summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode summary response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}

// SplitSentences breaks text on sentence boundaries so playback can be
// cancelled between sentences
func SplitSentences(text string) []string {
	var out []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// FirstSentences returns the leading n sentences of text
func FirstSentences(text string, n int) string {
	sentences := SplitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " ")
}
