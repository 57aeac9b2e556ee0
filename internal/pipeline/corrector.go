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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

const correctionPrompt = `Fix any transcription errors, punctuation and capitalization in the following dictated text. Preserve the meaning and wording; do not rephrase, answer questions, or add commentary. Output only the corrected text.%s

Text: %s`

// OllamaCorrector cleans up transcriptions with a local LLM. The user's
// replacement dictionary runs first so deterministic fixes never depend
// on the model.
type OllamaCorrector struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaCorrector creates a corrector for the configured Ollama instance
func NewOllamaCorrector(cfg config.CorrectConfig) *OllamaCorrector {
	return &OllamaCorrector{
		baseURL: strings.TrimSuffix(cfg.OllamaURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Correct applies the dictionary pass and then asks the model to clean
// up the text. Callers fall back to the dictionary-passed text when the
// model call fails.
func (oc *OllamaCorrector) Correct(ctx context.Context, text string, snap config.Snapshot) (string, error) {
	text = ApplyCorrections(text, snap.Corrections)

	var vocabHint string
	if len(snap.Vocabulary) > 0 {
		vocabHint = " Domain terms that may appear: " + strings.Join(snap.Vocabulary, ", ") + "."
	}

	reqBody := generateRequest{
		Model:  oc.model,
		Prompt: fmt.Sprintf(correctionPrompt, vocabHint, text),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 500,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return text, fmt.Errorf("failed to marshal correction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return text, fmt.Errorf("failed to create correction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.client.Do(req)
	if err != nil {
		return text, fmt.Errorf("correction request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return text, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(msg))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return text, fmt.Errorf("failed to decode correction response: %w", err)
	}

	corrected := CleanModelOutput(result.Response)
	if corrected == "" {
		return text, nil
	}
	return corrected, nil
}

// CleanModelOutput strips quoting and prefixes models wrap answers in
func CleanModelOutput(text string) string {
	text = strings.TrimSpace(text)

	for _, prefix := range []string{"Corrected text:", "Corrected:", "Text:", "Output:"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}

	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}

	return strings.TrimSpace(text)
}
