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

// Package speaker implements the spoken-notification pipeline: text in,
// synthesized speech out, with cancellation and escalating reminders.
package speaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// KokoroRequest represents a request to the Kokoro TTS API
type KokoroRequest struct {
	Model  string  `json:"model"`
	Input  string  `json:"input"`
	Voice  string  `json:"voice"`
	Format string  `json:"response_format"`
	Speed  float32 `json:"speed,omitempty"`
}

// KokoroClient synthesizes speech with a Kokoro-82M compatible service
type KokoroClient struct {
	baseURL string
	cfg     config.TTSConfig
	client  *http.Client
}

// NewKokoroClient creates a new Kokoro TTS client
func NewKokoroClient(cfg config.TTSConfig) (*KokoroClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("Kokoro TTS URL cannot be empty")
	}

	kokoroClient := &KokoroClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		cfg:     cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	logging.LogTTSOperation("init",
		zap.String("url", cfg.URL),
		zap.String("voice", cfg.Voice),
	)

	return kokoroClient, nil
}

// Synthesize converts text to speech, returning encoded audio
func (k *KokoroClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	request := KokoroRequest{
		Model:  "kokoro",
		Input:  text,
		Voice:  k.cfg.Voice,
		Format: k.cfg.ResponseFormat,
		Speed:  k.cfg.Speed,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS service returned %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TTS audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS service returned empty audio")
	}

	return audio, nil
}
