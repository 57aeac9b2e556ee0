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
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// RESTTranscriber sends audio to an OpenAI-compatible transcription
// endpoint (faster-whisper-server, speaches, or the OpenAI API itself)
type RESTTranscriber struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewRESTTranscriber creates a transcriber for the configured endpoint
func NewRESTTranscriber(cfg config.STTConfig) *RESTTranscriber {
	return &RESTTranscriber{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		language: cfg.Language,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio as WAV and returns the transcription
func (rt *RESTTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int, prompt string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(EncodeWAV(samples, sampleRate)); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           "whisper-1",
		"response_format": "json",
	}
	if rt.language != "" {
		fields["language"] = rt.language
	}
	if prompt != "" {
		fields["prompt"] = prompt
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	url := rt.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := rt.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, string(msg))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return strings.TrimSpace(result.Text), nil
}

// Close is a no-op for the REST transcriber
func (rt *RESTTranscriber) Close() error {
	return nil
}
