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

package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
)

// RESTScorer scores frames against an openwakeword-compatible sidecar.
// The model runs out of process; each frame goes up as a small WAV and
// comes back as a confidence score.
type RESTScorer struct {
	url        string
	model      string
	sampleRate int
	client     *http.Client
}

// NewRESTScorer creates a scorer posting to the given scoring service
func NewRESTScorer(cfg config.WakeWordConfig, sampleRate int) *RESTScorer {
	return &RESTScorer{
		url:        cfg.URL,
		model:      cfg.Model,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 2 * time.Second},
	}
}

// Score posts one frame and returns the wake-word confidence
func (rs *RESTScorer) Score(samples []float32) (float64, error) {
	wav := pipeline.EncodeWAV(samples, rs.sampleRate)

	endpoint := fmt.Sprintf("%s/score?model=%s", rs.url, url.QueryEscape(rs.model))
	resp, err := rs.client.Post(endpoint, "audio/wav", bytes.NewReader(wav))
	if err != nil {
		return 0, fmt.Errorf("wake-word service request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("wake-word service returned %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode score: %w", err)
	}

	return result.Score, nil
}
