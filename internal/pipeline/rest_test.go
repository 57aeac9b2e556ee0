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
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

func TestRESTTranscriber_Success(t *testing.T) {
	var gotLanguage, gotPrompt string
	var gotAudio []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotPrompt = r.FormValue("prompt")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing audio file: %v", err)
		}
		gotAudio, _ = io.ReadAll(file)

		_ = json.NewEncoder(w).Encode(map[string]string{"text": " hello world "})
	}))
	defer server.Close()

	rt := NewRESTTranscriber(config.STTConfig{
		URL:      server.URL,
		Language: "en",
		Timeout:  5 * time.Second,
	})

	samples := []float32{0.1, -0.1, 0.5, -0.5}
	got, err := rt.Transcribe(context.Background(), samples, 16000, "Vocabulary: zap")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}

	if got != "hello world" {
		t.Errorf("Expected trimmed transcription, got %q", got)
	}
	if gotLanguage != "en" {
		t.Errorf("Expected language en, got %q", gotLanguage)
	}
	if gotPrompt != "Vocabulary: zap" {
		t.Errorf("Expected vocabulary prompt, got %q", gotPrompt)
	}

	// Uploaded audio must be a valid WAV with our samples.
	if len(gotAudio) != 44+len(samples)*2 {
		t.Errorf("Expected %d WAV bytes, got %d", 44+len(samples)*2, len(gotAudio))
	}
	if string(gotAudio[:4]) != "RIFF" || string(gotAudio[8:12]) != "WAVE" {
		t.Error("Uploaded audio is not a WAV file")
	}
}

func TestRESTTranscriber_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rt := NewRESTTranscriber(config.STTConfig{URL: server.URL, Timeout: 5 * time.Second})
	if _, err := rt.Transcribe(context.Background(), []float32{0}, 16000, ""); err == nil {
		t.Error("Expected error for server failure")
	}
}

func TestRESTTranscriber_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	rt := NewRESTTranscriber(config.STTConfig{URL: server.URL, Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rt.Transcribe(ctx, []float32{0}, 16000, ""); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestEncodeWAV(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1.0, -1.0, 2.0, -2.0}
	data := EncodeWAV(samples, 16000)

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("Expected 16-bit samples, got %d", bits)
	}

	pcm := data[44:]
	readSample := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}

	if readSample(0) != 0 {
		t.Errorf("Expected silence sample 0, got %d", readSample(0))
	}
	if readSample(3) != 32767 {
		t.Errorf("Expected full-scale sample, got %d", readSample(3))
	}

	// Out-of-range samples clip instead of wrapping.
	if readSample(5) != 32767 {
		t.Errorf("Expected clipped positive sample, got %d", readSample(5))
	}
	if readSample(6) != -32767 {
		t.Errorf("Expected clipped negative sample, got %d", readSample(6))
	}
}
