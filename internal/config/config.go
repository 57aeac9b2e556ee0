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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the loqa-dictate daemon
type Config struct {
	Server   ServerConfig
	Audio    AudioConfig
	Silence  SilenceConfig
	Hotkey   HotkeyConfig
	WakeWord WakeWordConfig
	STT      STTConfig
	Correct  CorrectConfig
	Deliver  DeliverConfig
	TTS      TTSConfig
	NATS     NATSConfig
	Storage  StorageConfig
	Control  ControlConfig
	Logging  LoggingConfig
}

// ServerConfig holds the local HTTP listener configuration (speak API + metrics)
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AudioConfig holds input stream configuration
type AudioConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	PreRoll         time.Duration // capacity of the pre-roll ring
	MaxCapture      time.Duration // absolute ceiling for one capture
	DeviceRetries   int           // reacquisition attempts after device loss
	RetryBaseDelay  time.Duration // base for exponential backoff
}

// SilenceConfig holds auto-stop silence detection parameters
type SilenceConfig struct {
	Threshold float64       // RMS below this counts as silence
	Duration  time.Duration // sustained silence before auto-stop
	MinSpeech time.Duration // no auto-stop before this much capture
}

// HotkeyConfig holds chord trigger configuration.
// Combos is a list of key-sets; any one fully-held set fires the trigger.
type HotkeyConfig struct {
	Combos [][]string
}

// WakeWordConfig holds wake-word trigger configuration
type WakeWordConfig struct {
	Enabled   bool
	URL       string // openwakeword-compatible scoring service
	Model     string
	Threshold float64
	Cooldown  time.Duration
}

// STTConfig holds speech-to-text engine configuration
type STTConfig struct {
	Engine    string // "whisper" (local model) or "rest" (OpenAI-compatible API)
	ModelPath string
	URL       string
	Language  string
	Timeout   time.Duration
}

// CorrectConfig holds the optional LLM correction stage configuration
type CorrectConfig struct {
	Enabled     bool
	OllamaURL   string
	Model       string
	Timeout     time.Duration
	LexiconPath string // YAML file with vocabulary + correction dictionary
}

// DeliverConfig holds text delivery configuration.
// Backends are tried in order; the first success wins.
type DeliverConfig struct {
	Backends      []string
	Timeout       time.Duration
	Notifications bool // desktop notifications on session start/finish
}

// TTSConfig holds the speaker pipeline configuration
type TTSConfig struct {
	Enabled          bool
	URL              string // Kokoro-compatible REST endpoint
	Voice            string
	Speed            float32
	ResponseFormat   string
	Timeout          time.Duration
	MaxDirectChars   int           // texts longer than this get summarized
	ReminderInterval time.Duration // escalating reminder period
	SummarizerModel  string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// StorageConfig holds history database configuration
type StorageConfig struct {
	DBPath string
}

// ControlConfig holds the external control surface configuration
type ControlConfig struct {
	MCPPort   int
	StatePath string // state file mirroring mode/status for external inspection
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("DICTATE_HOST", "127.0.0.1"),
			Port:         getEnvInt("DICTATE_PORT", 8767),
			ReadTimeout:  getEnvDuration("DICTATE_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("DICTATE_WRITE_TIMEOUT", 30*time.Second),
		},
		Audio: AudioConfig{
			SampleRate:      getEnvInt("AUDIO_SAMPLE_RATE", 16000),
			Channels:        getEnvInt("AUDIO_CHANNELS", 1),
			FramesPerBuffer: getEnvInt("AUDIO_FRAMES_PER_BUFFER", 1024),
			PreRoll:         getEnvDuration("AUDIO_PREROLL", 500*time.Millisecond),
			MaxCapture:      getEnvDuration("AUDIO_MAX_CAPTURE", 120*time.Second),
			DeviceRetries:   getEnvInt("AUDIO_DEVICE_RETRIES", 5),
			RetryBaseDelay:  getEnvDuration("AUDIO_RETRY_BASE_DELAY", 500*time.Millisecond),
		},
		Silence: SilenceConfig{
			Threshold: getEnvFloat64("SILENCE_THRESHOLD", 0.01),
			Duration:  getEnvDuration("SILENCE_DURATION", 1500*time.Millisecond),
			MinSpeech: getEnvDuration("SILENCE_MIN_SPEECH", 500*time.Millisecond),
		},
		Hotkey: HotkeyConfig{
			Combos: parseCombos(getEnvString("HOTKEY_COMBOS", "super+alt+d;ctrl+alt+d")),
		},
		WakeWord: WakeWordConfig{
			Enabled:   getEnvBool("WAKEWORD_ENABLED", false),
			URL:       getEnvString("WAKEWORD_URL", "http://localhost:8771"),
			Model:     getEnvString("WAKEWORD_MODEL", "hey_jarvis"),
			Threshold: getEnvFloat64("WAKEWORD_THRESHOLD", 0.5),
			Cooldown:  getEnvDuration("WAKEWORD_COOLDOWN", 2*time.Second),
		},
		STT: STTConfig{
			Engine:    getEnvString("STT_ENGINE", "whisper"),
			ModelPath: getEnvString("STT_MODEL_PATH", "./models/ggml-base.en.bin"),
			URL:       getEnvString("STT_URL", "http://localhost:8000"),
			Language:  getEnvString("STT_LANGUAGE", "en"),
			Timeout:   getEnvDuration("STT_TIMEOUT", 30*time.Second),
		},
		Correct: CorrectConfig{
			Enabled:     getEnvBool("CORRECT_ENABLED", true),
			OllamaURL:   getEnvString("OLLAMA_URL", "http://localhost:11434"),
			Model:       getEnvString("CORRECT_MODEL", "llama3.2:3b"),
			Timeout:     getEnvDuration("CORRECT_TIMEOUT", 10*time.Second),
			LexiconPath: getEnvString("LEXICON_PATH", "./data/lexicon.yaml"),
		},
		Deliver: DeliverConfig{
			Backends:      parseList(getEnvString("DELIVER_BACKENDS", "ydotool,wtype,xdotool")),
			Timeout:       getEnvDuration("DELIVER_TIMEOUT", 5*time.Second),
			Notifications: getEnvBool("DESKTOP_NOTIFICATIONS", true),
		},
		TTS: TTSConfig{
			Enabled:          getEnvBool("TTS_ENABLED", false),
			URL:              getEnvString("TTS_URL", "http://localhost:8880/v1"),
			Voice:            getEnvString("TTS_VOICE", "af_heart"),
			Speed:            getEnvFloat32("TTS_SPEED", 1.0),
			ResponseFormat:   getEnvString("TTS_FORMAT", "wav"),
			Timeout:          getEnvDuration("TTS_TIMEOUT", 10*time.Second),
			MaxDirectChars:   getEnvInt("TTS_MAX_DIRECT_CHARS", 150),
			ReminderInterval: getEnvDuration("TTS_REMINDER_INTERVAL", 5*time.Minute),
			SummarizerModel:  getEnvString("TTS_SUMMARIZER_MODEL", "qwen2.5:1.5b"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "./data/loqa-dictate.db"),
		},
		Control: ControlConfig{
			MCPPort:   getEnvInt("MCP_PORT", 8766),
			StatePath: getEnvString("STATE_PATH", defaultStatePath()),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Control.MCPPort <= 0 || c.Control.MCPPort > 65535 {
		return fmt.Errorf("invalid MCP port: %d", c.Control.MCPPort)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}

	if c.Audio.Channels != 1 {
		return fmt.Errorf("only mono capture is supported, got %d channels", c.Audio.Channels)
	}

	if c.Audio.PreRoll <= 0 || c.Audio.PreRoll > 10*time.Second {
		return fmt.Errorf("pre-roll must be within (0s, 10s]: %v", c.Audio.PreRoll)
	}

	if c.Audio.MaxCapture <= 0 {
		return fmt.Errorf("max capture duration must be positive: %v", c.Audio.MaxCapture)
	}

	if c.Silence.Threshold <= 0 || c.Silence.Threshold >= 1 {
		return fmt.Errorf("silence threshold must be within (0, 1): %f", c.Silence.Threshold)
	}

	if len(c.Hotkey.Combos) == 0 {
		return fmt.Errorf("at least one hotkey combo must be configured")
	}

	switch c.STT.Engine {
	case "whisper", "rest":
	default:
		return fmt.Errorf("unknown STT engine: %q", c.STT.Engine)
	}

	if len(c.Deliver.Backends) == 0 {
		return fmt.Errorf("at least one delivery backend must be configured")
	}

	if c.TTS.Speed <= 0 {
		return fmt.Errorf("TTS speed must be positive: %f", c.TTS.Speed)
	}

	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data/state.json"
	}
	return home + "/.cache/loqa-dictate/state.json"
}

// parseCombos parses "super+alt;ctrl+shift+d" into [][]string{{"super","alt"},{"ctrl","shift","d"}}
func parseCombos(raw string) [][]string {
	var combos [][]string
	for _, combo := range strings.Split(raw, ";") {
		combo = strings.TrimSpace(combo)
		if combo == "" {
			continue
		}
		var keys []string
		for _, key := range strings.Split(combo, "+") {
			key = strings.ToLower(strings.TrimSpace(key))
			if key != "" {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			combos = append(combos, keys)
		}
	}
	return combos
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
