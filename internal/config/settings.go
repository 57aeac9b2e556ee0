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
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/loqalabs/loqa-dictate/internal/security"
)

// OutputMode selects which transcription text gets delivered
type OutputMode string

const (
	// OutputBoth delivers "corrected [raw]"
	OutputBoth OutputMode = "both"
	// OutputRawOnly delivers the raw transcription, skipping correction entirely
	OutputRawOnly OutputMode = "raw_only"
	// OutputCorrectedOnly delivers only the corrected text
	OutputCorrectedOnly OutputMode = "corrected_only"
)

// ValidOutputMode reports whether mode is one of the recognized output modes
func ValidOutputMode(mode OutputMode) bool {
	switch mode {
	case OutputBoth, OutputRawOnly, OutputCorrectedOnly:
		return true
	}
	return false
}

// Lexicon is the on-disk shape of user vocabulary and the correction dictionary
type Lexicon struct {
	Vocabulary  []string          `yaml:"vocabulary"`
	Corrections map[string]string `yaml:"corrections"`
}

// Settings holds the runtime-mutable knobs. Unlike Config, these can change
// while the daemon runs (via the control surface) and are versioned so a
// capture session can pin the values it started with.
type Settings struct {
	mu sync.RWMutex

	version           uint64
	outputMode        OutputMode
	correctionEnabled bool
	vocabulary        []string
	corrections       map[string]string

	lexiconPath string
}

// Snapshot is an immutable copy of Settings taken at a point in time.
// A session holds its Snapshot for its entire lifetime so that mid-session
// settings changes only affect later sessions.
type Snapshot struct {
	Version           uint64
	OutputMode        OutputMode
	CorrectionEnabled bool
	Vocabulary        []string
	Corrections       map[string]string
}

// NewSettings creates a Settings store seeded from static config, loading the
// lexicon file if it exists. A missing lexicon file is not an error.
func NewSettings(cfg *Config) (*Settings, error) {
	s := &Settings{
		version:           1,
		outputMode:        OutputBoth,
		correctionEnabled: cfg.Correct.Enabled,
		corrections:       make(map[string]string),
		lexiconPath:       cfg.Correct.LexiconPath,
	}

	if err := s.loadLexicon(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Settings) loadLexicon() error {
	if s.lexiconPath == "" {
		return nil
	}

	data, err := os.ReadFile(s.lexiconPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lexicon file: %w", err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return fmt.Errorf("failed to parse lexicon file: %w", err)
	}

	s.vocabulary = lex.Vocabulary
	if lex.Corrections != nil {
		s.corrections = lex.Corrections
	}
	return nil
}

// saveLexicon writes the current vocabulary and corrections back to disk.
// Callers must hold s.mu.
func (s *Settings) saveLexicon() error {
	if s.lexiconPath == "" {
		return nil
	}

	lex := Lexicon{
		Vocabulary:  s.vocabulary,
		Corrections: s.corrections,
	}

	data, err := yaml.Marshal(&lex)
	if err != nil {
		return fmt.Errorf("failed to marshal lexicon: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.lexiconPath), 0750); err != nil {
		return fmt.Errorf("failed to create lexicon directory: %w", err)
	}

	tmp := s.lexiconPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("failed to write lexicon file: %w", err)
	}
	if err := os.Rename(tmp, s.lexiconPath); err != nil {
		return fmt.Errorf("failed to replace lexicon file: %w", err)
	}
	return nil
}

// Snapshot returns an immutable copy of the current settings
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version:           s.version,
		OutputMode:        s.outputMode,
		CorrectionEnabled: s.correctionEnabled,
		Vocabulary:        make([]string, len(s.vocabulary)),
		Corrections:       make(map[string]string, len(s.corrections)),
	}
	copy(snap.Vocabulary, s.vocabulary)
	for k, v := range s.corrections {
		snap.Corrections[k] = v
	}
	return snap
}

// OutputMode returns the current output mode
func (s *Settings) OutputMode() OutputMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputMode
}

// SetOutputMode changes the output mode for future sessions
func (s *Settings) SetOutputMode(mode OutputMode) error {
	if !ValidOutputMode(mode) {
		return fmt.Errorf("invalid output mode: %q", mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputMode == mode {
		return nil
	}
	s.outputMode = mode
	s.version++
	return nil
}

// CorrectionEnabled returns whether the correction stage is enabled
func (s *Settings) CorrectionEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.correctionEnabled
}

// SetCorrectionEnabled toggles the correction stage for future sessions
func (s *Settings) SetCorrectionEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.correctionEnabled == enabled {
		return
	}
	s.correctionEnabled = enabled
	s.version++
}

// AddVocabulary appends a term to the user vocabulary and persists the lexicon.
// Duplicate terms are ignored.
func (s *Settings) AddVocabulary(term string) error {
	if err := security.ValidateTerm(term); err != nil {
		return fmt.Errorf("vocabulary term %q: %w", term, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.vocabulary {
		if existing == term {
			return nil
		}
	}
	s.vocabulary = append(s.vocabulary, term)
	s.version++
	return s.saveLexicon()
}

// RemoveVocabulary deletes a term from the user vocabulary and persists the lexicon
func (s *Settings) RemoveVocabulary(term string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.vocabulary {
		if existing == term {
			s.vocabulary = append(s.vocabulary[:i], s.vocabulary[i+1:]...)
			s.version++
			return s.saveLexicon()
		}
	}
	return nil
}

// SetCorrection adds or updates a dictionary replacement and persists the lexicon
func (s *Settings) SetCorrection(from, to string) error {
	if err := security.ValidateTerm(from); err != nil {
		return fmt.Errorf("correction source %q: %w", from, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.corrections[from]; ok && existing == to {
		return nil
	}
	s.corrections[from] = to
	s.version++
	return s.saveLexicon()
}

// DeleteCorrection removes a dictionary replacement and persists the lexicon
func (s *Settings) DeleteCorrection(from string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.corrections[from]; !ok {
		return nil
	}
	delete(s.corrections, from)
	s.version++
	return s.saveLexicon()
}
