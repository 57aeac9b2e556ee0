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
	"fmt"
	"os/exec"
	"strings"
)

// ExecPlayer plays synthesized audio through an external player binary.
// paplay covers PulseAudio and PipeWire; aplay is the ALSA fallback.
type ExecPlayer struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, audio []byte, name string, args ...string) error
}

// NewExecPlayer creates a player
func NewExecPlayer() *ExecPlayer {
	return &ExecPlayer{
		lookPath: exec.LookPath,
		run:      runPlayer,
	}
}

func runPlayer(ctx context.Context, audio []byte, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(audio)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Play blocks until the audio finishes or ctx is cancelled
func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	if _, err := p.lookPath("paplay"); err == nil {
		return p.run(ctx, audio, "paplay")
	}
	if _, err := p.lookPath("aplay"); err == nil {
		return p.run(ctx, audio, "aplay", "-q")
	}
	return fmt.Errorf("no audio player found (need paplay or aplay)")
}
