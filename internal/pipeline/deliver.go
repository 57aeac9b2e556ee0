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
	"fmt"
	"os/exec"
	"strings"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// commandRunner executes an external typing tool. Swappable in tests.
type commandRunner func(ctx context.Context, stdin string, name string, args ...string) error

// lookPathFunc checks tool availability. Swappable in tests.
type lookPathFunc func(name string) (string, error)

// ExecDeliverer types text via external tools, trying each configured
// backend in order until one succeeds. ydotool covers Wayland with the
// daemon running, wtype covers wlroots compositors, and the xdotool
// backend pastes through the clipboard on X11.
type ExecDeliverer struct {
	backends []string
	run      commandRunner
	lookPath lookPathFunc
}

// NewExecDeliverer creates a deliverer for the configured backend order
func NewExecDeliverer(cfg config.DeliverConfig) *ExecDeliverer {
	return &ExecDeliverer{
		backends: cfg.Backends,
		run:      runCommand,
		lookPath: exec.LookPath,
	}
}

func runCommand(ctx context.Context, stdin string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Deliver types text into the focused application and returns the name
// of the backend that succeeded
func (d *ExecDeliverer) Deliver(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("nothing to deliver")
	}

	var errs []string
	for _, backend := range d.backends {
		if err := d.deliverWith(ctx, backend, text); err != nil {
			logging.Sugar.Debugw("Delivery backend failed", "backend", backend, "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", backend, err))
			continue
		}
		return backend, nil
	}

	return "", fmt.Errorf("all delivery backends failed: %s", strings.Join(errs, "; "))
}

func (d *ExecDeliverer) deliverWith(ctx context.Context, backend, text string) error {
	switch backend {
	case "ydotool":
		if _, err := d.lookPath("ydotool"); err != nil {
			return fmt.Errorf("ydotool not installed")
		}
		return d.run(ctx, "", "ydotool", "type", "--next-delay", "1", "--", text)

	case "wtype":
		if _, err := d.lookPath("wtype"); err != nil {
			return fmt.Errorf("wtype not installed")
		}
		return d.run(ctx, "", "wtype", "--", text)

	case "xdotool":
		// Clipboard paste survives non-ASCII text that xdotool type mangles.
		if _, err := d.lookPath("xdotool"); err != nil {
			return fmt.Errorf("xdotool not installed")
		}
		if _, err := d.lookPath("xclip"); err != nil {
			return fmt.Errorf("xclip not installed")
		}
		if err := d.run(ctx, text, "xclip", "-selection", "clipboard"); err != nil {
			return err
		}
		return d.run(ctx, "", "xdotool", "key", "--clearmodifiers", "ctrl+v")

	default:
		return fmt.Errorf("unknown delivery backend: %q", backend)
	}
}
