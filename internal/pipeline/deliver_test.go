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
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

type fakeTools struct {
	installed map[string]bool
	fail      map[string]bool
	calls     []string
}

func (f *fakeTools) lookPath(name string) (string, error) {
	if f.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("%s: executable file not found", name)
}

func (f *fakeTools) run(ctx context.Context, stdin string, name string, args ...string) error {
	f.calls = append(f.calls, name)
	if f.fail[name] {
		return fmt.Errorf("%s exploded", name)
	}
	return nil
}

func newTestDeliverer(tools *fakeTools, backends ...string) *ExecDeliverer {
	_ = logging.Initialize()
	d := NewExecDeliverer(config.DeliverConfig{Backends: backends})
	d.run = tools.run
	d.lookPath = tools.lookPath
	return d
}

func TestExecDeliverer_FirstBackendWins(t *testing.T) {
	tools := &fakeTools{installed: map[string]bool{"ydotool": true, "wtype": true}}
	d := newTestDeliverer(tools, "ydotool", "wtype")

	backend, err := d.Deliver(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}
	if backend != "ydotool" {
		t.Errorf("Expected ydotool backend, got %q", backend)
	}
	if len(tools.calls) != 1 {
		t.Errorf("Expected 1 tool invocation, got %v", tools.calls)
	}
}

func TestExecDeliverer_FallsBackWhenMissing(t *testing.T) {
	tools := &fakeTools{installed: map[string]bool{"wtype": true}}
	d := newTestDeliverer(tools, "ydotool", "wtype")

	backend, err := d.Deliver(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}
	if backend != "wtype" {
		t.Errorf("Expected wtype backend, got %q", backend)
	}
}

func TestExecDeliverer_FallsBackOnFailure(t *testing.T) {
	tools := &fakeTools{
		installed: map[string]bool{"ydotool": true, "wtype": true},
		fail:      map[string]bool{"ydotool": true},
	}
	d := newTestDeliverer(tools, "ydotool", "wtype")

	backend, err := d.Deliver(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}
	if backend != "wtype" {
		t.Errorf("Expected wtype backend, got %q", backend)
	}
}

func TestExecDeliverer_AllBackendsFail(t *testing.T) {
	tools := &fakeTools{installed: map[string]bool{}}
	d := newTestDeliverer(tools, "ydotool", "wtype", "xdotool")

	if _, err := d.Deliver(context.Background(), "hello"); err == nil {
		t.Error("Expected error when no backend is available")
	}
}

func TestExecDeliverer_XdotoolUsesClipboard(t *testing.T) {
	tools := &fakeTools{installed: map[string]bool{"xdotool": true, "xclip": true}}
	d := newTestDeliverer(tools, "xdotool")

	backend, err := d.Deliver(context.Background(), "héllo ünïcode")
	if err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}
	if backend != "xdotool" {
		t.Errorf("Expected xdotool backend, got %q", backend)
	}

	// Clipboard copy first, then the paste keystroke.
	if len(tools.calls) != 2 || tools.calls[0] != "xclip" || tools.calls[1] != "xdotool" {
		t.Errorf("Expected [xclip xdotool] invocations, got %v", tools.calls)
	}
}

func TestExecDeliverer_EmptyText(t *testing.T) {
	tools := &fakeTools{installed: map[string]bool{"ydotool": true}}
	d := newTestDeliverer(tools, "ydotool")

	if _, err := d.Deliver(context.Background(), ""); err == nil {
		t.Error("Expected error for empty text")
	}
	if len(tools.calls) != 0 {
		t.Errorf("Expected no tool invocations for empty text, got %v", tools.calls)
	}
}
