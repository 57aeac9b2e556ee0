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
	"testing"

	"golang.design/x/hotkey"
)

func TestKeyByName(t *testing.T) {
	tests := []struct {
		name string
		want hotkey.Key
	}{
		{"a", hotkey.KeyA},
		{"z", hotkey.KeyZ},
		// Digit constants are not laid out 0..9: Key0 sorts after Key9.
		{"0", hotkey.Key0},
		{"1", hotkey.Key1},
		{"2", hotkey.Key2},
		{"5", hotkey.Key5},
		{"9", hotkey.Key9},
		{"space", hotkey.KeySpace},
		{"enter", hotkey.KeyReturn},
		{"esc", hotkey.KeyEscape},
		{"f12", hotkey.KeyF12},
	}

	for _, tt := range tests {
		got, err := keyByName(tt.name)
		if err != nil {
			t.Errorf("keyByName(%q) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("keyByName(%q) = %#x, want %#x", tt.name, got, tt.want)
		}
	}

	if _, err := keyByName("bogus"); err == nil {
		t.Error("Expected error for unknown key name")
	}
}

func TestParseChord(t *testing.T) {
	mods, key, err := parseChord([]string{"ctrl", "shift", "1"})
	if err != nil {
		t.Fatalf("parseChord() failed: %v", err)
	}
	if len(mods) != 2 || mods[0] != hotkey.ModCtrl || mods[1] != hotkey.ModShift {
		t.Errorf("Expected ctrl+shift modifiers, got %v", mods)
	}
	if key != hotkey.Key1 {
		t.Errorf("Expected Key1, got %#x", key)
	}

	if _, _, err := parseChord([]string{"ctrl", "a", "b"}); err == nil {
		t.Error("Expected error for chord with two non-modifier keys")
	}
	if _, _, err := parseChord([]string{"ctrl", "shift"}); err == nil {
		t.Error("Expected error for modifier-only chord")
	}
}
