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
	"fmt"
	"strings"
	"time"

	"golang.design/x/hotkey"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// HotkeySource registers global hotkey chords for push-to-talk: chord
// press emits a start event, chord release emits a stop. Chord semantics
// (fire once per hold, tolerate key auto-repeat) live in Matcher; this
// adapter only translates the hotkey library's per-chord keydown/keyup
// channels into matcher keys.
type HotkeySource struct {
	combos  [][]string
	matcher *Matcher
}

// NewHotkeySource creates a source for the configured chords
func NewHotkeySource(cfg config.HotkeyConfig) (*HotkeySource, error) {
	for _, combo := range cfg.Combos {
		if _, _, err := parseChord(combo); err != nil {
			return nil, err
		}
	}

	return &HotkeySource{
		combos:  cfg.Combos,
		matcher: NewMatcher(chordNames(cfg.Combos)),
	}, nil
}

// chordNames collapses each chord into a single matcher key, since the
// hotkey library reports whole-chord press/release rather than raw keys
func chordNames(combos [][]string) [][]string {
	out := make([][]string, len(combos))
	for i, combo := range combos {
		out[i] = []string{strings.Join(combo, "+")}
	}
	return out
}

// Run registers the chords and forwards fires until stop is closed
func (h *HotkeySource) Run(out chan<- Event, stop <-chan struct{}) {
	type registered struct {
		name string
		hk   *hotkey.Hotkey
	}

	var hks []registered
	for _, combo := range h.combos {
		mods, key, err := parseChord(combo)
		if err != nil {
			logging.LogError(err, "Skipping unparseable hotkey chord")
			continue
		}

		hk := hotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			logging.LogError(err, "Failed to register hotkey chord")
			continue
		}

		name := strings.Join(combo, "+")
		logging.Sugar.Infow("⌨️ Hotkey registered", "chord", name)
		hks = append(hks, registered{name: name, hk: hk})
	}

	defer func() {
		for _, r := range hks {
			_ = r.hk.Unregister()
		}
	}()

	if len(hks) == 0 {
		logging.LogWarn("No hotkey chords registered; hotkey trigger disabled")
		<-stop
		return
	}

	fires := make(chan string, 4)
	releases := make(chan string, 4)
	for _, r := range hks {
		r := r
		go func() {
			for {
				select {
				case <-stop:
					return
				case <-r.hk.Keydown():
					select {
					case fires <- r.name:
					case <-stop:
						return
					}
				case <-r.hk.Keyup():
					select {
					case releases <- r.name:
					case <-stop:
						return
					}
				}
			}
		}()
	}

	for {
		select {
		case <-stop:
			return
		case name := <-fires:
			if h.matcher.KeyDown(name) {
				out <- Event{Action: ActionStart, Kind: events.TriggerHotkey, At: time.Now()}
			}
		case name := <-releases:
			if h.matcher.KeyUp(name) {
				out <- Event{Action: ActionStop, Kind: events.TriggerHotkey, At: time.Now()}
			}
		}
	}
}

// parseChord maps key names to hotkey library modifiers and the final key.
// A chord needs at least one non-modifier key; modifier-only chords cannot
// be registered globally.
func parseChord(combo []string) ([]hotkey.Modifier, hotkey.Key, error) {
	var mods []hotkey.Modifier
	var key hotkey.Key
	haveKey := false

	for _, name := range combo {
		switch strings.ToLower(name) {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt":
			mods = append(mods, hotkey.Mod1)
		case "super", "meta", "win":
			mods = append(mods, hotkey.Mod4)
		default:
			if haveKey {
				return nil, 0, fmt.Errorf("chord %v has more than one non-modifier key", combo)
			}
			k, err := keyByName(name)
			if err != nil {
				return nil, 0, err
			}
			key = k
			haveKey = true
		}
	}

	if !haveKey {
		return nil, 0, fmt.Errorf("chord %v needs a non-modifier key", combo)
	}
	return mods, key, nil
}

func keyByName(name string) (hotkey.Key, error) {
	name = strings.ToLower(name)

	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return hotkey.Key(hotkey.KeyA + hotkey.Key(c-'a')), nil
		case c == '0':
			// Key0 sorts after Key9 in the library, not before Key1.
			return hotkey.Key0, nil
		case c >= '1' && c <= '9':
			return hotkey.Key(hotkey.Key1 + hotkey.Key(c-'1')), nil
		}
	}

	switch name {
	case "space":
		return hotkey.KeySpace, nil
	case "return", "enter":
		return hotkey.KeyReturn, nil
	case "escape", "esc":
		return hotkey.KeyEscape, nil
	case "tab":
		return hotkey.KeyTab, nil
	case "f1":
		return hotkey.KeyF1, nil
	case "f2":
		return hotkey.KeyF2, nil
	case "f3":
		return hotkey.KeyF3, nil
	case "f4":
		return hotkey.KeyF4, nil
	case "f5":
		return hotkey.KeyF5, nil
	case "f6":
		return hotkey.KeyF6, nil
	case "f7":
		return hotkey.KeyF7, nil
	case "f8":
		return hotkey.KeyF8, nil
	case "f9":
		return hotkey.KeyF9, nil
	case "f10":
		return hotkey.KeyF10, nil
	case "f11":
		return hotkey.KeyF11, nil
	case "f12":
		return hotkey.KeyF12, nil
	}

	return 0, fmt.Errorf("unknown key name: %q", name)
}
