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

// Matcher tracks held keys against a set of chords. A chord fires when
// every one of its keys is held, and cannot fire again until at least one
// of its keys is released, so key auto-repeat never double-triggers.
// The release of a fired chord is reported too: press starts a capture,
// release stops it.
type Matcher struct {
	combos [][]string
	held   map[string]bool
	fired  bool
}

// NewMatcher creates a matcher for the given chords. Each chord is a set
// of key names; any fully-held chord fires.
func NewMatcher(combos [][]string) *Matcher {
	return &Matcher{
		combos: combos,
		held:   make(map[string]bool),
	}
}

// KeyDown records a key press and reports whether a chord fired
func (m *Matcher) KeyDown(key string) bool {
	m.held[key] = true

	if m.fired {
		return false
	}

	if m.anySatisfied() {
		m.fired = true
		return true
	}
	return false
}

// KeyUp records a key release and reports whether a fired chord broke
func (m *Matcher) KeyUp(key string) bool {
	delete(m.held, key)

	if m.fired && !m.anySatisfied() {
		m.fired = false
		return true
	}
	return false
}

func (m *Matcher) anySatisfied() bool {
	for _, combo := range m.combos {
		satisfied := true
		for _, key := range combo {
			if !m.held[key] {
				satisfied = false
				break
			}
		}
		if satisfied {
			return true
		}
	}
	return false
}
