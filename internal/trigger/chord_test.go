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

import "testing"

func TestMatcher_FiresWhenChordHeld(t *testing.T) {
	m := NewMatcher([][]string{{"super", "alt", "d"}})

	if m.KeyDown("super") {
		t.Error("Fired with only one key held")
	}
	if m.KeyDown("alt") {
		t.Error("Fired with two of three keys held")
	}
	if !m.KeyDown("d") {
		t.Error("Did not fire with full chord held")
	}
}

func TestMatcher_AutoRepeatDoesNotRefire(t *testing.T) {
	m := NewMatcher([][]string{{"ctrl", "d"}})

	m.KeyDown("ctrl")
	if !m.KeyDown("d") {
		t.Fatal("Did not fire on full chord")
	}

	// Key auto-repeat resends the last key while held.
	for i := 0; i < 5; i++ {
		if m.KeyDown("d") {
			t.Fatal("Refired on auto-repeat")
		}
	}
}

func TestMatcher_RefiresAfterRelease(t *testing.T) {
	m := NewMatcher([][]string{{"ctrl", "d"}})

	m.KeyDown("ctrl")
	if !m.KeyDown("d") {
		t.Fatal("Did not fire on full chord")
	}

	m.KeyUp("d")
	if !m.KeyDown("d") {
		t.Error("Did not refire after release and re-press")
	}
}

func TestMatcher_AnyOfMultipleChords(t *testing.T) {
	m := NewMatcher([][]string{{"super", "alt"}, {"ctrl", "shift"}})

	m.KeyDown("ctrl")
	if !m.KeyDown("shift") {
		t.Error("Second chord did not fire")
	}

	m.KeyUp("ctrl")
	m.KeyUp("shift")

	m.KeyDown("super")
	if !m.KeyDown("alt") {
		t.Error("First chord did not fire")
	}
}

func TestMatcher_HoldingOneChordBlocksAnother(t *testing.T) {
	m := NewMatcher([][]string{{"super", "alt"}, {"ctrl", "shift"}})

	m.KeyDown("super")
	if !m.KeyDown("alt") {
		t.Fatal("First chord did not fire")
	}

	// While the first chord is still held, completing the second must not
	// produce a second fire.
	m.KeyDown("ctrl")
	if m.KeyDown("shift") {
		t.Error("Second chord fired while first still held")
	}
}

func TestMatcher_ReleaseReportsStop(t *testing.T) {
	m := NewMatcher([][]string{{"ctrl", "d"}})

	m.KeyDown("ctrl")
	if !m.KeyDown("d") {
		t.Fatal("Did not fire on full chord")
	}

	if !m.KeyUp("d") {
		t.Error("Breaking a fired chord did not report a stop")
	}
	if m.KeyUp("ctrl") {
		t.Error("Releasing the rest of the chord reported a second stop")
	}
}

func TestMatcher_ReleaseWithoutFireIsSilent(t *testing.T) {
	m := NewMatcher([][]string{{"ctrl", "d"}})

	m.KeyDown("ctrl")
	if m.KeyUp("ctrl") {
		t.Error("Release of an unfired chord reported a stop")
	}
}
