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

import "testing"

func TestPadSamples(t *testing.T) {
	short := make([]float32, 4000)
	for i := range short {
		short[i] = 0.5
	}

	padded := PadSamples(short, 16000)
	if len(padded) != 16000 {
		t.Fatalf("padded length = %d, want 16000", len(padded))
	}
	if padded[3999] != 0.5 {
		t.Error("original samples not preserved")
	}
	if padded[4000] != 0 {
		t.Error("padding is not silence")
	}

	long := make([]float32, 32000)
	if got := PadSamples(long, 16000); len(got) != 32000 {
		t.Errorf("long input length changed to %d", len(got))
	}
}
