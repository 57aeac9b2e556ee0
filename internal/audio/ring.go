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

package audio

// Ring is a fixed-capacity ring buffer of audio samples. The newest
// Cap() samples are retained; older samples are overwritten. Not safe
// for concurrent use; the Source guards it with its own lock.
type Ring struct {
	buf  []float32
	head int
	full bool
}

// NewRing creates a ring buffer holding up to capacity samples
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest when full
func (r *Ring) Write(samples []float32) {
	if len(samples) >= len(r.buf) {
		// Only the tail fits; the rest would be overwritten anyway.
		copy(r.buf, samples[len(samples)-len(r.buf):])
		r.head = 0
		r.full = true
		return
	}

	n := copy(r.buf[r.head:], samples)
	if n < len(samples) {
		copy(r.buf, samples[n:])
	}
	r.head = (r.head + len(samples)) % len(r.buf)
	if !r.full && r.head < len(samples) {
		r.full = true
	}
}

// Len returns the number of samples currently held
func (r *Ring) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.head
}

// Cap returns the ring capacity in samples
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Snapshot returns a copy of the held samples in chronological order
func (r *Ring) Snapshot() []float32 {
	out := make([]float32, 0, r.Len())
	if r.full {
		out = append(out, r.buf[r.head:]...)
	}
	out = append(out, r.buf[:r.head]...)
	return out
}

// Reset discards all held samples
func (r *Ring) Reset() {
	r.head = 0
	r.full = false
}
