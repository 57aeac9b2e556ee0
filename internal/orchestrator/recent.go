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

package orchestrator

import "sync"

// recentList keeps the last n delivered transcriptions, newest first
type recentList struct {
	mu    sync.Mutex
	max   int
	texts []string
}

func newRecentList(max int) *recentList {
	return &recentList{max: max}
}

func (r *recentList) add(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.texts = append([]string{text}, r.texts...)
	if len(r.texts) > r.max {
		r.texts = r.texts[:r.max]
	}
}

func (r *recentList) items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}
