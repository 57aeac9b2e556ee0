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

// Package metrics exposes Prometheus counters and histograms for the
// dictation and speaker pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal counts dictation sessions by trigger and outcome
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictate_sessions_total",
		Help: "Dictation sessions by trigger and outcome",
	}, []string{"trigger", "outcome"})

	// StageDuration tracks per-stage pipeline latency
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dictate_stage_duration_seconds",
		Help:    "Pipeline stage latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})

	// StageFailures counts stage errors
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictate_stage_failures_total",
		Help: "Pipeline stage failures",
	}, []string{"stage"})

	// CaptureSeconds tracks captured audio length per session
	CaptureSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dictate_capture_seconds",
		Help:    "Captured audio duration per session",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})

	// TriggersDropped counts triggers dropped because the queue was full
	TriggersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dictate_triggers_dropped_total",
		Help: "Trigger events dropped due to a full event queue",
	})

	// SpeakTotal counts spoken notifications by outcome
	SpeakTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dictate_speak_total",
		Help: "Spoken notifications by outcome",
	}, []string{"outcome"})

	// RemindersActive gauges currently scheduled reminders
	RemindersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dictate_reminders_active",
		Help: "Reminder loops currently running",
	})
)
