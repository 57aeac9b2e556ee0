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

// Package messaging publishes session activity to NATS and accepts
// speak requests from other services on the bus.
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// NATS subjects for dictation events
const (
	SubjectSessions = "loqa.dictate.sessions"
	SubjectSpeak    = "loqa.dictate.speak"
	SubjectSpoken   = "loqa.dictate.spoken"
)

// SpeakRequest is the payload other services publish to have text spoken
type SpeakRequest struct {
	Text     string `json:"text"`
	Reminder bool   `json:"reminder,omitempty"`
}

// NATSService handles the bus connection. All methods are safe on a nil
// receiver so the daemon runs fine with NATS disabled.
type NATSService struct {
	url  string
	cfg  config.NATSConfig
	conn *nats.Conn
}

// NewNATSService creates a new NATS service instance
func NewNATSService(cfg config.NATSConfig) *NATSService {
	return &NATSService{url: cfg.URL, cfg: cfg}
}

// Connect establishes connection to the NATS server
func (ns *NATSService) Connect() error {
	opts := []nats.Option{
		nats.Name("loqa-dictate"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogNATSEvent(nc.ConnectedUrl(), "reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.LogNATSEvent(ns.url, "closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.LogNATSEvent(conn.ConnectedUrl(), "connected")
	return nil
}

// PublishSession publishes a completed dictation session
func (ns *NATSService) PublishSession(event *events.DictationEvent) error {
	if ns == nil || ns.conn == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dictation event: %w", err)
	}

	if err := ns.conn.Publish(SubjectSessions, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectSessions, err)
	}

	logging.LogNATSEvent(SubjectSessions, "published")
	return nil
}

// PublishSpoken publishes a completed spoken notification
func (ns *NATSService) PublishSpoken(event *events.TTSEvent) error {
	if ns == nil || ns.conn == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal TTS event: %w", err)
	}

	if err := ns.conn.Publish(SubjectSpoken, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectSpoken, err)
	}

	logging.LogNATSEvent(SubjectSpoken, "published")
	return nil
}

// SubscribeSpeak delivers speak requests from the bus to the handler
func (ns *NATSService) SubscribeSpeak(handler func(SpeakRequest)) error {
	if ns == nil || ns.conn == nil {
		return nil
	}

	_, err := ns.conn.Subscribe(SubjectSpeak, func(msg *nats.Msg) {
		var req SpeakRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logging.LogError(err, "Ignoring malformed speak request")
			return
		}
		if req.Text == "" {
			return
		}
		handler(req)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectSpeak, err)
	}

	logging.LogNATSEvent(SubjectSpeak, "subscribed")
	return nil
}

// Close drains and closes the connection
func (ns *NATSService) Close() {
	if ns == nil || ns.conn == nil {
		return
	}
	if err := ns.conn.Drain(); err != nil {
		ns.conn.Close()
	}
}

// Connected reports whether the bus connection is up
func (ns *NATSService) Connected() bool {
	return ns != nil && ns.conn != nil && ns.conn.IsConnected()
}
