// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

// Package models defines the wire-level data structures shared by the
// notification server and the Go client library.

package models

import "time"

// Kind classifies a notification message on the wire.
type Kind string

const (
	// KindRecommendation carries a personalized job or course recommendation.
	KindRecommendation Kind = "recommendation"
	// KindEvent announces a campus or employer event.
	KindEvent Kind = "event"
	// KindDeadline warns about an approaching application deadline.
	KindDeadline Kind = "deadline"
	// KindUpdate carries a general account or application status update.
	KindUpdate Kind = "update"
	// KindPing is the application-level keep-alive probe.
	KindPing Kind = "ping"
	// KindPong is the reply to a KindPing probe.
	KindPong Kind = "pong"
)

// Valid reports whether k is one of the recognized message kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRecommendation, KindEvent, KindDeadline, KindUpdate, KindPing, KindPong:
		return true
	}
	return false
}

// Control reports whether k is a keep-alive control kind rather than a
// user-visible notification. Control messages are never queued for offline
// delivery and never stored by clients.
func (k Kind) Control() bool {
	return k == KindPing || k == KindPong
}

// Priority indicates how urgently a notification should be surfaced.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a recognized priority level. The empty string
// is valid because priority is optional on the wire.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, "":
		return true
	}
	return false
}

// Notification is the single JSON message shape exchanged over the
// WebSocket. Keep-alive probes reuse the same envelope with only Type and
// Timestamp populated.
//
// Timestamp is Unix epoch milliseconds and is stamped by the sender at
// build time; the server restamps every notification it fans out so that
// ordering reflects server receipt, not client clocks.
type Notification struct {
	Type        Kind     `json:"type" validate:"required"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	UserID      string   `json:"userId,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

// Targeted reports whether the notification addresses a specific user.
// Untargeted notifications are broadcast to every connected session.
func (n Notification) Targeted() bool {
	return n.UserID != ""
}

// Stamp sets the timestamp to the current wall clock in milliseconds.
func (n *Notification) Stamp() {
	n.Timestamp = time.Now().UnixMilli()
}

// Ping builds a keep-alive probe stamped with the current time.
func Ping() Notification {
	return Notification{Type: KindPing, Timestamp: time.Now().UnixMilli()}
}

// Pong builds a keep-alive reply stamped with the current time.
func Pong() Notification {
	return Notification{Type: KindPong, Timestamp: time.Now().UnixMilli()}
}
