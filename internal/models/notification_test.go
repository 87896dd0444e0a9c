// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestKindValid(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindRecommendation, true},
		{KindEvent, true},
		{KindDeadline, true},
		{KindUpdate, true},
		{KindPing, true},
		{KindPong, true},
		{Kind(""), false},
		{Kind("alert"), false},
		{Kind("PING"), false},
	}

	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.want {
			t.Errorf("Kind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestKindControl(t *testing.T) {
	if !KindPing.Control() || !KindPong.Control() {
		t.Error("ping and pong should be control kinds")
	}
	for _, k := range []Kind{KindRecommendation, KindEvent, KindDeadline, KindUpdate} {
		if k.Control() {
			t.Errorf("Kind(%q) should not be a control kind", k)
		}
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow, ""} {
		if !p.Valid() {
			t.Errorf("Priority(%q) should be valid", p)
		}
	}
	if Priority("urgent").Valid() {
		t.Error("unknown priority should be invalid")
	}
}

func TestNotificationTargeted(t *testing.T) {
	n := Notification{Type: KindEvent}
	if n.Targeted() {
		t.Error("notification without userId should not be targeted")
	}
	n.UserID = "student-42"
	if !n.Targeted() {
		t.Error("notification with userId should be targeted")
	}
}

func TestNotificationStamp(t *testing.T) {
	before := time.Now().UnixMilli()
	var n Notification
	n.Stamp()
	after := time.Now().UnixMilli()

	if n.Timestamp < before || n.Timestamp > after {
		t.Errorf("Stamp() = %d, want within [%d, %d]", n.Timestamp, before, after)
	}
}

func TestNotificationWireFormat(t *testing.T) {
	n := Notification{
		Type:        KindDeadline,
		Title:       "Application closing",
		Description: "Internship applications close Friday",
		Priority:    PriorityHigh,
		UserID:      "student-7",
		Timestamp:   1700000000000,
	}

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["type"] != "deadline" {
		t.Errorf("type = %v, want deadline", decoded["type"])
	}
	if decoded["userId"] != "student-7" {
		t.Errorf("userId = %v, want student-7", decoded["userId"])
	}
	if _, ok := decoded["timestamp"]; !ok {
		t.Error("timestamp field missing from wire format")
	}
}

func TestPingOmitsOptionalFields(t *testing.T) {
	data, err := json.Marshal(Ping())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(decoded) != 2 {
		t.Errorf("ping should carry only type and timestamp, got %v", decoded)
	}
	if decoded["type"] != "ping" {
		t.Errorf("type = %v, want ping", decoded["type"])
	}
}
