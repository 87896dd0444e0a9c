// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package websocket

import (
	"fmt"
	"io"
	"testing"

	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/models"
)

func init() {
	// Suppress log output during tests
	logging.Init(logging.Config{Output: io.Discard})
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(10)

	for i := 0; i < 3; i++ {
		q.Enqueue("u1", models.Notification{
			Type:  models.KindUpdate,
			Title: fmt.Sprintf("msg-%d", i),
		})
	}

	drained := q.Drain("u1")
	if len(drained) != 3 {
		t.Fatalf("Drain() returned %d notifications, want 3", len(drained))
	}
	for i, n := range drained {
		want := fmt.Sprintf("msg-%d", i)
		if n.Title != want {
			t.Errorf("drained[%d].Title = %q, want %q", i, n.Title, want)
		}
	}
}

func TestQueueDrainEmpties(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("u1", models.Notification{Type: models.KindEvent})

	if got := q.Drain("u1"); len(got) != 1 {
		t.Fatalf("first Drain() = %d notifications, want 1", len(got))
	}
	if got := q.Drain("u1"); got != nil {
		t.Errorf("second Drain() = %v, want nil", got)
	}
	if q.Depth() != 0 {
		t.Errorf("Depth() = %d after drain, want 0", q.Depth())
	}
}

func TestQueueCapDropsOldest(t *testing.T) {
	q := NewQueue(3)

	for i := 0; i < 5; i++ {
		q.Enqueue("u1", models.Notification{
			Type:  models.KindDeadline,
			Title: fmt.Sprintf("msg-%d", i),
		})
	}

	drained := q.Drain("u1")
	if len(drained) != 3 {
		t.Fatalf("Drain() returned %d notifications, want cap of 3", len(drained))
	}
	// msg-0 and msg-1 were evicted to admit msg-3 and msg-4
	for i, n := range drained {
		want := fmt.Sprintf("msg-%d", i+2)
		if n.Title != want {
			t.Errorf("drained[%d].Title = %q, want %q", i, n.Title, want)
		}
	}
}

func TestQueueIgnoresControlMessages(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("u1", models.Ping())
	q.Enqueue("u1", models.Pong())

	if q.Len("u1") != 0 {
		t.Errorf("Len() = %d, control messages should never be queued", q.Len("u1"))
	}
}

func TestQueueIsolatesUsers(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("u1", models.Notification{Type: models.KindEvent, Title: "for u1"})
	q.Enqueue("u2", models.Notification{Type: models.KindEvent, Title: "for u2"})

	if q.Users() != 2 {
		t.Errorf("Users() = %d, want 2", q.Users())
	}

	drained := q.Drain("u1")
	if len(drained) != 1 || drained[0].Title != "for u1" {
		t.Errorf("Drain(u1) = %v, want only u1's notification", drained)
	}
	if q.Len("u2") != 1 {
		t.Errorf("draining u1 disturbed u2's queue, Len(u2) = %d", q.Len("u2"))
	}
}

func TestQueueRequeuePreservesOrder(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue("u1", models.Notification{Type: models.KindUpdate, Title: "c"})

	q.requeue("u1", []models.Notification{
		{Type: models.KindUpdate, Title: "a"},
		{Type: models.KindUpdate, Title: "b"},
	})

	drained := q.Drain("u1")
	if len(drained) != 3 {
		t.Fatalf("Drain() = %d notifications, want 3", len(drained))
	}
	for i, want := range []string{"a", "b", "c"} {
		if drained[i].Title != want {
			t.Errorf("drained[%d].Title = %q, want %q", i, drained[i].Title, want)
		}
	}
}
