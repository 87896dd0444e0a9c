// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package websocket

import (
	"sync"

	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/metrics"
	"github.com/campusconnect/notifier/internal/models"
)

// Queue holds notifications for users with no active session so they can
// be replayed on the next connect. Messages are kept in FIFO order per
// user and capped at maxPerUser; at the cap the oldest entry is dropped
// to admit the newest.
//
// The queue is in-memory only. Notifications queued for a user who never
// reconnects are lost on process restart.
type Queue struct {
	mu         sync.Mutex
	pending    map[string][]models.Notification
	maxPerUser int
	depth      int
}

// NewQueue creates a queue with the given per-user cap.
func NewQueue(maxPerUser int) *Queue {
	if maxPerUser < 1 {
		maxPerUser = 1
	}
	return &Queue{
		pending:    make(map[string][]models.Notification),
		maxPerUser: maxPerUser,
	}
}

// Enqueue stores a notification for later delivery to userID.
// Control messages are never queued.
func (q *Queue) Enqueue(userID string, n models.Notification) {
	if n.Type.Control() {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.pending[userID]
	if len(list) >= q.maxPerUser {
		// Cap reached, evict the oldest entry
		copy(list, list[1:])
		list = list[:len(list)-1]
		q.depth--
		metrics.QueueDroppedTotal.Inc()
		logging.Warn().
			Str("user_id", userID).
			Int("cap", q.maxPerUser).
			Msg("offline queue full, dropping oldest notification")
	}

	q.pending[userID] = append(list, n)
	q.depth++
	metrics.QueuedTotal.Inc()
	metrics.QueueDepth.Set(float64(q.depth))
}

// requeue puts drained notifications back at the head of the user's
// queue, preserving their original order. Used when a reconnecting
// session's send buffer fills before the replay completes.
func (q *Queue) requeue(userID string, list []models.Notification) {
	if len(list) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[userID] = append(append([]models.Notification{}, list...), q.pending[userID]...)
	q.depth += len(list)
	metrics.QueueDepth.Set(float64(q.depth))
}

// Drain removes and returns all pending notifications for userID in the
// order they were enqueued. Returns nil when nothing is pending.
func (q *Queue) Drain(userID string) []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, ok := q.pending[userID]
	if !ok {
		return nil
	}

	delete(q.pending, userID)
	q.depth -= len(list)
	metrics.QueueDepth.Set(float64(q.depth))
	metrics.QueueDrainedTotal.Add(float64(len(list)))
	return list
}

// Len returns the number of notifications pending for userID.
func (q *Queue) Len(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[userID])
}

// Depth returns the total number of pending notifications across all users.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

// Users returns the number of users with pending notifications.
func (q *Queue) Users() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
