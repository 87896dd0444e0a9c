// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusconnect/notifier/internal/config"
	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/metrics"
	"github.com/campusconnect/notifier/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
// This enables clear observability in logs and metrics.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	// This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// DeliveryOutcome describes what happened to a dispatched notification.
type DeliveryOutcome string

const (
	// OutcomeDelivered means at least one of the target user's sessions
	// accepted the notification.
	OutcomeDelivered DeliveryOutcome = "delivered"

	// OutcomeQueued means the target user had no reachable session and
	// the notification was stored for replay on reconnect.
	OutcomeQueued DeliveryOutcome = "queued"

	// OutcomeBroadcast means the notification was fanned out to every
	// connected session, best effort.
	OutcomeBroadcast DeliveryOutcome = "broadcast"

	// OutcomeDropped means the notification could not be delivered and
	// was not eligible for queueing (control messages).
	OutcomeDropped DeliveryOutcome = "dropped"
)

// DispatchResult reports the outcome of a Dispatch call.
type DispatchResult struct {
	Outcome    DeliveryOutcome `json:"outcome"`
	Recipients int             `json:"recipients"`
}

// Stats is a point-in-time snapshot of the hub for the stats endpoint.
type Stats struct {
	Sessions    int `json:"sessions"`
	Users       int `json:"users"`
	QueuedTotal int `json:"queuedTotal"`
	QueuedUsers int `json:"queuedUsers"`
}

// Hub is the connection registry and dispatcher for the delivery layer.
// It tracks every session keyed by user, fans notifications out to the
// right sessions, falls back to the offline queue for unreachable users,
// and runs the liveness monitor that evicts unresponsive sessions.
//
// Registration, removal, and dispatch are direct synchronized calls, so
// a notification dispatched after Register returns is observed by the
// new session.
type Hub struct {
	mu    sync.Mutex
	users map[string]map[*Client]struct{}
	queue *Queue

	heartbeat      time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64
	sendBuffer     int
}

// NewHub creates a hub configured from cfg.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		users:          make(map[string]map[*Client]struct{}),
		queue:          NewQueue(cfg.QueueMaxPerUser),
		heartbeat:      cfg.HeartbeatInterval,
		writeTimeout:   cfg.WriteTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		sendBuffer:     cfg.SendBuffer,
	}
}

// readWait is the read deadline granted between signs of life. It spans
// two heartbeat cycles plus write slack so the liveness monitor, not the
// read deadline, is what normally evicts a silent peer.
func (h *Hub) readWait() time.Duration {
	return 2*h.heartbeat + h.writeTimeout
}

// Register adds a session to the registry and replays any notifications
// queued for its user while no session was reachable. Queued messages
// that do not fit the session's send buffer stay queued in order.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()

	set, ok := h.users[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}

	sessions, userCount := h.countsLocked()
	metrics.RecordConnect(sessions, userCount)

	// Replay the offline queue into the new session
	pending := h.queue.Drain(c.userID)
	replayed := 0
	for i, n := range pending {
		if !trySend(c, n) {
			h.queue.requeue(c.userID, pending[i:])
			break
		}
		replayed++
	}

	h.mu.Unlock()

	logging.Info().
		Str("user_id", c.userID).
		Uint64("session_id", c.id).
		Int("total_sessions", sessions).
		Int("replayed", replayed).
		Msg("websocket session connected")
}

// Unregister removes a session from the registry and closes its send
// channel. Safe to call more than once for the same session.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()

	set, ok := h.users[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := set[c]; !member {
		h.mu.Unlock()
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	close(c.send)

	sessions, userCount := h.countsLocked()
	metrics.RecordDisconnect(sessions, userCount)
	h.mu.Unlock()

	logging.Info().
		Str("user_id", c.userID).
		Uint64("session_id", c.id).
		Int("total_sessions", sessions).
		Msg("websocket session disconnected")
}

// Dispatch routes a notification. The server timestamp is stamped here so
// ordering reflects dispatch time, not the producer's clock.
//
// Targeted notifications go to every session of the target user; if none
// accepts, the notification is queued for reconnect. Untargeted
// notifications are broadcast to all sessions, best effort, and are never
// queued.
func (h *Hub) Dispatch(n models.Notification) DispatchResult {
	n.Stamp()

	h.mu.Lock()
	defer h.mu.Unlock()

	if n.Targeted() {
		return h.dispatchToUserLocked(n)
	}
	return h.broadcastLocked(n)
}

// dispatchToUserLocked fans a notification out to one user's sessions.
// DETERMINISM: Sessions are sorted by ID for consistent delivery order.
func (h *Hub) dispatchToUserLocked(n models.Notification) DispatchResult {
	delivered := 0
	for _, c := range sortedClients(h.users[n.UserID]) {
		if trySend(c, n) {
			delivered++
		}
	}

	if delivered > 0 {
		metrics.RecordDispatch(string(n.Type), string(OutcomeDelivered))
		return DispatchResult{Outcome: OutcomeDelivered, Recipients: delivered}
	}

	if n.Type.Control() {
		metrics.RecordDispatch(string(n.Type), string(OutcomeDropped))
		return DispatchResult{Outcome: OutcomeDropped}
	}

	h.queue.Enqueue(n.UserID, n)
	metrics.RecordDispatch(string(n.Type), string(OutcomeQueued))
	logging.Debug().
		Str("user_id", n.UserID).
		Str("kind", string(n.Type)).
		Msg("user unreachable, notification queued")
	return DispatchResult{Outcome: OutcomeQueued}
}

// broadcastLocked fans a notification out to every session. Sessions with
// a full send buffer miss the message; broadcasts are never queued.
// DETERMINISM: Sessions are sorted by ID for consistent delivery order.
func (h *Hub) broadcastLocked(n models.Notification) DispatchResult {
	clients := make([]*Client, 0)
	for _, set := range h.users {
		for c := range set {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	delivered := 0
	for _, c := range clients {
		if trySend(c, n) {
			delivered++
		} else {
			logging.Warn().
				Str("user_id", c.userID).
				Uint64("session_id", c.id).
				Msg("send buffer full, dropping broadcast for session")
		}
	}

	metrics.RecordDispatch(string(n.Type), string(OutcomeBroadcast))
	return DispatchResult{Outcome: OutcomeBroadcast, Recipients: delivered}
}

// trySend offers a notification to a session without blocking. Callers
// must hold h.mu so the send cannot race the channel close in
// Unregister or closeAll.
func trySend(c *Client, n models.Notification) bool {
	select {
	case c.send <- n:
		return true
	default:
		return false
	}
}

// sendIfRegistered offers a notification to a session only while it is
// still in the registry. Session-initiated replies (the read pump's
// pong) go through here: the membership check and the send happen under
// the same mutex that guards the channel close, so a reply racing
// shutdown or eviction is refused instead of hitting a closed channel.
func (h *Hub) sendIfRegistered(c *Client, n models.Notification) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.users[c.userID]
	if !ok {
		return false
	}
	if _, member := set[c]; !member {
		return false
	}
	return trySend(c, n)
}

// sortedClients returns the members of set ordered by session ID.
func sortedClients(set map[*Client]struct{}) []*Client {
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// countsLocked returns session and user counts (must hold mu).
func (h *Hub) countsLocked() (sessions, users int) {
	for _, set := range h.users {
		sessions += len(set)
	}
	return sessions, len(h.users)
}

// SessionCount returns the number of active sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions, _ := h.countsLocked()
	return sessions
}

// UserCount returns the number of distinct users with a session.
func (h *Hub) UserCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users)
}

// SessionsForUser returns how many sessions userID currently holds.
func (h *Hub) SessionsForUser(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[userID])
}

// QueuedFor returns how many notifications are pending for userID.
func (h *Hub) QueuedFor(userID string) int {
	return h.queue.Len(userID)
}

// Snapshot returns current hub statistics.
func (h *Hub) Snapshot() Stats {
	h.mu.Lock()
	sessions, users := h.countsLocked()
	h.mu.Unlock()

	return Stats{
		Sessions:    sessions,
		Users:       users,
		QueuedTotal: h.queue.Depth(),
		QueuedUsers: h.queue.Users(),
	}
}

// RunWithContext runs the liveness monitor until the context is canceled.
// This method is designed for use with suture supervision.
//
// Each sweep probes every session with a protocol-level ping. A session
// that has shown no sign of life since the previous sweep is evicted, so
// a dead peer is detected within two heartbeat intervals.
//
// When the context is canceled all sessions are closed and the method
// returns ctx.Err(), allowing a supervisor restart without orphaned
// connections.
func (h *Hub) RunWithContext(ctx context.Context) error {
	logging.Info().
		Dur("heartbeat_interval", h.heartbeat).
		Msg("websocket hub liveness monitor started")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep runs one liveness cycle: evict sessions that never answered the
// previous probe, then clear the flag and probe the rest.
func (h *Hub) sweep() {
	h.mu.Lock()
	var probe, evict []*Client
	for _, set := range h.users {
		for c := range set {
			if c.conn == nil {
				continue
			}
			if c.alive.Load() {
				probe = append(probe, c)
			} else {
				evict = append(evict, c)
			}
		}
	}
	h.mu.Unlock()

	for _, c := range evict {
		metrics.WSHeartbeatEvictions.Inc()
		logging.Warn().
			Str("user_id", c.userID).
			Uint64("session_id", c.id).
			Msg("evicting unresponsive websocket session")
		// Closing the connection unwinds the read pump, which unregisters
		c.terminate()
	}

	deadline := time.Now().Add(h.writeTimeout)
	for _, c := range probe {
		c.alive.Store(false)
		if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			logging.Debug().
				Err(err).
				Uint64("session_id", c.id).
				Msg("liveness probe write failed")
		}
	}
}

// logGracefulShutdown closes all sessions and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation
// is expected during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.closeAll()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(shutdownReason(ctx))).
		Int("sessions_closed", closed).
		Msg("websocket hub stopped")
}

// closeAll closes every session's send channel and clears the registry.
// DETERMINISM: Sessions are closed in ID order.
func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var clients []*Client
	for _, set := range h.users {
		for c := range set {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, c := range clients {
		close(c.send)
	}
	h.users = make(map[string]map[*Client]struct{})
	metrics.RecordDisconnect(0, 0)

	return len(clients)
}

// shutdownReason determines the shutdown reason from the context error.
func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
