// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package websocket

import (
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/metrics"
	"github.com/campusconnect/notifier/internal/models"
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// DETERMINISM: This ensures clients can be sorted in a consistent order for
// fan-out operations, eliminating non-deterministic map iteration order.
var clientIDCounter atomic.Uint64

// Client is one WebSocket session belonging to a user. A user may hold
// several concurrent sessions (multiple tabs or devices), each with its
// own Client.
type Client struct {
	// id is a unique identifier for this session, used for deterministic
	// ordering during fan-out and shutdown.
	id     uint64
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan models.Notification

	// alive is cleared by the liveness monitor before each probe and set
	// again when the session shows any sign of life. A session that stays
	// cleared across two consecutive sweeps is evicted.
	alive atomic.Bool
}

// NewClient creates a session for userID over conn. The session is inert
// until it is registered with the hub and Start is called.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	c := &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan models.Notification, hub.sendBuffer),
	}
	c.alive.Store(true)
	return c
}

// ID returns the session's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the user this session belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// Start begins reading and writing for the session.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// markAlive records evidence the peer is still responsive.
func (c *Client) markAlive() {
	c.alive.Store(true)
}

// terminate force-closes the underlying connection. The readPump notices
// the closed connection and unregisters the session.
func (c *Client) terminate() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	c.conn.SetReadLimit(c.hub.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.readWait())); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	// Protocol-level pongs answer the liveness monitor's probes.
	c.conn.SetPongHandler(func(string) error {
		c.markAlive()
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.readWait()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("user_id", c.userID).Msg("unexpected websocket close error")
			}
			break
		}

		// Any inbound frame proves the peer is responsive.
		c.markAlive()
		if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.readWait())); err != nil {
			logging.Error().Err(err).Msg("failed to refresh read deadline")
			break
		}
		metrics.MessagesReceived.Inc()

		var msg models.Notification
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed payloads are logged and skipped, never fatal
			logging.Warn().Err(err).Str("user_id", c.userID).Msg("discarding malformed websocket message")
			continue
		}

		// Application-level keep-alive: answer ping with pong. The send
		// goes through the hub so it cannot race a channel close during
		// shutdown or eviction.
		if msg.Type == models.KindPing {
			c.hub.sendIfRegistered(c, models.Pong())
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout)); err != nil {
			logging.Error().Err(err).Msg("failed to set write deadline")
			return
		}

		if err := c.conn.WriteJSON(message); err != nil {
			logging.Error().Err(err).Str("user_id", c.userID).Msg("failed to write JSON message")
			return
		}
		metrics.MessagesSent.Inc()
	}

	// The hub closed the channel
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout)); err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		logging.Debug().Err(err).Msg("failed to write close message")
	}
}
