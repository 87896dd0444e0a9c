// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

// Package client is the Go client for the notification server. Manager
// maintains the WebSocket session with bounded reconnection and
// keep-alive handling; Store keeps received notifications on disk with
// read state and favorites.
package client

import (
	"errors"
	"net/url"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/models"
)

// DefaultURL is used when neither Config.URL nor NOTIFIER_WS_URL is set.
const DefaultURL = "ws://localhost:8090/ws/notifications"

// URLEnvVar overrides the default server URL.
const URLEnvVar = "NOTIFIER_WS_URL"

var (
	// ErrMissingUserID is returned when Config.UserID is empty.
	ErrMissingUserID = errors.New("client: userId must not be empty")

	// ErrNotConnected is returned by Send when no session is active.
	ErrNotConnected = errors.New("client: not connected")

	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("client: closed")

	// ErrReconnectExhausted is the terminal error after the automatic
	// reconnection budget is spent. A manual Connect call starts over.
	ErrReconnectExhausted = errors.New("client: reconnect attempts exhausted")
)

// Config configures a Manager.
type Config struct {
	// URL is the WebSocket endpoint. Defaults to NOTIFIER_WS_URL or
	// DefaultURL.
	URL string

	// UserID identifies the user this session belongs to. Required.
	UserID string

	// ReconnectInterval is the fixed delay between automatic reconnect
	// attempts. Default: 3s
	ReconnectInterval time.Duration

	// MaxReconnectAttempts bounds automatic reconnection. Once the
	// budget is spent the manager stops retrying and Err returns
	// ErrReconnectExhausted until a manual Connect. Default: 5
	MaxReconnectAttempts int

	// PingInterval is the application-level keep-alive period.
	// Default: 30s
	PingInterval time.Duration

	// HandshakeTimeout bounds the WebSocket handshake. Default: 10s
	HandshakeTimeout time.Duration

	// OnNotification is invoked for every non-control notification
	// received. Called from the read goroutine; implementations that
	// block will stall the session.
	OnNotification func(models.Notification)
}

// DefaultConfig returns a config with defaults applied for userID.
func DefaultConfig(userID string) Config {
	return Config{
		URL:                  defaultURL(),
		UserID:               userID,
		ReconnectInterval:    3 * time.Second,
		MaxReconnectAttempts: 5,
		PingInterval:         30 * time.Second,
		HandshakeTimeout:     10 * time.Second,
	}
}

func defaultURL() string {
	if u := os.Getenv(URLEnvVar); u != "" {
		return u
	}
	return DefaultURL
}

// Manager maintains one WebSocket session to the notification server.
// It reconnects automatically with a fixed delay after abnormal
// disconnects, up to the configured budget; a clean close (server
// shutdown handshake or local Close) never triggers reconnection.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	attempts  int
	lastErr   error
	retry     *time.Timer
	pingStop  chan struct{}
}

// New creates a Manager. Connect must be called to establish the
// session.
func New(cfg Config) (*Manager, error) {
	if cfg.UserID == "" {
		return nil, ErrMissingUserID
	}
	if cfg.URL == "" {
		cfg.URL = defaultURL()
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Manager{cfg: cfg}, nil
}

// Connect establishes the session. A manual Connect always gets to try,
// even after the automatic budget is spent; success resets the attempt
// counter.
func (m *Manager) Connect() error {
	return m.connect(false)
}

func (m *Manager) connect(auto bool) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.connected {
		m.mu.Unlock()
		return nil
	}
	// A manual Connect supersedes any pending automatic retry
	if !auto && m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	// The automatic path respects the budget; explicit Connect calls
	// are allowed to start over.
	if auto && m.attempts >= m.cfg.MaxReconnectAttempts {
		m.lastErr = ErrReconnectExhausted
		m.mu.Unlock()
		return ErrReconnectExhausted
	}
	m.mu.Unlock()

	conn, err := m.dial()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		if conn != nil {
			_ = conn.Close()
		}
		return ErrClosed
	}

	if err != nil {
		m.attempts++
		m.lastErr = err
		logging.Warn().
			Err(err).
			Int("attempt", m.attempts).
			Int("max_attempts", m.cfg.MaxReconnectAttempts).
			Msg("notification server dial failed")
		m.scheduleRetryLocked()
		return err
	}

	m.conn = conn
	m.connected = true
	m.attempts = 0
	m.lastErr = nil
	m.pingStop = make(chan struct{})

	go m.readLoop(conn)
	go m.pingLoop(conn, m.pingStop)

	logging.Info().
		Str("user_id", m.cfg.UserID).
		Str("url", m.cfg.URL).
		Msg("notification session established")
	return nil
}

// dial opens the WebSocket with the userId query parameter attached.
func (m *Manager) dial() (*websocket.Conn, error) {
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userId", m.cfg.UserID)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.HandshakeTimeout}
	conn, resp, err := dialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// scheduleRetryLocked arms the reconnect timer (must hold mu).
func (m *Manager) scheduleRetryLocked() {
	if m.closed || m.attempts >= m.cfg.MaxReconnectAttempts {
		if m.attempts >= m.cfg.MaxReconnectAttempts {
			m.lastErr = ErrReconnectExhausted
			logging.Warn().
				Int("attempts", m.attempts).
				Msg("reconnect budget exhausted, giving up until manual connect")
		}
		return
	}
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry = time.AfterFunc(m.cfg.ReconnectInterval, func() {
		_ = m.connect(true)
	})
}

// readLoop consumes inbound frames until the connection drops.
func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleDisconnect(conn, err)
			return
		}

		var n models.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			logging.Warn().Err(err).Msg("discarding malformed notification")
			continue
		}

		switch n.Type {
		case models.KindPing:
			// Answer server probes to keep the session marked alive
			if err := m.writeJSON(conn, models.Pong()); err != nil {
				logging.Debug().Err(err).Msg("failed to answer ping")
			}
		case models.KindPong:
			// Keep-alive reply, nothing to surface
		default:
			if m.cfg.OnNotification != nil {
				m.cfg.OnNotification(n)
			}
		}
	}
}

// handleDisconnect tears down state for conn and decides whether the
// drop warrants an automatic reconnect.
func (m *Manager) handleDisconnect(conn *websocket.Conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != conn {
		// A newer session already replaced this connection
		return
	}

	m.connected = false
	m.conn = nil
	if m.pingStop != nil {
		close(m.pingStop)
		m.pingStop = nil
	}

	clean := m.closed || websocket.IsCloseError(err, websocket.CloseNormalClosure)
	if clean {
		logging.Info().Str("user_id", m.cfg.UserID).Msg("notification session closed")
		return
	}

	m.attempts++
	m.lastErr = err
	logging.Warn().
		Err(err).
		Int("attempt", m.attempts).
		Int("max_attempts", m.cfg.MaxReconnectAttempts).
		Msg("notification session dropped")
	m.scheduleRetryLocked()
}

// pingLoop sends application-level keep-alive probes.
func (m *Manager) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.writeJSON(conn, models.Ping()); err != nil {
				// The read loop will observe the broken connection
				return
			}
		}
	}
}

// writeJSON serializes writes; gorilla connections allow only one
// concurrent writer.
func (m *Manager) writeJSON(conn *websocket.Conn, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return ErrNotConnected
	}
	return conn.WriteJSON(v)
}

// Send delivers a typed notification to the server. When disconnected
// the message is dropped with a warning, mirroring a fire-and-forget
// status channel.
func (m *Manager) Send(n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected || m.conn == nil {
		logging.Warn().
			Str("kind", string(n.Type)).
			Msg("send skipped, no active notification session")
		return ErrNotConnected
	}

	if n.Timestamp == 0 {
		n.Stamp()
	}
	return m.conn.WriteJSON(n)
}

// Close ends the session with a clean close handshake and disables
// reconnection. The manager cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.pingStop != nil {
		close(m.pingStop)
		m.pingStop = nil
	}

	if m.conn != nil {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := m.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			logging.Debug().Err(err).Msg("failed to write close frame")
		}
		err := m.conn.Close()
		m.conn = nil
		m.connected = false
		return err
	}
	return nil
}

// IsConnected reports whether a session is currently active.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Err returns the most recent connection error, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Attempts returns the current reconnect attempt count. It resets to
// zero on every successful connect.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
