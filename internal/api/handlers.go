// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/campusconnect/notifier/internal/config"
	"github.com/campusconnect/notifier/internal/logging"
	"github.com/campusconnect/notifier/internal/models"
	ws "github.com/campusconnect/notifier/internal/websocket"
)

// closeUserIDRequired is the close reason sent when the upgrade request
// carries no userId query parameter.
const closeUserIDRequired = "UserId is required"

// maxDispatchBody caps the dispatch request body size.
const maxDispatchBody = 64 * 1024

// Handler serves the notification API.
type Handler struct {
	hub       *ws.Hub
	cfg       *config.Config
	validate  *validator.Validate
	upgrader  websocket.Upgrader
	startTime time.Time
}

// NewHandler creates a handler around hub using cfg.
func NewHandler(hub *ws.Hub, cfg *config.Config) *Handler {
	h := &Handler{
		hub:       hub,
		cfg:       cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		startTime: time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// checkOrigin accepts requests with no Origin header (native apps, CLI
// tools, server-to-server clients) and browser requests from configured
// origins. "*" in the CORS list allows any browser origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("rejecting websocket upgrade from disallowed origin")
	return false
}

// WebSocket upgrades the request into a notification session.
//
// The userId query parameter names the user the session belongs to.
// When it is missing the upgrade still completes, so a close frame with
// code 1002 and reason "UserId is required" can be delivered to the
// client before the connection is torn down.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if userID == "" {
		deadline := time.Now().Add(h.cfg.WebSocket.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseProtocolError, closeUserIDRequired)
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			logging.Debug().Err(err).Msg("failed to write close frame for missing userId")
		}
		_ = conn.Close()
		logging.Warn().Str("remote_addr", r.RemoteAddr).Msg("rejected websocket session without userId")
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	client.Start()
}

// dispatchRequest is the POST /api/v1/notifications body.
type dispatchRequest struct {
	Type        string `json:"type" validate:"required,oneof=recommendation event deadline update"`
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=high medium low"`
	UserID      string `json:"userId" validate:"max=128"`
}

// dispatchResponse reports what the hub did with the notification.
type dispatchResponse struct {
	Outcome    string `json:"outcome"`
	Recipients int    `json:"recipients"`
}

// Dispatch accepts a notification from a portal backend and routes it
// through the hub. Targeted notifications that found no reachable
// session are acknowledged with 202 and held for the user's reconnect.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req dispatchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDispatchBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			rw.ValidationError("notification failed validation", details)
			return
		}
		rw.BadRequest("notification failed validation")
		return
	}

	result := h.hub.Dispatch(models.Notification{
		Type:        models.Kind(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.Priority(req.Priority),
		UserID:      req.UserID,
	})

	resp := dispatchResponse{
		Outcome:    string(result.Outcome),
		Recipients: result.Recipients,
	}
	if result.Outcome == ws.OutcomeQueued {
		rw.Accepted(resp)
		return
	}
	rw.Success(resp)
}

// userStats is the per-user stats payload.
type userStats struct {
	UserID   string `json:"userId"`
	Sessions int    `json:"sessions"`
	Queued   int    `json:"queued"`
}

// Stats reports a snapshot of the delivery layer. With a userId query
// parameter it reports that user's session and queue counts instead.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if userID := r.URL.Query().Get("userId"); userID != "" {
		rw.Success(userStats{
			UserID:   userID,
			Sessions: h.hub.SessionsForUser(userID),
			Queued:   h.hub.QueuedFor(userID),
		})
		return
	}
	rw.Success(h.hub.Snapshot())
}

// healthStatus is the health endpoint payload.
type healthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Sessions      int    `json:"sessions"`
	Users         int    `json:"users"`
}

// Health reports overall server health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.hub.Snapshot()
	NewResponseWriter(w, r).Success(healthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Sessions:      snap.Sessions,
		Users:         snap.Users,
	})
}

// HealthLive is the liveness probe. It succeeds whenever the process can
// serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ready"})
}
