// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

/*
Package websocket implements the server side of the real-time delivery
layer: the per-user connection registry, the notification dispatcher, the
offline queue, and the liveness monitor.

# Architecture

	          Dispatch(n)
	               |
	               v
	+-----------------------------+
	|             Hub             |
	|  users: userID -> sessions  |----> Queue (per-user FIFO,
	|  liveness monitor (ticker)  |       drained on reconnect)
	+-----------------------------+
	       |              |
	       v              v
	   Client          Client        one per WebSocket session,
	  (send chan)     (send chan)    buffered, drop-on-full

A user may hold any number of concurrent sessions; a targeted
notification reaches all of them. When none of a user's sessions can
accept a message it is queued and replayed in order on the next connect.
Broadcasts (no userId) are best effort and never queued.

# Liveness

The hub probes every session with a protocol-level ping each heartbeat
interval. Answering pongs, or any inbound frame, marks the session alive.
A session silent across two consecutive sweeps is evicted, so dead peers
are detected within 2*HeartbeatInterval.

Clients may also send application-level {"type":"ping"} messages, which
are answered with {"type":"pong"} on the same session.
*/
package websocket
