// Notifier - Real-Time Notification Delivery for CampusConnect
// Copyright 2026 CampusConnect
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusconnect/notifier

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(DispatchTotal.WithLabelValues("event", "delivered"))
	RecordDispatch("event", "delivered")
	after := testutil.ToFloat64(DispatchTotal.WithLabelValues("event", "delivered"))
	assert.Equal(t, before+1, after)
}

func TestRecordConnectDisconnect(t *testing.T) {
	RecordConnect(3, 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(WSActiveConnections))
	assert.Equal(t, 2.0, testutil.ToFloat64(WSConnectedUsers))

	RecordDisconnect(2, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(WSActiveConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(WSConnectedUsers))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/notifications", "200"))
	RecordAPIRequest("POST", "/api/v1/notifications", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/notifications", "200"))
	assert.Equal(t, before+1, after)
}
