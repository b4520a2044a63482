package monitoring

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsObservers(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveTraining(20*time.Millisecond, 0.875, 40)
	m.ObserveCacheHit()
	m.ObserveCacheHit()
	m.ObservePrediction(true)
	m.ObservePrediction(false)
	m.ObservePrediction(false)
	m.ObserveRequest("GET", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trainings))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrainingCacheHit))
	assert.Equal(t, 0.875, testutil.ToFloat64(m.ModelAccuracy))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.DatasetRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("detected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Predictions.WithLabelValues("healthy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "200")))
}

func TestHubBroadcast(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	hub := NewHub(zap.NewNop(), m.WSClients)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return testutil.ToFloat64(m.WSClients) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ModelTrained, map[string]float64{"accuracy": 0.9}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, ModelTrained, msg.Type)
	assert.NotEmpty(t, msg.ID)
	assert.JSONEq(t, `{"accuracy":0.9}`, string(msg.Data))

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
