package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Fields(t *testing.T) {
	type registeredData struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}

	data := registeredData{UserID: "u-123", Email: "ana@example.com", Role: "student"}
	event, err := NewEvent("user.registered", "u-123", "user", "red-social-backend", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID, "EventID should be a non-empty UUID")
	assert.Equal(t, "user.registered", event.EventType)
	assert.Equal(t, "u-123", event.AggregateID)
	assert.Equal(t, "user", event.AggregateType)
	assert.Equal(t, "red-social-backend", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)
	assert.NotNil(t, event.Metadata)

	var roundTripped registeredData
	require.NoError(t, json.Unmarshal(event.Data, &roundTripped))
	assert.Equal(t, data, roundTripped)
}

func TestNewEvent_InvalidData(t *testing.T) {
	// Channels are not serializable to JSON.
	_, err := NewEvent("user.registered", "u-1", "user", "red-social-backend", make(chan int))
	require.Error(t, err)
}

func TestEvent_MarshalUnmarshal(t *testing.T) {
	original, err := NewEvent("user.deactivated", "u-456", "user", "red-social-backend",
		map[string]string{"reason": "admin"})
	require.NoError(t, err)
	original.CorrelationID = "corr-abc"
	original.Metadata["actor"] = "admin-1"

	bytes, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(bytes)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, original.EventType, restored.EventType)
	assert.Equal(t, original.AggregateID, restored.AggregateID)
	assert.Equal(t, original.CorrelationID, restored.CorrelationID)
	assert.Equal(t, original.Metadata, restored.Metadata)
	assert.JSONEq(t, string(original.Data), string(restored.Data))
	assert.WithinDuration(t, original.Timestamp, restored.Timestamp, time.Millisecond)
}

func TestEvent_BuilderChaining(t *testing.T) {
	event, err := NewEvent("user.registered", "u-1", "user", "red-social-backend", nil)
	require.NoError(t, err)

	result := event.WithCorrelationID("corr-xyz").WithMetadata("channel", "web")
	assert.Same(t, event, result, "builder methods should return the same event")
	assert.Equal(t, "corr-xyz", event.CorrelationID)
	assert.Equal(t, "web", event.Metadata["channel"])
}

func TestEvent_WithMetadata_NilMap(t *testing.T) {
	event := &Event{EventID: "e-1", EventType: "user.registered"}
	event.WithMetadata("key", "value")
	assert.Equal(t, "value", event.Metadata["key"])
}

func TestEvent_UnmarshalData(t *testing.T) {
	type payload struct {
		UserID string `json:"user_id"`
	}

	event, err := NewEvent("user.deactivated", "u-1", "user", "red-social-backend", payload{UserID: "u-1"})
	require.NoError(t, err)

	var target payload
	require.NoError(t, event.UnmarshalData(&target))
	assert.Equal(t, "u-1", target.UserID)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{broken json`))
	require.Error(t, err)

	_, err = UnmarshalEvent([]byte{})
	require.Error(t, err)
}

func TestDefaultProducerConfig(t *testing.T) {
	brokers := []string{"broker1:9092", "broker2:9092"}
	cfg := DefaultProducerConfig(brokers)

	assert.Equal(t, brokers, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "redsocial", TopicPrefix)
	assert.Equal(t, "redsocial.user.registered", Topic("user", "registered"))
	assert.Equal(t, "redsocial.user.deactivated", Topic("user", "deactivated"))
}

func TestNewProducer_CreatesInstance(t *testing.T) {
	// NewProducer does not connect until the first publish.
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil)
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)

	// Close succeeds even without a real broker.
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(t.Context(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
