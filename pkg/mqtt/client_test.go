package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"fleetsim/v1/fleet/vehicles", "fleetsim/v1/fleet/vehicles", true},
		{"fleetsim/v1/fleet/#", "fleetsim/v1/fleet/statistics", true},
		{"fleetsim/v1/+/vehicles", "fleetsim/v1/fleet/vehicles", true},
		{"fleetsim/v1/+/vehicles", "fleetsim/v1/fleet/statistics", false},
		{"fleetsim/v1/fleet", "fleetsim/v1/fleet/vehicles", false},
		{"fleetsim/v1/fleet/+", "fleetsim/v1/fleet", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, topicsMatch(tt.filter, tt.topic), "%s vs %s", tt.filter, tt.topic)
	}
}

func TestTopicFilterStripsSharePrefix(t *testing.T) {
	assert.Equal(t, "fleet/#", topicFilter("$share/watchers/fleet/#"))
	assert.Equal(t, "fleet/#", topicFilter("fleet/#"))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "not a url"})
	assert.Error(t, err)

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://127.0.0.1:1883"})
	require.NoError(t, err)
	assert.False(t, c.IsConnected())

	pc := c.(*pahoClient)
	assert.EqualValues(t, 60, pc.cfg.KeepAlive)
	assert.Nil(t, pc.willMessage())
}

func TestOperationsBeforeStart(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://127.0.0.1:1883"})
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, c.Publish(ctx, "t", 0, false, nil), ErrNotStarted)
	assert.ErrorIs(t, c.Subscribe(ctx, "t", 0, nil), ErrNotStarted)
	assert.ErrorIs(t, c.AwaitConnection(ctx), ErrNotStarted)
}

func TestWillMessage(t *testing.T) {
	c, err := NewClient(&ClientConfig{
		BrokerURL:   "tcp://127.0.0.1:1883",
		WillTopic:   "fleetsim/v1/fleet/status",
		WillPayload: []byte(`{"online":false}`),
		WillRetain:  true,
	})
	require.NoError(t, err)

	w := c.(*pahoClient).willMessage()
	require.NotNil(t, w)
	assert.Equal(t, "fleetsim/v1/fleet/status", w.Topic)
	assert.True(t, w.Retain)
}
