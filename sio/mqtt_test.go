package sio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	topic   string
	payload string
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 0 }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Payload() []byte   { return []byte(m.payload) }
func (m *message) Ack()              {}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in    string
		topic string
		qos   byte
	}{
		{"orders", "orders", 0},
		{" orders:1 ", "orders", 1},
		{"orders:2", "orders", 2},
		{"orders:3", "orders:3", 0},
		{"a:b", "a:b", 0},
		{"", "", 0},
	}
	for _, test := range tests {
		topic, qos := ParseTopic(test.in)
		assert.Equal(t, test.topic, topic, test.in)
		assert.Equal(t, test.qos, qos, test.in)
	}
}

func TestNewMQTTClientId(t *testing.T) {
	c, err := NewMQTT(nil)
	require.NoError(t, err)
	assert.Contains(t, c.Config.ClientId, "eventengine-")
	assert.NotNil(t, c.Client)
}

func TestMQTTRoute(t *testing.T) {
	cfg := DefaultMQTTConfig()
	cfg.DefaultOutboundTopic = "misc:1"
	c, err := NewMQTT(cfg)
	require.NoError(t, err)

	topic, qos := c.Route(map[string]interface{}{"serve": "tacos"})
	assert.Equal(t, "misc", topic)
	assert.Equal(t, byte(1), qos)

	topic, qos = c.Route(map[string]interface{}{"topic": "kitchen", "qos": int64(2)})
	assert.Equal(t, "kitchen", topic)
	assert.Equal(t, byte(2), qos)
}

func TestMQTTInHandler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewMQTT(nil)
	require.NoError(t, err)
	in, _, _, err := c.IO(ctx)
	require.NoError(t, err)

	go c.inHandler(ctx, &message{"orders", `{"order":"tacos"}`})
	x := <-in
	assert.Equal(t, map[string]interface{}{"order": "tacos", "topic": "orders"}, x)

	go c.inHandler(ctx, &message{"orders", `not json`})
	x = <-in
	assert.Equal(t, map[string]interface{}{"payload": "not json", "topic": "orders"}, x)

	c.Config.InjectTopic = false
	go c.inHandler(ctx, &message{"orders", `{"order":"chips"}`})
	x = <-in
	assert.Equal(t, map[string]interface{}{"order": "chips"}, x)
}

func TestMQTTInHandlerStall(t *testing.T) {
	cfg := DefaultMQTTConfig()
	cfg.InTimeout = 10 * time.Millisecond
	c, err := NewMQTT(cfg)
	require.NoError(t, err)

	returned := make(chan bool)
	go func() {
		c.inHandler(context.Background(), &message{"orders", `{}`})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("inHandler stalled")
	}
}

func TestNewMQTTWill(t *testing.T) {
	cfg := DefaultMQTTConfig()
	cfg.WillTopic = "goodbye"
	_, err := NewMQTT(cfg)
	assert.Error(t, err)

	cfg.WillPayload = `{"gone":true}`
	_, err = NewMQTT(cfg)
	assert.NoError(t, err)
}
