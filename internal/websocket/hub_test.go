package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tullo/modchat/internal/models"
)

func newTestHub(clients ...*Client) *Hub {
	h := NewHub(zerolog.Nop())
	for _, c := range clients {
		h.clients[c.sessionID] = c
	}
	return h
}

func newTestClient(room string, buffer int) *Client {
	return &Client{sessionID: uuid.New(), room: room, send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) models.WSInbound {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var got models.WSInbound
		require.NoError(t, json.Unmarshal(b, &got))
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
		return models.WSInbound{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("unexpected message: %s", b)
	default:
	}
}

func TestHub_SendTo(t *testing.T) {
	c1 := newTestClient("general", 4)
	c2 := newTestClient("general", 4)
	h := newTestHub(c1, c2)

	h.SendTo(c1.sessionID, models.WSMessage{Event: models.EventMessageNotice, Payload: "hi"})

	assert.Equal(t, models.EventMessageNotice, receive(t, c1).Event)
	assertNothing(t, c2)

	// departed sessions are skipped
	h.SendTo(uuid.New(), models.WSMessage{Event: models.EventMessageNotice})
	assertNothing(t, c1)
}

func TestHub_BroadcastRoomAndAll(t *testing.T) {
	general := newTestClient("general", 4)
	dev := newTestClient("dev", 4)
	h := newTestHub(general, dev)

	h.BroadcastRoom(models.WSMessage{Event: models.EventMessageNew}, "dev")
	assert.Equal(t, models.EventMessageNew, receive(t, dev).Event)
	assertNothing(t, general)

	h.BroadcastAll(models.WSMessage{Event: models.EventPresenceUpdate})
	assert.Equal(t, models.EventPresenceUpdate, receive(t, general).Event)
	assert.Equal(t, models.EventPresenceUpdate, receive(t, dev).Event)
}

func TestHub_BroadcastRoomExcept(t *testing.T) {
	joiner := newTestClient("general", 4)
	peer := newTestClient("general", 4)
	elsewhere := newTestClient("dev", 4)
	h := newTestHub(joiner, peer, elsewhere)

	h.BroadcastRoomExcept(models.WSMessage{Event: models.EventRoomNotice}, "general", joiner.sessionID)
	assert.Equal(t, models.EventRoomNotice, receive(t, peer).Event)
	assertNothing(t, joiner)
	assertNothing(t, elsewhere)
}

func TestHub_RegisteredClientIsAddressableImmediately(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	for i := 0; i < 100; i++ {
		c := newTestClient("", 4)
		require.True(t, h.Register(c))
		h.Subscribe(c.sessionID, "dev")
		h.SendTo(c.sessionID, models.WSMessage{Event: models.EventIdentityAssigned})
		h.BroadcastRoom(models.WSMessage{Event: models.EventHistorySnapshot}, "dev")

		assert.Equal(t, models.EventIdentityAssigned, receive(t, c).Event)
		assert.Equal(t, models.EventHistorySnapshot, receive(t, c).Event)
		h.Unregister(c)
	}
}

func TestHub_Subscribe(t *testing.T) {
	c := newTestClient("", 4)
	h := newTestHub(c)

	h.Subscribe(c.sessionID, "random")
	h.BroadcastRoom(models.WSMessage{Event: models.EventMessageNew}, "random")
	assert.Equal(t, models.EventMessageNew, receive(t, c).Event)
}

func TestHub_EvictsSlowClient(t *testing.T) {
	slow := newTestClient("general", 1)
	fast := newTestClient("general", 4)
	h := newTestHub(slow, fast)

	h.BroadcastAll(models.WSMessage{Event: models.EventMessageNew})
	h.BroadcastAll(models.WSMessage{Event: models.EventMessageNew})

	assert.Equal(t, 1, h.Count())
	// the buffered event is still drained before the close
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)

	receive(t, fast)
	receive(t, fast)
}

func TestHub_ForceDisconnect(t *testing.T) {
	c := newTestClient("general", 4)
	h := newTestHub(c)

	h.ForceDisconnect(c.sessionID)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Zero(t, h.Count())

	// a second removal must not close the channel again
	h.ForceDisconnect(c.sessionID)
}

func TestHub_RunRegistersAndStops(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := newTestClient("", 4)
	require.True(t, h.Register(c))
	assert.Equal(t, 1, h.Count())

	h.Unregister(c)
	_, ok := <-c.send
	assert.False(t, ok)

	cancel()
	<-stopped
	assert.False(t, h.Register(newTestClient("", 1)))
}
