package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SubscribePublish(t *testing.T) {
	hub := NewHub(nil)
	ch, unsubscribe := hub.Subscribe(1)
	defer unsubscribe()

	hub.Publish(Event{Type: PlanetAdded, Name: "Vulcan"})

	select {
	case ev := <-ch:
		assert.Equal(t, PlanetAdded, ev.Type)
		assert.Equal(t, "Vulcan", ev.Name)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	_, unsubscribe := hub.Subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		hub.Publish(Event{Type: PlanetAdded})
		hub.Publish(Event{Type: PlanetAdded})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(nil)
	ch, unsubscribe := hub.Subscribe(1)
	assert.Equal(t, 1, hub.Stats().Subscribers)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Stats().Subscribers)

	_, open := <-ch
	assert.False(t, open)

	hub.Publish(Event{Type: PlanetAdded})
}

func TestWSHandler_ReceivesEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)

	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Stats().WSClients == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: PlanetAdded, Name: "Vulcan", ID: "abc"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "Vulcan", ev.Name)
	assert.Equal(t, "abc", ev.ID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Stats().WSClients == 0 }, time.Second, 10*time.Millisecond)
}
