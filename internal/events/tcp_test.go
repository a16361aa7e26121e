package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTCPServer_StreamsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	srv := NewTCPServer("127.0.0.1:0", hub, nil)
	require.NoError(t, srv.Listen())

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	readEvent := func() Event {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := r.ReadBytes('\n')
		require.NoError(t, err)
		var ev Event
		require.NoError(t, json.Unmarshal(line, &ev))
		return ev
	}

	assert.Equal(t, Welcome, readEvent().Type)
	require.Eventually(t, func() bool { return hub.Stats().Subscribers == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: PlanetAdded, Name: "Vulcan"})
	ev := readEvent()
	assert.Equal(t, PlanetAdded, ev.Type)
	assert.Equal(t, "Vulcan", ev.Name)

	require.NoError(t, srv.Close())
	require.NoError(t, <-served)
	assert.Equal(t, 0, hub.Stats().Subscribers)
}

func TestTCPServer_ClientDisconnectUnsubscribes(t *testing.T) {
	hub := NewHub(nil)
	srv := NewTCPServer("127.0.0.1:0", hub, nil)
	require.NoError(t, srv.Listen())
	go func() { _ = srv.Serve() }()
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Stats().Subscribers == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Stats().Subscribers == 0 }, time.Second, 10*time.Millisecond)
}

// failingListener fails Accept n times, then reports itself closed.
type failingListener struct {
	net.Listener
	n     int
	calls int
	times []time.Time
}

func (l *failingListener) Accept() (net.Conn, error) {
	l.calls++
	l.times = append(l.times, time.Now())
	if l.calls <= l.n {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func TestTCPServer_AcceptErrorsBackOff(t *testing.T) {
	ln := &failingListener{n: 4}
	srv := NewTCPServer("", NewHub(nil), nil)

	start := time.Now()
	require.NoError(t, srv.serve(ln))

	assert.Equal(t, 5, ln.calls)
	// 5 + 10 + 20 + 40 ms
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
	for i := 2; i < len(ln.times); i++ {
		prev := ln.times[i-1].Sub(ln.times[i-2])
		assert.Greater(t, ln.times[i].Sub(ln.times[i-1]), prev/2, "delay should grow")
	}
}
