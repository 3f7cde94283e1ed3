package httpfallback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	route       string
	contentType string
	body        string
}

// fakeRelay records every POST it receives on the five relay routes.
type fakeRelay struct {
	mu       sync.Mutex
	requests []request
	status   int
}

func newFakeRelay(t *testing.T) (*fakeRelay, *Client) {
	t.Helper()

	relay := &fakeRelay{status: http.StatusOK}
	router := httprouter.New()
	for _, route := range []string{RouteMessage, RouteStrength, RouteClear, RoutePulse, RoutePresetPulse} {
		router.POST("/"+route, relay.handle(route))
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return relay, NewWithBaseURL(srv.URL+"/", srv.Client(), nil)
}

func (f *fakeRelay) handle(route string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, request{route: route, contentType: r.Header.Get("Content-Type"), body: string(body)})
		status := f.status
		f.mu.Unlock()

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte("relay unavailable"))
		}
	}
}

func (f *fakeRelay) last(t *testing.T) request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func TestNew(t *testing.T) {
	c := New("10.0.0.2", 4503, time.Second, nil)
	assert.Equal(t, "http://10.0.0.2:4503", c.BaseURL())
}

func TestClient_Routes(t *testing.T) {
	relay, c := newFakeRelay(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		send  func() error
		route string
		body  string
	}{
		{
			name:  "message",
			send:  func() error { return c.SendMessage(ctx, protocol.TypeMsg, "hello") },
			route: RouteMessage,
			body:  `{"type":"msg","message":"hello"}`,
		},
		{
			name:  "strength",
			send:  func() error { return c.SendStrength(ctx, protocol.ChannelA, protocol.Fixed, 50) },
			route: RouteStrength,
			body:  `{"channel":1,"mode":2,"value":50}`,
		},
		{
			name:  "clear",
			send:  func() error { return c.SendClear(ctx, protocol.ChannelB) },
			route: RouteClear,
			body:  `{"channel":2}`,
		},
		{
			name:  "pulse",
			send:  func() error { return c.SendPulse(ctx, protocol.ChannelA, "Dungeonlab+pulse:1") },
			route: RoutePulse,
			body:  `{"channel":1,"pulse":"Dungeonlab+pulse:1"}`,
		},
		{
			name: "preset",
			send: func() error {
				return c.SendPresetPulse(ctx, preset.NewCatalog(preset.Entry{Name: "p", Wave: "wave-p"}), protocol.ChannelB, "p")
			},
			route: RoutePresetPulse,
			body:  `{"channel":2,"preset":"wave-p"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.send())
			got := relay.last(t)
			assert.Equal(t, tt.route, got.route)
			assert.JSONEq(t, tt.body, got.body)
			assert.Contains(t, got.contentType, "application/json")
		})
	}
}

func TestClient_UnknownPresetSendsNothing(t *testing.T) {
	relay, c := newFakeRelay(t)

	err := c.SendPresetPulse(context.Background(), preset.NewCatalog(), protocol.ChannelA, "missing")
	assert.ErrorContains(t, err, "missing")
	assert.Empty(t, relay.requests)
}

func TestClient_SendAllPresetPulses(t *testing.T) {
	relay, c := newFakeRelay(t)
	catalog := preset.Default()

	require.NoError(t, c.SendAllPresetPulses(context.Background(), catalog, protocol.ChannelA))

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Len(t, relay.requests, catalog.Len())
	for _, r := range relay.requests {
		assert.Equal(t, RoutePresetPulse, r.route)
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	relay, c := newFakeRelay(t)
	relay.status = http.StatusServiceUnavailable

	err := c.SendClear(context.Background(), protocol.ChannelA)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, RouteClear, statusErr.Route)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "relay unavailable", statusErr.Body)
}

func TestClient_CancelledContext(t *testing.T) {
	_, c := newFakeRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.SendMessage(ctx, protocol.TypeHeartbeat, "")
	assert.ErrorIs(t, err, context.Canceled)
}
