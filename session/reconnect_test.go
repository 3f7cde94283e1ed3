package session

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyberinferno/dglab-ws/dispatch"
	"github.com/cyberinferno/dglab-ws/wsclient"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSilentRelay assigns client ids c1, c2, ... on connect and never reads,
// so close frames from the client go unanswered.
func newSilentRelay(t *testing.T) (host string, port int, peers chan *websocket.Conn) {
	t.Helper()

	var assigned atomic.Int32
	peers = make(chan *websocket.Conn, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := fmt.Sprintf("c%d", assigned.Add(1))
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"bind","clientId":"`+id+`","targetId":"","message":"targetId"}`))
		peers <- conn
	}))
	t.Cleanup(srv.Close)

	host, portText, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	port, err = strconv.Atoi(portText)
	require.NoError(t, err)

	return host, port, peers
}

func TestManager_ReconnectKeepsNewSession(t *testing.T) {
	host, port, peers := newSilentRelay(t)

	q := dispatch.NewQueue(nil)
	tcfg := wsclient.DefaultConfig()
	tcfg.CloseTimeout = 200 * time.Millisecond
	tr := wsclient.New(tcfg, q, nil)

	cfg := DefaultConfig()
	cfg.Port = port
	m := NewManager(cfg, tr, q, nil, nil)

	clientIs := func(id string) func() bool {
		return func() bool {
			m.Update()
			return m.State().ClientID == id
		}
	}

	m.Connect(host)
	require.Eventually(t, clientIs("c1"), 3*time.Second, 5*time.Millisecond)
	first := <-peers
	t.Cleanup(func() { _ = first.Close() })

	m.Close()
	m.Connect(host)
	require.Eventually(t, clientIs("c2"), 3*time.Second, 5*time.Millisecond)
	second := <-peers
	t.Cleanup(func() { _ = second.Close() })

	// outlast the first connection's close wait
	time.Sleep(3 * tcfg.CloseTimeout)
	m.Update()
	assert.Equal(t, "c2", m.State().ClientID)
	assert.True(t, tr.IsConnected())

	t.Run("new session still binds", func(t *testing.T) {
		require.NoError(t, second.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"bind","clientId":"c2","targetId":"t2","message":"DGLAB"}`)))
		require.Eventually(t, func() bool {
			m.Update()
			return m.State().Bound()
		}, 3*time.Second, 5*time.Millisecond)
		assert.Equal(t, "t2", m.State().TargetID)
	})

	m.Close()
	tr.Wait()
	m.Update()
	assert.Equal(t, State{}, m.State())
}
