package session

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cyberinferno/dglab-ws/dispatch"
	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport mimics wsclient.Client: events are only delivered through
// the queue, sends are dropped while disconnected.
type fakeTransport struct {
	q         *dispatch.Queue
	connected bool
	uris      []string
	sent      []string
	closes    int

	onConnected []func()
	onClosed    []func()
	onMessage   []func(string)
	onError     []func(error)
}

func (f *fakeTransport) Connect(uri string) {
	if f.connected {
		return
	}
	f.connected = true
	f.uris = append(f.uris, uri)
	handlers := f.onConnected
	f.q.Enqueue(func() {
		for _, h := range handlers {
			h()
		}
	})
}

func (f *fakeTransport) Send(message string) {
	if !f.connected {
		return
	}
	f.sent = append(f.sent, message)
}

func (f *fakeTransport) Close() {
	f.closes++
	if !f.connected {
		return
	}
	f.connected = false
	handlers := f.onClosed
	f.q.Enqueue(func() {
		for _, h := range handlers {
			h()
		}
	})
}

// remoteClose delivers a closed event without a local Close, as when the
// relay ends the connection.
func (f *fakeTransport) remoteClose() {
	f.connected = false
	handlers := f.onClosed
	f.q.Enqueue(func() {
		for _, h := range handlers {
			h()
		}
	})
}

func (f *fakeTransport) receive(raw string) {
	handlers := f.onMessage
	f.q.Enqueue(func() {
		for _, h := range handlers {
			h(raw)
		}
	})
}

func (f *fakeTransport) fail(err error) {
	handlers := f.onError
	f.q.Enqueue(func() {
		for _, h := range handlers {
			h(err)
		}
	})
}

func (f *fakeTransport) OnConnected(h func()) { f.onConnected = append(f.onConnected, h) }
func (f *fakeTransport) OnClosed(h func()) { f.onClosed = append(f.onClosed, h) }
func (f *fakeTransport) OnMessage(h func(string)) { f.onMessage = append(f.onMessage, h) }
func (f *fakeTransport) OnError(h func(err error)) { f.onError = append(f.onError, h) }

func (f *fakeTransport) lastSent(t *testing.T) protocol.Envelope {
	t.Helper()
	require.NotEmpty(t, f.sent)
	env, err := protocol.Decode(f.sent[len(f.sent)-1])
	require.NoError(t, err)
	return env
}

func newTestManager() (*Manager, *fakeTransport) {
	q := dispatch.NewQueue(nil)
	tr := &fakeTransport{q: q}
	m := NewManager(DefaultConfig(), tr, q, nil, nil)
	m.localIPv4 = func() string { return "192.168.1.20" }
	return m, tr
}

// bound returns a connected manager with ids c1/t1.
func bound(t *testing.T) (*Manager, *fakeTransport) {
	t.Helper()
	m, tr := newTestManager()
	m.Connect("relay.local")
	m.Update()
	tr.receive(`{"type":"bind","clientId":"c1","targetId":"","message":"targetId"}`)
	tr.receive(`{"type":"bind","clientId":"c1","targetId":"t1","message":"DGLAB"}`)
	m.Update()
	require.Equal(t, "c1", m.State().ClientID)
	require.Equal(t, "t1", m.State().TargetID)
	return m, tr
}

func TestManager_URI(t *testing.T) {
	m, _ := newTestManager()

	assert.Equal(t, "ws://10.0.0.2:4503", m.URI("10.0.0.2"))
	assert.Equal(t, "ws://192.168.1.20:4503", m.URI(""))
}

func TestManager_Connect(t *testing.T) {
	m, tr := newTestManager()

	m.Connect("")
	m.Update()

	assert.Equal(t, []string{"ws://192.168.1.20:4503"}, tr.uris)
}

func TestManager_LocalHostIsCachedUntilSocketFault(t *testing.T) {
	m, tr := newTestManager()
	lookups := 0
	m.localIPv4 = func() string {
		lookups++
		return "192.168.1.20"
	}

	m.Connect("")
	m.Update()
	m.Close()
	m.Update()
	m.Connect("")
	m.Update()
	assert.Equal(t, 1, lookups)

	tr.fail(io.EOF)
	m.Update()
	m.Connect("")
	assert.Equal(t, 2, lookups)
}

func TestManager_Bind(t *testing.T) {
	m, tr := newTestManager()
	m.Connect("relay.local")
	m.Update()

	t.Run("targetId assigns client id", func(t *testing.T) {
		tr.receive(`{"type":"bind","clientId":"c1","targetId":"","message":"targetId"}`)
		m.Update()
		assert.Equal(t, "c1", m.State().ClientID)
		assert.Empty(t, m.State().TargetID)
	})

	t.Run("DGLAB for another client is ignored", func(t *testing.T) {
		tr.receive(`{"type":"bind","clientId":"other","targetId":"t9","message":"DGLAB"}`)
		m.Update()
		assert.Empty(t, m.State().TargetID)
	})

	t.Run("status codes are ignored", func(t *testing.T) {
		tr.receive(`{"type":"bind","clientId":"c1","targetId":"t1","message":"200"}`)
		m.Update()
		assert.Empty(t, m.State().TargetID)
	})

	t.Run("DGLAB before a client id is assigned is ignored", func(t *testing.T) {
		m, tr := newTestManager()
		m.Connect("relay.local")
		m.Update()

		tr.receive(`{"type":"bind","clientId":"","targetId":"t9","message":"DGLAB"}`)
		m.Update()
		assert.Equal(t, State{}, m.State())
	})

	t.Run("DGLAB for this client binds target", func(t *testing.T) {
		tr.receive(`{"type":"bind","clientId":"c1","targetId":"t1","message":"DGLAB"}`)
		m.Update()
		assert.Equal(t, "t1", m.State().TargetID)
		assert.True(t, m.State().Bound())
	})
}

func TestManager_StrengthReport(t *testing.T) {
	m, tr := bound(t)

	tr.receive(`{"type":"msg","clientId":"c1","targetId":"t1","message":"strength-12+7+30+88"}`)
	m.Update()

	s := m.State()
	assert.Equal(t, 12, s.StrengthA)
	assert.Equal(t, 7, s.StrengthB)
	assert.Equal(t, 30, s.StrengthLimitA)
	assert.Equal(t, 88, s.StrengthLimitB)

	t.Run("malformed report leaves state unchanged", func(t *testing.T) {
		err := m.HandleMessage(`{"type":"msg","message":"strength-1+2+x+4"}`)
		assert.ErrorIs(t, err, protocol.ErrMalformedStrength)

		err = m.HandleMessage(`{"type":"msg","message":"strength-1+2"}`)
		assert.ErrorIs(t, err, protocol.ErrMalformedStrength)

		assert.Equal(t, s, m.State())
	})
}

func TestManager_Feedback(t *testing.T) {
	m, _ := bound(t)
	before := m.State()

	var got []protocol.Feedback
	m.OnFeedback(func(f protocol.Feedback) { got = append(got, f) })

	require.NoError(t, m.HandleMessage(`{"type":"msg","message":"feedback-3"}`))
	require.Len(t, got, 1)
	assert.Equal(t, protocol.StarA, got[0])
	assert.Equal(t, "STAR_A", got[0].String())
	assert.Equal(t, before, m.State())

	t.Run("unknown code", func(t *testing.T) {
		err := m.HandleMessage(`{"type":"msg","message":"feedback-12"}`)
		assert.ErrorIs(t, err, protocol.ErrUnknownFeedback)
		assert.Len(t, got, 1)
	})
}

func TestManager_Heartbeat(t *testing.T) {
	m, _ := bound(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }
	before := m.State()

	assert.True(t, m.LastHeartbeat().IsZero())
	require.NoError(t, m.HandleMessage(`{"type":"heartbeat","clientId":"c1","targetId":"t1","message":"200"}`))
	assert.Equal(t, at, m.LastHeartbeat())
	assert.Equal(t, before, m.State())
}

func TestManager_Break(t *testing.T) {
	t.Run("after bind", func(t *testing.T) {
		m, tr := bound(t)
		tr.receive(`{"type":"msg","message":"strength-5+5+50+50"}`)
		m.Update()

		closed := 0
		tr.OnClosed(func() { closed++ })

		tr.receive(`{"type":"break","clientId":"c1","targetId":"t1","message":"209"}`)
		m.Update()

		assert.Equal(t, 1, tr.closes)
		assert.Equal(t, 1, closed)
		assert.Equal(t, State{}, m.State())
	})

	t.Run("without prior bind", func(t *testing.T) {
		m, tr := newTestManager()
		m.Connect("relay.local")
		m.Update()

		closed := 0
		tr.OnClosed(func() { closed++ })

		tr.receive(`{"type":"break","message":"209"}`)
		m.Update()

		assert.Equal(t, 1, closed)
		assert.Equal(t, State{}, m.State())
	})
}

func TestManager_ErrorEnvelope(t *testing.T) {
	m, tr := bound(t)

	err := m.HandleMessage(`{"type":"error","clientId":"c1","targetId":"t1","message":"402"}`)

	var remote *protocol.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, protocol.StatusNotBoundRelationship, remote.Code)
	assert.Equal(t, 0, tr.closes)
	assert.True(t, tr.connected)
	assert.True(t, m.State().Bound())
}

func TestManager_MalformedAndUnknownEnvelopes(t *testing.T) {
	m, _ := bound(t)
	before := m.State()

	err := m.HandleMessage(`{not json`)
	assert.ErrorIs(t, err, protocol.ErrMalformedEnvelope)

	assert.NoError(t, m.HandleMessage(`{"type":"future","message":"x"}`))
	assert.NoError(t, m.HandleMessage(`{"type":"msg","message":"something-else"}`))
	assert.Equal(t, before, m.State())
}

func TestManager_CloseResetsState(t *testing.T) {
	m, tr := bound(t)
	tr.receive(`{"type":"msg","message":"strength-12+7+30+88"}`)
	m.Update()
	require.NotEqual(t, State{}, m.State())

	m.Close()

	assert.Equal(t, State{}, m.State())
	assert.Equal(t, 1, tr.closes)
}

func TestManager_ConnectedAndClosedEventsReset(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		m, tr := bound(t)

		// a stale state left from a previous session is wiped by the next connect
		tr.connected = false
		m.Connect("relay.local")
		m.Update()
		assert.Equal(t, State{}, m.State())
	})

	t.Run("remote close", func(t *testing.T) {
		m, tr := bound(t)
		tr.receive(`{"type":"msg","message":"strength-12+7+30+88"}`)
		m.Update()

		var changes []State
		m.OnStateChange(func(s State) { changes = append(changes, s) })

		tr.remoteClose()
		m.Update()

		assert.Equal(t, State{}, m.State())
		assert.Equal(t, []State{{}}, changes)
		assert.Equal(t, 0, tr.closes)
	})
}

func TestManager_TransportErrors(t *testing.T) {
	t.Run("socket fault closes and resets", func(t *testing.T) {
		m, tr := bound(t)
		tr.fail(io.ErrUnexpectedEOF)
		m.Update()

		assert.Equal(t, 1, tr.closes)
		assert.Equal(t, State{}, m.State())
	})

	t.Run("other errors are only logged", func(t *testing.T) {
		m, tr := bound(t)
		tr.fail(errors.New("send buffer full"))
		m.Update()

		assert.Equal(t, 0, tr.closes)
		assert.True(t, m.State().Bound())
	})
}

func TestManager_StateChangeNotifications(t *testing.T) {
	m, tr := newTestManager()

	var states []State
	m.OnStateChange(func(s State) { states = append(states, s) })

	m.Connect("relay.local")
	m.Update()
	assert.Empty(t, states)

	tr.receive(`{"type":"bind","clientId":"c1","message":"targetId"}`)
	tr.receive(`{"type":"msg","message":"strength-1+2+3+4"}`)
	tr.receive(`{"type":"msg","message":"strength-1+2+3+4"}`)
	m.Update()

	require.Len(t, states, 2)
	assert.Equal(t, "c1", states[0].ClientID)
	assert.Equal(t, 4, states[1].StrengthLimitB)

	m.Close()
	require.Len(t, states, 3)
	assert.Equal(t, State{}, states[2])
}

func TestManager_Outbound(t *testing.T) {
	m, tr := bound(t)

	tests := []struct {
		name    string
		send    func() error
		typ     protocol.MessageType
		message string
	}{
		{
			name:    "strength A fixed 50",
			send:    func() error { return m.SendStrength(protocol.ChannelA, protocol.Fixed, 50) },
			typ:     protocol.TypeMsg,
			message: "strength-1+2+50",
		},
		{
			name:    "strength B decrease 5",
			send:    func() error { return m.SendStrength(protocol.ChannelB, protocol.Decrease, 5) },
			typ:     protocol.TypeMsg,
			message: "strength-2+0+5",
		},
		{
			name:    "pulse",
			send:    func() error { return m.SendPulse(protocol.ChannelB, `["0A0A0A0A00000000"]`) },
			typ:     protocol.TypeMsg,
			message: `pulse-B:["0A0A0A0A00000000"]`,
		},
		{
			name:    "clear",
			send:    func() error { return m.SendClear(protocol.ChannelA) },
			typ:     protocol.TypeMsg,
			message: "clear-1",
		},
		{
			name:    "raw",
			send:    func() error { return m.Send(protocol.TypeCustom, "hello") },
			typ:     protocol.TypeCustom,
			message: "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.send())
			env := tr.lastSent(t)
			assert.Equal(t, tt.typ, env.Type)
			assert.Equal(t, "c1", env.ClientID)
			assert.Equal(t, "t1", env.TargetID)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestManager_Presets(t *testing.T) {
	m, tr := bound(t)

	t.Run("known preset", func(t *testing.T) {
		wave, ok := m.Presets().Lookup("潮汐")
		require.True(t, ok)

		require.NoError(t, m.SendPresetPulse(protocol.ChannelA, "潮汐"))
		env := tr.lastSent(t)
		assert.Equal(t, protocol.TypeCustom, env.Type)
		assert.Equal(t, "preset-A:"+wave, env.Message)
	})

	t.Run("unknown preset sends nothing", func(t *testing.T) {
		n := len(tr.sent)
		err := m.SendPresetPulse(protocol.ChannelA, "missing")
		assert.ErrorIs(t, err, ErrUnknownPreset)
		assert.Len(t, tr.sent, n)
	})

	t.Run("all presets in catalog order", func(t *testing.T) {
		n := len(tr.sent)
		require.NoError(t, m.SendAllPresetPulses(protocol.ChannelB))
		require.Len(t, tr.sent, n+preset.Default().Len())

		first, err := protocol.Decode(tr.sent[n])
		require.NoError(t, err)
		wave, _ := m.Presets().Lookup(m.Presets().Names()[0])
		assert.Equal(t, "preset-B:"+wave, first.Message)
	})
}

func TestManager_SendWhileDisconnected(t *testing.T) {
	m, tr := newTestManager()

	assert.NotPanics(t, func() {
		require.NoError(t, m.SendStrength(protocol.ChannelA, protocol.Increase, 1))
	})
	assert.Empty(t, tr.sent)
	assert.Equal(t, 0, m.Update())
}
