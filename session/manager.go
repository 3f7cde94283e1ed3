// Package session binds a DungeonLab client to a relay server over a
// Transport and keeps the session state (ids, strengths, limits) the relay
// reports.
//
// A Manager is owned by one goroutine, the tick. Transport events reach it
// only through the dispatch queue, so every method except Connect must be
// called from the goroutine that calls Update.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyberinferno/dglab-ws/cacher"
	"github.com/cyberinferno/dglab-ws/dispatch"
	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/cyberinferno/dglab-ws/utils"
	"github.com/cyberinferno/dglab-ws/wsclient"
)

// ErrUnknownPreset is returned by SendPresetPulse for names missing from the
// catalog.
var ErrUnknownPreset = errors.New("unknown preset")

const localHostKey = "local-ipv4"

// Transport is the connection a Manager drives. *wsclient.Client satisfies
// it. Handlers registered through the On methods must only be invoked from
// the dispatch queue.
type Transport interface {
	Connect(uri string)
	Send(message string)
	Close()
	OnConnected(handler func())
	OnClosed(handler func())
	OnMessage(handler func(message string))
	OnError(handler func(err error))
}

// Config holds session settings.
type Config struct {
	// Port of the relay server.
	Port int
	// HostCacheTTL is how long the discovered local address is reused.
	HostCacheTTL time.Duration
}

// DefaultConfig returns port 4503 and a five minute host cache.
func DefaultConfig() Config {
	return Config{
		Port:         4503,
		HostCacheTTL: 5 * time.Minute,
	}
}

// State is the session as last reported by the relay. The zero value is the
// unbound default.
type State struct {
	ClientID       string
	TargetID       string
	StrengthA      int
	StrengthB      int
	StrengthLimitA int
	StrengthLimitB int
}

// Bound reports whether both ids are known.
func (s State) Bound() bool {
	return s.ClientID != "" && s.TargetID != ""
}

// Manager builds outbound envelopes and applies inbound ones.
type Manager struct {
	config    Config
	transport Transport
	queue     *dispatch.Queue
	presets   *preset.Catalog
	hosts     *cacher.MemoryCacher[string]
	localIPv4 func() string
	now       func() time.Time
	log       logger.Logger

	state         State
	lastHeartbeat time.Time
	autoHost      bool

	onFeedback    []func(protocol.Feedback)
	onStateChange []func(State)
}

// NewManager creates a Manager and subscribes it to transport's events.
//
// Parameters:
//   - config: Session settings
//   - transport: Connection to drive (normally a *wsclient.Client sharing queue)
//   - queue: Queue drained by Update
//   - presets: Preset catalog; nil uses preset.Default()
//   - log: Logger; nil discards output
//
// Returns:
//   - A new *Manager with default state
func NewManager(config Config, transport Transport, queue *dispatch.Queue, presets *preset.Catalog, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}

	if presets == nil {
		presets = preset.Default()
	}

	if config.HostCacheTTL <= 0 {
		config.HostCacheTTL = DefaultConfig().HostCacheTTL
	}

	m := &Manager{
		config:    config,
		transport: transport,
		queue:     queue,
		presets:   presets,
		hosts:     cacher.NewMemoryCacher[string](config.HostCacheTTL, 2*config.HostCacheTTL),
		localIPv4: utils.LocalIPv4,
		now:       time.Now,
		log:       log.With(logger.Field{Key: "component", Value: "session"}),
	}

	transport.OnConnected(m.handleConnected)
	transport.OnClosed(m.handleClosed)
	transport.OnMessage(m.handleMessage)
	transport.OnError(m.handleTransportError)

	return m
}

// OnFeedback subscribes handler to feedback reports from the device.
func (m *Manager) OnFeedback(handler func(protocol.Feedback)) {
	m.onFeedback = append(m.onFeedback, handler)
}

// OnStateChange subscribes handler to every change of the session state.
func (m *Manager) OnStateChange(handler func(State)) {
	m.onStateChange = append(m.onStateChange, handler)
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	return m.state
}

// LastHeartbeat returns when the last heartbeat envelope arrived, or the zero
// time if none has.
func (m *Manager) LastHeartbeat() time.Time {
	return m.lastHeartbeat
}

// Presets returns the catalog used by SendPresetPulse.
func (m *Manager) Presets() *preset.Catalog {
	return m.presets
}

// URI returns the relay URI for host; an empty host means this machine's
// first IPv4 address.
func (m *Manager) URI(host string) string {
	if host == "" {
		host, _ = m.hosts.GetOrFetch(context.Background(), localHostKey, m.config.HostCacheTTL, func(context.Context) (string, error) {
			return m.localIPv4(), nil
		})
	}

	return fmt.Sprintf("ws://%s:%d", host, m.config.Port)
}

// Connect asks the transport to connect to the relay on host. The outcome
// arrives through the queue.
//
// Parameters:
//   - host: Relay host; "" uses this machine's first IPv4 address
func (m *Manager) Connect(host string) {
	m.autoHost = host == ""
	uri := m.URI(host)
	m.log.Info("connecting", logger.Field{Key: "uri", Value: uri})
	m.transport.Connect(uri)
}

// Close closes the transport and resets the session state at once.
func (m *Manager) Close() {
	m.transport.Close()
	m.reset()
}

// Update drains the dispatch queue, applying pending transport events. Call
// it once per tick.
//
// Returns:
//   - Number of events applied
func (m *Manager) Update() int {
	return m.queue.Drain()
}

// Send sends a raw message of type t with the current ids.
func (m *Manager) Send(t protocol.MessageType, message string) error {
	env := protocol.Envelope{
		Type:     t,
		ClientID: m.state.ClientID,
		TargetID: m.state.TargetID,
		Message:  message,
	}

	raw, err := env.Encode()
	if err != nil {
		return err
	}

	m.log.Debug("send", logger.Field{Key: "type", Value: string(t)}, logger.Field{Key: "message", Value: message})
	m.transport.Send(raw)
	return nil
}

// SendPulse sends a waveform to channel ch.
func (m *Manager) SendPulse(ch protocol.Channel, wave string) error {
	return m.Send(protocol.TypeMsg, protocol.PulseCommand(ch, wave))
}

// SendPresetPulse sends the named catalog waveform to channel ch. Nothing is
// sent for an unknown name.
func (m *Manager) SendPresetPulse(ch protocol.Channel, name string) error {
	wave, ok := m.presets.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	return m.Send(protocol.TypeCustom, protocol.PresetCommand(ch, wave))
}

// SendAllPresetPulses sends every catalog waveform to channel ch in catalog
// order.
func (m *Manager) SendAllPresetPulses(ch protocol.Channel) error {
	for _, e := range m.presets.Entries() {
		if err := m.Send(protocol.TypeCustom, protocol.PresetCommand(ch, e.Wave)); err != nil {
			return fmt.Errorf("preset %q: %w", e.Name, err)
		}
	}

	return nil
}

// SendClear clears the waveform queue of channel ch.
func (m *Manager) SendClear(ch protocol.Channel) error {
	return m.Send(protocol.TypeMsg, protocol.ClearCommand(ch))
}

// SendStrength changes the strength of channel ch.
func (m *Manager) SendStrength(ch protocol.Channel, mode protocol.StrengthChangeMode, value int) error {
	return m.Send(protocol.TypeMsg, protocol.StrengthCommand(ch, mode, value))
}

// HandleMessage applies one inbound envelope. Errors are recoverable: the
// state is left untouched and the connection stays open. A *RemoteError is
// returned for error envelopes.
func (m *Manager) HandleMessage(raw string) error {
	env, err := protocol.Decode(raw)
	if err != nil {
		return err
	}

	switch env.Type {
	case protocol.TypeBind:
		m.handleBind(env)
	case protocol.TypeMsg:
		return m.handleMsg(env)
	case protocol.TypeHeartbeat:
		m.lastHeartbeat = m.now()
	case protocol.TypeBreak:
		m.log.Info("break received", statusFields(env.Message)...)
		m.Close()
	case protocol.TypeError:
		return protocol.NewRemoteError(env.Message)
	default:
		m.log.Debug("ignored envelope", logger.Field{Key: "type", Value: string(env.Type)})
	}

	return nil
}

func (m *Manager) handleBind(env protocol.Envelope) {
	switch {
	case env.Message == protocol.BindAssignClientID:
		m.update(func(s *State) { s.ClientID = env.ClientID })
		m.log.Info("client id assigned", logger.Field{Key: "client_id", Value: env.ClientID})
	case env.Message == protocol.BindTargetBound && m.state.ClientID != "" && env.ClientID == m.state.ClientID:
		m.update(func(s *State) { s.TargetID = env.TargetID })
		m.log.Info("target bound", logger.Field{Key: "target_id", Value: env.TargetID})
	default:
		m.log.Debug("bind ignored", statusFields(env.Message)...)
	}
}

func (m *Manager) handleMsg(env protocol.Envelope) error {
	switch {
	case strings.HasPrefix(env.Message, protocol.PrefixStrength):
		r, err := protocol.ParseStrengthReport(env.Message)
		if err != nil {
			return err
		}

		m.update(func(s *State) {
			s.StrengthA = r.StrengthA
			s.StrengthB = r.StrengthB
			s.StrengthLimitA = r.StrengthLimitA
			s.StrengthLimitB = r.StrengthLimitB
		})
	case strings.HasPrefix(env.Message, protocol.PrefixFeedback):
		f, err := protocol.ParseFeedback(env.Message)
		if err != nil {
			return err
		}

		m.log.Info("feedback",
			logger.Field{Key: "symbol", Value: f.String()},
			logger.Field{Key: "channel", Value: f.Channel().String()},
			logger.Field{Key: "shape", Value: f.Shape()},
		)
		for _, h := range m.onFeedback {
			h(f)
		}
	}

	return nil
}

func (m *Manager) handleConnected() {
	m.log.Info("connected")
	m.reset()
}

func (m *Manager) handleClosed() {
	m.log.Info("disconnected")
	m.reset()
}

func (m *Manager) handleMessage(raw string) {
	err := m.HandleMessage(raw)
	if err == nil {
		return
	}

	var remote *protocol.RemoteError
	if errors.As(err, &remote) {
		m.log.Error("relay reported an error", logger.Field{Key: "code", Value: string(remote.Code)}, logger.Err(err))
		return
	}

	m.log.Warn("inbound message rejected", logger.Field{Key: "raw", Value: raw}, logger.Err(err))
}

func (m *Manager) handleTransportError(err error) {
	if !wsclient.IsSocketFault(err) {
		m.log.Error("transport error", logger.Err(err))
		return
	}

	m.log.Warn("socket fault, closing session", logger.Err(err))
	if m.autoHost {
		// the interface list may have changed
		m.hosts.Delete(localHostKey)
	}
	m.Close()
}

func (m *Manager) reset() {
	m.update(func(s *State) { *s = State{} })
}

func (m *Manager) update(fn func(s *State)) {
	before := m.state
	fn(&m.state)
	if m.state == before {
		return
	}

	for _, h := range m.onStateChange {
		h(m.state)
	}
}

func statusFields(message string) []logger.Field {
	fields := []logger.Field{{Key: "message", Value: message}}
	if code, ok := protocol.LookupStatus(message); ok {
		fields = append(fields, logger.Field{Key: "status", Value: code.Description()})
	}

	return fields
}
