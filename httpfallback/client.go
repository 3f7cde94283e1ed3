// Package httpfallback sends DungeonLab commands to the relay over plain
// HTTP POST, for hosts that cannot keep a WebSocket open. Each call is one
// request with no retry and no session state.
package httpfallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/cyberinferno/dglab-ws/utils"
)

// Relay routes, one per command family.
const (
	RouteMessage     = "dungeon_lab_message"
	RouteStrength    = "dungeon_lab_strength_message"
	RouteClear       = "dungeon_lab_clear_message"
	RoutePulse       = "dungeon_lab_pulse_message"
	RoutePresetPulse = "dungeon_lab_preset_pulse_message"
)

// MessageBody is posted to RouteMessage.
type MessageBody struct {
	Type    protocol.MessageType `json:"type"`
	Message string               `json:"message"`
}

// StrengthBody is posted to RouteStrength.
type StrengthBody struct {
	Channel protocol.Channel            `json:"channel"`
	Mode    protocol.StrengthChangeMode `json:"mode"`
	Value   int                         `json:"value"`
}

// ClearBody is posted to RouteClear.
type ClearBody struct {
	Channel protocol.Channel `json:"channel"`
}

// PulseBody is posted to RoutePulse.
type PulseBody struct {
	Channel protocol.Channel `json:"channel"`
	Pulse   string           `json:"pulse"`
}

// PresetBody is posted to RoutePresetPulse. Preset carries the waveform,
// not the catalog name.
type PresetBody struct {
	Channel protocol.Channel `json:"channel"`
	Preset  string           `json:"preset"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Route      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Route, e.StatusCode, e.Body)
}

// Client posts commands to one relay.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// New creates a client for http://{host}:{port}. An empty host means this
// machine's first IPv4 address.
//
// Parameters:
//   - host: Relay host
//   - port: Relay port
//   - timeout: Per-request timeout; 0 means none
//   - log: Logger; nil discards output
func New(host string, port int, timeout time.Duration, log logger.Logger) *Client {
	if host == "" {
		host = utils.LocalIPv4()
	}

	return NewWithBaseURL(fmt.Sprintf("http://%s:%d", host, port), &http.Client{Timeout: timeout}, log)
}

// NewWithBaseURL creates a client posting to baseURL with httpClient.
func NewWithBaseURL(baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log.With(logger.Field{Key: "component", Value: "httpfallback"}),
	}
}

// BaseURL returns the relay address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessage posts a raw typed message.
func (c *Client) SendMessage(ctx context.Context, t protocol.MessageType, message string) error {
	return c.post(ctx, RouteMessage, MessageBody{Type: t, Message: message})
}

// SendStrength posts a strength change.
func (c *Client) SendStrength(ctx context.Context, ch protocol.Channel, mode protocol.StrengthChangeMode, value int) error {
	return c.post(ctx, RouteStrength, StrengthBody{Channel: ch, Mode: mode, Value: value})
}

// SendClear posts a clear for channel ch.
func (c *Client) SendClear(ctx context.Context, ch protocol.Channel) error {
	return c.post(ctx, RouteClear, ClearBody{Channel: ch})
}

// SendPulse posts a waveform for channel ch.
func (c *Client) SendPulse(ctx context.Context, ch protocol.Channel, pulse string) error {
	return c.post(ctx, RoutePulse, PulseBody{Channel: ch, Pulse: pulse})
}

// SendPresetPulse posts the waveform of the named preset from catalog.
func (c *Client) SendPresetPulse(ctx context.Context, catalog *preset.Catalog, ch protocol.Channel, name string) error {
	wave, ok := catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}

	return c.post(ctx, RoutePresetPulse, PresetBody{Channel: ch, Preset: wave})
}

// SendAllPresetPulses posts every catalog waveform in order, stopping at the
// first failure.
func (c *Client) SendAllPresetPulses(ctx context.Context, catalog *preset.Catalog, ch protocol.Channel) error {
	for _, e := range catalog.Entries() {
		if err := c.post(ctx, RoutePresetPulse, PresetBody{Channel: ch, Preset: e.Wave}); err != nil {
			return fmt.Errorf("preset %q: %w", e.Name, err)
		}
	}

	return nil
}

func (c *Client) post(ctx context.Context, route string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", route, err)
	}

	url := c.baseURL + "/" + route
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	c.log.Debug("http post", logger.Field{Key: "url", Value: url}, logger.Field{Key: "body", Value: string(data)})

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", route, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Route: route, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return nil
}
