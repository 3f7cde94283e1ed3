package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cyberinferno/dglab-ws/logger"
)

// DiscordSink posts events to a Discord channel via its webhook URL.
type DiscordSink struct {
	webhook string
	http    *http.Client
}

// NewDiscordSink creates a sink for webhook. A nil httpClient uses
// http.DefaultClient.
func NewDiscordSink(webhook string, httpClient *http.Client) *DiscordSink {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &DiscordSink{webhook: webhook, http: httpClient}
}

// Deliver posts e as the message content.
func (s *DiscordSink) Deliver(ctx context.Context, e Event) error {
	return s.Post(ctx, DiscordContent(e))
}

// Post sends content as a webhook message.
func (s *DiscordSink) Post(ctx context.Context, content string) error {
	data, err := json.Marshal(struct {
		Content string `json:"content"`
	}{Content: content})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// DiscordContent renders e as one line of chat text.
func DiscordContent(e Event) string {
	return fmt.Sprintf("feedback %s on channel %s (%s) at %s", e.Symbol, e.Channel, e.Shape, e.At.Format("15:04:05"))
}

// NewDiscordPublisher starts a Publisher delivering to a Discord webhook.
func NewDiscordPublisher(webhook string, httpClient *http.Client, log logger.Logger, buffer int) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}

	log = log.With(logger.Field{Key: "component", Value: "notify"}, logger.Field{Key: "sink", Value: "discord"})
	return NewPublisher(NewDiscordSink(webhook, httpClient), log, buffer)
}
