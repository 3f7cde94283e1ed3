// Package notify forwards device feedback to other processes: Redis pub/sub
// and Discord webhooks.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/cyberinferno/dglab-ws/protocol"
)

const deliverTimeout = 5 * time.Second

// Event is the payload delivered for one feedback report.
type Event struct {
	Symbol  string    `json:"symbol"`
	Code    int       `json:"code"`
	Channel string    `json:"channel"`
	Shape   string    `json:"shape"`
	At      time.Time `json:"at"`
}

// FeedbackEvent converts a feedback report received at at.
func FeedbackEvent(f protocol.Feedback, at time.Time) Event {
	return Event{
		Symbol:  f.String(),
		Code:    int(f),
		Channel: f.Channel().String(),
		Shape:   f.Shape(),
		At:      at.UTC(),
	}
}

// Sink delivers one event to an external system.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// Publisher hands events to a Sink from a background worker so callers on
// the tick goroutine never wait on the network.
type Publisher struct {
	sink Sink
	log  logger.Logger
	now  func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

// NewPublisher starts a publisher for sink.
//
// Parameters:
//   - sink: Destination of every event
//   - log: Logger; nil discards output
//   - buffer: Events held while the sink is slow; extra events are dropped
//
// Returns:
//   - A running *Publisher; call Close to stop it
func NewPublisher(sink Sink, log logger.Logger, buffer int) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}

	if buffer <= 0 {
		buffer = 64
	}

	p := &Publisher{
		sink:   sink,
		log:    log,
		now:    time.Now,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}

	go p.run()

	return p
}

// Publish queues e without blocking.
//
// Returns:
//   - false if the publisher is closed or its buffer is full
func (p *Publisher) Publish(e Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.events <- e:
		return true
	default:
		p.log.Warn("event dropped, buffer full", logger.Field{Key: "symbol", Value: e.Symbol})
		return false
	}
}

// PublishFeedback queues a feedback report. It has the signature of a
// session.Manager feedback subscriber.
func (p *Publisher) PublishFeedback(f protocol.Feedback) {
	p.Publish(FeedbackEvent(f, p.now()))
}

// Close stops accepting events and waits until the queued ones are
// delivered.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)

	for e := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := p.sink.Deliver(ctx, e)
		cancel()

		if err != nil {
			p.log.Warn("deliver failed", logger.Field{Key: "symbol", Value: e.Symbol}, logger.Err(err))
			continue
		}

		p.log.Debug("delivered", logger.Field{Key: "symbol", Value: e.Symbol})
	}
}
