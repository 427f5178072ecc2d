package event

import (
	"context"
	"log"
	"time"
)

// Publisher delivers updates to whoever consumes them (the daemon main loop,
// or a recorder in tests).
type Publisher interface {
	Publish(update interface{})
}

type ChannelPublisher struct {
	ctx     context.Context
	ch      chan<- interface{}
	timeout time.Duration
}

func NewChannelPublisher(ctx context.Context, ch chan<- interface{}, timeout time.Duration) *ChannelPublisher {
	return &ChannelPublisher{ctx: ctx, ch: ch, timeout: timeout}
}

// Publish never blocks longer than the configured timeout; a dropped update is
// logged rather than stalling the caller.
func (p *ChannelPublisher) Publish(update interface{}) {
	select {
	case p.ch <- update:
	case <-p.ctx.Done():
	case <-time.After(p.timeout):
		log.Printf("Warning: Timeout publishing update %T", update)
	}
}

// Discard drops every update.
type Discard struct{}

func (Discard) Publish(interface{}) {}
