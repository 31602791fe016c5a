// Package coalesce publishes rapidly changing values at a bounded rate.
package coalesce

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Publisher forwards values set at any rate to a publish function, at most
// once per interval. Values set while a publication is pending replace each
// other; only the latest is published.
type Publisher[T any] struct {
	publish func(T)
	limiter *rate.Limiter

	// pubMu serialises publish calls so observers see values in order.
	pubMu sync.Mutex

	mu      sync.Mutex
	pending T
	dirty   bool
	timer   *time.Timer
	gen     uint64
	closed  bool
}

// New returns a publisher. An interval of zero publishes every value
// synchronously.
//
// Publications are serialised, so publish must not call back into the
// publisher.
func New[T any](interval time.Duration, publish func(T)) *Publisher[T] {
	p := &Publisher[T]{publish: publish}
	if interval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return p
}

// Set records v as the latest value.
func (p *Publisher[T]) Set(v T) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = v
	p.dirty = true

	if p.limiter == nil {
		p.mu.Unlock()
		p.flushPending()
		return
	}
	if p.timer != nil {
		p.mu.Unlock()
		return
	}

	delay := p.limiter.Reserve().Delay()
	if delay > 0 {
		p.gen++
		gen := p.gen
		p.timer = time.AfterFunc(delay, func() { p.fire(gen) })
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.flushPending()
}

// Flush publishes a pending value now, cancelling its timer.
func (p *Publisher[T]) Flush() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
		p.gen++
	}
	p.mu.Unlock()
	p.flushPending()
}

// Close flushes and stops accepting values.
func (p *Publisher[T]) Close() {
	p.Flush()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Publisher[T]) fire(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()
	p.flushPending()
}

func (p *Publisher[T]) flushPending() {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	v := p.pending
	var zero T
	p.pending = zero
	p.dirty = false
	p.mu.Unlock()

	if p.publish != nil {
		p.publish(v)
	}
}
