// Package connectivity reports whether remote peers are reachable.
// Storage is fully local, so providers only gate optional read-side
// conveniences such as retry loops.
package connectivity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOffline is returned by RetryReads when the provider reports offline.
var ErrOffline = errors.New("connectivity: offline")

// Provider answers point-in-time connectivity questions and fans state
// changes out to subscribers.
type Provider interface {
	IsOnline() bool
	IsOffline() bool

	// Subscribe registers fn for state changes and returns an
	// unsubscribe func. fn is invoked synchronously on SetOnline.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// StaticProvider holds an explicit connectivity state. It backs
// local-only operation, where the state is simply pinned online.
type StaticProvider struct {
	mu          sync.Mutex
	online      bool
	nextID      int
	subscribers map[int]func(online bool)
}

// NewStaticProvider returns a provider pinned to the given state.
func NewStaticProvider(online bool) *StaticProvider {
	return &StaticProvider{
		online:      online,
		subscribers: make(map[int]func(online bool)),
	}
}

func (p *StaticProvider) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *StaticProvider) IsOffline() bool {
	return !p.IsOnline()
}

// SetOnline flips the state and notifies subscribers. Notification is
// skipped when the state did not change.
func (p *StaticProvider) SetOnline(online bool) {
	p.mu.Lock()
	if p.online == online {
		p.mu.Unlock()
		return
	}
	p.online = online
	fns := make([]func(online bool), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

func (p *StaticProvider) Subscribe(fn func(online bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

// RetryReads runs fn up to attempts times, sleeping delay between tries.
// It is meant for idempotent reads only; transactional writes must run
// exactly once and go through the store directly. When the provider says
// offline, it returns ErrOffline without calling fn.
func RetryReads(ctx context.Context, provider Provider, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if provider.IsOffline() {
		return ErrOffline
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
