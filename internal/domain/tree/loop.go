package tree

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned by Post once the loop has exited.
var ErrLoopStopped = errors.New("tree loop stopped")

// Loop serializes all access to a Manager onto one goroutine. Transport
// goroutines hand it closures; each runs to completion before the next.
type Loop struct {
	manager *Manager
	tasks   chan func(*Manager)
	done    chan struct{}
	once    sync.Once
}

// NewLoop creates a loop for m. backlog is how many tasks may wait.
func NewLoop(m *Manager, backlog int) *Loop {
	if backlog < 0 {
		backlog = 0
	}
	return &Loop{
		manager: m,
		tasks:   make(chan func(*Manager), backlog),
		done:    make(chan struct{}),
	}
}

// Run processes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn(l.manager)
		}
	}
}

// Stop makes Run return. Queued tasks are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues fn. It blocks until fn is accepted, ctx is done, or the loop
// stops.
func (l *Loop) Post(ctx context.Context, fn func(*Manager)) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func(*Manager)) error {
	finished := make(chan struct{})
	if err := l.Post(ctx, func(m *Manager) {
		defer close(finished)
		fn(m)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
