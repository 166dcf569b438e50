// FilePath: internal/eventloop/eventloop.go
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

// ErrStopped is returned when work is submitted to a loop that is no longer running.
var ErrStopped = errors.New("event loop stopped")

const defaultQueueSize = 256

// Loop is a single-threaded dispatcher. Every function posted to it runs on the
// goroutine that called Run, one at a time.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// New creates a loop with a bounded work queue.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Run dispatches posted work until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			nuts.L.Errorf("[EventLoop] recovered from panic in dispatched work: %v", r)
		}
	}()
	fn()
}

// Stop terminates Run. Pending work is dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop has been stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn for execution on the loop. It is safe to call from any goroutine
// and returns false when the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timer is a handle to a scheduled callback.
type Timer struct {
	stop     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	canceled bool
}

// NewTimer returns a timer handle that is not driven by a Loop. Schedulers that
// invoke callbacks themselves use it to honour Cancel.
func NewTimer() *Timer {
	return &Timer{stop: make(chan struct{})}
}

// Cancel stops future invocations. It is idempotent.
func (t *Timer) Cancel() {
	t.once.Do(func() {
		t.mu.Lock()
		t.canceled = true
		t.mu.Unlock()
		close(t.stop)
	})
}

// Canceled reports whether the timer has been cancelled.
func (t *Timer) Canceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// AddTimeout schedules fn every interval on the loop. Returning false from fn
// cancels the timer.
func (l *Loop) AddTimeout(interval time.Duration, fn func() bool) *Timer {
	t := NewTimer()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-l.done:
				return
			case <-ticker.C:
				l.Post(func() {
					if t.Canceled() {
						return
					}
					if !fn() {
						t.Cancel()
					}
				})
			}
		}
	}()
	return t
}

// AddOneShot schedules fn once after delay.
func (l *Loop) AddOneShot(delay time.Duration, fn func()) *Timer {
	t := NewTimer()
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-t.stop:
		case <-l.done:
		case <-timer.C:
			l.Post(func() {
				if t.Canceled() {
					return
				}
				t.Cancel()
				fn()
			})
		}
	}()
	return t
}
