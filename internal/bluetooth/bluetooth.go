// FilePath: internal/bluetooth/bluetooth.go
package bluetooth

import (
	"context"
	"errors"
	"fmt"

	"github.com/eval-printer/SmartHome-Demo/internal/eventloop"
	nuts "github.com/vaudience/go-nuts"
)

// EventKind tells what happened on the BLE link.
type EventKind int

const (
	Connected EventKind = iota
	Disconnected
	Measurement
)

func (k EventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Measurement:
		return "measurement"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is produced by a BLE source thread and consumed on the event loop.
type Event struct {
	Kind      EventKind
	Address   string
	HeartRate int
}

// ErrQueueClosed is returned when pushing to a closed queue.
var ErrQueueClosed = errors.New("bluetooth queue closed")

// ErrUnsupported is returned by sources that cannot run on this platform.
var ErrUnsupported = errors.New("bluetooth not supported on this platform")

// Source produces BLE events until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, q *Queue) error
}

// Queue is a bounded FIFO that is safe for concurrent producers.
type Queue struct {
	events chan Event
	closed chan struct{}
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 32
	}
	return &Queue{
		events: make(chan Event, size),
		closed: make(chan struct{}),
	}
}

// Push blocks until the event is queued, the queue is closed or ctx is done.
func (q *Queue) Push(ctx context.Context, ev Event) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.events <- ev:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events. Queued events are dropped.
func (q *Queue) Close() {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Pump moves events from q onto loop, in order, and calls fn for each of them there.
// It returns when ctx is done, the queue is closed or the loop stops.
func Pump(ctx context.Context, q *Queue, loop *eventloop.Loop, fn func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closed:
			return
		case <-loop.Done():
			return
		case ev := <-q.events:
			nuts.L.Debugf("[Bluetooth] %s event from %s", ev.Kind, ev.Address)
			if !loop.Post(func() { fn(ev) }) {
				return
			}
		}
	}
}
