package server

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

const recordQueueSize = 512

// recorder moves database and broker writes off the event loop. Jobs run one at
// a time in submission order so readings and commands keep their sequence.
type recorder struct {
	jobs    chan func(ctx context.Context)
	timeout time.Duration
}

func newRecorder(size int, timeout time.Duration) *recorder {
	return &recorder{
		jobs:    make(chan func(ctx context.Context), size),
		timeout: timeout,
	}
}

// submit queues job without blocking. A full queue drops the job.
func (r *recorder) submit(name string, job func(ctx context.Context)) {
	select {
	case r.jobs <- job:
	default:
		nuts.L.Warnf("[Recorder] Queue full, dropping %s", name)
	}
}

func (r *recorder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.jobs:
			jobCtx, cancel := context.WithTimeout(ctx, r.timeout)
			job(jobCtx)
			cancel()
		}
	}
}
