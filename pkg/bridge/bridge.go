package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/types"
)

const (
	// DefaultTimeout bounds a single job
	DefaultTimeout = 120 * time.Second
	// TimeoutMessage is appended when a job hits its deadline
	TimeoutMessage = "[timeout] recognition timed out"
)

// Options configures a Bridge
type Options struct {
	// Timeout is the per-job deadline, 0 disables it
	Timeout time.Duration
	// Placeholder is shown until the first chunk arrives
	Placeholder string
	// Buffer is the channel capacity between backend and poller
	Buffer int
}

// DefaultOptions returns a 120s deadline and the default placeholder
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, Placeholder: DefaultPlaceholder, Buffer: 16}
}

// Job describes the in-flight recognition
type Job struct {
	ID      uuid.UUID
	Backend string
	Started time.Time

	ch       <-chan types.Chunk
	cancel   context.CancelFunc
	chunks   int
	timedOut atomic.Bool
}

// Bridge holds at most one job and hands its chunks to the render loop.
// TrySubmit, Poll, Discard and Active must all be called from the loop's
// goroutine.
type Bridge struct {
	rt     *Runtime
	opts   Options
	logger *slog.Logger
	job    *Job
}

func New(rt *Runtime, opts Options, logger *slog.Logger) *Bridge {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{rt: rt, opts: opts, logger: logger}
}

// Active reports whether a job is in flight
func (b *Bridge) Active() bool { return b.job != nil }

// Job returns the in-flight job, or nil
func (b *Bridge) Job() *Job { return b.job }

// Placeholder returns the text shown while waiting for the first chunk
func (b *Bridge) Placeholder() string { return b.opts.Placeholder }

// TrySubmit starts backend on the runtime unless a job is already active.
// It never queues: a rejected request is dropped.
func (b *Bridge) TrySubmit(backend client.Backend, img client.Image, cfg types.BackendConfig) (*Job, bool) {
	if backend == nil {
		return nil, false
	}
	if b.job != nil {
		b.logger.Debug("submission rejected, job in flight", "job_id", b.job.ID, "backend", backend.Name())
		return nil, false
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if b.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(b.rt.Context(), b.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(b.rt.Context())
	}

	out := make(chan types.Chunk, b.opts.Buffer)
	job := &Job{
		ID:      uuid.New(),
		Backend: backend.Name(),
		Started: time.Now(),
		ch:      out,
		cancel:  cancel,
	}

	spawned := b.rt.Spawn(func(context.Context) {
		defer close(out)
		backend.Recognize(ctx, img, cfg, out)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			job.timedOut.Store(true)
		}
	})
	if !spawned {
		cancel()
		b.logger.Warn("runtime is shut down, submission dropped", "backend", backend.Name())
		return nil, false
	}

	b.job = job
	b.logger.Info("recognition job started", "job_id", job.ID, "backend", job.Backend, "bytes", len(img.Data))
	return job, true
}

// Poll drains every chunk that is ready without blocking and appends them
// to t in arrival order. It returns true when the job finished during this
// call.
func (b *Bridge) Poll(t *Transcript) bool {
	if b.job == nil {
		return false
	}
	job := b.job
	for {
		select {
		case c, ok := <-job.ch:
			if !ok {
				b.finish(t)
				return true
			}
			job.chunks++
			t.Append(c)
		default:
			return false
		}
	}
}

func (b *Bridge) finish(t *Transcript) {
	job := b.job
	b.job = nil
	job.cancel()

	if t.Pending() {
		t.Set("")
	}
	if job.timedOut.Load() {
		msg := TimeoutMessage
		if t.Text() != "" {
			msg = "\n" + msg
		}
		t.Append(types.Chunk{Text: msg, Err: context.DeadlineExceeded})
		b.logger.Warn("recognition job timed out", "job_id", job.ID, "backend", job.Backend, "timeout", b.opts.Timeout)
		return
	}
	b.logger.Info("recognition job finished",
		"job_id", job.ID,
		"backend", job.Backend,
		"chunks", job.chunks,
		"elapsed", time.Since(job.Started).Round(time.Millisecond))
}

// Discard cancels the in-flight job and drops its receiver so nothing it
// produces later reaches the transcript.
func (b *Bridge) Discard() {
	if b.job == nil {
		return
	}
	b.logger.Info("recognition job discarded", "job_id", b.job.ID, "backend", b.job.Backend)
	b.job.cancel()
	b.job = nil
}
