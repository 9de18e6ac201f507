// Package eventloop implements the pending task queue that drives a
// single-threaded script runtime: ready continuations, timers and
// completions of external operations running on worker goroutines.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/tx7do/flubber"
)

// ErrLoopClosed is returned by Drain after Close.
var ErrLoopClosed = errors.New("event loop closed")

// Task is a continuation run on the loop goroutine. A returned error aborts the drain.
type Task func(vm *goja.Runtime) error

// Work runs off the loop goroutine and must not touch the runtime. It
// returns the continuation that delivers its result on the loop.
type Work func(ctx context.Context) Task

// MinInterval is the shortest period accepted for repeating timers.
const MinInterval = time.Millisecond

// Loop is the pending task queue of one runtime. Everything except Go's
// worker side runs on the goroutine that owns the runtime.
type Loop struct {
	vm     *goja.Runtime
	logger *slog.Logger

	ready []Task

	timers    timerHeap
	timerByID map[int64]*timer
	nextID    int64
	seq       uint64

	outstanding int
	completions chan Task

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	now func() time.Time
}

// New creates a loop that runs continuations against vm.
func New(vm *goja.Runtime, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		vm:          vm,
		logger:      logger,
		timerByID:   make(map[int64]*timer),
		completions: make(chan Task),
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Enqueue appends a ready continuation. Continuations enqueued while a
// tick is running are considered on the next tick.
func (l *Loop) Enqueue(t Task) {
	l.ready = append(l.ready, t)
}

// SetTimer arms a timer and returns its id. Negative delays count as zero;
// repeating timers are clamped to MinInterval.
func (l *Loop) SetTimer(delay time.Duration, repeat bool, fn Task) int64 {
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < MinInterval {
		delay = MinInterval
	}
	l.nextID++
	l.seq++
	t := &timer{
		id:       l.nextID,
		when:     l.now().Add(delay),
		seq:      l.seq,
		interval: delay,
		repeat:   repeat,
		fn:       fn,
	}
	heap.Push(&l.timers, t)
	l.timerByID[t.id] = t
	return t.id
}

// ClearTimer cancels a timer. It reports whether the id was armed.
func (l *Loop) ClearTimer(id int64) bool {
	t, ok := l.timerByID[id]
	if !ok {
		return false
	}
	t.cancelled = true
	delete(l.timerByID, id)
	if t.index >= 0 {
		heap.Remove(&l.timers, t.index)
	}
	return true
}

// Go starts an external operation. The loop counts it as outstanding until
// the continuation returned by work has been received.
func (l *Loop) Go(work Work) {
	l.outstanding++
	go func() {
		task := work(l.ctx)
		if task == nil {
			task = func(*goja.Runtime) error { return nil }
		}
		select {
		case l.completions <- task:
		case <-l.ctx.Done():
		}
	}()
}

// Stats snapshots the pending work.
func (l *Loop) Stats() flubber.LoopStats {
	return flubber.LoopStats{
		Ready:       len(l.ready),
		Timers:      l.timers.Len(),
		Outstanding: l.outstanding,
	}
}

// Idle reports whether nothing is ready, armed or outstanding.
func (l *Loop) Idle() bool {
	return l.Stats().Idle()
}

// Drain runs the loop until it is idle. Each tick first collects
// completions and due timers, then runs the ready continuations present at
// the start of the tick in FIFO order. afterTask, when set, runs after each
// continuation; an error from it or from a continuation aborts the drain.
func (l *Loop) Drain(ctx context.Context, afterTask func() error) (flubber.DrainStats, error) {
	var stats flubber.DrainStats
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	for {
		if l.closed {
			return stats, ErrLoopClosed
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		l.poll()
		if len(l.ready) == 0 {
			if l.Idle() {
				return stats, nil
			}
			if err := l.wait(ctx); err != nil {
				return stats, err
			}
			continue
		}

		batch := l.ready
		l.ready = nil
		stats.Iterations++
		for _, task := range batch {
			stats.Continuations++
			if err := task(l.vm); err != nil {
				return stats, err
			}
			if afterTask != nil {
				if err := afterTask(); err != nil {
					return stats, err
				}
			}
		}
		l.logger.Debug("Event loop tick completed",
			"iteration", stats.Iterations,
			"ran", len(batch),
			"pending", l.Stats())
	}
}

// poll moves received completions and due timers to the ready queue without blocking.
func (l *Loop) poll() {
received:
	for {
		select {
		case task := <-l.completions:
			l.outstanding--
			l.ready = append(l.ready, task)
		default:
			break received
		}
	}

	now := l.now()
	for {
		t := l.timers.peek()
		if t == nil || t.when.After(now) {
			return
		}
		heap.Pop(&l.timers)
		if t.repeat {
			l.seq++
			t.when = now.Add(t.interval)
			t.seq = l.seq
			heap.Push(&l.timers, t)
		}
		l.ready = append(l.ready, l.fire(t))
	}
}

// wait blocks until a completion arrives, the next timer is due or ctx is done.
func (l *Loop) wait(ctx context.Context) error {
	var timerC <-chan time.Time
	if next := l.timers.peek(); next != nil {
		d := next.when.Sub(l.now())
		if d <= 0 {
			return nil
		}
		tm := time.NewTimer(d)
		defer tm.Stop()
		timerC = tm.C
	}

	select {
	case task := <-l.completions:
		l.outstanding--
		l.ready = append(l.ready, task)
	case <-timerC:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close cancels outstanding work and drops every pending continuation.
func (l *Loop) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.cancel()
	l.ready = nil
	l.timers = nil
	l.timerByID = make(map[int64]*timer)
	l.outstanding = 0
}
