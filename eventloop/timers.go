package eventloop

import (
	"time"

	"github.com/dop251/goja"
)

type timer struct {
	id       int64
	when     time.Time
	seq      uint64
	interval time.Duration
	repeat   bool
	fn       Task

	index     int
	cancelled bool
}

// timerHeap orders timers by deadline, then by scheduling sequence so that
// timers with equal deadlines fire in the order they were created.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

func (h timerHeap) peek() *timer {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// fire wraps the timer callback; a timer cleared after it became due but
// before it ran is skipped.
func (l *Loop) fire(t *timer) Task {
	return func(vm *goja.Runtime) error {
		if t.cancelled {
			return nil
		}
		if !t.repeat {
			delete(l.timerByID, t.id)
		}
		return t.fn(vm)
	}
}
