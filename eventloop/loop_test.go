package eventloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(order *[]int, n int) Task {
	return func(*goja.Runtime) error {
		*order = append(*order, n)
		return nil
	}
}

func TestDrainEmpty(t *testing.T) {
	l := New(goja.New(), nil)

	stats, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Iterations)
	assert.Equal(t, 0, stats.Continuations)

	// idempotent
	stats, err = l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Iterations)
}

func TestZeroDelayTimersRunInOrder(t *testing.T) {
	l := New(goja.New(), nil)
	var order []int
	for i := range 50 {
		l.SetTimer(0, false, record(&order, i))
	}

	_, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, order, 50)
	for i, n := range order {
		assert.Equal(t, i, n)
	}
	assert.True(t, l.Idle())
}

func TestEqualDeadlinesTieBreakBySequence(t *testing.T) {
	l := New(goja.New(), nil)
	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	var order []int
	l.SetTimer(0, false, record(&order, 1))
	l.SetTimer(0, false, record(&order, 2))
	l.SetTimer(0, false, record(&order, 3))

	_, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestContinuationsScheduledDuringTickRunNextTick(t *testing.T) {
	l := New(goja.New(), nil)
	var order []int
	l.Enqueue(func(*goja.Runtime) error {
		order = append(order, 1)
		l.Enqueue(record(&order, 3))
		return nil
	})
	l.Enqueue(record(&order, 2))

	stats, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 2, stats.Iterations)
	assert.Equal(t, 3, stats.Continuations)
}

func TestTimersFireByDeadline(t *testing.T) {
	l := New(goja.New(), nil)
	var order []int
	l.SetTimer(30*time.Millisecond, false, record(&order, 3))
	l.SetTimer(10*time.Millisecond, false, record(&order, 1))
	l.SetTimer(20*time.Millisecond, false, record(&order, 2))

	_, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestClearTimer(t *testing.T) {
	l := New(goja.New(), nil)
	var order []int
	id := l.SetTimer(5*time.Millisecond, false, record(&order, 1))
	l.SetTimer(10*time.Millisecond, false, record(&order, 2))

	assert.True(t, l.ClearTimer(id))
	assert.False(t, l.ClearTimer(id))

	_, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, order)
}

func TestClearDueTimerInSameTick(t *testing.T) {
	l := New(goja.New(), nil)
	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	var order []int
	var second int64
	l.SetTimer(0, false, func(*goja.Runtime) error {
		order = append(order, 1)
		l.ClearTimer(second)
		return nil
	})
	second = l.SetTimer(0, false, record(&order, 2))

	_, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, order)
}

func TestInterval(t *testing.T) {
	l := New(goja.New(), nil)
	count := 0
	var id int64
	id = l.SetTimer(time.Millisecond, true, func(*goja.Runtime) error {
		count++
		if count == 3 {
			l.ClearTimer(id)
		}
		return nil
	})

	_, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestExternalWorkKeepsLoopAlive(t *testing.T) {
	l := New(goja.New(), nil)
	release := make(chan struct{})
	var got string

	l.Go(func(ctx context.Context) Task {
		<-release
		return func(*goja.Runtime) error {
			got = "done"
			return nil
		}
	})
	assert.Equal(t, 1, l.Stats().Outstanding)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	stats, err := l.Drain(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 1, stats.Continuations)
	assert.Equal(t, 0, l.Stats().Outstanding)
}

func TestContinuationErrorAbortsDrain(t *testing.T) {
	l := New(goja.New(), nil)
	boom := errors.New("boom")
	var order []int
	l.Enqueue(func(*goja.Runtime) error { return boom })
	l.Enqueue(record(&order, 1))

	_, err := l.Drain(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, order)
}

func TestAfterTaskErrorAbortsDrain(t *testing.T) {
	l := New(goja.New(), nil)
	boom := errors.New("unhandled")
	l.Enqueue(func(*goja.Runtime) error { return nil })

	_, err := l.Drain(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDrainHonoursContext(t *testing.T) {
	l := New(goja.New(), nil)
	defer l.Close()
	l.SetTimer(time.Hour, false, func(*goja.Runtime) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Drain(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	l := New(goja.New(), nil)
	l.Go(func(ctx context.Context) Task {
		<-ctx.Done()
		return nil
	})
	l.SetTimer(time.Hour, false, func(*goja.Runtime) error { return nil })
	l.Close()

	assert.True(t, l.Idle())
	_, err := l.Drain(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLoopClosed)
}
