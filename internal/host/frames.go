package host

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPhysicsFPS is the fixed physics tick rate.
const DefaultPhysicsFPS = 60

// FrameLoop drives the physics ticks of a set of nodes.
type FrameLoop struct {
	Nodes []*Node
	// Frames is the number of physics ticks to run.
	Frames     int
	PhysicsFPS int
	// Realtime paces ticks with a ticker; otherwise they run back to back.
	Realtime bool
	// OnFrame runs after each node's tick.
	OnFrame func(frame int, n *Node)
	Logger  *slog.Logger
}

// Run calls Ready on every node, then PhysicsProcess on the nodes that
// enabled physics processing, once per frame.
func (l *FrameLoop) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fps := l.PhysicsFPS
	if fps <= 0 {
		fps = DefaultPhysicsFPS
	}
	step := time.Second / time.Duration(fps)
	delta := step.Seconds()

	for _, n := range l.Nodes {
		n.Instance.Ready(n.Owner)
	}

	var tick <-chan time.Time
	if l.Realtime {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		tick = ticker.C
	}

	for frame := 0; frame < l.Frames; frame++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		for _, n := range l.Nodes {
			if !n.Owner.IsPhysicsProcessing() {
				continue
			}
			n.Instance.PhysicsProcess(n.Owner, delta)
			if l.OnFrame != nil {
				l.OnFrame(frame, n)
			}
		}
	}

	logger.Debug("Frame loop finished", "frames", l.Frames, "nodes", len(l.Nodes), "delta", delta)
	return nil
}
