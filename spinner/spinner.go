// Package spinner is the per-frame visual collaborator: a mesh that spins
// around Y, bobs up and down and pulses its albedo red.
package spinner

import (
	"fmt"
	"math"

	"github.com/tx7do/flubber/internal/host"
)

const (
	// ClassName is the name the spinner is registered under.
	ClassName = "Spinner"
	// DefaultRotateSpeed is in radians per second.
	DefaultRotateSpeed = 1.15
	// Amplitude of the vertical bob.
	Amplitude = 0.5
)

// Spinner 每个物理帧旋转并上下浮动的网格
type Spinner struct {
	start host.Vector3
	clock float64

	RotateSpeed float64
}

var _ host.Instance = (*Spinner)(nil)

func New() *Spinner {
	return &Spinner{RotateSpeed: DefaultRotateSpeed}
}

// Clock returns the accumulated physics time in seconds.
func (s *Spinner) Clock() float64 {
	return s.clock
}

// Ready enables physics processing on the owner.
func (s *Spinner) Ready(owner host.Spatial) {
	owner.SetPhysicsProcess(true)
}

// PhysicsProcess advances the clock by delta and updates the owner.
func (s *Spinner) PhysicsProcess(owner host.Spatial, delta float64) {
	s.clock += delta
	owner.RotateY(s.RotateSpeed * delta)

	c := math.Cos(s.clock)
	owner.SetTranslation(s.start.Add(host.Up.Scale(c * Amplitude)))

	if mat := owner.SurfaceMaterial(0); mat != nil {
		mat.Albedo = host.Color{R: math.Abs(c), G: 0, B: 0, A: 1}
	}
}

// Register adds the spinner class and its properties to the host.
func Register(h *host.InitHandle) error {
	return h.AddClass(host.Class{
		Name: ClassName,
		Base: "MeshInstance",
		New:  func() host.Instance { return New() },
		Properties: []host.Property{
			{
				Path:   "base/rotate_speed",
				Getter: func(inst host.Instance) any { return inst.(*Spinner).RotateSpeed },
				Setter: func(inst host.Instance, v any) error {
					f, ok := toFloat(v)
					if !ok {
						return fmt.Errorf("rotate_speed must be a number, got %T", v)
					}
					inst.(*Spinner).RotateSpeed = f
					return nil
				},
			},
			{
				Path:       "test/test_enum",
				Hint:       host.HintEnum,
				HintValues: []string{"Hello", "World", "Testing"},
				Getter:     func(host.Instance) any { return "Hello" },
			},
			{
				Path:       "test/test_flags",
				Hint:       host.HintFlags,
				HintValues: []string{"A", "B", "C", "D"},
				Getter:     func(host.Instance) any { return 0 },
			},
		},
	})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
