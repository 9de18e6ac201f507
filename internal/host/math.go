package host

import "math"

// Vector3 is a point or direction in 3D space.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{v.X * f, v.Y * f, v.Z * f}
}

// Up is the unit Y axis.
var Up = Vector3{Y: 1}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// normalizeAngle wraps a rotation into (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
