package core

import "math"

// Vector3D is a position or velocity in the local simulation frame.
// In 2D mode the Z component is held constant.
type Vector3D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func (v Vector3D) Add(other Vector3D) Vector3D {
	return Vector3D{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vector3D) Subtract(other Vector3D) Vector3D {
	return Vector3D{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

func (v Vector3D) Scale(s float64) Vector3D {
	return Vector3D{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vector3D) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector, or the zero vector when v has no length.
func (v Vector3D) Normalize() Vector3D {
	mag := v.Magnitude()
	if mag == 0 {
		return Vector3D{}
	}
	return v.Scale(1.0 / mag)
}

func (v Vector3D) DistanceTo(other Vector3D) float64 {
	return v.Subtract(other).Magnitude()
}

// ClampMagnitude scales v down so its length does not exceed max.
func (v Vector3D) ClampMagnitude(max float64) Vector3D {
	mag := v.Magnitude()
	if mag > max && mag > 0 {
		return v.Scale(max / mag)
	}
	return v
}

// Lerp moves t of the way from v toward other.
func (v Vector3D) Lerp(other Vector3D, t float64) Vector3D {
	return v.Add(other.Subtract(v).Scale(t))
}

// Axis returns the component at index 0 (X), 1 (Y) or 2 (Z).
func (v Vector3D) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithAxis returns a copy of v with component i replaced.
func (v Vector3D) WithAxis(i int, value float64) Vector3D {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// AgentPosition is the externally visible position of a single agent.
type AgentPosition struct {
	ID       int      `json:"id"`
	Position Vector3D `json:"position"`
}

// AgentState is a telemetry snapshot for a single agent.
type AgentState struct {
	ID       int      `json:"id"`
	Position Vector3D `json:"position"`
	Velocity Vector3D `json:"velocity"`
	Armed    bool     `json:"armed"`
}
