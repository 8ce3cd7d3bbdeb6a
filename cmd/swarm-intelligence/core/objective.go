package core

import "math"

// ObjectiveFunc scores a position. Lower is better.
type ObjectiveFunc func(p Vector3D) float64

// Sphere is the squared distance from the origin.
func Sphere(p Vector3D) float64 {
	return p.X*p.X + p.Y*p.Y + p.Z*p.Z
}

// Rastrigin returns the Rastrigin function over the X/Y plane with
// coordinates divided by scale before evaluation.
func Rastrigin(scale float64) ObjectiveFunc {
	if scale <= 0 {
		scale = 1
	}
	return func(p Vector3D) float64 {
		x := p.X / scale
		y := p.Y / scale
		return x*x + y*y - 10*math.Cos(2*math.Pi*x) - 10*math.Cos(2*math.Pi*y) + 20
	}
}
