package core

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// FormationType names a geometric arrangement of drone slots.
type FormationType int

const (
	FormationVFormation FormationType = iota
	FormationCircle
	FormationLine
	FormationGrid
	FormationRandom
)

func (f FormationType) String() string {
	switch f {
	case FormationVFormation:
		return "v_formation"
	case FormationCircle:
		return "circle"
	case FormationLine:
		return "line"
	case FormationGrid:
		return "grid"
	case FormationRandom:
		return "random"
	default:
		return fmt.Sprintf("formation(%d)", int(f))
	}
}

// ParseFormation converts a configuration string to a FormationType.
func ParseFormation(s string) (FormationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v", "v_formation", "vformation":
		return FormationVFormation, nil
	case "circle":
		return FormationCircle, nil
	case "line":
		return FormationLine, nil
	case "grid":
		return FormationGrid, nil
	case "random":
		return FormationRandom, nil
	default:
		return FormationCircle, fmt.Errorf("unknown formation %q", s)
	}
}

// FormationParams holds the geometric constants of each pattern.
type FormationParams struct {
	VSpacing     float64
	CircleRadius float64
	LineSpacing  float64
	GridSpacing  float64
	RandomExtent float64
}

// DefaultFormationParams returns the standard slot geometry.
func DefaultFormationParams() FormationParams {
	return FormationParams{
		VSpacing:     8.0,
		CircleRadius: 15.0,
		LineSpacing:  10.0,
		GridSpacing:  10.0,
		RandomExtent: 100.0,
	}
}

// Validate rejects non-positive spacing, radius and extent.
func (p FormationParams) Validate() error {
	if p.VSpacing <= 0 {
		return fmt.Errorf("v-formation spacing must be positive, got %.2f", p.VSpacing)
	}
	if p.CircleRadius <= 0 {
		return fmt.Errorf("circle radius must be positive, got %.2f", p.CircleRadius)
	}
	if p.LineSpacing <= 0 {
		return fmt.Errorf("line spacing must be positive, got %.2f", p.LineSpacing)
	}
	if p.GridSpacing <= 0 {
		return fmt.Errorf("grid spacing must be positive, got %.2f", p.GridSpacing)
	}
	if p.RandomExtent <= 0 {
		return fmt.Errorf("random extent must be positive, got %.2f", p.RandomExtent)
	}
	return nil
}

var (
	cos30 = math.Cos(math.Pi / 6)
	sin30 = math.Sin(math.Pi / 6)
)

// Positions returns count target positions for pattern around center.
// Every pattern except Random is a pure function of its inputs. Random draws
// from rng, or from a clock-seeded source when rng is nil.
func Positions(pattern FormationType, count int, center Vector3D, params FormationParams, rng *rand.Rand) []Vector3D {
	if count <= 0 {
		return []Vector3D{}
	}
	if count == 1 {
		return []Vector3D{center}
	}

	out := make([]Vector3D, count)
	switch pattern {
	case FormationVFormation:
		for i := 0; i < count; i++ {
			side := 1.0
			if i%2 == 1 {
				side = -1.0
			}
			row := float64(i / 2)
			out[i] = Vector3D{
				X: center.X - row*params.VSpacing*cos30,
				Y: center.Y + side*row*params.VSpacing*sin30,
				Z: center.Z,
			}
		}

	case FormationCircle:
		for i := 0; i < count; i++ {
			angle := 2 * math.Pi * float64(i) / float64(count)
			out[i] = Vector3D{
				X: center.X + params.CircleRadius*math.Cos(angle),
				Y: center.Y + params.CircleRadius*math.Sin(angle),
				Z: center.Z,
			}
		}

	case FormationLine:
		startX := center.X - float64(count-1)*params.LineSpacing/2
		for i := 0; i < count; i++ {
			out[i] = Vector3D{X: startX + float64(i)*params.LineSpacing, Y: center.Y, Z: center.Z}
		}

	case FormationGrid:
		cols := int(math.Ceil(math.Sqrt(float64(count))))
		rows := (count + cols - 1) / cols
		offsetX := float64(cols-1) * params.GridSpacing / 2
		offsetY := float64(rows-1) * params.GridSpacing / 2
		for i := 0; i < count; i++ {
			row, col := i/cols, i%cols
			out[i] = Vector3D{
				X: center.X + float64(col)*params.GridSpacing - offsetX,
				Y: center.Y + float64(row)*params.GridSpacing - offsetY,
				Z: center.Z,
			}
		}

	case FormationRandom:
		rng = ensureRand(rng)
		for i := 0; i < count; i++ {
			out[i] = Vector3D{
				X: center.X + (rng.Float64()*2-1)*params.RandomExtent,
				Y: center.Y + (rng.Float64()*2-1)*params.RandomExtent,
				Z: center.Z,
			}
		}

	default:
		for i := range out {
			out[i] = center
		}
	}

	return out
}
