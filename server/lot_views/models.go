// lot_views contains the page views of the parking lot: the lot itself with the
// animated car, the status overlay, and the grid of learned state values.
package lot_views

import (
	"fmt"
	"math"

	"parking/models"
	"parking/server/session"
)

// Pose is the on-screen car: its center in lot pixels and its svg rotation in degrees.
type Pose struct {
	CX, CY float64
	Deg    float64
}

// Transform is the svg transform that places a car drawn around the origin.
func (p Pose) Transform() string {
	return fmt.Sprintf("translate(%.1f %.1f) rotate(%.1f)", p.CX, p.CY, p.Deg)
}

// Scene is the lot view-model: a frame plus the smoothed pose at which to draw the car.
type Scene struct {
	Car   Pose
	Frame session.Frame
}

// Smoother eases the drawn car toward the simulated one, so that the page animates
// smoothly even though physics moves in discrete ticks. Not safe for concurrent use.
type Smoother struct {
	factor        float64
	x, y, heading float64
	started       bool
}

// DEFAULT_SMOOTHING is the fraction of the remaining distance covered per frame.
const DEFAULT_SMOOTHING = 0.2

func NewSmoother(factor float64) *Smoother {
	if factor <= 0 || factor > 1 {
		factor = DEFAULT_SMOOTHING
	}
	return &Smoother{factor: factor}
}

// Scene advances the eased pose toward the frame's vehicle and returns the view-model.
func (sm *Smoother) Scene(f session.Frame) Scene {
	v := f.Vehicle
	if !sm.started {
		sm.x, sm.y, sm.heading = v.X, v.Y, v.Heading
		sm.started = true
	} else {
		sm.x += (v.X - sm.x) * sm.factor
		sm.y += (v.Y - sm.y) * sm.factor
		sm.heading += wrapAngle(v.Heading-sm.heading) * sm.factor
	}

	return Scene{
		Car: Pose{
			CX:  sm.x + v.Width/2,
			CY:  sm.y + v.Length/2,
			Deg: svgDegrees(sm.heading),
		},
		Frame: f,
	}
}

// wrapAngle maps a heading difference into [-pi, pi] so that easing takes the short way round.
func wrapAngle(d float64) float64 {
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// svgDegrees converts a heading to an svg rotation for a car drawn nose-up. Heading zero
// drives toward +y (down the page), and svg rotates clockwise.
func svgDegrees(heading float64) float64 {
	return -(heading*180/math.Pi + 180)
}

// Cell is one DX/DY bucket of the values grid, oriented for svg: X is the column, Y the row.
// Cell fields should be immediately usable as view parameters.
type Cell struct {
	X, Y int
	DX   int
	DY   int
	Max  float64
	Fill string
}

// ToCells converts greedy state values, indexed [ix][iy] over the DX and DY buckets,
// to cells shaded by their position between the smallest and largest value.
func ToCells(values [][]float64) (cells [][]Cell) {
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, col := range values {
		for _, v := range col {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}

	cells = make([][]Cell, len(values))
	for ix, col := range values {
		cells[ix] = make([]Cell, len(col))
		for iy, v := range col {
			cells[ix][iy] = Cell{
				X:    ix,
				Y:    iy,
				DX:   ix - len(values)/2,
				DY:   iy - len(col)/2,
				Max:  v,
				Fill: getRGBFill(v, minVal, maxVal),
			}
		}
	}
	return
}

// getRGBFill shades from blue at minVal to red at maxVal. A flat table is all blue.
func getRGBFill(val, minVal, maxVal float64) string {
	redPct := 0
	if span := maxVal - minVal; span > 0 && !math.IsInf(span, 0) {
		redPct = int(100.0 * (val - minVal) / span)
	}
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Page is the data the page template executes against.
type Page struct {
	Lot   models.Lot
	Scene Scene
	Cells [][]Cell
}
