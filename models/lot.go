package models

import "math"

// Rect is an axis-aligned rectangle anchored at its top-left corner.
// The coordinate system has its origin at the top-left and y grows downward (screen space).
type Rect struct {
	X, Y, W, H float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Lot is the static world: its bounds, the target spot and the obstacles.
// Boundary walls are modeled as ordinary obstacles.
type Lot struct {
	Width     float64
	Height    float64
	Spot      Rect
	Obstacles []Rect
}

// DefaultLot is a single parallel-parking bay between two parked cars, walled on both sides.
func DefaultLot() Lot {
	return Lot{
		Width:  400,
		Height: 600,
		Spot:   Rect{X: 250, Y: 300, W: 60, H: 100},
		Obstacles: []Rect{
			{X: 250, Y: 100, W: 60, H: 100}, // car ahead
			{X: 250, Y: 500, W: 60, H: 100}, // car behind
			{X: 320, Y: 0, W: 80, H: 600},   // right wall
			{X: 0, Y: 0, W: 100, H: 600},    // left wall
		},
	}
}

// Clone returns a deep copy, so callers cannot mutate a lot owned by an environment.
func (lot Lot) Clone() Lot {
	obstacles := make([]Rect, len(lot.Obstacles))
	copy(obstacles, lot.Obstacles)
	lot.Obstacles = obstacles
	return lot
}

// Contains reports whether the point lies inside the closed lot bounds.
func (lot Lot) Contains(x, y float64) bool {
	return x >= 0 && x <= lot.Width && y >= 0 && y <= lot.Height
}

// Distance is the euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x1-x2, y1-y2)
}
