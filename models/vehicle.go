package models

// Vehicle is the kinematic state of the car.
// X and Y locate the reference (top-left) corner of the footprint. Heading is in radians,
// where 0 faces "down" the screen; Speed is signed, negative when reversing.
type Vehicle struct {
	X, Y    float64
	Speed   float64
	Heading float64
	Length  float64
	Width   float64
}

// Center returns the center of the footprint. The footprint is not rotated with the
// heading; this is the same simplification the collision check relies on.
func (v Vehicle) Center() (float64, float64) {
	return v.X + v.Width/2, v.Y + v.Length/2
}
