package models

import (
	"errors"
	"fmt"
	"math"
)

// Observation is the quantized state the agent sees: the bucketed offset from the
// vehicle's reference corner to the spot's top-left corner, and the bucketed heading.
// Each component is clamped to a fixed range, which keeps the value table finite.
type Observation struct {
	DX, DY, DA int
}

// Quantization parameters. Position offsets are bucketed per POSITION_BUCKET units and
// heading per 1/HEADING_BUCKETS_PER_RAD radians, truncating toward zero.
const (
	POSITION_BUCKET         = 20.0
	HEADING_BUCKETS_PER_RAD = 5.0
	MAX_DX_BUCKET           = 10
	MAX_DY_BUCKET           = 10
	MAX_DA_BUCKET           = 6
)

// ErrObservationRange indicates an observation component outside its clamped range.
var ErrObservationRange error = errors.New("observation out of range")

// Quantize maps the continuous vehicle state relative to the spot onto an Observation.
// The mapping is deterministic and lossy; distinct poses may alias to the same observation.
func Quantize(v Vehicle, spot Rect) Observation {
	return Observation{
		DX: bucket((spot.X-v.X)/POSITION_BUCKET, MAX_DX_BUCKET),
		DY: bucket((spot.Y-v.Y)/POSITION_BUCKET, MAX_DY_BUCKET),
		DA: bucket(v.Heading*HEADING_BUCKETS_PER_RAD, MAX_DA_BUCKET),
	}
}

// bucket truncates toward zero and clamps to [-limit, limit]. Clamping happens before the
// integer conversion, since converting an out-of-range float to int is implementation defined.
func bucket(f float64, limit int) int {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Max(math.Min(math.Trunc(f), float64(limit)), -float64(limit))
	return int(f)
}

// StateSpace is the shape of the observation space: the number of buckets per component.
type StateSpace struct {
	NX, NY, NA int
}

// DefaultStateSpace is the shape implied by the clamping limits above: 21 x 21 x 13.
func DefaultStateSpace() StateSpace {
	return StateSpace{
		NX: 2*MAX_DX_BUCKET + 1,
		NY: 2*MAX_DY_BUCKET + 1,
		NA: 2*MAX_DA_BUCKET + 1,
	}
}

// Size is the number of distinct observations.
func (ss StateSpace) Size() int {
	return ss.NX * ss.NY * ss.NA
}

// Shape returns the dimensions as a slice, e.g. for persistence headers.
func (ss StateSpace) Shape() []int {
	return []int{ss.NX, ss.NY, ss.NA}
}

// Offsets of the signed ranges; each dimension is symmetric about zero.
func (ss StateSpace) offsets() (int, int, int) {
	return ss.NX / 2, ss.NY / 2, ss.NA / 2
}

// Index maps a signed observation onto a zero-based flat index in [0, Size()).
// The mapping is a bijection over the clamped ranges; anything outside is an error
// rather than a silent out-of-bounds access.
func (ss StateSpace) Index(obs Observation) (int, error) {
	ox, oy, oa := ss.offsets()
	ix, iy, ia := obs.DX+ox, obs.DY+oy, obs.DA+oa
	if ix < 0 || ix >= ss.NX || iy < 0 || iy >= ss.NY || ia < 0 || ia >= ss.NA {
		return 0, fmt.Errorf("index %+v in %+v: %w", obs, ss, ErrObservationRange)
	}
	return (ix*ss.NY+iy)*ss.NA + ia, nil
}

// Observation is the inverse of Index.
func (ss StateSpace) Observation(index int) (Observation, error) {
	if index < 0 || index >= ss.Size() {
		return Observation{}, fmt.Errorf("observation %d in %+v: %w", index, ss, ErrObservationRange)
	}
	ox, oy, oa := ss.offsets()
	ia := index % ss.NA
	iy := (index / ss.NA) % ss.NY
	ix := index / (ss.NA * ss.NY)
	return Observation{DX: ix - ox, DY: iy - oy, DA: ia - oa}, nil
}
