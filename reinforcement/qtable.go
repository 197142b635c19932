package reinforcement

import (
	"fmt"

	"parking/atomic_float"
	"parking/models"

	"gonum.org/v1/gonum/floats"
)

// QTable is a dense action-value table addressed by (DX, DY, DA, action).
// Cells are stored atomically so that viewers may snapshot the table while a single
// trainer updates it.
type QTable struct {
	space      models.StateSpace
	numActions int
	values     *atomic_float.Slice
}

// NewQTable allocates a zero-initialized table sized exactly to the state space times the action count.
func NewQTable(space models.StateSpace, numActions int) *QTable {
	if numActions < 1 || space.Size() < 1 {
		panic(fmt.Sprintf("degenerate q-table shape %+v x %d", space, numActions))
	}
	return &QTable{
		space:      space,
		numActions: numActions,
		values:     atomic_float.NewSlice(space.Size() * numActions),
	}
}

// Shape is (NX, NY, NA, actions).
func (q *QTable) Shape() []int {
	return append(q.space.Shape(), q.numActions)
}

func (q *QTable) Space() models.StateSpace {
	return q.space
}

func (q *QTable) NumActions() int {
	return q.numActions
}

// Len is the number of cells.
func (q *QTable) Len() int {
	return q.values.Len()
}

// rowIndex is the flat index of the first action of an observation's row.
func (q *QTable) rowIndex(obs models.Observation) (int, error) {
	stateIdx, err := q.space.Index(obs)
	if err != nil {
		return 0, err
	}
	return stateIdx * q.numActions, nil
}

// Index is the flat cell index of (obs, action); both are range checked.
func (q *QTable) Index(obs models.Observation, action models.Action) (int, error) {
	if action < 0 || int(action) >= q.numActions {
		return 0, fmt.Errorf("index action %d: %w", int(action), models.ErrInvalidAction)
	}
	row, err := q.rowIndex(obs)
	if err != nil {
		return 0, err
	}
	return row + int(action), nil
}

func (q *QTable) Get(obs models.Observation, action models.Action) (float64, error) {
	idx, err := q.Index(obs, action)
	if err != nil {
		return 0, err
	}
	return q.values.Load(idx), nil
}

func (q *QTable) Set(obs models.Observation, action models.Action, val float64) error {
	idx, err := q.Index(obs, action)
	if err != nil {
		return err
	}
	q.values.Store(idx, val)
	return nil
}

// Row returns a copy of the action values at obs, in action-index order.
func (q *QTable) Row(obs models.Observation) ([]float64, error) {
	start, err := q.rowIndex(obs)
	if err != nil {
		return nil, err
	}
	row := make([]float64, q.numActions)
	q.values.LoadRange(start, row)
	return row, nil
}

// Max is the greatest action value at obs.
func (q *QTable) Max(obs models.Observation) (float64, error) {
	row, err := q.Row(obs)
	if err != nil {
		return 0, err
	}
	return floats.Max(row), nil
}

// ArgMax is the greedy action at obs. Ties go to the lowest action index.
func (q *QTable) ArgMax(obs models.Observation) (models.Action, error) {
	row, err := q.Row(obs)
	if err != nil {
		return models.NoOp, err
	}
	return models.Action(floats.MaxIdx(row)), nil
}

// Snapshot copies every cell, in flat index order.
func (q *QTable) Snapshot() []float64 {
	return q.values.Snapshot()
}

// Restore overwrites the table from a flat copy of identical length.
func (q *QTable) Restore(vals []float64) error {
	if len(vals) != q.values.Len() {
		return fmt.Errorf("restore %d values into %d cells: %w", len(vals), q.values.Len(), ErrModelShape)
	}
	q.values.StoreAll(vals)
	return nil
}

// StateValues projects the table onto the DX/DY plane for a fixed heading bucket:
// values[ix][iy] is the greedy value of observation (ix-NX/2, iy-NY/2, da).
func (q *QTable) StateValues(da int) ([][]float64, error) {
	values := make([][]float64, q.space.NX)
	for ix := range values {
		values[ix] = make([]float64, q.space.NY)
		for iy := range values[ix] {
			obs := models.Observation{DX: ix - q.space.NX/2, DY: iy - q.space.NY/2, DA: da}
			best, err := q.Max(obs)
			if err != nil {
				return nil, err
			}
			values[ix][iy] = best
		}
	}
	return values, nil
}
