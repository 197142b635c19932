package models

import (
	"errors"
	"fmt"
	"strconv"
)

// Action is one of the seven discrete controls available to the driver.
// The set is closed; values outside [0, NumActions) are rejected at every API boundary.
type Action int

const (
	NoOp Action = iota
	Forward
	Reverse
	ForwardRight
	ForwardLeft
	ReverseRightTail
	ReverseLeftTail
)

// NumActions is the size of the action space.
const NumActions = 7

// ErrInvalidAction is returned when an action index is outside the closed enumeration.
var ErrInvalidAction error = errors.New("invalid action")

// Controls are the raw inputs an action decodes to, each in {-1, 0, +1}.
type Controls struct {
	Accel, Steer float64
}

// The decoding table is indexed by Action and must stay exhaustive over the enumeration.
var controls = [NumActions]Controls{
	NoOp:             {Accel: 0, Steer: 0},
	Forward:          {Accel: 1, Steer: 0},
	Reverse:          {Accel: -1, Steer: 0},
	ForwardRight:     {Accel: 1, Steer: 1},
	ForwardLeft:      {Accel: 1, Steer: -1},
	ReverseRightTail: {Accel: -1, Steer: 1},
	ReverseLeftTail:  {Accel: -1, Steer: -1},
}

var actionNames = [NumActions]string{
	"noop",
	"forward",
	"reverse",
	"forward-right",
	"forward-left",
	"reverse-right",
	"reverse-left",
}

// Valid reports whether the action belongs to the enumeration.
func (a Action) Valid() bool {
	return a >= 0 && a < NumActions
}

// Decode maps the action to its acceleration and steering inputs.
func (a Action) Decode() (Controls, error) {
	if !a.Valid() {
		return Controls{}, fmt.Errorf("decode %d: %w", int(a), ErrInvalidAction)
	}
	return controls[a], nil
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction accepts either an action name (see String) or its integer index.
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	if idx, err := strconv.Atoi(s); err == nil && Action(idx).Valid() {
		return Action(idx), nil
	}
	return NoOp, fmt.Errorf("parse %q: %w", s, ErrInvalidAction)
}

// Actions returns every action in index order.
func Actions() []Action {
	actions := make([]Action, NumActions)
	for i := range actions {
		actions[i] = Action(i)
	}
	return actions
}
