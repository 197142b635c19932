// session drives one interactive simulation: a single goroutine owns the environment,
// steps it on a ticker according to the current mode, and publishes frames for views.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parking/models"
	"parking/parking_lot"
	"parking/reinforcement"

	channerics "github.com/niceyeti/channerics/channels"
)

// Mode selects who drives the car.
type Mode int

const (
	// Menu idles: physics is not stepped.
	Menu Mode = iota
	// Manual steps the most recently requested action every tick, like a held key.
	Manual
	// Auto steps the agent's greedy action every tick.
	Auto
)

var modeNames = [...]string{"menu", "manual", "auto"}

func (m Mode) String() string {
	if m < Menu || m > Auto {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ErrInvalidMode is returned for unknown mode names.
var ErrInvalidMode error = errors.New("invalid mode")

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return Menu, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Frame is an immutable snapshot of the session after a tick or command.
type Frame struct {
	Vehicle     models.Vehicle
	Mode        Mode
	Action      models.Action // the action Manual holds
	Reward      float64
	TotalReward float64
	Success     bool
	Outcome     parking_lot.Outcome
	Steps       int
	ModelLoaded bool
}

const (
	DEFAULT_TICK = time.Second / 30
	// DEFAULT_FAILURE_HOLD is how long Auto shows a failed final pose before resetting.
	DEFAULT_FAILURE_HOLD = 500 * time.Millisecond
)

type commandKind int

const (
	setMode commandKind = iota
	setAction
	reset
	snapshot
)

type command struct {
	kind   commandKind
	mode   Mode
	action models.Action
	reply  chan Frame
}

// ErrStopped is returned by commands sent after Run has returned.
var ErrStopped error = errors.New("session stopped")

// Session serializes all access to its environment through the Run goroutine.
// Fields below commands are owned by that goroutine.
type Session struct {
	env         *parking_lot.Environment
	agent       *reinforcement.Agent
	modelLoaded bool
	tick        time.Duration
	holdTicks   int

	commands chan command
	updates  chan Frame
	stopped  chan struct{}

	mode        Mode
	held        models.Action
	success     bool
	hold        int
	lastReward  float64
	totalReward float64
}

// NewSession wraps env. The agent may be nil, in which case Auto idles like a car
// without a driver; modelLoaded tells views whether the agent carries a trained table.
func NewSession(
	env *parking_lot.Environment,
	agent *reinforcement.Agent,
	modelLoaded bool,
	tick time.Duration,
) *Session {
	if tick <= 0 {
		tick = DEFAULT_TICK
	}
	holdTicks := int((DEFAULT_FAILURE_HOLD + tick - 1) / tick)
	env.Reset()
	return &Session{
		env:         env,
		agent:       agent,
		modelLoaded: modelLoaded && agent != nil,
		tick:        tick,
		holdTicks:   holdTicks,
		commands:    make(chan command),
		updates:     make(chan Frame, 1),
		stopped:     make(chan struct{}),
		mode:        Menu,
		held:        models.NoOp,
	}
}

// Updates delivers frames. Only the latest unread frame is kept, so a slow reader
// never stalls the simulation.
func (s *Session) Updates() <-chan Frame {
	return s.updates
}

// Run steps the simulation every tick and serves commands until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	ticker := channerics.NewTicker(ctx.Done(), s.tick)

	s.publish(s.frame())
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.commands:
			f := s.handle(cmd)
			s.publish(f)
			cmd.reply <- f
		case <-ticker:
			if err := s.step(); err != nil {
				return fmt.Errorf("session tick: %w", err)
			}
			s.publish(s.frame())
		}
	}
}

// SetMode switches modes. Entering Manual or Auto restarts the episode; Menu only
// clears the success banner.
func (s *Session) SetMode(ctx context.Context, mode Mode) (Frame, error) {
	if mode < Menu || mode > Auto {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
	return s.send(ctx, command{kind: setMode, mode: mode})
}

// SetAction sets the action Manual mode holds until the next request.
func (s *Session) SetAction(ctx context.Context, action models.Action) (Frame, error) {
	if !action.Valid() {
		return Frame{}, fmt.Errorf("set action %d: %w", int(action), models.ErrInvalidAction)
	}
	return s.send(ctx, command{kind: setAction, action: action})
}

// Reset restarts the episode in the current mode.
func (s *Session) Reset(ctx context.Context) (Frame, error) {
	return s.send(ctx, command{kind: reset})
}

// State returns the current frame.
func (s *Session) State(ctx context.Context) (Frame, error) {
	return s.send(ctx, command{kind: snapshot})
}

func (s *Session) send(ctx context.Context, cmd command) (Frame, error) {
	cmd.reply = make(chan Frame, 1)
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-s.stopped:
		return Frame{}, ErrStopped
	}
	select {
	case f := <-cmd.reply:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (s *Session) handle(cmd command) Frame {
	switch cmd.kind {
	case setMode:
		if cmd.mode != Menu {
			s.restart()
		}
		s.mode = cmd.mode
		s.success = false
		s.held = models.NoOp
		log.Printf("session mode: %s", s.mode)
	case setAction:
		s.held = cmd.action
	case reset:
		s.restart()
	}
	return s.frame()
}

func (s *Session) restart() {
	s.env.Reset()
	s.success = false
	s.hold = 0
	s.lastReward = 0
	s.totalReward = 0
}

// step advances one tick per the current mode. Success freezes physics until a reset
// or mode change. A failed episode resets, after a short hold in Auto.
func (s *Session) step() (err error) {
	if s.success || s.mode == Menu {
		return nil
	}
	if s.hold > 0 {
		if s.hold--; s.hold == 0 {
			s.restart()
		}
		return nil
	}

	action := models.NoOp
	switch s.mode {
	case Manual:
		action = s.held
	case Auto:
		if s.modelLoaded {
			if action, err = s.agent.GetAction(s.env.GetState(), false); err != nil {
				return err
			}
		}
	}

	var reward float64
	var done bool
	if _, reward, done, err = s.env.Step(action); err != nil {
		return err
	}
	s.lastReward = reward
	s.totalReward += reward

	if !done {
		return nil
	}
	if models.IsSuccess(reward) {
		s.success = true
		log.Printf("parked after %d steps, total reward %.1f", s.env.Steps(), s.totalReward)
		return nil
	}
	log.Printf("episode ended: %s after %d steps", s.env.LastOutcome(), s.env.Steps())
	if s.mode == Auto && s.holdTicks > 0 {
		s.hold = s.holdTicks
		return nil
	}
	s.restart()
	return nil
}

func (s *Session) frame() Frame {
	return Frame{
		Vehicle:     s.env.Vehicle(),
		Mode:        s.mode,
		Action:      s.held,
		Reward:      s.lastReward,
		TotalReward: s.totalReward,
		Success:     s.success,
		Outcome:     s.env.LastOutcome(),
		Steps:       s.env.Steps(),
		ModelLoaded: s.modelLoaded,
	}
}

// publish replaces any unread frame with f. Only Run sends on updates.
func (s *Session) publish(f Frame) {
	select {
	case s.updates <- f:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- f:
	default:
	}
}
