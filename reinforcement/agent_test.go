package reinforcement

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"parking/models"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestAgent(params HyperParams) *Agent {
	return NewAgent(models.DefaultStateSpace(), models.NumActions, params, rand.New(rand.NewSource(7)))
}

func TestNewAgent(t *testing.T) {
	Convey("When an agent is constructed", t, func() {
		agent := newTestAgent(DefaultHyperParams())

		Convey("Its table is zeroed and sized to the product of the spaces", func() {
			So(agent.Table().Len(), ShouldEqual, 21*21*13*7)
			So(agent.Table().Shape(), ShouldResemble, []int{21, 21, 13, 7})
			for _, v := range agent.Table().Snapshot() {
				So(v, ShouldEqual, 0.0)
			}
			So(agent.Epsilon(), ShouldEqual, 1.0)
		})
	})
}

func TestGetAction(t *testing.T) {
	Convey("When selecting actions", t, func() {
		agent := newTestAgent(DefaultHyperParams())
		obs := models.Observation{DX: 3, DY: 7, DA: 0}

		Convey("Greedy ties resolve to the lowest action index", func() {
			a, err := agent.GetAction(obs, false)
			So(err, ShouldBeNil)
			So(a, ShouldEqual, models.NoOp)

			So(agent.Table().Set(obs, models.ForwardLeft, 2.5), ShouldBeNil)
			So(agent.Table().Set(obs, models.ReverseLeftTail, 2.5), ShouldBeNil)
			a, err = agent.GetAction(obs, false)
			So(err, ShouldBeNil)
			So(a, ShouldEqual, models.ForwardLeft)
		})

		Convey("Greedy selection ignores epsilon and is repeatable", func() {
			So(agent.Table().Set(obs, models.Reverse, 1), ShouldBeNil)
			for i := 0; i < 100; i++ {
				a, err := agent.GetAction(obs, false)
				So(err, ShouldBeNil)
				So(a, ShouldEqual, models.Reverse)
			}
		})

		Convey("Full exploration draws from the whole action space", func() {
			seen := map[models.Action]bool{}
			for i := 0; i < 500; i++ {
				a, err := agent.GetAction(obs, true)
				So(err, ShouldBeNil)
				So(a.Valid(), ShouldBeTrue)
				seen[a] = true
			}
			So(len(seen), ShouldEqual, models.NumActions)
		})

		Convey("An out of range observation is an error", func() {
			_, err := agent.GetAction(models.Observation{DX: 11}, false)
			So(errors.Is(err, models.ErrObservationRange), ShouldBeTrue)
			_, err = agent.GetAction(models.Observation{DA: -7}, true)
			So(errors.Is(err, models.ErrObservationRange), ShouldBeTrue)
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("When updating toward a fixed terminal reward", t, func() {
		params := DefaultHyperParams()
		agent := newTestAgent(params)
		obs := models.Observation{DX: 1, DY: 1, DA: 0}

		lastErr := math.Inf(1)
		for i := 0; i < 200; i++ {
			So(agent.Update(obs, models.Forward, 1000, obs, true), ShouldBeNil)
			v, err := agent.Table().Get(obs, models.Forward)
			So(err, ShouldBeNil)
			absErr := math.Abs(1000 - v)
			So(absErr, ShouldBeLessThan, lastErr)
			lastErr = absErr
		}
		So(lastErr, ShouldBeLessThan, 1.0)

		Convey("Only the updated entry changes", func() {
			v, err := agent.Table().Get(obs, models.Reverse)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0.0)
		})
	})

	Convey("When updating a non-terminal transition", t, func() {
		agent := newTestAgent(DefaultHyperParams())
		obs := models.Observation{DX: 0, DY: 0, DA: 0}
		next := models.Observation{DX: 1, DY: 0, DA: 0}
		So(agent.Table().Set(next, models.Reverse, 10), ShouldBeNil)
		So(agent.Table().Set(next, models.Forward, 4), ShouldBeNil)

		So(agent.Update(obs, models.ForwardRight, -1, next, false), ShouldBeNil)
		v, err := agent.Table().Get(obs, models.ForwardRight)
		So(err, ShouldBeNil)
		// 0 + 0.1 * ((-1 + 0.95*10) - 0)
		So(v, ShouldAlmostEqual, 0.85)
		So(agent.Epsilon(), ShouldEqual, 1.0)
	})

	Convey("When the action is outside the enumeration", t, func() {
		agent := newTestAgent(DefaultHyperParams())
		obs := models.Observation{}
		err := agent.Update(obs, models.Action(models.NumActions), 1, obs, true)
		So(errors.Is(err, models.ErrInvalidAction), ShouldBeTrue)
		So(agent.Epsilon(), ShouldEqual, 1.0)
	})
}

func TestEpsilonDecay(t *testing.T) {
	Convey("When episodes complete", t, func() {
		params := DefaultHyperParams()
		params.EpsilonDecay = 0.9
		params.EpsilonMin = 0.05
		agent := newTestAgent(params)
		obs := models.Observation{}

		Convey("Epsilon is unchanged by non-terminal steps", func() {
			for i := 0; i < 10; i++ {
				So(agent.Update(obs, models.NoOp, -1, obs, false), ShouldBeNil)
			}
			So(agent.Epsilon(), ShouldEqual, 1.0)
		})

		Convey("Epsilon decays once per episode, monotonically, down to the floor", func() {
			last := agent.Epsilon()
			for i := 0; i < 100; i++ {
				So(agent.Update(obs, models.NoOp, -1, obs, true), ShouldBeNil)
				So(agent.Epsilon(), ShouldBeLessThanOrEqualTo, last)
				So(agent.Epsilon(), ShouldBeGreaterThanOrEqualTo, params.EpsilonMin)
				last = agent.Epsilon()
			}
			So(agent.Epsilon(), ShouldEqual, params.EpsilonMin)
		})

		Convey("The first decay is a single multiplication", func() {
			So(agent.Update(obs, models.NoOp, -1, obs, true), ShouldBeNil)
			So(agent.Epsilon(), ShouldAlmostEqual, 0.9)
		})
	})
}

func TestHyperParamsFrom(t *testing.T) {
	Convey("Hyperparameters fall back to defaults", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.SetHyperParam("discount", 0.5)
		cfg.SetHyperParam("discount", 0.8)
		params := HyperParamsFrom(cfg)
		So(params.Discount, ShouldEqual, 0.8)
		So(params.LearningRate, ShouldEqual, 0.1)
		So(params.EpsilonMin, ShouldEqual, 0.01)
		So(len(cfg.HyperParams), ShouldEqual, 1)
	})
}
