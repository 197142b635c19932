package models

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStateSpaceIndex(t *testing.T) {
	Convey("When mapping observations to table indices", t, func() {
		space := DefaultStateSpace()

		Convey("The mapping is a bijection over the clamped ranges", func() {
			seen := make([]bool, space.Size())
			for dx := -MAX_DX_BUCKET; dx <= MAX_DX_BUCKET; dx++ {
				for dy := -MAX_DY_BUCKET; dy <= MAX_DY_BUCKET; dy++ {
					for da := -MAX_DA_BUCKET; da <= MAX_DA_BUCKET; da++ {
						obs := Observation{DX: dx, DY: dy, DA: da}
						idx, err := space.Index(obs)
						So(err, ShouldBeNil)
						So(seen[idx], ShouldBeFalse)
						seen[idx] = true

						back, err := space.Observation(idx)
						So(err, ShouldBeNil)
						So(back, ShouldResemble, obs)
					}
				}
			}
			for _, s := range seen {
				So(s, ShouldBeTrue)
			}
		})

		Convey("Out of range components are rejected", func() {
			for _, obs := range []Observation{{DX: 11}, {DY: -11}, {DA: 7}, {DA: -7}} {
				_, err := space.Index(obs)
				So(errors.Is(err, ErrObservationRange), ShouldBeTrue)
			}
			_, err := space.Observation(space.Size())
			So(errors.Is(err, ErrObservationRange), ShouldBeTrue)
		})
	})
}

func TestQuantize(t *testing.T) {
	Convey("When quantizing a pose", t, func() {
		spot := DefaultLot().Spot

		Convey("Offsets truncate toward zero", func() {
			obs := Quantize(Vehicle{X: 250 + 39, Y: 300 - 39, Heading: -0.39}, spot)
			So(obs, ShouldResemble, Observation{DX: -1, DY: 1, DA: -1})
		})

		Convey("Large offsets clamp", func() {
			obs := Quantize(Vehicle{X: -5000, Y: 9000, Heading: 100}, spot)
			So(obs, ShouldResemble, Observation{DX: 10, DY: -10, DA: 6})
		})
	})
}

func TestActions(t *testing.T) {
	Convey("The decoding table covers every action", t, func() {
		expected := map[Action]Controls{
			NoOp:             {0, 0},
			Forward:          {1, 0},
			Reverse:          {-1, 0},
			ForwardRight:     {1, 1},
			ForwardLeft:      {1, -1},
			ReverseRightTail: {-1, 1},
			ReverseLeftTail:  {-1, -1},
		}
		So(len(Actions()), ShouldEqual, NumActions)
		for _, a := range Actions() {
			ctl, err := a.Decode()
			So(err, ShouldBeNil)
			So(ctl, ShouldResemble, expected[a])
		}

		_, err := Action(NumActions).Decode()
		So(errors.Is(err, ErrInvalidAction), ShouldBeTrue)
	})

	Convey("Actions parse by name or index", t, func() {
		a, err := ParseAction("reverse-left")
		So(err, ShouldBeNil)
		So(a, ShouldEqual, ReverseLeftTail)

		a, err = ParseAction("3")
		So(err, ShouldBeNil)
		So(a, ShouldEqual, ForwardRight)

		_, err = ParseAction("7")
		So(errors.Is(err, ErrInvalidAction), ShouldBeTrue)
		_, err = ParseAction("sideways")
		So(errors.Is(err, ErrInvalidAction), ShouldBeTrue)
	})
}
