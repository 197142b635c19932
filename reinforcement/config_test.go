package reinforcement

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parking/parking_lot"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `kind: parking
def:
  algorithm:
    name: q-learning
  trainingDeadline:
    duration: 1m
  episodes: 25
  logEvery: 5
  seed: 99
  hyperParams:
    - key: learningRate
      val: 0.2
    - key: discount
      val: 0.9
  environment:
    horizon: 50
    maxspeed: 3
`

func TestFromYaml(t *testing.T) {
	Convey("When a config document is read", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte(testConfig), 0o644), ShouldBeNil)

		cfg, err := FromYaml(path)
		So(err, ShouldBeNil)

		Convey("Training parameters are taken from the def body", func() {
			So(cfg.Episodes, ShouldEqual, 25)
			So(cfg.LogEvery, ShouldEqual, 5)
			So(cfg.Seed, ShouldEqual, int64(99))
			So(cfg.Algorithm["name"], ShouldEqual, "q-learning")
		})

		Convey("Hyperparameters override only what they name", func() {
			params := HyperParamsFrom(cfg)
			So(params.LearningRate, ShouldEqual, 0.2)
			So(params.Discount, ShouldEqual, 0.9)
			So(params.EpsilonDecay, ShouldEqual, 0.995)
		})

		Convey("The environment block overlays the default constants", func() {
			env := cfg.EnvConfig()
			def := parking_lot.DefaultEnvConfig()
			So(env.Horizon, ShouldEqual, 50)
			So(env.MaxSpeed, ShouldEqual, 3.0)
			So(env.Friction, ShouldEqual, def.Friction)
			So(env.Lot, ShouldResemble, def.Lot)
		})

		Convey("The training deadline bounds the context", func() {
			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			deadline, ok := ctx.Deadline()
			So(ok, ShouldBeTrue)
			So(time.Until(deadline), ShouldBeLessThanOrEqualTo, time.Minute)
		})
	})

	Convey("When the config file is missing", t, func() {
		_, err := FromYaml(filepath.Join(t.TempDir(), "nope.yaml"))
		So(err, ShouldNotBeNil)
	})

	Convey("When no deadline is configured", t, func() {
		cfg := DefaultTrainingConfig()
		ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
		So(err, ShouldBeNil)
		defer cancel()
		_, ok := ctx.Deadline()
		So(ok, ShouldBeFalse)
	})

	Convey("When the deadline is malformed", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.TrainingDeadline = map[string]string{"duration": "soon"}
		_, _, err := cfg.WithTrainingDeadline(context.Background())
		So(err, ShouldNotBeNil)
	})
}
