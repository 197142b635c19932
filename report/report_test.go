package report

import (
	"os"
	"path/filepath"
	"testing"

	"parking/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRewardCurve(t *testing.T) {
	Convey("When plotting a reward history", t, func() {
		stats := make([]models.EpisodeStats, 50)
		for i := range stats {
			stats[i] = models.EpisodeStats{Episode: i, TotalReward: float64(i*20 - 400)}
		}
		stats[49].TotalReward = 1050
		stats[49].Parked = true
		path := filepath.Join(t.TempDir(), "rewards.png")

		So(RewardCurve(stats, 10, path), ShouldBeNil)

		Convey("A non-empty png is written", func() {
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(len(data), ShouldBeGreaterThan, 8)
			So(string(data[1:4]), ShouldEqual, "PNG")
		})
	})

	Convey("When there are no episodes", t, func() {
		path := filepath.Join(t.TempDir(), "empty.png")
		So(RewardCurve(nil, 10, path), ShouldEqual, ErrNoEpisodes)
		_, err := os.Stat(path)
		So(os.IsNotExist(err), ShouldBeTrue)
	})
}
