// report renders training curves to image files.
package report

import (
	"errors"
	"fmt"
	"image/color"

	"parking/models"
	"parking/reinforcement"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoEpisodes is returned when there is nothing to plot.
var ErrNoEpisodes error = errors.New("no episodes to plot")

// RewardCurve plots the total reward of every episode together with its trailing
// mean over window episodes, and saves the chart to path. The image format follows
// path's extension (png, svg, pdf...).
func RewardCurve(stats []models.EpisodeStats, window int, path string) (err error) {
	if len(stats) == 0 {
		return ErrNoEpisodes
	}
	if window < 1 {
		window = 1
	}

	p := plot.New()
	p.Title.Text = "Training reward"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Total reward"

	raw := make(plotter.XYs, len(stats))
	for i, s := range stats {
		raw[i] = plotter.XY{
			X: float64(s.Episode),
			Y: s.TotalReward,
		}
	}
	means := reinforcement.MovingMean(stats, window)
	smooth := make(plotter.XYs, len(stats))
	for i, m := range means {
		smooth[i] = plotter.XY{
			X: float64(stats[i].Episode),
			Y: m,
		}
	}

	var rawLine, meanLine *plotter.Line
	if rawLine, err = plotter.NewLine(raw); err != nil {
		return fmt.Errorf("reward line: %w", err)
	}
	rawLine.Color = color.RGBA{R: 180, G: 180, B: 180, A: 255}
	if meanLine, err = plotter.NewLine(smooth); err != nil {
		return fmt.Errorf("mean line: %w", err)
	}
	meanLine.Color = plotutil.Color(0)
	meanLine.Width = vg.Points(2)

	p.Add(plotter.NewGrid(), rawLine, meanLine)
	p.Legend.Add("reward", rawLine)
	p.Legend.Add(fmt.Sprintf("mean (last %d)", window), meanLine)
	p.Legend.Top = true

	if err = p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
