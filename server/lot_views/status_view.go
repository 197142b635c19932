package lot_views

import (
	"fmt"
	"html/template"

	"parking/server/fastview"
	"parking/server/session"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusView is the overlay: a menu panel with the controls and model status, a HUD
// with mode and reward while driving, and a banner once the car is parked.
type StatusView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatusView(
	done <-chan struct{},
	scenes <-chan Scene,
) *StatusView {
	sv := &StatusView{id: "status"}
	sv.updates = channerics.Convert(done, scenes, sv.onUpdate)
	return sv
}

func (sv *StatusView) Updates() <-chan []fastview.EleUpdate {
	return sv.updates
}

func display(visible bool) string {
	if visible {
		return "display: block;"
	}
	return "display: none;"
}

func modelStatus(loaded bool) string {
	if loaded {
		return "MODEL LOADED"
	}
	return "MODEL NOT FOUND"
}

func (sv *StatusView) text(suffix, value string) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: sv.id + "-" + suffix,
		Ops:   []fastview.Op{{Key: "textContent", Value: value}},
	}
}

func (sv *StatusView) style(suffix string, visible bool) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: sv.id + "-" + suffix,
		Ops:   []fastview.Op{{Key: "style", Value: display(visible)}},
	}
}

func (sv *StatusView) onUpdate(scene Scene) []fastview.EleUpdate {
	f := scene.Frame
	inMenu := f.Mode == session.Menu
	return []fastview.EleUpdate{
		sv.style("menu", inMenu),
		sv.style("hud", !inMenu),
		sv.style("success", f.Success),
		sv.text("mode", "MODE: "+f.Mode.String()),
		sv.text("reward", fmt.Sprintf("reward %.2f  total %.1f", f.Reward, f.TotalReward)),
		sv.text("steps", fmt.Sprintf("step %d  %s", f.Steps, f.Outcome)),
		sv.text("model", modelStatus(f.ModelLoaded)),
	}
}

func (sv *StatusView) Parse(
	t *template.Template,
) (name string, err error) {
	name = sv.id
	addedMap := template.FuncMap{
		"display": func(visible bool) template.CSS {
			return template.CSS(display(visible))
		},
		"modelStatus": modelStatus,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		{{ $f := .Scene.Frame }}
		<div id="` + sv.id + `" style="font-family: Arial, sans-serif; color: white; width: {{ .Lot.Width }}px;">
			<div id="` + sv.id + `-menu" style="{{ display (eq $f.Mode 0) }}">
				<h3 style="color: #ffd700;">PARKING SIMULATOR</h3>
				<p>Press 'M' for Manual</p>
				<p>Press 'A' for Auto (AI)</p>
				<p>Arrows drive, 'R' restarts, 'Esc' returns here</p>
				<p id="` + sv.id + `-model">{{ modelStatus $f.ModelLoaded }}</p>
			</div>
			<div id="` + sv.id + `-hud" style="{{ display (ne $f.Mode 0) }}">
				<span id="` + sv.id + `-mode">MODE: {{ $f.Mode }}</span>
				<span id="` + sv.id + `-reward"></span>
				<span id="` + sv.id + `-steps"></span>
			</div>
			<div id="` + sv.id + `-success" style="{{ display $f.Success }}">
				<h3>CAR PARKED SUCCESSFULLY!</h3>
				<p>Press 'R' to restart</p>
			</div>
		</div>
		{{ end }}`)
	return
}
