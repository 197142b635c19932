package lot_views

import (
	"fmt"
	"html/template"

	"parking/parking_lot"
	"parking/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

const (
	carFill     = "#228b22"
	crashedFill = "#dc143c"
)

// LotView draws the lot, its obstacles and spot, and the car, whose transform is
// updated from every scene.
type LotView struct {
	id        string
	carWidth  float64
	carLength float64
	updates   <-chan []fastview.EleUpdate
}

func NewLotView(
	done <-chan struct{},
	scenes <-chan Scene,
	carWidth float64,
	carLength float64,
) *LotView {
	lv := &LotView{
		id:        "lot",
		carWidth:  carWidth,
		carLength: carLength,
	}
	lv.updates = channerics.Convert(done, scenes, lv.onUpdate)
	return lv
}

func (lv *LotView) Updates() <-chan []fastview.EleUpdate {
	return lv.updates
}

func (lv *LotView) onUpdate(scene Scene) []fastview.EleUpdate {
	fill := carFill
	switch scene.Frame.Outcome {
	case parking_lot.Crashed, parking_lot.OutOfBounds:
		fill = crashedFill
	}
	return []fastview.EleUpdate{
		{
			EleId: lv.id + "-car",
			Ops: []fastview.Op{
				{Key: "transform", Value: scene.Car.Transform()},
			},
		},
		{
			EleId: lv.id + "-car-body",
			Ops: []fastview.Op{
				{Key: "fill", Value: fill},
			},
		},
	}
}

// Parse defines the lot svg. The car is drawn nose-up around the origin, headlights
// at the nose and tail lights at the rear.
func (lv *LotView) Parse(
	t *template.Template,
) (name string, err error) {
	name = lv.id
	w, l := lv.carWidth, lv.carLength
	car := fmt.Sprintf(`
			<rect id="%[1]s-car-body" x="%[2]g" y="%[3]g" width="%[4]g" height="%[5]g" rx="6"
				fill="`+carFill+`" stroke="#005000" stroke-width="2"/>
			<rect x="%[6]g" y="%[7]g" width="%[8]g" height="%[9]g" rx="3" fill="#add8e6"/>
			<rect x="%[6]g" y="%[10]g" width="%[8]g" height="%[9]g" rx="3" fill="#add8e6"/>
			<circle cx="%[11]g" cy="%[12]g" r="4" fill="#ffffe0"/>
			<circle cx="%[13]g" cy="%[12]g" r="4" fill="#ffffe0"/>
			<circle cx="%[11]g" cy="%[14]g" r="4" fill="#dc143c"/>
			<circle cx="%[13]g" cy="%[14]g" r="4" fill="#dc143c"/>`,
		lv.id,
		-w/2, -l/2, w, l,
		-w*0.35, -l*0.3, w*0.7, l*0.15,
		l*0.15,
		-w*0.35, -l*0.45,
		w*0.35, l*0.45,
	)

	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<svg id="` + lv.id + `" xmlns='http://www.w3.org/2000/svg'
			width="{{ .Lot.Width }}px"
			height="{{ .Lot.Height }}px"
			style="background: #323232;">
			{{ range .Lot.Obstacles }}
			<rect x="{{ .X }}" y="{{ .Y }}" width="{{ .W }}" height="{{ .H }}" rx="5"
				fill="#505050" stroke="#1e1e1e" stroke-width="2"/>
			{{ end }}
			{{ with .Lot.Spot }}
			<rect id="` + lv.id + `-spot" x="{{ .X }}" y="{{ .Y }}" width="{{ .W }}" height="{{ .H }}"
				fill="#ffffc8" stroke="#ffd700" stroke-width="4"/>
			{{ end }}
			<g id="` + lv.id + `-car" transform="{{ .Scene.Car.Transform }}">` + car + `
			</g>
		</svg>
		{{ end }}`)
	return
}
