package lot_views

import (
	"fmt"
	"html/template"

	"parking/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValuesGrid shows the greedy value of every DX/DY bucket for one heading bucket,
// shaded from blue (low) to red (high); hovering a cell shows its value.
type ValuesGrid struct {
	id      string
	cellDim int
	updates <-chan []fastview.EleUpdate
}

func NewValuesGrid(
	done <-chan struct{},
	cells <-chan [][]Cell,
) *ValuesGrid {
	vg := &ValuesGrid{
		id:      "values",
		cellDim: 16,
	}
	vg.updates = channerics.Convert(done, cells, vg.onUpdate)
	return vg
}

func (vg *ValuesGrid) Updates() <-chan []fastview.EleUpdate {
	return vg.updates
}

// Returns the set of view updates needed for the view to reflect the current values.
func (vg *ValuesGrid) onUpdate(cells [][]Cell) (ops []fastview.EleUpdate) {
	for _, col := range cells {
		for _, cell := range col {
			ops = append(ops,
				fastview.EleUpdate{
					EleId: fmt.Sprintf("%s-%d-%d", vg.id, cell.X, cell.Y),
					Ops:   []fastview.Op{{Key: "fill", Value: cell.Fill}},
				},
				fastview.EleUpdate{
					EleId: fmt.Sprintf("%s-%d-%d-title", vg.id, cell.X, cell.Y),
					Ops:   []fastview.Op{{Key: "textContent", Value: cellTitle(cell)}},
				})
		}
	}
	return
}

func cellTitle(cell Cell) string {
	return fmt.Sprintf("dx %d, dy %d: %.2f", cell.DX, cell.DY, cell.Max)
}

func (vg *ValuesGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = vg.id
	addedMap := template.FuncMap{
		"mult":      func(i, j int) int { return i * j },
		"cellTitle": cellTitle,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		{{ $dim := ` + fmt.Sprint(vg.cellDim) + ` }}
		{{ $cols := len .Cells }}
		<div style="font-family: Arial, sans-serif;">
			<p>State values, heading bucket 0 (columns dx, rows dy)</p>
			<svg id="` + vg.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ mult $dim $cols }}px"
				height="{{ if $cols }}{{ mult $dim (len (index .Cells 0)) }}{{ else }}0{{ end }}px"
				style="shape-rendering: crispEdges;">
				{{ range $col := .Cells }}
					{{ range $cell := $col }}
					<rect id="` + vg.id + `-{{ $cell.X }}-{{ $cell.Y }}"
						x="{{ mult $cell.X $dim }}"
						y="{{ mult $cell.Y $dim }}"
						width="{{ $dim }}"
						height="{{ $dim }}"
						fill="{{ $cell.Fill }}"
						stroke="black"
						stroke-width="0.5">
						<title id="` + vg.id + `-{{ $cell.X }}-{{ $cell.Y }}-title">{{ cellTitle $cell }}</title>
					</rect>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
