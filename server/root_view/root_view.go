package root_view

import (
	"context"
	"html/template"
	"time"

	"parking/server/fastview"
	"parking/server/lot_views"
	"parking/server/session"

	channerics "github.com/niceyeti/channerics/channels"
)

// Updates from all views are coalesced over this period before publication.
const batchRate = 20 * time.Millisecond

// RootView is the main page's index.html, which is the container for all the
// view components and the wiring for their channels.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the lot and status views over session frames, and the values grid
// over snapshots of the state values.
func NewRootView(
	ctx context.Context,
	frames <-chan session.Frame,
	values <-chan [][]float64,
	carWidth float64,
	carLength float64,
) (*RootView, error) {
	smoother := lot_views.NewSmoother(lot_views.DEFAULT_SMOOTHING)
	lotViews, lotUpdates, err := fastview.NewViewBuilder[session.Frame, lot_views.Scene]().
		WithContext(ctx).
		WithModel(frames, smoother.Scene).
		WithView(func(
			done <-chan struct{},
			scenes <-chan lot_views.Scene) fastview.ViewComponent {
			return lot_views.NewLotView(done, scenes, carWidth, carLength)
		}).
		WithView(func(
			done <-chan struct{},
			scenes <-chan lot_views.Scene) fastview.ViewComponent {
			return lot_views.NewStatusView(done, scenes)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	valueViews, valueUpdates, err := fastview.NewViewBuilder[[][]float64, [][]lot_views.Cell]().
		WithContext(ctx).
		WithModel(values, lot_views.ToCells).
		WithView(func(
			done <-chan struct{},
			cells <-chan [][]lot_views.Cell) fastview.ViewComponent {
			return lot_views.NewValuesGrid(done, cells)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views: append(lotViews, valueViews...),
		updates: fastview.Batchify(
			ctx.Done(),
			channerics.Merge(ctx.Done(), lotUpdates, valueUpdates),
			batchRate),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with the websocket bootstrap code and the
// key bindings, and returns its name.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		if tname, parseErr := vc.Parse(parent); parseErr != nil {
			err = parseErr
			return
		} else {
			viewTemplates = append(viewTemplates, tname)
		}
	}

	// The lot and its overlay stack in one column, the values grid beside them.
	var lotSpec, sideSpec string
	for i, tname := range viewTemplates {
		spec := `{{ template "` + tname + `" . }}`
		if i < 2 {
			lotSpec += spec
		} else {
			sideSpec += spec
		}
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>Parking simulator</title>
			<!--Client bootstrap: the server pushes element updates over the websocket, and
			key presses travel back over it as commands.-->
			<script>
				const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (!ele) {
							continue
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}

				function send(kind, value) {
					if (ws.readyState === WebSocket.OPEN) {
						ws.send(JSON.stringify({kind: kind, value: value}))
					}
				}

				// Held arrows map to action indices the way a driver's feet and hands would:
				// up drives toward the top of the lot.
				const held = {};
				function heldAction() {
					const up = held["ArrowUp"], down = held["ArrowDown"];
					const left = held["ArrowLeft"], right = held["ArrowRight"];
					if (up && right) return 5;
					if (up && left) return 6;
					if (down && right) return 3;
					if (down && left) return 4;
					if (up) return 2;
					if (down) return 1;
					return 0;
				}

				document.addEventListener("keydown", function (event) {
					if (event.key.startsWith("Arrow")) {
						event.preventDefault();
						if (!held[event.key]) {
							held[event.key] = true;
							send("action", String(heldAction()));
						}
						return;
					}
					switch (event.key.toLowerCase()) {
					case "m": send("mode", "manual"); break;
					case "a": send("mode", "auto"); break;
					case "r": send("reset", ""); break;
					case "escape": send("mode", "menu"); break;
					}
				});

				document.addEventListener("keyup", function (event) {
					if (event.key.startsWith("Arrow")) {
						delete held[event.key];
						send("action", String(heldAction()));
					}
				});
			</script>
		</head>
		<body style="background: #1e1e1e; display: flex; gap: 24px; padding: 16px;">
			<div>` + lotSpec + `</div>
			<div style="color: white;">` + sideSpec + `</div>
		</body></html>
	{{ end }}
	`

	_, err = parent.Parse(indexTemplate)
	return
}
