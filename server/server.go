package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"parking/models"
	"parking/parking_lot"
	"parking/reinforcement"
	"parking/server/fastview"
	"parking/server/lot_views"
	"parking/server/root_view"
	"parking/server/session"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// How often the values grid is refreshed from the table.
	valuesRefresh = time.Second
	// The heading bucket the values grid projects onto.
	valuesHeading = 0
	// Time allowed for in-flight requests on shutdown.
	shutdownGrace = 5 * time.Second
)

// Server serves the simulator page, its websocket feed, and a small JSON API for
// driving the session. The ele-update feed is a single channel, so only one page at
// a time receives updates; a reconnecting page takes over the feed.
type Server struct {
	addr     string
	ctx      context.Context
	session  *session.Session
	table    *reinforcement.QTable
	lot      models.Lot
	rootView *root_view.RootView
	router   *mux.Router
}

// NewServer initializes all of the views and routes. The table may be nil when no
// agent is available, in which case the values grid stays flat.
func NewServer(
	ctx context.Context,
	addr string,
	sess *session.Session,
	table *reinforcement.QTable,
	envCfg parking_lot.EnvConfig,
) (*Server, error) {
	server := &Server{
		addr:    addr,
		ctx:     ctx,
		session: sess,
		table:   table,
		lot:     envCfg.Lot.Clone(),
		router:  mux.NewRouter(),
	}

	rootView, err := root_view.NewRootView(
		ctx,
		sess.Updates(),
		server.valueUpdates(ctx.Done()),
		envCfg.CarWidth,
		envCfg.CarLength)
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}
	server.rootView = rootView

	server.setupRoutes()
	return server, nil
}

func (server *Server) setupRoutes() {
	server.router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket)

	api := server.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", server.handleState).Methods(http.MethodGet)
	api.HandleFunc("/mode/{mode}", server.handleMode).Methods(http.MethodPost)
	api.HandleFunc("/action/{action}", server.handleAction).Methods(http.MethodPost)
	api.HandleFunc("/reset", server.handleReset).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler
func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server.router.ServeHTTP(w, r)
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) (err error) {
	srv := &http.Server{
		Addr:    server.addr,
		Handler: server,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("serving on %s", server.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err = group.Wait(); err != nil {
		err = fmt.Errorf("serve: %w", err)
	}
	return
}

// valueUpdates periodically projects the table for the values grid.
func (server *Server) valueUpdates(done <-chan struct{}) <-chan [][]float64 {
	output := make(chan [][]float64)
	go func() {
		defer close(output)
		ticker := channerics.NewTicker(done, valuesRefresh)
		for {
			select {
			case output <- server.stateValues():
			case <-done:
				return
			}
			select {
			case <-ticker:
			case <-done:
				return
			}
		}
	}()
	return output
}

func (server *Server) stateValues() [][]float64 {
	space := models.DefaultStateSpace()
	if server.table != nil {
		values, err := server.table.StateValues(valuesHeading)
		if err == nil {
			return values
		}
		log.Printf("state values: %v", err)
		space = server.table.Space()
	}
	values := make([][]float64, space.NX)
	for i := range values {
		values[i] = make([]float64, space.NY)
	}
	return values
}

// serveWebsocket publishes view updates to the page and relays its key presses to
// the session, until either side goes away.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient[[]fastview.EleUpdate](server.rootView.Updates(), server.onMessage, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}

	if err = cli.Sync(server.ctx); err != nil {
		log.Printf("websocket closed: %v", err)
	}
}

// clientMessage is a command sent by the page, e.g. {"kind":"action","value":"2"}.
type clientMessage struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// onMessage applies a page command to the session. Malformed commands are logged and
// dropped rather than closing the page.
func (server *Server) onMessage(ctx context.Context, data []byte) error {
	msg := clientMessage{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("bad client message %q: %v", data, err)
		return nil
	}

	var err error
	switch msg.Kind {
	case "mode":
		var mode session.Mode
		if mode, err = session.ParseMode(msg.Value); err == nil {
			_, err = server.session.SetMode(ctx, mode)
		}
	case "action":
		var action models.Action
		if action, err = models.ParseAction(msg.Value); err == nil {
			_, err = server.session.SetAction(ctx, action)
		}
	case "reset":
		_, err = server.session.Reset(ctx)
	default:
		err = fmt.Errorf("unknown command %q", msg.Kind)
	}

	if errors.Is(err, session.ErrStopped) {
		return err
	}
	if err != nil {
		log.Printf("client message %q: %v", data, err)
	}
	return nil
}

// Serve the index.html main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	frame, err := server.session.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	data := lot_views.Page{
		Lot:   server.lot,
		Scene: lot_views.NewSmoother(1).Scene(frame),
		Cells: lot_views.ToCells(server.stateValues()),
	}

	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, server.rootView, data); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}

// FrameView is the JSON form of a session frame.
type FrameView struct {
	Mode        string  `json:"mode"`
	Action      string  `json:"action"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Speed       float64 `json:"speed"`
	Heading     float64 `json:"heading"`
	Reward      float64 `json:"reward"`
	TotalReward float64 `json:"totalReward"`
	Success     bool    `json:"success"`
	Outcome     string  `json:"outcome"`
	Steps       int     `json:"steps"`
	ModelLoaded bool    `json:"modelLoaded"`
}

func toFrameView(f session.Frame) FrameView {
	return FrameView{
		Mode:        f.Mode.String(),
		Action:      f.Action.String(),
		X:           f.Vehicle.X,
		Y:           f.Vehicle.Y,
		Speed:       f.Vehicle.Speed,
		Heading:     f.Vehicle.Heading,
		Reward:      f.Reward,
		TotalReward: f.TotalReward,
		Success:     f.Success,
		Outcome:     f.Outcome.String(),
		Steps:       f.Steps,
		ModelLoaded: f.ModelLoaded,
	}
}

func (server *Server) handleState(w http.ResponseWriter, r *http.Request) {
	frame, err := server.session.State(r.Context())
	server.respondFrame(w, frame, err)
}

func (server *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := session.ParseMode(mux.Vars(r)["mode"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	frame, err := server.session.SetMode(r.Context(), mode)
	server.respondFrame(w, frame, err)
}

func (server *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action, err := models.ParseAction(mux.Vars(r)["action"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	frame, err := server.session.SetAction(r.Context(), action)
	server.respondFrame(w, frame, err)
}

func (server *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	frame, err := server.session.Reset(r.Context())
	server.respondFrame(w, frame, err)
}

func (server *Server) respondFrame(w http.ResponseWriter, frame session.Frame, err error) {
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toFrameView(frame))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
