package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parking/models"
	"parking/parking_lot"
	"parking/reinforcement"
	"parking/server/session"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

func startTestServer(ctx context.Context) (*Server, *httptest.Server) {
	cfg := parking_lot.DefaultEnvConfig()
	env := parking_lot.NewEnvironment(cfg)
	agent := reinforcement.NewAgentFor(env, reinforcement.DefaultHyperParams(), 1)
	sess := session.NewSession(env, agent, false, 20*time.Millisecond)
	go func() {
		_ = sess.Run(ctx)
	}()

	server, err := NewServer(ctx, "", sess, agent.Table(), *cfg)
	So(err, ShouldBeNil)
	return server, httptest.NewServer(server)
}

func doRequest(srv *httptest.Server, method, path string) (*http.Response, FrameView) {
	req, err := http.NewRequest(method, srv.URL+path, nil)
	So(err, ShouldBeNil)
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	frame := FrameView{}
	if resp.StatusCode == http.StatusOK {
		So(json.NewDecoder(resp.Body).Decode(&frame), ShouldBeNil)
	}
	return resp, frame
}

func TestAPI(t *testing.T) {
	Convey("Given a running server", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, srv := startTestServer(ctx)
		defer srv.Close()

		Convey("The state starts in the menu at the start pose", func() {
			resp, frame := doRequest(srv, http.MethodGet, "/api/state")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldEqual, "application/json")
			So(frame.Mode, ShouldEqual, "menu")
			So(frame.X, ShouldEqual, 180.0)
			So(frame.Y, ShouldEqual, 150.0)
			So(frame.ModelLoaded, ShouldBeFalse)
			So(frame.Outcome, ShouldEqual, "running")
		})

		Convey("Modes and actions are set by name", func() {
			resp, frame := doRequest(srv, http.MethodPost, "/api/mode/manual")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(frame.Mode, ShouldEqual, "manual")

			resp, frame = doRequest(srv, http.MethodPost, "/api/action/forward")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(frame.Action, ShouldEqual, "forward")

			resp, frame = doRequest(srv, http.MethodPost, "/api/action/2")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(frame.Action, ShouldEqual, models.Reverse.String())

			resp, frame = doRequest(srv, http.MethodPost, "/api/reset")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(frame.Steps, ShouldEqual, 0)
			So(frame.Mode, ShouldEqual, "manual")
		})

		Convey("Invalid requests are rejected", func() {
			resp, _ := doRequest(srv, http.MethodPost, "/api/mode/race")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp, _ = doRequest(srv, http.MethodPost, "/api/action/9")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp, _ = doRequest(srv, http.MethodGet, "/api/reset")
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			resp, _ = doRequest(srv, http.MethodGet, "/nowhere")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("The index page renders the lot", func() {
			resp, err := http.Get(srv.URL + "/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			body := new(bytes.Buffer)
			_, err = body.ReadFrom(resp.Body)
			So(err, ShouldBeNil)
			So(body.String(), ShouldContainSubstring, "new WebSocket(")
			So(body.String(), ShouldContainSubstring, `id="lot-car"`)
			So(body.String(), ShouldContainSubstring, `id="values-20-20"`)
		})
	})
}

func TestWebsocket(t *testing.T) {
	Convey("Given a page connected over the websocket", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, srv := startTestServer(ctx)
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("Key presses drive the session and updates flow back", func() {
			So(conn.WriteJSON(map[string]string{"kind": "mode", "value": "manual"}), ShouldBeNil)
			So(conn.WriteJSON(map[string]string{"kind": "action", "value": "1"}), ShouldBeNil)

			var frame FrameView
			deadline := time.Now().Add(5 * time.Second)
			for frame.Mode != "manual" || frame.Action != "forward" {
				So(time.Now().Before(deadline), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				_, frame = doRequest(srv, http.MethodGet, "/api/state")
			}

			So(conn.SetReadDeadline(time.Now().Add(5*time.Second)), ShouldBeNil)
			var batch []map[string]interface{}
			So(conn.ReadJSON(&batch), ShouldBeNil)
			So(len(batch), ShouldBeGreaterThan, 0)
		})
	})
}

func TestOnMessage(t *testing.T) {
	Convey("Malformed page messages are dropped", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		server, srv := startTestServer(ctx)
		defer srv.Close()

		So(server.onMessage(ctx, []byte("not json")), ShouldBeNil)
		So(server.onMessage(ctx, []byte(`{"kind":"warp"}`)), ShouldBeNil)
		So(server.onMessage(ctx, []byte(`{"kind":"action","value":"sideways"}`)), ShouldBeNil)
		So(server.onMessage(ctx, []byte(`{"kind":"reset"}`)), ShouldBeNil)
	})
}
