package fastview

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

// counterView renders each int view-model as the text of one element.
type counterView struct {
	id      string
	updates <-chan []EleUpdate
}

func newCounterView(id string) ViewBuilderFunc[int] {
	return func(done <-chan struct{}, models <-chan int) ViewComponent {
		cv := &counterView{id: id}
		cv.updates = channerics.Convert(done, models, func(n int) []EleUpdate {
			return []EleUpdate{{EleId: cv.id, Ops: []Op{{Key: "textContent", Value: fmt.Sprint(n)}}}}
		})
		return cv
	}
}

func (cv *counterView) Updates() <-chan []EleUpdate {
	return cv.updates
}

func (cv *counterView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "` + cv.id + `" }}<span id="` + cv.id + `">{{ . }}</span>{{ end }}`)
	return cv.id, err
}

func TestViewBuilder(t *testing.T) {
	Convey("When building views", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("Build fails without views or a model", func() {
			_, _, err := NewViewBuilder[string, int]().WithModel(make(chan string), func(s string) int { return len(s) }).Build()
			So(err, ShouldEqual, ErrNoViews)
			_, _, err = NewViewBuilder[string, int]().WithView(newCounterView("a")).Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("Every view receives every converted model", func() {
			input := make(chan string)
			views, updates, err := NewViewBuilder[string, int]().
				WithContext(ctx).
				WithModel(input, func(s string) int { return len(s) }).
				WithView(newCounterView("first")).
				WithView(newCounterView("second")).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 2)

			go func() { input <- "four" }()
			seen := map[string]string{}
			for len(seen) < 2 {
				select {
				case batch := <-updates:
					for _, update := range batch {
						seen[update.EleId] = update.Ops[0].Value
					}
				case <-time.After(5 * time.Second):
					t.Fatal("no updates")
				}
			}
			So(seen, ShouldResemble, map[string]string{"first": "4", "second": "4"})

			Convey("And their templates nest under a parent", func() {
				page := template.New("page")
				for _, view := range views {
					_, err := view.Parse(page)
					So(err, ShouldBeNil)
				}
				_, err := page.Parse(`{{ template "first" . }}{{ template "second" . }}`)
				So(err, ShouldBeNil)
				var sb strings.Builder
				So(page.Execute(&sb, 7), ShouldBeNil)
				So(sb.String(), ShouldEqual, `<span id="first">7</span><span id="second">7</span>`)
			})
		})
	})
}

func TestBatchify(t *testing.T) {
	Convey("When updates arrive faster than the batch period", t, func() {
		done := make(chan struct{})
		defer close(done)
		source := make(chan []EleUpdate)
		batches := Batchify(done, source, 50*time.Millisecond)

		go func() {
			for i := 0; i < 5; i++ {
				source <- []EleUpdate{
					{EleId: "car", Ops: []Op{{Key: "transform", Value: fmt.Sprint(i)}}},
					{EleId: fmt.Sprintf("cell-%d", i), Ops: []Op{{Key: "fill", Value: "red"}}},
				}
			}
		}()

		merged := map[string]string{}
		deadline := time.After(5 * time.Second)
		for len(merged) < 6 || merged["car"] != "4" {
			select {
			case batch := <-batches:
				ids := map[string]bool{}
				for _, update := range batch {
					So(ids[update.EleId], ShouldBeFalse)
					ids[update.EleId] = true
					merged[update.EleId] = update.Ops[0].Value
				}
			case <-deadline:
				t.Fatal("batches not flushed")
			}
		}
		So(merged["car"], ShouldEqual, "4")
	})
}

func TestClient(t *testing.T) {
	Convey("When a page connects", t, func() {
		updates := make(chan []EleUpdate)
		received := make(chan string, 1)
		synced := make(chan error, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cli, err := NewClient[[]EleUpdate](updates, func(_ context.Context, msg []byte) error {
				received <- string(msg)
				return nil
			}, w, r)
			if err != nil {
				synced <- err
				return
			}
			synced <- cli.Sync(r.Context())
		}))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)

		Convey("Updates are published as json", func() {
			updates <- []EleUpdate{{EleId: "hud-mode", Ops: []Op{{Key: "textContent", Value: "manual"}}}}
			var got []EleUpdate
			So(conn.SetReadDeadline(time.Now().Add(5*time.Second)), ShouldBeNil)
			So(conn.ReadJSON(&got), ShouldBeNil)
			So(got, ShouldResemble, []EleUpdate{{EleId: "hud-mode", Ops: []Op{{Key: "textContent", Value: "manual"}}}})
			conn.Close()
		})

		Convey("Page messages reach the handler", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"reset"}`)), ShouldBeNil)
			select {
			case msg := <-received:
				So(msg, ShouldEqual, `{"kind":"reset"}`)
			case <-time.After(5 * time.Second):
				t.Fatal("message not relayed")
			}

			Convey("And an orderly close ends the sync without error", func() {
				So(conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")), ShouldBeNil)
				select {
				case err := <-synced:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("sync did not return")
				}
				conn.Close()
			})
		})
	})
}
