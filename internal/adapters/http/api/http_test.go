package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/tqi/internal/adapters/http/api"
	service "github.com/okian/tqi/internal/app"
	"github.com/okian/tqi/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const rosterJSON = `[
	{"name": "A", "age": 31, "subject": "math", "edu": 2, "titleLevel": 3, "origin": "existing"},
	{"name": "B", "age": 44, "subject": "math", "edu": 1, "titleLevel": 4},
	{"name": "C", "age": 52, "subject": "history", "edu": 2, "titleLevel": 5},
	{"name": "D", "age": 27, "subject": "history", "edu": 1, "titleLevel": 2}
]`

func newMux() *http.ServeMux {
	svc := service.New(service.WithSeed(1), service.WithMaxSweepRuns(20))
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint reports the service and metrics", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["metrics"], ShouldNotBeNil)
		})

		Convey("Then unknown methods are rejected", func() {
			w := do(mux, http.MethodGet, "/score", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestScoreEndpoint(t *testing.T) {
	Convey("Given the score endpoint", t, func() {
		mux := newMux()

		Convey("When posting a roster with a plan", func() {
			body := `{"roster": ` + rosterJSON + `, "plan": {"count": 6, "age_weights": [1, 1, 1, 1], "graduate_rate": 50, "senior_potential": 50}, "seed": 3}`
			w := do(mux, http.MethodPost, "/score", body)

			Convey("Then it returns the result, baseline and histogram", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out service.ScoreOutput
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Seed, ShouldEqual, 3)
				So(out.Result.PopulationCount, ShouldEqual, 10)
				So(out.Baseline.PopulationCount, ShouldEqual, 4)
				So(out.Histogram, ShouldNotBeEmpty)
			})

			Convey("Then the same seed gives the same body", func() {
				again := do(mux, http.MethodPost, "/score", body)
				So(again.Body.String(), ShouldEqual, w.Body.String())
			})
		})

		Convey("When all weights are zero", func() {
			body := `{"roster": ` + rosterJSON + `, "weights": {"structure_weight": 0, "education_weight": 0, "title_weight": 0}}`
			w := do(mux, http.MethodPost, "/score", body)

			Convey("Then it answers 422 invalid_weights", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "invalid_weights")
			})
		})

		Convey("When the plan count is fractional", func() {
			w := do(mux, http.MethodPost, "/score", `{"roster": [], "plan": {"count": 2.5}}`)

			Convey("Then it answers 422 invalid_plan", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "invalid_plan")
			})
		})

		Convey("When the plan has three age weights", func() {
			w := do(mux, http.MethodPost, "/score", `{"roster": [], "plan": {"count": 2, "age_weights": [1, 2, 3]}}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(w), ShouldEqual, "invalid_plan")
		})

		Convey("When a roster record has an unknown title", func() {
			w := do(mux, http.MethodPost, "/score", `{"roster": [{"age": 40, "subject": "x", "edu": 1, "titleLevel": 9}]}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(w), ShouldEqual, "invalid_roster")
		})

		Convey("When the plan count is above the plan limit", func() {
			w := do(mux, http.MethodPost, "/score", `{"roster": [], "plan": {"count": 2e9}}`)

			Convey("Then it is refused before anything is generated", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "invalid_plan")
			})
		})

		Convey("When a roster record is implausibly old", func() {
			w := do(mux, http.MethodPost, "/score",
				`{"roster": [{"age": 1, "subject": "x", "edu": 1, "titleLevel": 1}, {"age": 50000000, "subject": "x", "edu": 1, "titleLevel": 1}]}`)

			Convey("Then it answers 422 invalid_roster", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "invalid_roster")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/score", `{"roster": [`)

			Convey("Then it answers 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When the body has trailing data", func() {
			w := do(mux, http.MethodPost, "/score", `{"roster": []} {}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSweepEndpoint(t *testing.T) {
	Convey("Given the sweep endpoint", t, func() {
		mux := newMux()

		Convey("When sweeping within the limit", func() {
			body := `{"roster": ` + rosterJSON + `, "plan": {"count": 4}, "runs": 8, "seed": 10}`
			w := do(mux, http.MethodPost, "/sweep", body)

			Convey("Then it summarizes the replicates", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out struct {
					Runs int `json:"runs"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Runs, ShouldEqual, 8)
			})
		})

		Convey("When the plan count is above the plan limit", func() {
			w := do(mux, http.MethodPost, "/sweep", `{"roster": [], "plan": {"count": 1000000}, "runs": 2}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(w), ShouldEqual, "invalid_plan")
		})

		Convey("When runs is missing", func() {
			w := do(mux, http.MethodPost, "/sweep", `{"roster": []}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(w), ShouldEqual, "invalid_sweep")
		})

		Convey("When runs exceeds the limit", func() {
			w := do(mux, http.MethodPost, "/sweep", `{"roster": [], "runs": 21}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(w), ShouldEqual, "invalid_sweep")
		})
	})
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given a created session", t, func() {
		mux := newMux()
		w := do(mux, http.MethodPost, "/sessions", `{"roster": `+rosterJSON+`, "plan": {"count": 4, "age_weights": [1, 0, 0, 0]}}`)
		So(w.Code, ShouldEqual, http.StatusCreated)

		var created service.Snapshot
		So(json.Unmarshal(w.Body.Bytes(), &created), ShouldBeNil)
		So(created.ID, ShouldNotBeEmpty)
		So(w.Header().Get("Location"), ShouldEqual, "/sessions/"+created.ID)
		base := "/sessions/" + created.ID

		Convey("Then it can be read and listed", func() {
			got := do(mux, http.MethodGet, base, "")
			So(got.Code, ShouldEqual, http.StatusOK)
			So(got.Body.String(), ShouldContainSubstring, `"state":"idle"`)

			list := do(mux, http.MethodGet, "/sessions", "")
			So(list.Body.String(), ShouldContainSubstring, created.ID)
		})

		Convey("Then weights can be replaced", func() {
			put := do(mux, http.MethodPut, base+"/weights", `{"structure_weight": 1, "education_weight": 0, "title_weight": 0}`)
			So(put.Code, ShouldEqual, http.StatusOK)
			var snap service.Snapshot
			So(json.Unmarshal(put.Body.Bytes(), &snap), ShouldBeNil)
			So(snap.Version, ShouldEqual, 2)
			So(snap.Result.CompositeScore, ShouldAlmostEqual, snap.Result.StructureScore, 1e-9)
		})

		Convey("Then invalid weights are rejected without a new version", func() {
			put := do(mux, http.MethodPut, base+"/weights", `{"structure_weight": 0, "education_weight": 0, "title_weight": 0}`)
			So(put.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(put), ShouldEqual, "invalid_weights")

			got := do(mux, http.MethodGet, base, "")
			So(got.Body.String(), ShouldContainSubstring, `"version":1`)
		})

		Convey("Then a plan above the plan limit is rejected without a new version", func() {
			put := do(mux, http.MethodPut, base+"/plan", `{"count": 2000000000}`)
			So(put.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(put), ShouldEqual, "invalid_plan")

			got := do(mux, http.MethodGet, base, "")
			So(got.Body.String(), ShouldContainSubstring, `"version":1`)
		})

		Convey("Then the plan, target, filter and seed can be replaced", func() {
			So(do(mux, http.MethodPut, base+"/plan", `{"count": 0}`).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPut, base+"/plan", `{"count": -1}`).Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(do(mux, http.MethodPut, base+"/target", `{"ideal_age": 40, "ideal_spread": 6}`).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPut, base+"/filter", `{"subject": "math", "enabled": true}`).Code, ShouldEqual, http.StatusOK)
			rs := do(mux, http.MethodPost, base+"/reseed", `{"seed": 77}`)
			So(rs.Code, ShouldEqual, http.StatusOK)
			So(rs.Body.String(), ShouldContainSubstring, `"seed":77`)
		})

		Convey("Then the histogram and flat result are served", func() {
			h := do(mux, http.MethodGet, base+"/histogram", "")
			So(h.Code, ShouldEqual, http.StatusOK)
			So(strings.HasPrefix(strings.TrimSpace(h.Body.String()), "["), ShouldBeTrue)

			res := do(mux, http.MethodGet, base+"/result", "")
			So(res.Code, ShouldEqual, http.StatusOK)
			var flat map[string]float64
			So(json.Unmarshal(res.Body.Bytes(), &flat), ShouldBeNil)
			So(flat, ShouldContainKey, "composite_score")
			So(flat["population_count"], ShouldEqual, 8)
		})

		Convey("Then it can be deleted once", func() {
			So(do(mux, http.MethodDelete, base, "").Code, ShouldEqual, http.StatusNoContent)
			So(do(mux, http.MethodGet, base, "").Code, ShouldEqual, http.StatusNotFound)
			del := do(mux, http.MethodDelete, base, "")
			So(del.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(del), ShouldEqual, "not_found")
		})
	})

	Convey("Given an unknown session", t, func() {
		mux := newMux()
		w := do(mux, http.MethodPut, "/sessions/missing/target", `{"ideal_age": 40}`)
		So(w.Code, ShouldEqual, http.StatusNotFound)
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		err := api.WrapKind("api.test", api.ErrBadRequest, context.Canceled)

		Convey("Then both the kind and the cause match", func() {
			So(err.Error(), ShouldEqual, "api.test: bad request: context canceled")
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("Then nil causes stay nil", func() {
			So(api.WrapKind("op", api.ErrBadRequest, nil), ShouldBeNil)
			So(api.Wrap("op", nil), ShouldBeNil)
		})

		Convey("Then NewKind carries only the kind", func() {
			e := api.NewKind("api.x", api.ErrInvalidRoster)
			So(e.Error(), ShouldEqual, "api.x: invalid roster")
			So(errors.Is(e, api.ErrInvalidRoster), ShouldBeTrue)
		})
	})
}

// watchBurst publishes more versions than a watcher buffers.
const watchBurst = 24

func TestWatchEndpoint(t *testing.T) {
	Convey("Given a session served over a real listener", t, func() {
		srv := httptest.NewServer(newMux())
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/sessions", "application/json",
			strings.NewReader(`{"roster": `+rosterJSON+`, "plan": {"count": 2}}`))
		So(err, ShouldBeNil)
		var created service.Snapshot
		So(json.NewDecoder(resp.Body).Decode(&created), ShouldBeNil)
		_ = resp.Body.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + created.ID + "/watch"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(conn.SetReadDeadline(time.Now().Add(5*time.Second)), ShouldBeNil)

		Convey("Then the current snapshot arrives first", func() {
			var first service.Snapshot
			So(conn.ReadJSON(&first), ShouldBeNil)
			So(first.ID, ShouldEqual, created.ID)
			So(first.Version, ShouldEqual, 1)

			Convey("And each accepted mutation streams a newer version", func() {
				req, err := http.NewRequest(http.MethodPut, srv.URL+"/sessions/"+created.ID+"/target",
					strings.NewReader(`{"ideal_age": 45, "ideal_spread": 5}`))
				So(err, ShouldBeNil)
				put, err := http.DefaultClient.Do(req)
				So(err, ShouldBeNil)
				_ = put.Body.Close()
				So(put.StatusCode, ShouldEqual, http.StatusOK)

				var next service.Snapshot
				So(conn.ReadJSON(&next), ShouldBeNil)
				So(next.Version, ShouldEqual, 2)
				So(next.Params.Target.IdealAge, ShouldEqual, 45)
			})

			Convey("And a burst of mutations ends on the current version", func() {
				const burst = watchBurst
				for i := 0; i < burst; i++ {
					req, err := http.NewRequest(http.MethodPost, srv.URL+"/sessions/"+created.ID+"/reseed",
						strings.NewReader(fmt.Sprintf(`{"seed": %d}`, i+1)))
					So(err, ShouldBeNil)
					res, err := http.DefaultClient.Do(req)
					So(err, ShouldBeNil)
					_ = res.Body.Close()
					So(res.StatusCode, ShouldEqual, http.StatusOK)
				}

				var last service.Snapshot
				for last.Version < uint64(burst+1) {
					So(conn.ReadJSON(&last), ShouldBeNil)
				}
				So(last.Version, ShouldEqual, uint64(burst+1))
				So(last.Seed, ShouldEqual, int64(burst))
			})
		})
	})

	Convey("Given an unknown session", t, func() {
		srv := httptest.NewServer(newMux())
		defer srv.Close()

		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/sessions/missing/watch", nil)

		Convey("Then the upgrade is refused with 404", func() {
			So(err, ShouldNotBeNil)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}
