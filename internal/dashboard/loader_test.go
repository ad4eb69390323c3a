package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/html/atom"

	"github.com/okian/mlgate/pkg/logger"
)

const testPage = `<!DOCTYPE html>
<html><head><title>mlgate</title></head>
<body>
<section id="metrics"></section>
<section id="registry"></section>
<section id="deployed"></section>
<section id="alerts"></section>
</body></html>`

const fullPayload = `{
  "latest_metrics": {"accuracy": 0.91, "f1": 0.88},
  "registry": [{"run_id": "run-41"}, {"run_id": "run-42"}],
  "deployed_run_id": "run-42",
  "approvals": ["run-41", "run-42"],
  "drift_score": 0.05
}`

func newTestLoader(t *testing.T, f Fetcher) *Loader {
	t.Helper()
	if err := logger.InitWithFormat(logger.FormatText, io.Discard); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewLoader(f)
}

func mustPage(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseDocumentString(src)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return doc
}

func mustRegion(doc *Document, id string) *Region {
	r, err := doc.Region(id)
	So(err, ShouldBeNil)
	return r
}

func payloadServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestLoader_RendersSnapshot(t *testing.T) {
	Convey("Given a server returning a complete payload", t, func() {
		srv := payloadServer(http.StatusOK, fullPayload)
		defer srv.Close()

		loader := newTestLoader(t, NewHTTPFetcher(srv.URL))
		doc := mustPage(t, testPage)

		Convey("When the dashboard loads", func() {
			state, err := loader.Load(context.Background(), doc)

			Convey("Then it ends rendered", func() {
				So(err, ShouldBeNil)
				So(state, ShouldEqual, StateRendered)
				So(loader.State(), ShouldEqual, StateRendered)
			})

			Convey("And every region has one heading and the expected body", func() {
				want := map[string]string{
					RegionMetrics:  "Latest Metrics\n{\n  \"accuracy\": 0.91,\n  \"f1\": 0.88\n}",
					RegionRegistry: "Registry\n[\n  {\n    \"run_id\": \"run-41\"\n  },\n  {\n    \"run_id\": \"run-42\"\n  }\n]",
					RegionDeployed: "Deployed Model\nrun-42",
					RegionAlerts:   "Approvals & Drift\n{\n  \"approvals\": [\n    \"run-41\",\n    \"run-42\"\n  ],\n  \"drift_score\": 0.05\n}",
				}
				for id, text := range want {
					r := mustRegion(doc, id)
					So(r.Text(), ShouldEqual, text)
					So(strings.Count(r.InnerHTML(), "<h2>"), ShouldEqual, 1)
					So(strings.Count(r.InnerHTML(), "<pre>"), ShouldEqual, 1)
				}
			})

			Convey("And no error message is present", func() {
				So(doc.String(), ShouldNotContainSubstring, errorPrefix)
				So(mustRegion(doc, RegionAlerts).Find(atom.P), ShouldBeNil)
			})

			Convey("And markup in headings is escaped", func() {
				So(mustRegion(doc, RegionAlerts).InnerHTML(), ShouldStartWith, "<h2>Approvals &amp; Drift</h2>")
			})
		})
	})
}

func TestLoader_AbsentFieldsRenderNull(t *testing.T) {
	Convey("Given a payload without metrics or registry", t, func() {
		loader := newTestLoader(t, FetcherFunc(func(context.Context) ([]byte, error) {
			return []byte(`{"deployed_run_id": "run-1"}`), nil
		}))
		doc := mustPage(t, testPage)

		state, err := loader.Load(context.Background(), doc)
		So(err, ShouldBeNil)
		So(state, ShouldEqual, StateRendered)

		Convey("Then the missing regions read null rather than undefined", func() {
			for _, id := range []string{RegionMetrics, RegionRegistry} {
				pre := mustRegion(doc, id).Find(atom.Pre)
				So(pre, ShouldNotBeNil)
				So(TextContent(pre), ShouldEqual, "null")
				So(doc.String(), ShouldNotContainSubstring, "undefined")
			}
		})

		Convey("And the alerts object is empty", func() {
			So(TextContent(mustRegion(doc, RegionAlerts).Find(atom.Pre)), ShouldEqual, "{}")
		})
	})
}

func TestLoader_DeployedRunID(t *testing.T) {
	Convey("Given payloads with different deployed run ids", t, func() {
		cases := []struct {
			name string
			body string
			want string
		}{
			{"absent", `{"latest_metrics": {}}`, "none"},
			{"null", `{"deployed_run_id": null}`, "none"},
			{"string", `{"deployed_run_id": "run-42"}`, "run-42"},
			{"empty string", `{"deployed_run_id": ""}`, ""},
			{"number", `{"deployed_run_id": 42}`, "42"},
		}

		for _, tc := range cases {
			body := tc.body
			loader := newTestLoader(t, FetcherFunc(func(context.Context) ([]byte, error) {
				return []byte(body), nil
			}))
			doc := mustPage(t, testPage)

			state, err := loader.Load(context.Background(), doc)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, StateRendered)

			pre := mustRegion(doc, RegionDeployed).Find(atom.Pre)
			So(pre, ShouldNotBeNil)
			So(TextContent(pre), ShouldEqual, tc.want)
		}
	})
}

func TestLoader_ErrorPath(t *testing.T) {
	Convey("Given a page whose regions already hold content", t, func() {
		page := strings.Replace(testPage, `<section id="metrics"></section>`, `<section id="metrics"><span>previous</span></section>`, 1)

		Convey("When the request fails at the transport level", func() {
			srv := payloadServer(http.StatusOK, fullPayload)
			url := srv.URL
			srv.Close()

			loader := newTestLoader(t, NewHTTPFetcher(url))
			doc := mustPage(t, page)
			state, err := loader.Load(context.Background(), doc)

			Convey("Then the alerts region shows the error paragraph", func() {
				So(err, ShouldNotBeNil)
				So(state, ShouldEqual, StateErrored)
				alerts := mustRegion(doc, RegionAlerts)
				So(alerts.InnerHTML(), ShouldStartWith, `<p class="error">Unable to load dashboard:`)
				So(alerts.Text(), ShouldEqual, errorPrefix+err.Error())
			})

			Convey("And the other regions keep their prior content", func() {
				So(mustRegion(doc, RegionMetrics).Text(), ShouldEqual, "previous")
				So(mustRegion(doc, RegionRegistry).Empty(), ShouldBeTrue)
				So(mustRegion(doc, RegionDeployed).Empty(), ShouldBeTrue)
			})
		})

		Convey("When the body is not JSON", func() {
			srv := payloadServer(http.StatusOK, "<html>oops</html>")
			defer srv.Close()

			loader := newTestLoader(t, NewHTTPFetcher(srv.URL))
			doc := mustPage(t, testPage)
			state, err := loader.Load(context.Background(), doc)

			Convey("Then the same error path is taken", func() {
				So(state, ShouldEqual, StateErrored)
				So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
				So(mustRegion(doc, RegionAlerts).InnerHTML(), ShouldStartWith, `<p class="error">Unable to load dashboard:`)
				So(mustRegion(doc, RegionMetrics).Empty(), ShouldBeTrue)
				So(mustRegion(doc, RegionRegistry).Empty(), ShouldBeTrue)
				So(mustRegion(doc, RegionDeployed).Empty(), ShouldBeTrue)
			})
		})

		Convey("When the body is JSON null", func() {
			loader := newTestLoader(t, FetcherFunc(func(context.Context) ([]byte, error) {
				return []byte("null"), nil
			}))
			doc := mustPage(t, testPage)
			state, err := loader.Load(context.Background(), doc)

			Convey("Then it is treated as a failure", func() {
				So(state, ShouldEqual, StateErrored)
				So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
			})
		})
	})
}

func TestLoader_StatusHandling(t *testing.T) {
	Convey("Given a server answering 500 with a JSON body", t, func() {
		srv := payloadServer(http.StatusInternalServerError, `{"deployed_run_id": "run-9"}`)
		defer srv.Close()

		Convey("When the fetcher ignores status codes", func() {
			loader := newTestLoader(t, NewHTTPFetcher(srv.URL))
			doc := mustPage(t, testPage)
			state, err := loader.Load(context.Background(), doc)

			Convey("Then the body is rendered as if it succeeded", func() {
				So(err, ShouldBeNil)
				So(state, ShouldEqual, StateRendered)
				So(mustRegion(doc, RegionDeployed).Text(), ShouldEqual, "Deployed Model\nrun-9")
				So(mustRegion(doc, RegionMetrics).Text(), ShouldEqual, "Latest Metrics\nnull")
			})
		})

		Convey("When status checking is enabled", func() {
			loader := newTestLoader(t, NewHTTPFetcher(srv.URL, WithStatusCheck(true)))
			doc := mustPage(t, testPage)
			state, err := loader.Load(context.Background(), doc)

			Convey("Then the error path is taken with the status", func() {
				So(state, ShouldEqual, StateErrored)
				var se *StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Code, ShouldEqual, http.StatusInternalServerError)
				So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
			})
		})
	})
}

func TestLoader_Request(t *testing.T) {
	Convey("Given a server recording the request", t, func() {
		var (
			method, path, query string
			bodyLen             int
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, path, query = r.Method, r.URL.Path, r.URL.RawQuery
			b, _ := io.ReadAll(r.Body)
			bodyLen = len(b)
			_, _ = io.WriteString(w, "{}")
		}))
		defer srv.Close()

		fetcher := NewHTTPFetcher(srv.URL + "/")
		_, err := newTestLoader(t, fetcher).Load(context.Background(), mustPage(t, testPage))

		Convey("Then one plain GET reaches the fixed path", func() {
			So(err, ShouldBeNil)
			So(fetcher.Endpoint(), ShouldEqual, srv.URL+"/dashboard")
			So(method, ShouldEqual, http.MethodGet)
			So(path, ShouldEqual, "/dashboard")
			So(query, ShouldBeEmpty)
			So(bodyLen, ShouldEqual, 0)
		})
	})
}

func TestLoader_FetchTimeout(t *testing.T) {
	Convey("Given an upstream that never answers in time", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		Convey("When the fetcher's client has a short timeout", func() {
			fetcher := NewHTTPFetcher(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
			loader := newTestLoader(t, fetcher)
			doc := mustPage(t, testPage)

			state, err := loader.Load(context.Background(), doc)

			Convey("Then the load ends in the error state instead of hanging", func() {
				So(err, ShouldNotBeNil)
				So(state, ShouldEqual, StateErrored)
				So(mustRegion(doc, RegionAlerts).Text(), ShouldStartWith, errorPrefix)
			})
		})

		Convey("When the caller's context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err := NewHTTPFetcher(srv.URL).Fetch(ctx)

			Convey("Then the fetch returns the context error", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}

func TestLoader_Idempotent(t *testing.T) {
	Convey("Given a loader and a stable payload", t, func() {
		loader := newTestLoader(t, FetcherFunc(func(context.Context) ([]byte, error) {
			return []byte(fullPayload), nil
		}))
		doc := mustPage(t, testPage)

		Convey("When loading twice in sequence", func() {
			_, err := loader.Load(context.Background(), doc)
			So(err, ShouldBeNil)
			first := doc.String()

			_, err = loader.Load(context.Background(), doc)
			So(err, ShouldBeNil)

			Convey("Then the second render overwrites the first", func() {
				So(doc.String(), ShouldEqual, first)
				So(strings.Count(doc.String(), "Latest Metrics"), ShouldEqual, 1)
			})
		})
	})
}

func TestLoader_MissingRegion(t *testing.T) {
	Convey("Given a page without an alerts region", t, func() {
		var calls atomic.Int32
		loader := newTestLoader(t, FetcherFunc(func(context.Context) ([]byte, error) {
			calls.Add(1)
			return []byte(fullPayload), nil
		}))
		doc := mustPage(t, strings.Replace(testPage, `<section id="alerts"></section>`, "", 1))

		Convey("When loading", func() {
			state, err := loader.Load(context.Background(), doc)

			Convey("Then it fails fast naming the region", func() {
				So(state, ShouldEqual, StateErrored)
				So(errors.Is(err, ErrRegionNotFound), ShouldBeTrue)
				var rnf *RegionNotFoundError
				So(errors.As(err, &rnf), ShouldBeTrue)
				So(rnf.ID, ShouldEqual, RegionAlerts)
				So(calls.Load(), ShouldEqual, 0)
			})

			Convey("And nothing is rendered", func() {
				So(mustRegion(doc, RegionMetrics).Empty(), ShouldBeTrue)
			})
		})
	})
}

func TestLoader_InFlightGuard(t *testing.T) {
	Convey("Given a load blocked inside its fetch", t, func() {
		started := make(chan struct{})
		release := make(chan struct{})
		loader := newTestLoader(t, FetcherFunc(func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte(fullPayload), nil
		}))

		first := mustPage(t, testPage)
		done := make(chan State, 1)
		go func() {
			state, _ := loader.Load(context.Background(), first)
			done <- state
		}()
		<-started

		Convey("When a second load starts", func() {
			doc := mustPage(t, testPage)
			state, err := loader.Load(context.Background(), doc)
			close(release)

			Convey("Then it is ignored", func() {
				So(errors.Is(err, ErrLoadInFlight), ShouldBeTrue)
				So(state, ShouldEqual, StateLoading)
				So(mustRegion(doc, RegionMetrics).Empty(), ShouldBeTrue)
			})

			Convey("And the first load still completes", func() {
				So(<-done, ShouldEqual, StateRendered)
			})
		})
	})
}
