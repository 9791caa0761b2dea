package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/host"
	"github.com/kailas-cloud/bimlink/internal/usecase/classify"
	commanduc "github.com/kailas-cloud/bimlink/internal/usecase/command"
	"github.com/kailas-cloud/bimlink/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/bimlink/internal/usecase/health"
)

const sampleModel = "../../../config/models/sample.yaml"

// --- Mock Commands ---

type mockCommands struct {
	infos    []domcmd.Info
	invokeFn func(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error)
	calls    []string
}

func (m *mockCommands) List() []domcmd.Info { return m.infos }

func (m *mockCommands) Get(name string) (domcmd.Invoker, bool) {
	for _, info := range m.infos {
		if info.Name == name {
			return staticInvoker{info: info}, true
		}
	}
	return nil, false
}

func (m *mockCommands) Invoke(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error) {
	m.calls = append(m.calls, name)
	return m.invokeFn(ctx, name, params)
}

type staticInvoker struct{ info domcmd.Info }

func (s staticInvoker) Info() domcmd.Info { return s.info }

func (s staticInvoker) Invoke(context.Context, json.RawMessage) (domcmd.Result, error) {
	return domcmd.Result{}, nil
}

// --- Mock Planner ---

type mockPlanner struct {
	planFn func(ctx context.Context, query string) (domfilter.Params, error)
}

func (m *mockPlanner) Plan(ctx context.Context, query string) (domfilter.Params, error) {
	return m.planFn(ctx, query)
}

// --- Mock Health ---

type staticHealth struct{ report healthuc.Report }

func (s staticHealth) Check(context.Context) healthuc.Report { return s.report }

func healthy() staticHealth {
	return staticHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"host": healthuc.CheckOK}}}
}

// newRouter mounts s on a fresh chi router, the way main does.
func newRouter(s *Server) http.Handler {
	return HandlerWithOptions(s, ChiServerOptions{BaseRouter: chi.NewRouter()})
}

// newLiveServer serves the real command registry over the sample model.
func newLiveServer(t *testing.T) (*httptest.Server, *host.App) {
	t.Helper()
	doc, err := host.LoadModel(sampleModel)
	if err != nil {
		t.Fatalf("load sample model: %v", err)
	}
	app := host.NewApp(doc)
	app.Start(context.Background())
	t.Cleanup(app.Stop)

	reg := commanduc.New(app, filter.New(nil), classify.New(nil, nil), nil)
	health := healthuc.New(app, nil, nil, app.Version)
	srv := httptest.NewServer(newRouter(NewServer(reg, health, nil, nil)))
	t.Cleanup(srv.Close)
	return srv, app
}

// wallID returns the id of the wall marked mark.
func wallID(t *testing.T, app *host.App, mark string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	found := make(chan host.ElementID, 1)
	err := app.Post(ctx, func(ui *host.UI) {
		var id host.ElementID
		ui.Document().Each(func(e *host.Element) bool {
			m, _ := e.Param("ALL_MODEL_MARK")
			if e.Class == host.ClassWall && m.Text == mark {
				id = e.ID
				return false
			}
			return true
		})
		found <- id
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	select {
	case id := <-found:
		if !id.Valid() {
			t.Fatalf("wall %q not found", mark)
		}
		return int64(id)
	case <-ctx.Done():
		t.Fatal("UI goroutine did not run the callback")
	}
	return 0
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// envelopeBody is the wire form of a command envelope.
type envelopeBody struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}
