package command

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/host"
	"github.com/kailas-cloud/bimlink/internal/usecase/classify"
	"github.com/kailas-cloud/bimlink/internal/usecase/filter"
)

const sampleModel = "../../../config/models/sample.yaml"

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *host.App) {
	t.Helper()
	doc, err := host.LoadModel(sampleModel)
	if err != nil {
		t.Fatalf("load sample model: %v", err)
	}
	app := host.NewApp(doc)
	app.Start(context.Background())
	t.Cleanup(app.Stop)
	return New(app, filter.New(nil), classify.New(nil, nil), nil, opts...), app
}

// onUI runs fn on the host UI goroutine and waits for it.
func onUI(t *testing.T, app *host.App, fn func(doc *host.Document)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	if err := app.Post(ctx, func(ui *host.UI) {
		defer close(done)
		fn(ui.Document())
	}); err != nil {
		t.Fatalf("post: %v", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("UI goroutine did not run the callback")
	}
}

// elementID looks up an element by class and name or mark.
func elementID(t *testing.T, app *host.App, class host.Class, name string) int64 {
	t.Helper()
	var id host.ElementID
	onUI(t, app, func(doc *host.Document) {
		doc.Each(func(e *host.Element) bool {
			mark, _ := e.Param("ALL_MODEL_MARK")
			if e.Class == class && (e.Name == name || mark.Text == name) {
				id = e.ID
				return false
			}
			return true
		})
	})
	if !id.Valid() {
		t.Fatalf("%s %q not found", class, name)
	}
	return int64(id)
}

func elementCount(t *testing.T, app *host.App) int {
	t.Helper()
	var n int
	onUI(t, app, func(doc *host.Document) { n = doc.Len() })
	return n
}

func invoke(t *testing.T, r *Registry, name, params string) domcmd.Result {
	t.Helper()
	res, err := r.Invoke(context.Background(), name, json.RawMessage(params))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return res
}

// mustSucceed invokes a command and decodes its response into T.
func mustSucceed[T any](t *testing.T, r *Registry, name, params string) T {
	t.Helper()
	res := invoke(t, r, name, params)
	if !res.Envelope.Success() {
		t.Fatalf("%s failed: %s", name, res.Envelope.Message())
	}
	var out T
	if err := json.Unmarshal(res.Envelope.Response(), &out); err != nil {
		t.Fatalf("decode %s response: %v", name, err)
	}
	return out
}

func mustFail(t *testing.T, r *Registry, name, params string) string {
	t.Helper()
	res := invoke(t, r, name, params)
	if res.Envelope.Success() {
		t.Fatalf("%s succeeded, want failure", name)
	}
	return res.Envelope.Message()
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
