package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/bimlink/internal/host"
)

func newSavesTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "saves"}, []string{"status"})
}

func TestSaver_LatestWins(t *testing.T) {
	ms := newMockKVStore()
	repo := New(ms, "")
	total := newSavesTotal()
	s := NewSaver(repo, "main", total, nil)

	for v := uint64(1); v <= 3; v++ {
		s.Offer(&host.Snapshot{Title: "doc", Version: v})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	if n := ms.setCount(); n != 1 {
		t.Fatalf("saves = %d, want 1", n)
	}
	got, err := repo.Load(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 3 {
		t.Errorf("saved version %d, want 3", got.Version)
	}
	if v := testutil.ToFloat64(total.WithLabelValues("superseded")); v != 2 {
		t.Errorf("superseded = %v, want 2", v)
	}
	if v := testutil.ToFloat64(total.WithLabelValues("ok")); v != 1 {
		t.Errorf("ok = %v, want 1", v)
	}
}

func TestSaver_WatchSavesCommits(t *testing.T) {
	ms := newMockKVStore()
	repo := New(ms, "")
	s := NewSaver(repo, "main", nil, nil)

	app := host.NewApp(loadSample(t))
	ctx, cancel := context.WithCancel(context.Background())
	app.Start(ctx)
	t.Cleanup(app.Stop)

	if err := s.Watch(ctx, app); err != nil {
		t.Fatalf("watch: %v", err)
	}
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	if err := app.Post(ctx, func(ui *host.UI) {
		tx := host.NewTransaction(ui.Document(), "add level")
		_ = tx.Start()
		_, _ = ui.Document().CreateLevel("Mezzanine", 5)
		_ = tx.Commit()
	}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ms.setCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	snap, err := repo.Load(context.Background(), "main")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc, err := host.Restore(snap)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	doc.Each(func(e *host.Element) bool {
		found = found || (e.Class == host.ClassLevel && e.Name == "Mezzanine")
		return !found
	})
	if !found {
		t.Error("saved snapshot does not contain the committed level")
	}
}

func TestSaver_ErrorCounted(t *testing.T) {
	ms := newMockKVStore()
	ms.setFn = func(context.Context, string, []byte) error { return context.DeadlineExceeded }
	total := newSavesTotal()
	s := NewSaver(New(ms, ""), "main", total, nil)

	s.Offer(&host.Snapshot{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	if v := testutil.ToFloat64(total.WithLabelValues("error")); v != 1 {
		t.Errorf("error = %v, want 1", v)
	}
}
