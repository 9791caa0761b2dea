package filter

import (
	"testing"

	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/host"
)

const sampleModel = "../../../config/models/sample.yaml"

func loadSample(t *testing.T) *host.Document {
	t.Helper()
	doc, err := host.LoadModel(sampleModel)
	if err != nil {
		t.Fatalf("load sample model: %v", err)
	}
	return doc
}

func mustDescription(t *testing.T, mutate func(*domfilter.Params)) domfilter.Description {
	t.Helper()
	p := domfilter.DefaultParams()
	mutate(&p)
	d, err := domfilter.New(p)
	if err != nil {
		t.Fatalf("new description: %v", err)
	}
	return d
}

func marks(elems []*host.Element) []string {
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if p, ok := e.Param("ALL_MODEL_MARK"); ok {
			out = append(out, p.Text)
		} else {
			out = append(out, e.Name)
		}
	}
	return out
}

func idSet(elems []*host.Element) map[host.ElementID]bool {
	m := make(map[host.ElementID]bool, len(elems))
	for _, e := range elems {
		m[e.ID] = true
	}
	return m
}

func findByName(t *testing.T, doc *host.Document, class host.Class, name string) *host.Element {
	t.Helper()
	var found *host.Element
	doc.Each(func(e *host.Element) bool {
		if e.Class == class && e.Name == name {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("%s %q not found", class, name)
	}
	return found
}
