package classify

import (
	"math"
	"testing"

	"github.com/kailas-cloud/bimlink/internal/domain/descriptor"
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

// find returns the first element of class whose name or mark equals name.
func find(t *testing.T, doc *host.Document, class host.Class, name string) *host.Element {
	t.Helper()
	var found *host.Element
	doc.Each(func(e *host.Element) bool {
		if e.Class != class {
			return true
		}
		mark, _ := e.Param("ALL_MODEL_MARK")
		if e.Name == name || mark.Text == name {
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

func describe[T descriptor.Descriptor](t *testing.T, doc *host.Document, e *host.Element) T {
	t.Helper()
	d, err := New(nil, nil).DescribeOne(doc, e)
	if err != nil {
		t.Fatalf("describe %s: %v", e, err)
	}
	out, ok := d.(T)
	if !ok {
		t.Fatalf("describe %s: got %T", e, d)
	}
	return out
}

func param(ps []descriptor.Parameter, name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6*math.Max(1, math.Abs(b)) }
