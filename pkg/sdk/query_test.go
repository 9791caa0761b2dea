package bimlink

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

func TestFilterQuery_Params(t *testing.T) {
	q := func() *FilterQuery { return (&Client{}).Query() }
	limit := func(p domfilter.Params, n int) domfilter.Params { p.MaxElements = n; return p }

	base := domfilter.DefaultParams()
	walls := base
	walls.Category = "OST_Walls"

	typesOnly := walls
	typesOnly.IncludeTypes, typesOnly.IncludeInstances = true, false

	both := walls
	both.IncludeTypes = true

	boxed := base
	boxed.ElementType = "Wall"
	boxed.BoundingBoxMin = &geom.Point{X: -1, Y: -2, Z: -3}
	boxed.BoundingBoxMax = &geom.Point{X: 1, Y: 2, Z: 3}

	family := base
	family.FamilySymbolID = 42
	family.VisibleInActiveView = true

	tests := []struct {
		name string
		got  *FilterQuery
		want domfilter.Params
	}{
		{"defaults", q().Category("OST_Walls"), walls},
		{"instances explicit", q().Category("OST_Walls").Instances(), walls},
		{"types only", q().Category("OST_Walls").Types(), typesOnly},
		{"types and instances", q().Category("OST_Walls").Types().Instances(), both},
		{"box", q().ElementType("Wall").Within(Point{-1, -2, -3}, Point{1, 2, 3}), boxed},
		{"family in view", q().FamilyType(42).VisibleInActiveView(), family},
		{"limit", q().Category("OST_Walls").Limit(3), limit(walls, 3)},
		{"unlimited", q().Category("OST_Walls").Limit(0), limit(walls, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.params(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("params = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterQuery_Do(t *testing.T) {
	c := newSampleClient(t)

	res, err := c.Query().Category("OST_Walls").Limit(2).Do(context.Background())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(res.Elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(res.Elements))
	}
	if !strings.Contains(res.Message, "there are 5 elements in total") ||
		!strings.Contains(res.Message, "showing the first 2") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestFilterQuery_NoMatches(t *testing.T) {
	c := newSampleClient(t)

	_, err := c.Query().Category("OST_Walls").Within(
		Point{X: 90000, Y: 90000, Z: 0}, Point{X: 91000, Y: 91000, Z: 1000},
	).Do(context.Background())
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed", err)
	}
}

func TestFilterQuery_Invalid(t *testing.T) {
	c := newSampleClient(t)

	// no category, class or family type
	res, err := c.Query().Limit(5).Do(context.Background())
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed", err)
	}
	if !strings.Contains(res.Message, "no primary filter condition") {
		t.Errorf("message = %q", res.Message)
	}
}
