package bimlink

import (
	"context"
	"encoding/json"

	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	commanduc "github.com/kailas-cloud/bimlink/internal/usecase/command"
)

// Point is a model coordinate in millimetres.
type Point struct {
	X, Y, Z float64
}

// FilterResult holds the descriptors a filter query returned. Each element
// is a JSON object whose "kind" field names its descriptor variant.
type FilterResult struct {
	Elements []json.RawMessage
	Message  string
}

// FilterQuery is a fluent builder for element filter queries.
type FilterQuery struct {
	client *Client

	category       string
	elementType    string
	familySymbolID int64
	types          bool
	instances      bool
	visibleInView  bool
	min, max       *Point
	limit          *int
}

// Query starts a filter query.
func (c *Client) Query() *FilterQuery {
	return &FilterQuery{client: c, familySymbolID: domfilter.NoFamilySymbol}
}

// Category restricts to a built-in category, e.g. "OST_Walls" or "Walls".
func (q *FilterQuery) Category(name string) *FilterQuery {
	q.category = name
	return q
}

// ElementType restricts to an element class, e.g. "Wall" or "FamilyInstance".
func (q *FilterQuery) ElementType(name string) *FilterQuery {
	q.elementType = name
	return q
}

// FamilyType restricts instances to one family type id.
func (q *FilterQuery) FamilyType(id int64) *FilterQuery {
	q.familySymbolID = id
	return q
}

// Types includes element types. Combine with Instances for both.
func (q *FilterQuery) Types() *FilterQuery {
	q.types = true
	return q
}

// Instances includes placed instances. This is the default when neither
// Types nor Instances is called.
func (q *FilterQuery) Instances() *FilterQuery {
	q.instances = true
	return q
}

// VisibleInActiveView keeps only elements visible in the active view.
func (q *FilterQuery) VisibleInActiveView() *FilterQuery {
	q.visibleInView = true
	return q
}

// Within keeps elements whose bounding box intersects [min, max].
func (q *FilterQuery) Within(minPt, maxPt Point) *FilterQuery {
	q.min, q.max = &minPt, &maxPt
	return q
}

// Limit caps the number of returned elements. Zero or negative means no cap.
func (q *FilterQuery) Limit(n int) *FilterQuery {
	q.limit = &n
	return q
}

// Do runs the query.
func (q *FilterQuery) Do(ctx context.Context) (FilterResult, error) {
	return q.client.Filter(ctx, q)
}

func (q *FilterQuery) params() domfilter.Params {
	p := domfilter.DefaultParams()
	p.Category = q.category
	p.ElementType = q.elementType
	p.FamilySymbolID = q.familySymbolID
	p.VisibleInActiveView = q.visibleInView
	if q.types || q.instances {
		p.IncludeTypes, p.IncludeInstances = q.types, q.instances
	}
	if q.min != nil {
		p.BoundingBoxMin = &geom.Point{X: q.min.X, Y: q.min.Y, Z: q.min.Z}
		p.BoundingBoxMax = &geom.Point{X: q.max.X, Y: q.max.Y, Z: q.max.Z}
	}
	if q.limit != nil {
		p.MaxElements = *q.limit
	}
	return p
}

// Filter runs a filter query.
func (c *Client) Filter(ctx context.Context, q *FilterQuery) (FilterResult, error) {
	var elems []json.RawMessage
	msg, err := c.Call(ctx, commanduc.NameFilter, q.params(), &elems)
	if err != nil {
		return FilterResult{Message: msg}, err
	}
	return FilterResult{Elements: elems, Message: msg}, nil
}
