// Package filter turns a validated filter description into host collector
// queries and runs them against the open document.
package filter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/domain"
	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// Result is the outcome of one filter run.
type Result struct {
	Elements    []*host.Element
	Total       int      // matches before truncation
	Diagnostics []string // conditions that were skipped
}

// Engine runs filter descriptions. It only reads the document and must be
// called on the UI goroutine.
type Engine struct {
	logger *zap.Logger
}

// New creates an Engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// resolved holds the description's names and ids mapped onto host values.
type resolved struct {
	category   string
	class      host.Class
	hasClass   bool
	symbol     host.ElementID
	hasSymbol  bool
	outline    geom.Box
	hasOutline bool
	viewID     host.ElementID
}

// Collect returns the matching elements, types first, then instances, each
// in document order.
func (e *Engine) Collect(doc *host.Document, d domfilter.Description) (Result, error) {
	var res Result
	r, err := e.resolve(doc, d, &res)
	if err != nil {
		return Result{}, err
	}

	var matched []*host.Element
	if d.IncludeTypes() {
		matched = append(matched, e.side(doc, r, true).Elements()...)
	}
	if d.IncludeInstances() {
		matched = append(matched, e.side(doc, r, false).Elements()...)
	}

	res.Total = len(matched)
	if d.Limited() && len(matched) > d.MaxElements() {
		matched = matched[:d.MaxElements()]
	}
	res.Elements = matched

	e.logger.Debug("filter collected",
		zap.Int("total", res.Total),
		zap.Int("returned", len(res.Elements)),
		zap.Strings("diagnostics", res.Diagnostics))
	return res, nil
}

func (e *Engine) resolve(doc *host.Document, d domfilter.Description, res *Result) (resolved, error) {
	var r resolved

	if name := d.Category(); name != "" {
		cat, ok := host.LookupCategory(name)
		if !ok {
			return r, domain.NewResolutionError("category", name)
		}
		r.category = cat.BuiltIn
	}

	if name := d.ElementType(); name != "" {
		class, ok := host.LookupClass(name)
		if !ok {
			return r, domain.NewResolutionError("element type", name)
		}
		r.class, r.hasClass = class, true
	}

	if d.HasFamilySymbol() && d.IncludeInstances() {
		id := host.ElementID(d.FamilySymbolID())
		if sym, ok := doc.Element(id); ok && sym.Is(host.ClassFamilySymbol) {
			r.symbol, r.hasSymbol = id, true
		} else {
			res.Diagnostics = append(res.Diagnostics,
				fmt.Sprintf("element %d is not a family type, family filter skipped", id))
		}
	}

	if lo, hi, ok := d.Bounds(); ok {
		r.outline = geom.Box{Min: lo.Internal(), Max: hi.Internal()}
		r.hasOutline = true
	}

	if d.VisibleInActiveView() && d.IncludeInstances() {
		view, ok := doc.ActiveView()
		if !ok {
			return r, fmt.Errorf("%w: no active view to filter by", domain.ErrResolution)
		}
		r.viewID = view.ID
	}

	return r, nil
}

// side builds the collector for the type side or the instance side.
func (e *Engine) side(doc *host.Document, r resolved, types bool) *host.Collector {
	c := host.NewCollector(doc)
	if types {
		c.WhereElementIsElementType()
	} else {
		if r.viewID.Valid() {
			c.WherePasses(host.VisibleInViewFilter{ViewID: r.viewID})
		}
		c.WhereElementIsNotElementType()
	}

	var preds []host.ElementFilter
	if r.category != "" {
		preds = append(preds, host.CategoryFilter{Category: r.category})
	}
	if r.hasClass {
		preds = append(preds, host.ClassFilter{Class: r.class})
	}
	if r.hasSymbol && !types {
		preds = append(preds, host.FamilySymbolFilter{SymbolID: r.symbol})
	}
	if r.hasOutline {
		preds = append(preds, host.BoundingBoxIntersectsFilter{Outline: r.outline})
	}
	if len(preds) > 0 {
		c.WherePasses(host.And(preds...))
	}
	return c
}
