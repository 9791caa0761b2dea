package host

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

// ElementFilter decides whether an element passes.
type ElementFilter interface {
	Passes(doc *Document, e *Element) bool
	String() string
}

// CategoryFilter passes elements of one built-in category.
type CategoryFilter struct {
	Category string
}

func (f CategoryFilter) Passes(_ *Document, e *Element) bool { return e.Category == f.Category }
func (f CategoryFilter) String() string                      { return "category=" + f.Category }

// MultiCategoryFilter passes elements of any of the listed built-in categories.
type MultiCategoryFilter struct {
	Categories []string
}

func (f MultiCategoryFilter) Passes(_ *Document, e *Element) bool {
	for _, c := range f.Categories {
		if e.Category == c {
			return true
		}
	}
	return false
}
func (f MultiCategoryFilter) String() string { return "categories=" + strings.Join(f.Categories, ",") }

// ClassFilter passes elements whose class is Class or derives from it.
type ClassFilter struct {
	Class Class
}

func (f ClassFilter) Passes(_ *Document, e *Element) bool { return e.Is(f.Class) }
func (f ClassFilter) String() string                      { return "class=" + f.Class.String() }

// FamilySymbolFilter passes family instances of one family type.
type FamilySymbolFilter struct {
	SymbolID ElementID
}

func (f FamilySymbolFilter) Passes(_ *Document, e *Element) bool {
	return e.Is(ClassFamilyInstance) && e.TypeID == f.SymbolID
}
func (f FamilySymbolFilter) String() string { return fmt.Sprintf("familySymbol=%d", f.SymbolID) }

// BoundingBoxIntersectsFilter passes elements whose box overlaps Outline.
// Elements without geometry never pass.
type BoundingBoxIntersectsFilter struct {
	Outline geom.Box
}

func (f BoundingBoxIntersectsFilter) Passes(_ *Document, e *Element) bool {
	return e.Box != nil && e.Box.Intersects(f.Outline)
}
func (f BoundingBoxIntersectsFilter) String() string { return "boundingBoxIntersects" }

// ElementIsElementTypeFilter passes type elements, or non-type elements when Inverted.
type ElementIsElementTypeFilter struct {
	Inverted bool
}

func (f ElementIsElementTypeFilter) Passes(_ *Document, e *Element) bool {
	return e.IsElementType() != f.Inverted
}

func (f ElementIsElementTypeFilter) String() string {
	if f.Inverted {
		return "isNotElementType"
	}
	return "isElementType"
}

// VisibleInViewFilter passes elements drawn in a view.
type VisibleInViewFilter struct {
	ViewID ElementID
}

func (f VisibleInViewFilter) Passes(doc *Document, e *Element) bool {
	view, ok := doc.Element(f.ViewID)
	if !ok || view.View == nil {
		return false
	}
	return doc.IsVisibleInView(e, view)
}
func (f VisibleInViewFilter) String() string { return fmt.Sprintf("visibleInView=%d", f.ViewID) }

// DrawnInViewFilter is VisibleInViewFilter without the hide and isolate state.
type DrawnInViewFilter struct {
	ViewID ElementID
}

func (f DrawnInViewFilter) Passes(doc *Document, e *Element) bool {
	view, ok := doc.Element(f.ViewID)
	return ok && doc.IsDrawnInView(e, view)
}
func (f DrawnInViewFilter) String() string { return fmt.Sprintf("drawnInView=%d", f.ViewID) }

// LogicalAndFilter passes elements accepted by every member.
type LogicalAndFilter struct {
	Filters []ElementFilter
}

// And combines filters; a single filter is returned as is.
func And(filters ...ElementFilter) ElementFilter {
	if len(filters) == 1 {
		return filters[0]
	}
	return LogicalAndFilter{Filters: filters}
}

func (f LogicalAndFilter) Passes(doc *Document, e *Element) bool {
	for _, sub := range f.Filters {
		if !sub.Passes(doc, e) {
			return false
		}
	}
	return true
}

func (f LogicalAndFilter) String() string {
	parts := make([]string, len(f.Filters))
	for i, sub := range f.Filters {
		parts[i] = sub.String()
	}
	return "and(" + strings.Join(parts, ", ") + ")"
}

// IsHiddenInView reports whether e is hidden in view permanently or temporarily.
func (d *Document) IsHiddenInView(e, view *Element) bool {
	if view.View == nil {
		return false
	}
	v := view.View
	if v.Hidden[e.ID] || v.TempHidden[e.ID] {
		return true
	}
	if len(v.Isolated) > 0 && !v.Isolated[e.ID] {
		return true
	}
	return false
}

// IsVisibleInView reports whether e is drawn in view and not hidden there.
func (d *Document) IsVisibleInView(e, view *Element) bool {
	return d.IsDrawnInView(e, view) && !d.IsHiddenInView(e, view)
}

// IsDrawnInView reports whether view would draw e, ignoring hide state.
// View-specific elements belong to their owner view only. Model elements are
// drawn in graphical views, filtered by the level of plan views and by the
// section box of 3D views.
func (d *Document) IsDrawnInView(e, view *Element) bool {
	if view.View == nil || e.IsElementType() || e.View != nil {
		return false
	}
	if e.ViewSpecific() {
		return e.OwnerViewID == view.ID
	}
	v := view.View
	if !v.Graphical() || v.IsTemplate {
		return false
	}
	if v.GenLevelID.Valid() && e.LevelID.Valid() && e.LevelID != v.GenLevelID {
		return false
	}
	if v.SectionBox != nil && e.Box != nil && !e.Box.Intersects(*v.SectionBox) {
		return false
	}
	return true
}

// Collector gathers elements from a document in creation order.
type Collector struct {
	doc     *Document
	filters []ElementFilter
}

// NewCollector collects over the whole document.
func NewCollector(doc *Document) *Collector {
	return &Collector{doc: doc}
}

// NewViewCollector collects elements visible in a view.
func NewViewCollector(doc *Document, viewID ElementID) (*Collector, error) {
	view, err := doc.MustElement(viewID)
	if err != nil {
		return nil, err
	}
	if view.View == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotAView, viewID)
	}
	c := NewCollector(doc)
	c.filters = append(c.filters, VisibleInViewFilter{ViewID: viewID})
	return c, nil
}

// WherePasses adds a filter.
func (c *Collector) WherePasses(f ElementFilter) *Collector {
	c.filters = append(c.filters, f)
	return c
}

// WhereElementIsElementType keeps type elements.
func (c *Collector) WhereElementIsElementType() *Collector {
	return c.WherePasses(ElementIsElementTypeFilter{})
}

// WhereElementIsNotElementType keeps non-type elements.
func (c *Collector) WhereElementIsNotElementType() *Collector {
	return c.WherePasses(ElementIsElementTypeFilter{Inverted: true})
}

// OfCategory keeps elements of a category.
func (c *Collector) OfCategory(category string) *Collector {
	return c.WherePasses(CategoryFilter{Category: category})
}

// OfClass keeps elements of a class.
func (c *Collector) OfClass(class Class) *Collector {
	return c.WherePasses(ClassFilter{Class: class})
}

// Elements returns matching elements in creation order.
func (c *Collector) Elements() []*Element {
	var out []*Element
	c.Each(func(e *Element) bool {
		out = append(out, e)
		return true
	})
	return out
}

// IDs returns the ids of matching elements.
func (c *Collector) IDs() []ElementID {
	var out []ElementID
	c.Each(func(e *Element) bool {
		out = append(out, e.ID)
		return true
	})
	return out
}

// Count returns the number of matching elements.
func (c *Collector) Count() int {
	n := 0
	c.Each(func(*Element) bool {
		n++
		return true
	})
	return n
}

// Each calls fn for matching elements until fn returns false.
func (c *Collector) Each(fn func(*Element) bool) {
	c.doc.Each(func(e *Element) bool {
		for _, f := range c.filters {
			if !f.Passes(c.doc, e) {
				return true
			}
		}
		return fn(e)
	})
}
