// Package filter defines the declarative element filter description.
package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

// DefaultMaxElements caps the result size when the caller sets nothing.
const DefaultMaxElements = 50

// NoFamilySymbol marks an unset family type id.
const NoFamilySymbol int64 = -1

// Params is the wire form of a filter request. Decode into DefaultParams()
// so omitted fields keep their defaults.
type Params struct {
	Category            string      `json:"filterCategory,omitempty"`
	ElementType         string      `json:"filterElementType,omitempty"`
	FamilySymbolID      int64       `json:"filterFamilySymbolId"`
	IncludeTypes        bool        `json:"includeTypes"`
	IncludeInstances    bool        `json:"includeInstances"`
	VisibleInActiveView bool        `json:"filterVisibleInCurrentView"`
	BoundingBoxMin      *geom.Point `json:"boundingBoxMin,omitempty"`
	BoundingBoxMax      *geom.Point `json:"boundingBoxMax,omitempty"`
	MaxElements         int         `json:"maxElements"`
}

// DefaultParams returns the defaults: instances only, no family filter, 50 results.
func DefaultParams() Params {
	return Params{
		FamilySymbolID:   NoFamilySymbol,
		IncludeInstances: true,
		MaxElements:      DefaultMaxElements,
	}
}

// Description is a validated, immutable filter.
type Description struct {
	category            string
	elementType         string
	familySymbolID      int64
	includeTypes        bool
	includeInstances    bool
	visibleInActiveView bool
	bounds              *bounds
	maxElements         int
}

type bounds struct {
	min, max geom.Point
}

// New validates p and creates a Description. Every failure wraps domain.ErrValidation.
// Category and element type names are trimmed; blank names count as unset.
func New(p Params) (Description, error) {
	p.Category = strings.TrimSpace(p.Category)
	p.ElementType = strings.TrimSpace(p.ElementType)
	if !p.IncludeTypes && !p.IncludeInstances {
		return Description{}, fmt.Errorf(
			"%w: at least one of includeTypes and includeInstances must be true", domain.ErrValidation)
	}
	if p.Category == "" && p.ElementType == "" && p.FamilySymbolID <= 0 {
		return Description{}, fmt.Errorf(
			"%w: no primary filter condition specified (category, element type or family type id)",
			domain.ErrValidation)
	}
	if p.IncludeTypes && !p.IncludeInstances {
		if p.FamilySymbolID > 0 {
			return Description{}, fmt.Errorf(
				"%w: family type filter applies to instances only", domain.ErrValidation)
		}
		if p.VisibleInActiveView {
			return Description{}, fmt.Errorf(
				"%w: view visibility filter applies to instances only", domain.ErrValidation)
		}
	}

	d := Description{
		category:            p.Category,
		elementType:         p.ElementType,
		familySymbolID:      p.FamilySymbolID,
		includeTypes:        p.IncludeTypes,
		includeInstances:    p.IncludeInstances,
		visibleInActiveView: p.VisibleInActiveView,
		maxElements:         p.MaxElements,
	}
	if d.familySymbolID <= 0 {
		d.familySymbolID = NoFamilySymbol
	}

	if (p.BoundingBoxMin == nil) != (p.BoundingBoxMax == nil) {
		return Description{}, fmt.Errorf(
			"%w: boundingBoxMin and boundingBoxMax must be set together", domain.ErrValidation)
	}
	if p.BoundingBoxMin != nil {
		lo, hi := *p.BoundingBoxMin, *p.BoundingBoxMax
		if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
			return Description{}, fmt.Errorf(
				"%w: boundingBoxMin must not exceed boundingBoxMax on any axis", domain.ErrValidation)
		}
		d.bounds = &bounds{min: lo, max: hi}
	}

	return d, nil
}

// Params returns the wire form of the description.
func (d Description) Params() Params {
	p := Params{
		Category:            d.category,
		ElementType:         d.elementType,
		FamilySymbolID:      d.familySymbolID,
		IncludeTypes:        d.includeTypes,
		IncludeInstances:    d.includeInstances,
		VisibleInActiveView: d.visibleInActiveView,
		MaxElements:         d.maxElements,
	}
	if d.bounds != nil {
		lo, hi := d.bounds.min, d.bounds.max
		p.BoundingBoxMin = &lo
		p.BoundingBoxMax = &hi
	}
	return p
}

// Category returns the built-in category name, or "".
func (d Description) Category() string { return d.category }

// ElementType returns the concrete class name, or "".
func (d Description) ElementType() string { return d.elementType }

// FamilySymbolID returns the family type id, or NoFamilySymbol.
func (d Description) FamilySymbolID() int64 { return d.familySymbolID }

// HasFamilySymbol reports whether a family type filter is set.
func (d Description) HasFamilySymbol() bool { return d.familySymbolID > 0 }

// IncludeTypes reports whether type definitions are scanned.
func (d Description) IncludeTypes() bool { return d.includeTypes }

// IncludeInstances reports whether placed instances are scanned.
func (d Description) IncludeInstances() bool { return d.includeInstances }

// VisibleInActiveView reports whether instances are restricted to the active view.
func (d Description) VisibleInActiveView() bool { return d.visibleInActiveView }

// Bounds returns the spatial bounds in millimetres.
func (d Description) Bounds() (lo, hi geom.Point, ok bool) {
	if d.bounds == nil {
		return geom.Point{}, geom.Point{}, false
	}
	return d.bounds.min, d.bounds.max, true
}

// MaxElements returns the result cap; 0 or less means unlimited.
func (d Description) MaxElements() int { return d.maxElements }

// Limited reports whether results are truncated at MaxElements.
func (d Description) Limited() bool { return d.maxElements > 0 }
