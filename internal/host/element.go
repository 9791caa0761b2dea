package host

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

// ElementID identifies an element within one document.
type ElementID int64

// InvalidElementID is the id of nothing.
const InvalidElementID ElementID = -1

// Valid reports whether id can refer to an element.
func (id ElementID) Valid() bool { return id > 0 }

// Spec is the data type of a parameter.
type Spec uint8

// Parameter specs.
const (
	SpecText Spec = iota
	SpecInteger
	SpecNumber
	SpecLength
	SpecArea
	SpecVolume
	SpecAngle
	SpecElementID
)

var specNames = [...]string{"text", "integer", "number", "length", "area", "volume", "angle", "elementId"}

func (s Spec) String() string {
	if int(s) < len(specNames) {
		return specNames[s]
	}
	return "spec(" + strconv.Itoa(int(s)) + ")"
}

// IsMeasurable reports whether values of this spec are dimensions.
func (s Spec) IsMeasurable() bool {
	switch s {
	case SpecLength, SpecArea, SpecVolume, SpecAngle:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (s Spec) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Spec) UnmarshalText(b []byte) error {
	for i, n := range specNames {
		if n == string(b) {
			*s = Spec(i)
			return nil
		}
	}
	return &UnknownNameError{What: "parameter spec", Name: string(b)}
}

// Parameter is a named value on an element. Numeric values are stored in
// internal units: feet, square feet, cubic feet and radians.
type Parameter struct {
	Name     string    `json:"name"`
	BuiltIn  string    `json:"builtIn,omitempty"`
	Spec     Spec      `json:"spec"`
	Num      float64   `json:"num,omitempty"`
	Text     string    `json:"text,omitempty"`
	Ref      ElementID `json:"ref,omitempty"`
	ReadOnly bool      `json:"readOnly,omitempty"`
}

// Key is the map key of the parameter on its element.
func (p Parameter) Key() string {
	if p.BuiltIn != "" {
		return p.BuiltIn
	}
	return p.Name
}

// HasValue reports whether the parameter carries a value.
func (p Parameter) HasValue() bool {
	switch p.Spec {
	case SpecText:
		return p.Text != ""
	case SpecElementID:
		return p.Ref.Valid()
	}
	return true
}

// ValueString formats the value in display units: millimetres for lengths,
// square and cubic millimetres for areas and volumes, degrees for angles.
func (p Parameter) ValueString() string {
	switch p.Spec {
	case SpecText:
		return p.Text
	case SpecElementID:
		return strconv.FormatInt(int64(p.Ref), 10)
	case SpecInteger:
		return strconv.FormatInt(int64(p.Num), 10)
	case SpecLength:
		return formatNum(geom.FromInternal(p.Num)) + " mm"
	case SpecArea:
		return formatNum(geom.AreaFromInternal(p.Num)) + " mm²"
	case SpecVolume:
		return formatNum(geom.VolumeFromInternal(p.Num)) + " mm³"
	case SpecAngle:
		return formatNum(p.Num*180/math.Pi) + "°"
	default:
		return formatNum(p.Num)
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(roundTo(v, 2), 'f', -1, 64)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// LocationKind tells how an element is placed.
type LocationKind uint8

// Location kinds.
const (
	LocationNone LocationKind = iota
	LocationPoint
	LocationCurve
)

// Location is the placement of an element.
type Location struct {
	Kind     LocationKind `json:"kind"`
	Point    geom.XYZ     `json:"point,omitzero"`
	Curve    geom.Line    `json:"curve,omitzero"`
	Rotation float64      `json:"rotation,omitempty"`
}

// ViewData is the view-specific state of a view element.
type ViewData struct {
	ViewType    string                 `json:"viewType"`
	Scale       int                    `json:"scale,omitempty"`
	IsTemplate  bool                   `json:"isTemplate,omitempty"`
	DetailLevel string                 `json:"detailLevel,omitempty"`
	GenLevelID  ElementID              `json:"genLevelId,omitempty"`
	SectionBox  *geom.Box              `json:"sectionBox,omitempty"`
	Hidden      map[ElementID]bool     `json:"hidden,omitempty"`
	TempHidden  map[ElementID]bool     `json:"tempHidden,omitempty"`
	Isolated    map[ElementID]bool     `json:"isolated,omitempty"`
	Overrides   map[ElementID]Override `json:"overrides,omitempty"`
}

// Graphical reports whether model elements are drawn in views of this type.
func (v *ViewData) Graphical() bool {
	switch v.ViewType {
	case "Schedule", "DrawingSheet", "Legend", "ProjectBrowser", "SystemBrowser", "Internal":
		return false
	}
	return true
}

// Override is a per-view graphic override.
type Override struct {
	Color        *RGB `json:"color,omitempty"`
	Transparency int  `json:"transparency,omitempty"`
}

// RGB is an 8-bit color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// LinkData describes a linked model instance.
type LinkData struct {
	Path   string `json:"path,omitempty"`
	Status string `json:"status,omitempty"`
}

// Element is one object in a document. Elements returned by Document
// lookups are shared; change them only through Document.Modify.
type Element struct {
	ID          ElementID            `json:"id"`
	UniqueID    string               `json:"uniqueId"`
	Class       Class                `json:"class"`
	Category    string               `json:"category,omitempty"`
	Name        string               `json:"name"`
	FamilyName  string               `json:"familyName,omitempty"`
	TypeID      ElementID            `json:"typeId,omitempty"`
	LevelID     ElementID            `json:"levelId,omitempty"`
	RoomID      ElementID            `json:"roomId,omitempty"`
	OwnerViewID ElementID            `json:"ownerViewId,omitempty"`
	Location    Location             `json:"location,omitzero"`
	Box         *geom.Box            `json:"box,omitempty"`
	Params      map[string]Parameter `json:"params,omitempty"`
	Pinned      bool                 `json:"pinned,omitempty"`

	Elevation float64     `json:"elevation,omitempty"` // levels
	Number    string      `json:"number,omitempty"`    // rooms, areas, spaces
	Boundary  []geom.XYZ  `json:"boundary,omitempty"`  // rooms, floors, ceilings, roofs
	Text      string      `json:"text,omitempty"`      // text notes
	Measured  *float64    `json:"measured,omitempty"`  // dimensions
	Refs      []ElementID `json:"refs,omitempty"`      // dimension references
	Members   []ElementID `json:"members,omitempty"`   // groups
	Link      *LinkData   `json:"link,omitempty"`
	View      *ViewData   `json:"view,omitempty"`
}

// Is reports whether the element's class is base or derives from it.
func (e *Element) Is(base Class) bool { return e.Class.Is(base) }

// IsElementType reports whether the element is a type definition.
func (e *Element) IsElementType() bool { return e.Class.IsElementType() }

// ViewSpecific reports whether the element belongs to a single view.
func (e *Element) ViewSpecific() bool { return e.OwnerViewID.Valid() }

// Param returns the parameter stored under a built-in or display name.
func (e *Element) Param(key string) (Parameter, bool) {
	p, ok := e.Params[key]
	if ok {
		return p, true
	}
	for _, p := range e.Params {
		if p.Name == key {
			return p, true
		}
	}
	return Parameter{}, false
}

// SetParam stores p under its key.
func (e *Element) SetParam(p Parameter) {
	if e.Params == nil {
		e.Params = make(map[string]Parameter)
	}
	e.Params[p.Key()] = p
}

// Parameters returns all parameters sorted by display name.
func (e *Element) Parameters() []Parameter {
	out := make([]Parameter, 0, len(e.Params))
	for _, p := range e.Params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func (e *Element) String() string {
	return fmt.Sprintf("%s %d %q", e.Class, e.ID, e.Name)
}

// Clone returns a deep copy.
func (e *Element) Clone() *Element {
	c := *e
	if e.Box != nil {
		b := *e.Box
		c.Box = &b
	}
	if e.Params != nil {
		c.Params = make(map[string]Parameter, len(e.Params))
		for k, v := range e.Params {
			c.Params[k] = v
		}
	}
	if e.Measured != nil {
		m := *e.Measured
		c.Measured = &m
	}
	c.Boundary = cloneSlice(e.Boundary)
	c.Refs = cloneSlice(e.Refs)
	c.Members = cloneSlice(e.Members)
	if e.Link != nil {
		l := *e.Link
		c.Link = &l
	}
	if e.View != nil {
		c.View = e.View.clone()
	}
	return &c
}

func (v *ViewData) clone() *ViewData {
	c := *v
	if v.SectionBox != nil {
		b := *v.SectionBox
		c.SectionBox = &b
	}
	c.Hidden = cloneMap(v.Hidden)
	c.TempHidden = cloneMap(v.TempHidden)
	c.Isolated = cloneMap(v.Isolated)
	if v.Overrides != nil {
		c.Overrides = make(map[ElementID]Override, len(v.Overrides))
		for k, o := range v.Overrides {
			if o.Color != nil {
				col := *o.Color
				o.Color = &col
			}
			c.Overrides[k] = o
		}
	}
	return &c
}

func cloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
