// Package descriptor defines the serializable per-element snapshots produced
// by the classifier. The set of variants is closed: every Descriptor is one of
// the eight structs in this package, selected by Kind.
package descriptor

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

// Kind is the role of an element, computed once per element.
type Kind uint8

// Kinds in classifier priority order.
const (
	KindInstance Kind = iota
	KindType
	KindPositioning
	KindSpatial
	KindView
	KindAnnotation
	KindGroupOrLink
	KindBasic
)

var kindNames = [...]string{
	KindInstance:    "instance",
	KindType:        "type",
	KindPositioning: "positioning",
	KindSpatial:     "spatial",
	KindView:        "view",
	KindAnnotation:  "annotation",
	KindGroupOrLink: "group_or_link",
	KindBasic:       "basic",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown descriptor kind %q", s)
}

// Descriptor is implemented only by the variants in this package.
type Descriptor interface {
	Kind() Kind
	Ident() Identity
	sealed()
}

// Identity is the stable id pair shared by every variant.
type Identity struct {
	ID       int64  `json:"id"`
	UniqueID string `json:"uniqueId"`
}

// Ident returns the identity.
func (i Identity) Ident() Identity { return i }

// Common holds the fields every descriptor reports about its source element.
type Common struct {
	Identity
	Name            string `json:"name"`
	FamilyName      string `json:"familyName,omitempty"`
	Category        string `json:"category,omitempty"`
	BuiltInCategory string `json:"builtInCategory,omitempty"`
}

// BoundingBox is an axis-aligned box in millimetres.
type BoundingBox struct {
	Min geom.Point `json:"min"`
	Max geom.Point `json:"max"`
}

// Level identifies a level and its elevation in millimetres.
type Level struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Height float64 `json:"height"`
}

// Parameter is a display name/value pair.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Line is a straight segment in millimetres.
type Line struct {
	P0 geom.Point `json:"p0"`
	P1 geom.Point `json:"p1"`
}

// Instance describes a placed model element with material quantities.
type Instance struct {
	Common
	TypeID      int64        `json:"typeId"`
	RoomID      int64        `json:"roomId"`
	Level       *Level       `json:"level,omitempty"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
	Parameters  []Parameter  `json:"parameters"`
}

// Type describes a type definition.
type Type struct {
	Common
	Parameters []Parameter `json:"parameters"`
}

// Positioning describes a level or grid.
type Positioning struct {
	Common
	ElementClass string       `json:"elementClass"`
	Elevation    *float64     `json:"elevation,omitempty"`
	GridLine     *Line        `json:"gridLine,omitempty"`
	Level        *Level       `json:"level,omitempty"`
	BoundingBox  *BoundingBox `json:"boundingBox,omitempty"`
}

// Spatial describes a room, area or space.
type Spatial struct {
	Common
	ElementClass string       `json:"elementClass"`
	Number       string       `json:"number,omitempty"`
	Area         *float64     `json:"area,omitempty"`
	Volume       *float64     `json:"volume,omitempty"`
	Perimeter    *float64     `json:"perimeter,omitempty"`
	Level        *Level       `json:"level,omitempty"`
	BoundingBox  *BoundingBox `json:"boundingBox,omitempty"`
}

// View describes a view.
type View struct {
	Common
	ElementClass    string       `json:"elementClass"`
	ViewType        string       `json:"viewType"`
	Scale           *int         `json:"scale,omitempty"`
	IsTemplate      bool         `json:"isTemplate"`
	DetailLevel     string       `json:"detailLevel,omitempty"`
	AssociatedLevel *Level       `json:"associatedLevel,omitempty"`
	BoundingBox     *BoundingBox `json:"boundingBox,omitempty"`
	IsOpen          bool         `json:"isOpen"`
	IsActive        bool         `json:"isActive"`
}

// Annotation describes a view-specific annotation.
type Annotation struct {
	Common
	ElementClass   string       `json:"elementClass"`
	OwnerView      string       `json:"ownerView,omitempty"`
	TextContent    string       `json:"textContent,omitempty"`
	DimensionValue string       `json:"dimensionValue,omitempty"`
	Position       *geom.Point  `json:"position,omitempty"`
	BoundingBox    *BoundingBox `json:"boundingBox,omitempty"`
}

// GroupOrLink describes a model group or a linked model instance.
type GroupOrLink struct {
	Common
	ElementClass string       `json:"elementClass"`
	MemberCount  *int         `json:"memberCount,omitempty"`
	GroupType    string       `json:"groupType,omitempty"`
	LinkStatus   string       `json:"linkStatus,omitempty"`
	LinkPath     string       `json:"linkPath,omitempty"`
	Position     *geom.Point  `json:"position,omitempty"`
	BoundingBox  *BoundingBox `json:"boundingBox,omitempty"`
}

// Basic is the fallback for everything else.
type Basic struct {
	Common
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// Kind implementations.
func (*Instance) Kind() Kind    { return KindInstance }
func (*Type) Kind() Kind        { return KindType }
func (*Positioning) Kind() Kind { return KindPositioning }
func (*Spatial) Kind() Kind     { return KindSpatial }
func (*View) Kind() Kind        { return KindView }
func (*Annotation) Kind() Kind  { return KindAnnotation }
func (*GroupOrLink) Kind() Kind { return KindGroupOrLink }
func (*Basic) Kind() Kind       { return KindBasic }

func (*Instance) sealed()    {}
func (*Type) sealed()        {}
func (*Positioning) sealed() {}
func (*Spatial) sealed()     {}
func (*View) sealed()        {}
func (*Annotation) sealed()  {}
func (*GroupOrLink) sealed() {}
func (*Basic) sealed()       {}

// Marshal encodes d with a leading "kind" discriminator.
func Marshal(d Descriptor) ([]byte, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal %s descriptor: %w", d.Kind(), err)
	}
	kind, _ := json.Marshal(d.Kind().String())
	out := make([]byte, 0, len(body)+len(kind)+10)
	out = append(out, `{"kind":`...)
	out = append(out, kind...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// List is a descriptor slice that encodes each element with its kind.
type List []Descriptor

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(l))
	for i, d := range l {
		raw, err := Marshal(d)
		if err != nil {
			return nil, err
		}
		items[i] = raw
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes a list produced by MarshalJSON.
func (l *List) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode descriptor list: %w", err)
	}
	out := make(List, 0, len(items))
	for _, raw := range items {
		d, err := Unmarshal(raw)
		if err != nil {
			return err
		}
		out = append(out, d)
	}
	*l = out
	return nil
}

// Unmarshal decodes one descriptor using its "kind" field.
func Unmarshal(data []byte) (Descriptor, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode descriptor kind: %w", err)
	}
	kind, err := ParseKind(head.Kind)
	if err != nil {
		return nil, err
	}
	d := newOfKind(kind)
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("decode %s descriptor: %w", kind, err)
	}
	return d, nil
}

func newOfKind(k Kind) Descriptor {
	switch k {
	case KindInstance:
		return &Instance{}
	case KindType:
		return &Type{}
	case KindPositioning:
		return &Positioning{}
	case KindSpatial:
		return &Spatial{}
	case KindView:
		return &View{}
	case KindAnnotation:
		return &Annotation{}
	case KindGroupOrLink:
		return &GroupOrLink{}
	default:
		return &Basic{}
	}
}
