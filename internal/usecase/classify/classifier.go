// Package classify turns host elements into descriptors. Each element gets a
// kind, then the extractor registered for that kind builds its descriptor.
package classify

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/domain/descriptor"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// Parameter names added by the extractors.
const (
	ParamThickness = "Thickness"
	ParamHeight    = "Height"
)

// extractor builds the descriptor for one kind. It runs on the UI goroutine.
type extractor func(doc *host.Document, e *host.Element) (descriptor.Descriptor, error)

var extractors = map[descriptor.Kind]extractor{
	descriptor.KindInstance:    extractInstance,
	descriptor.KindType:        extractType,
	descriptor.KindPositioning: extractPositioning,
	descriptor.KindSpatial:     extractSpatial,
	descriptor.KindView:        extractView,
	descriptor.KindAnnotation:  extractAnnotation,
	descriptor.KindGroupOrLink: extractGroupOrLink,
	descriptor.KindBasic:       extractBasic,
}

// Classifier describes elements.
type Classifier struct {
	logger  *zap.Logger
	dropped *prometheus.CounterVec // kind
}

// New creates a Classifier. dropped may be nil.
func New(logger *zap.Logger, dropped *prometheus.CounterVec) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger, dropped: dropped}
}

// Describe returns one descriptor per element, in input order. Elements whose
// extractor fails are dropped and logged.
func (c *Classifier) Describe(doc *host.Document, elems []*host.Element) descriptor.List {
	out := make(descriptor.List, 0, len(elems))
	for _, e := range elems {
		d, err := c.DescribeOne(doc, e)
		if err != nil {
			c.logger.Warn("element dropped from result",
				zap.Int64("element_id", int64(e.ID)),
				zap.String("class", e.Class.String()),
				zap.Error(err))
			if c.dropped != nil {
				c.dropped.WithLabelValues(KindOf(e).String()).Inc()
			}
			continue
		}
		out = append(out, d)
	}
	return out
}

// DescribeOne builds the descriptor for a single element. A panicking
// extractor is reported as an error.
func (c *Classifier) DescribeOne(doc *host.Document, e *host.Element) (d descriptor.Descriptor, err error) {
	if e == nil {
		return nil, errors.New("nil element")
	}
	kind := KindOf(e)
	ex, ok := extractors[kind]
	if !ok {
		return nil, fmt.Errorf("no extractor for kind %s", kind)
	}
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("extract %s: panic: %v", kind, r)
		}
	}()
	return ex(doc, e)
}

func extractInstance(doc *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	d := &descriptor.Instance{
		Common:      common(e),
		TypeID:      int64(e.TypeID),
		RoomID:      int64(e.RoomID),
		Level:       levelOf(doc, e),
		BoundingBox: boxOf(e),
		Parameters:  []descriptor.Parameter{},
	}
	if typ, ok := doc.Element(e.TypeID); ok {
		if p, ok := thicknessOf(typ); ok {
			d.Parameters = append(d.Parameters, p)
		}
	}
	if d.BoundingBox != nil {
		h := math.Abs(d.BoundingBox.Max.Z - d.BoundingBox.Min.Z)
		d.Parameters = append(d.Parameters, descriptor.Parameter{Name: ParamHeight, Value: formatMM(h)})
	}
	return d, nil
}

func extractType(_ *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	d := &descriptor.Type{
		Common:     common(e),
		Parameters: dimensionParams(e),
	}
	if p, ok := thicknessOf(e); ok {
		d.Parameters = append(d.Parameters, p)
	}
	return d, nil
}

func extractPositioning(doc *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	d := &descriptor.Positioning{
		Common:       common(e),
		ElementClass: e.Class.String(),
		Level:        levelOf(doc, e),
		BoundingBox:  boxOf(e),
	}
	switch e.Class {
	case host.ClassLevel:
		elev := geom.FromInternal(e.Elevation)
		d.Elevation = &elev
	case host.ClassGrid:
		if e.Location.Kind == host.LocationCurve {
			d.GridLine = &descriptor.Line{
				P0: e.Location.Curve.Start.External(),
				P1: e.Location.Curve.End.External(),
			}
		}
	}
	return d, nil
}

func extractSpatial(doc *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	d := &descriptor.Spatial{
		Common:       common(e),
		ElementClass: e.Class.String(),
		Level:        levelOf(doc, e),
		BoundingBox:  boxOf(e),
	}
	if e.Class == host.ClassRoom || e.Class == host.ClassArea {
		d.Number = e.Number
	}
	if e.Class == host.ClassRoom {
		if p, ok := e.Param("ROOM_VOLUME"); ok && p.HasValue() {
			v := geom.VolumeFromInternal(p.Num)
			d.Volume = &v
		}
	}
	if p, ok := e.Param("ROOM_AREA"); ok && p.HasValue() {
		a := geom.AreaFromInternal(p.Num)
		d.Area = &a
	}
	if p, ok := e.Param("ROOM_PERIMETER"); ok && p.HasValue() {
		l := geom.FromInternal(p.Num)
		d.Perimeter = &l
	}
	return d, nil
}

func extractView(doc *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	if e.View == nil {
		return nil, fmt.Errorf("view %d has no view data", e.ID)
	}
	v := e.View
	d := &descriptor.View{
		Common:       common(e),
		ElementClass: e.Class.String(),
		ViewType:     v.ViewType,
		IsTemplate:   v.IsTemplate,
		DetailLevel:  v.DetailLevel,
		BoundingBox:  boxOf(e),
		IsOpen:       doc.IsOpen(e.ID),
	}
	if v.Scale > 0 {
		scale := v.Scale
		d.Scale = &scale
	}
	if e.Class == host.ClassViewPlan {
		d.AssociatedLevel = levelByID(doc, v.GenLevelID)
	}
	if active, ok := doc.ActiveView(); ok && d.IsOpen && active.ID == e.ID {
		d.IsActive = true
	}
	return d, nil
}

func extractAnnotation(doc *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	d := &descriptor.Annotation{
		Common:       common(e),
		ElementClass: e.Class.String(),
		BoundingBox:  boxOf(e),
	}
	if p, ok := e.Param("VIEW_NAME"); ok && p.HasValue() {
		d.OwnerView = p.Text
	} else if owner, ok := doc.Element(e.OwnerViewID); ok {
		d.OwnerView = owner.Name
	}

	switch {
	case e.Class == host.ClassTextNote:
		d.TextContent = e.Text
		d.Position = pointOf(e)
	case e.Is(host.ClassDimension):
		if e.Measured != nil {
			d.DimensionValue = formatMM(geom.FromInternal(*e.Measured))
		}
		switch e.Location.Kind {
		case host.LocationCurve:
			origin := e.Location.Curve.Start.Midpoint(e.Location.Curve.End).External()
			d.Position = &origin
		case host.LocationPoint:
			d.Position = pointOf(e)
		}
	case e.Is(host.ClassAnnotationSymbol):
		d.Position = pointOf(e)
	}
	return d, nil
}

func extractGroupOrLink(doc *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	d := &descriptor.GroupOrLink{
		Common:       common(e),
		ElementClass: e.Class.String(),
		BoundingBox:  boxOf(e),
	}
	typ, hasType := doc.Element(e.TypeID)
	switch e.Class {
	case host.ClassGroup:
		n := len(e.Members)
		d.MemberCount = &n
		if hasType {
			d.GroupType = typ.Name
		}
	case host.ClassRevitLinkInstance:
		if hasType && typ.Class == host.ClassRevitLinkType && typ.Link != nil {
			d.LinkPath = typ.Link.Path
			d.LinkStatus = typ.Link.Status
		} else {
			d.LinkStatus = "Invalid"
		}
		d.Position = pointOf(e)
	}
	return d, nil
}

func extractBasic(_ *host.Document, e *host.Element) (descriptor.Descriptor, error) {
	return &descriptor.Basic{Common: common(e), BoundingBox: boxOf(e)}, nil
}

func common(e *host.Element) descriptor.Common {
	c := descriptor.Common{
		Identity:        descriptor.Identity{ID: int64(e.ID), UniqueID: e.UniqueID},
		Name:            e.Name,
		FamilyName:      e.FamilyName,
		BuiltInCategory: e.Category,
	}
	if cat, ok := host.LookupCategory(e.Category); ok {
		c.Category = cat.Name
		c.BuiltInCategory = cat.BuiltIn
	}
	return c
}

func boxOf(e *host.Element) *descriptor.BoundingBox {
	if e.Box == nil {
		return nil
	}
	lo, hi := e.Box.External()
	return &descriptor.BoundingBox{Min: lo, Max: hi}
}

func pointOf(e *host.Element) *geom.Point {
	if e.Location.Kind != host.LocationPoint {
		return nil
	}
	p := e.Location.Point.External()
	return &p
}

// levelOf follows the level lookup chain for the element's class.
func levelOf(doc *host.Document, e *host.Element) *descriptor.Level {
	var id host.ElementID
	switch {
	case e.Class == host.ClassWall:
		id = e.LevelID
	case e.Class == host.ClassFloor:
		id = refParam(e, "LEVEL_PARAM")
	case e.Is(host.ClassFamilyInstance):
		if id = refParam(e, "FAMILY_LEVEL_PARAM"); !id.Valid() {
			id = refParam(e, "SCHEDULE_LEVEL_PARAM")
		}
	default:
		if id = refParam(e, "INSTANCE_REFERENCE_LEVEL_PARAM"); !id.Valid() {
			id = e.LevelID
		}
	}
	return levelByID(doc, id)
}

func levelByID(doc *host.Document, id host.ElementID) *descriptor.Level {
	if !id.Valid() {
		return nil
	}
	lvl, ok := doc.Element(id)
	if !ok || lvl.Class != host.ClassLevel {
		return nil
	}
	return &descriptor.Level{
		ID:     int64(lvl.ID),
		Name:   lvl.Name,
		Height: geom.FromInternal(lvl.Elevation),
	}
}

func refParam(e *host.Element, builtIn string) host.ElementID {
	p, ok := e.Param(builtIn)
	if !ok || p.Spec != host.SpecElementID {
		return host.InvalidElementID
	}
	return p.Ref
}

// thicknessOf reads the thickness of a type element.
func thicknessOf(typ *host.Element) (descriptor.Parameter, bool) {
	var key string
	switch {
	case typ.Class == host.ClassWallType:
		key = "WALL_ATTR_WIDTH_PARAM"
	case typ.Class == host.ClassFloorType:
		key = "FLOOR_ATTR_THICKNESS_PARAM"
	case typ.Class == host.ClassCeilingType:
		key = "CEILING_THICKNESS"
	case typ.Is(host.ClassFamilySymbol) && (typ.Category == "OST_Doors" || typ.Category == "OST_Windows"):
		key = "FAMILY_THICKNESS_PARAM"
	default:
		return descriptor.Parameter{}, false
	}
	p, ok := typ.Param(key)
	if !ok || !p.HasValue() {
		return descriptor.Parameter{}, false
	}
	return descriptor.Parameter{Name: ParamThickness, Value: formatMM(geom.FromInternal(p.Num))}, true
}

// dimensionParams returns the editable measurable parameters, sorted by name.
func dimensionParams(e *host.Element) []descriptor.Parameter {
	out := []descriptor.Parameter{}
	for _, p := range e.Parameters() {
		if p.ReadOnly || !p.HasValue() || !p.Spec.IsMeasurable() {
			continue
		}
		v := p.ValueString()
		if v == "" {
			continue
		}
		out = append(out, descriptor.Parameter{Name: p.Name, Value: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func formatMM(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
