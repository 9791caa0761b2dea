package host

import (
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

// ErrInvalidPlacement reports creation input the host rejects.
var ErrInvalidPlacement = errors.New("invalid placement")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidPlacement}, args...)...)
}

// TypeDefinition describes a new type element.
type TypeDefinition struct {
	Class      Class
	Category   string
	FamilyName string
	Name       string
	Params     []Parameter
	Link       *LinkData
}

// CreateType adds a type element.
func (d *Document) CreateType(def TypeDefinition) (*Element, error) {
	if !def.Class.IsElementType() {
		return nil, invalid("class %s is not an element type", def.Class)
	}
	if def.Name == "" {
		return nil, invalid("type name is empty")
	}
	e := &Element{
		Class:      def.Class,
		Category:   def.Category,
		FamilyName: def.FamilyName,
		Name:       def.Name,
		TypeID:     InvalidElementID,
		LevelID:    InvalidElementID,
		RoomID:     InvalidElementID,
		Link:       def.Link,
	}
	for _, p := range def.Params {
		e.SetParam(p)
	}
	return d.add(e)
}

// CreateLevel adds a level at an elevation in feet.
func (d *Document) CreateLevel(name string, elevation float64) (*Element, error) {
	e := newElement(ClassLevel, "OST_Levels", name)
	e.Elevation = elevation
	e.SetParam(NumParam("LEVEL_ELEV", elevation))
	return d.add(e)
}

// CreateGrid adds a grid line.
func (d *Document) CreateGrid(name string, line geom.Line) (*Element, error) {
	if line.Length() == 0 {
		return nil, invalid("grid %q has zero length", name)
	}
	e := newElement(ClassGrid, "OST_Grids", name)
	e.Location = Location{Kind: LocationCurve, Curve: line}
	box, _ := geom.BoxOf(line.Start, line.End)
	e.Box = &box
	return d.add(e)
}

// LinePlacement places a wall or a line-based family instance such as a beam.
type LinePlacement struct {
	Class      Class
	Category   string
	TypeID     ElementID
	LevelID    ElementID
	Curve      geom.Line
	Height     float64
	BaseOffset float64
	Thickness  float64 // overrides the type width when positive
}

// CreateLineBased places an element along a curve. The curve's z is ignored:
// elements sit on their level plus BaseOffset.
func (d *Document) CreateLineBased(p LinePlacement) (*Element, error) {
	if p.Curve.Length() < 1e-6 {
		return nil, invalid("curve is too short")
	}
	typ, level, err := d.placementRefs(p.TypeID, p.LevelID, p.Category)
	if err != nil {
		return nil, err
	}
	base := level.Elevation + p.BaseOffset
	curve := geom.Line{
		Start: geom.XYZ{X: p.Curve.Start.X, Y: p.Curve.Start.Y, Z: base},
		End:   geom.XYZ{X: p.Curve.End.X, Y: p.Curve.End.Y, Z: base},
	}

	e := newElement(p.Class, p.Category, typ.Name)
	e.FamilyName = typ.FamilyName
	e.TypeID = typ.ID
	e.LevelID = level.ID
	e.Location = Location{Kind: LocationCurve, Curve: curve}
	e.SetParam(NumParam("CURVE_ELEM_LENGTH", curve.Length()))

	switch p.Class {
	case ClassWall:
		if p.Height <= 0 {
			return nil, invalid("wall height must be positive")
		}
		width := p.Thickness
		if width <= 0 {
			width = typeNum(typ, "WALL_ATTR_WIDTH_PARAM", 0)
		}
		e.Box = sweptBox(curve, width/2, base, base+p.Height)
		e.SetParam(NumParam("WALL_USER_HEIGHT_PARAM", p.Height))
		e.SetParam(NumParam("WALL_BASE_OFFSET", p.BaseOffset))
		e.SetParam(RefParam("WALL_BASE_CONSTRAINT", level.ID))
	case ClassFamilyInstance:
		if !typ.Is(ClassFamilySymbol) {
			return nil, invalid("type %d is not a family type", typ.ID)
		}
		width := p.Thickness
		if width <= 0 {
			width = typeNum(typ, "FAMILY_WIDTH_PARAM", 1)
		}
		depth := p.Height
		if depth <= 0 {
			depth = typeNum(typ, "FAMILY_HEIGHT_PARAM", 1)
		}
		e.Box = sweptBox(curve, width/2, base-depth, base)
		e.SetParam(RefParam("INSTANCE_REFERENCE_LEVEL_PARAM", level.ID))
		e.SetParam(RefParam("SCHEDULE_LEVEL_PARAM", level.ID))
	default:
		return nil, invalid("class %s is not line based", p.Class)
	}
	return d.add(e)
}

// PointPlacement places a family instance at a point.
type PointPlacement struct {
	Category   string
	TypeID     ElementID
	LevelID    ElementID
	Point      geom.XYZ // z is ignored
	BaseOffset float64
	Rotation   float64 // radians about Z
	Width      float64
	Depth      float64
	Height     float64
	HostID     ElementID
}

// CreatePointBased places a family instance. Missing sizes come from the
// family type, then from the host wall, then default to one foot.
func (d *Document) CreatePointBased(p PointPlacement) (*Element, error) {
	typ, level, err := d.placementRefs(p.TypeID, p.LevelID, p.Category)
	if err != nil {
		return nil, err
	}
	if !typ.Is(ClassFamilySymbol) {
		return nil, invalid("type %d is not a family type", typ.ID)
	}

	width := firstPositive(p.Width, typeNum(typ, "FAMILY_WIDTH_PARAM", 0), 1)
	height := firstPositive(p.Height, typeNum(typ, "FAMILY_HEIGHT_PARAM", 0), 1)
	depth := firstPositive(p.Depth, typeNum(typ, "FAMILY_THICKNESS_PARAM", 0))
	if depth <= 0 && p.HostID.Valid() {
		if hostWall, ok := d.Element(p.HostID); ok && hostWall.Class == ClassWall {
			if wt, ok := d.Element(hostWall.TypeID); ok {
				depth = typeNum(wt, "WALL_ATTR_WIDTH_PARAM", 0)
			}
		}
	}
	depth = firstPositive(depth, 1)

	base := level.Elevation + p.BaseOffset
	at := geom.XYZ{X: p.Point.X, Y: p.Point.Y, Z: base}

	e := newElement(ClassFamilyInstance, p.Category, typ.Name)
	e.FamilyName = typ.FamilyName
	e.TypeID = typ.ID
	e.LevelID = level.ID
	e.Location = Location{Kind: LocationPoint, Point: at, Rotation: p.Rotation}
	e.Box = footprintBox(at, width, depth, p.Rotation, base, base+height)
	if room, ok := d.RoomAt(at, level.ID); ok {
		e.RoomID = room.ID
	}
	e.SetParam(RefParam("FAMILY_LEVEL_PARAM", level.ID))
	if p.Category == "OST_Windows" || p.Category == "OST_Doors" {
		e.SetParam(NumParam("INSTANCE_SILL_HEIGHT_PARAM", p.BaseOffset))
		e.SetParam(NumParam("INSTANCE_HEAD_HEIGHT_PARAM", p.BaseOffset+height))
	}
	return d.add(e)
}

// SurfacePlacement places a floor, ceiling or roof from a closed boundary.
type SurfacePlacement struct {
	Class      Class
	Category   string
	TypeID     ElementID
	LevelID    ElementID
	Boundary   []geom.XYZ   // z is ignored
	Openings   [][]geom.XYZ // holes cut from the boundary
	Thickness  float64      // overrides the type thickness when positive
	BaseOffset float64
}

// CreateSurfaceBased places a sketch-based element. Floors hang below their
// level; ceilings and roofs sit on it.
func (d *Document) CreateSurfaceBased(p SurfacePlacement) (*Element, error) {
	if len(p.Boundary) < 3 {
		return nil, invalid("boundary needs at least 3 points, got %d", len(p.Boundary))
	}
	area := polygonArea(p.Boundary)
	for i, hole := range p.Openings {
		if len(hole) < 3 {
			return nil, invalid("opening %d needs at least 3 points, got %d", i, len(hole))
		}
		area -= polygonArea(hole)
	}
	if area < 1e-9 {
		return nil, invalid("boundary encloses no area")
	}
	typ, level, err := d.placementRefs(p.TypeID, p.LevelID, p.Category)
	if err != nil {
		return nil, err
	}

	var thicknessParam, offsetParam string
	switch p.Class {
	case ClassFloor:
		thicknessParam, offsetParam = "FLOOR_ATTR_THICKNESS_PARAM", "FLOOR_HEIGHTABOVELEVEL_PARAM"
	case ClassCeiling:
		thicknessParam, offsetParam = "CEILING_THICKNESS", "CEILING_HEIGHTABOVELEVEL_PARAM"
	case ClassFootPrintRoof:
		thicknessParam = "ROOF_ATTR_THICKNESS_PARAM"
	default:
		return nil, invalid("class %s is not surface based", p.Class)
	}
	thickness := firstPositive(p.Thickness, typeNum(typ, thicknessParam, 0))

	ref := level.Elevation + p.BaseOffset
	lo, hi := ref, ref+thickness
	if p.Class == ClassFloor {
		lo, hi = ref-thickness, ref
	}
	boundary := make([]geom.XYZ, len(p.Boundary))
	corners := make([]geom.XYZ, 0, 2*len(p.Boundary))
	for i, pt := range p.Boundary {
		boundary[i] = geom.XYZ{X: pt.X, Y: pt.Y, Z: ref}
		corners = append(corners, geom.XYZ{X: pt.X, Y: pt.Y, Z: lo}, geom.XYZ{X: pt.X, Y: pt.Y, Z: hi})
	}
	box, _ := geom.BoxOf(corners...)

	e := newElement(p.Class, p.Category, typ.Name)
	e.FamilyName = typ.FamilyName
	e.TypeID = typ.ID
	e.LevelID = level.ID
	e.Boundary = boundary
	e.Box = &box
	e.SetParam(NumParam("HOST_AREA_COMPUTED", area))
	e.SetParam(NumParam("HOST_VOLUME_COMPUTED", area*thickness))
	if p.Class == ClassFootPrintRoof {
		e.SetParam(RefParam("ROOF_BASE_LEVEL_PARAM", level.ID))
	} else {
		e.SetParam(RefParam("LEVEL_PARAM", level.ID))
		e.SetParam(NumParam(offsetParam, p.BaseOffset))
	}
	return d.add(e)
}

// RoomDefinition describes a room, area or space.
type RoomDefinition struct {
	Class    Class
	Name     string
	Number   string
	LevelID  ElementID
	Boundary []geom.XYZ
	Height   float64
}

// CreateRoom adds a spatial element with computed area, perimeter and volume.
func (d *Document) CreateRoom(def RoomDefinition) (*Element, error) {
	if !def.Class.Is(ClassSpatialElement) || def.Class == ClassSpatialElement {
		return nil, invalid("class %s is not a spatial element", def.Class)
	}
	if len(def.Boundary) < 3 {
		return nil, invalid("room %q needs at least 3 boundary points", def.Name)
	}
	level, err := d.MustElement(def.LevelID)
	if err != nil || level.Class != ClassLevel {
		return nil, invalid("level %d not found", def.LevelID)
	}

	category := map[Class]string{ClassRoom: "OST_Rooms", ClassArea: "OST_Areas", ClassSpace: "OST_MEPSpaces"}[def.Class]
	e := newElement(def.Class, category, def.Name)
	e.Number = def.Number
	e.LevelID = level.ID

	area := polygonArea(def.Boundary)
	corners := make([]geom.XYZ, 0, 2*len(def.Boundary))
	e.Boundary = make([]geom.XYZ, len(def.Boundary))
	for i, pt := range def.Boundary {
		e.Boundary[i] = geom.XYZ{X: pt.X, Y: pt.Y, Z: level.Elevation}
		corners = append(corners, e.Boundary[i], geom.XYZ{X: pt.X, Y: pt.Y, Z: level.Elevation + def.Height})
	}
	box, _ := geom.BoxOf(corners...)
	e.Box = &box

	e.SetParam(TextParam("ROOM_NAME", def.Name))
	e.SetParam(TextParam("ROOM_NUMBER", def.Number))
	e.SetParam(NumParam("ROOM_AREA", area))
	e.SetParam(NumParam("ROOM_PERIMETER", polygonPerimeter(def.Boundary)))
	if def.Class == ClassRoom {
		e.SetParam(NumParam("ROOM_VOLUME", area*def.Height))
		e.SetParam(NumParam("ROOM_HEIGHT", def.Height))
	}
	return d.add(e)
}

// RoomAt returns the room on a level whose boundary contains pt.
func (d *Document) RoomAt(pt geom.XYZ, levelID ElementID) (*Element, bool) {
	var found *Element
	d.Each(func(e *Element) bool {
		if e.Class == ClassRoom && e.LevelID == levelID && pointInPolygon(pt, e.Boundary) {
			found = e
			return false
		}
		return true
	})
	return found, found != nil
}

// CreateView adds a view.
func (d *Document) CreateView(class Class, name string, data ViewData) (*Element, error) {
	if !class.IsView() || class == ClassView {
		return nil, invalid("class %s is not a concrete view", class)
	}
	if data.GenLevelID.Valid() {
		if l, ok := d.Element(data.GenLevelID); !ok || l.Class != ClassLevel {
			return nil, invalid("view level %d not found", data.GenLevelID)
		}
	}
	category := "OST_Views"
	if class == ClassViewSheet {
		category = "OST_Sheets"
	}
	e := newElement(class, category, name)
	e.View = &data
	e.SetParam(TextParam("VIEW_NAME", name))
	if data.Scale > 0 {
		e.SetParam(NumParam("VIEW_SCALE", float64(data.Scale)))
	}
	return d.add(e)
}

// AnnotationPlacement places a view-specific annotation.
type AnnotationPlacement struct {
	Class    Class // TextNote, IndependentTag, RoomTag, AnnotationSymbol or SpotDimension
	Category string
	ViewID   ElementID
	TypeID   ElementID
	Name     string
	Point    geom.XYZ
	Text     string
	Tagged   ElementID
	Leader   bool // tags only
}

// CreateAnnotation adds an annotation owned by a view.
func (d *Document) CreateAnnotation(p AnnotationPlacement) (*Element, error) {
	if _, err := d.ownerView(p.ViewID); err != nil {
		return nil, err
	}
	e := newElement(p.Class, p.Category, p.Name)
	e.OwnerViewID = p.ViewID
	e.Location = Location{Kind: LocationPoint, Point: p.Point}

	halfW, halfH := 0.5, 0.25
	switch {
	case p.Class == ClassTextNote:
		e.Text = p.Text
		e.SetParam(TextParam("TEXT_TEXT", p.Text))
		halfW = math.Max(0.5, float64(len(p.Text))*0.05)
	case p.Class.Is(ClassIndependentTag) || p.Class.Is(ClassSpatialElementTag):
		if _, err := d.MustElement(p.Tagged); err != nil {
			return nil, invalid("tagged element %d not found", p.Tagged)
		}
		e.Refs = []ElementID{p.Tagged}
		if p.TypeID.Valid() {
			typ, err := d.MustElement(p.TypeID)
			if err != nil || !typ.Is(ClassFamilySymbol) {
				return nil, invalid("tag type %d not found", p.TypeID)
			}
			e.TypeID = typ.ID
			e.FamilyName = typ.FamilyName
		}
		leader := 0.0
		if p.Leader {
			leader = 1
		}
		e.SetParam(NumParam("LEADER_LINE", leader))
	case p.Class == ClassAnnotationSymbol:
		typ, err := d.MustElement(p.TypeID)
		if err != nil || !typ.Is(ClassFamilySymbol) {
			return nil, invalid("annotation type %d not found", p.TypeID)
		}
		e.TypeID = typ.ID
		e.FamilyName = typ.FamilyName
		if e.Name == "" {
			e.Name = typ.Name
		}
	case p.Class == ClassSpotDimension:
		z := p.Point.Z
		e.Measured = &z
	default:
		return nil, invalid("class %s is not an annotation", p.Class)
	}
	box, _ := geom.BoxOf(
		geom.XYZ{X: p.Point.X - halfW, Y: p.Point.Y - halfH, Z: p.Point.Z},
		geom.XYZ{X: p.Point.X + halfW, Y: p.Point.Y + halfH, Z: p.Point.Z},
	)
	e.Box = &box
	return d.add(e)
}

// DimensionPlacement places a linear dimension.
type DimensionPlacement struct {
	ViewID    ElementID
	Name      string
	Start     geom.XYZ
	End       geom.XYZ
	LinePoint geom.XYZ // where the dimension line is drawn
	Refs      []ElementID
}

// CreateDimension adds a linear dimension measuring Start to End.
func (d *Document) CreateDimension(p DimensionPlacement) (*Element, error) {
	if _, err := d.ownerView(p.ViewID); err != nil {
		return nil, err
	}
	measured := p.Start.DistanceTo(p.End)
	if measured < 1e-6 {
		return nil, invalid("dimension points coincide")
	}
	for _, id := range p.Refs {
		if _, ok := d.Element(id); !ok {
			return nil, invalid("dimension reference %d not found", id)
		}
	}

	// The dimension line runs through LinePoint parallel to Start-End.
	dx, dy := p.End.X-p.Start.X, p.End.Y-p.Start.Y
	vx, vy := p.LinePoint.X-p.Start.X, p.LinePoint.Y-p.Start.Y
	offset := geom.XYZ{X: vx, Y: vy}
	if l2 := dx*dx + dy*dy; l2 > 1e-12 {
		along := (vx*dx + vy*dy) / l2
		offset = geom.XYZ{X: vx - along*dx, Y: vy - along*dy}
	}
	line := geom.Line{Start: p.Start.Add(offset), End: p.End.Add(offset)}

	name := p.Name
	if name == "" {
		name = "Linear Dimension"
	}
	e := newElement(ClassDimension, "OST_Dimensions", name)
	e.OwnerViewID = p.ViewID
	e.Location = Location{Kind: LocationCurve, Curve: line}
	e.Measured = &measured
	e.Refs = cloneSlice(p.Refs)
	e.SetParam(NumParam("DIM_VALUE_LENGTH", measured))
	box, _ := geom.BoxOf(p.Start, p.End, line.Start, line.End)
	e.Box = &box
	return d.add(e)
}

// CreateGroup places a group of existing elements.
func (d *Document) CreateGroup(typeID ElementID, members []ElementID) (*Element, error) {
	typ, err := d.MustElement(typeID)
	if err != nil || typ.Class != ClassGroupType {
		return nil, invalid("group type %d not found", typeID)
	}
	var corners []geom.XYZ
	for _, id := range members {
		m, ok := d.Element(id)
		if !ok {
			return nil, invalid("group member %d not found", id)
		}
		if m.Box != nil {
			corners = append(corners, m.Box.Min, m.Box.Max)
		}
	}
	e := newElement(ClassGroup, typ.Category, typ.Name)
	e.TypeID = typ.ID
	e.Members = cloneSlice(members)
	if box, ok := geom.BoxOf(corners...); ok {
		e.Box = &box
		e.Location = Location{Kind: LocationPoint, Point: box.Min.Midpoint(box.Max)}
	}
	return d.add(e)
}

// CreateLink places an instance of a linked model type at a point.
func (d *Document) CreateLink(typeID ElementID, at geom.XYZ) (*Element, error) {
	typ, err := d.MustElement(typeID)
	if err != nil || typ.Class != ClassRevitLinkType {
		return nil, invalid("link type %d not found", typeID)
	}
	e := newElement(ClassRevitLinkInstance, "OST_RvtLinks", typ.Name)
	e.TypeID = typ.ID
	e.Location = Location{Kind: LocationPoint, Point: at}
	return d.add(e)
}

func newElement(class Class, category, name string) *Element {
	return &Element{
		Class:       class,
		Category:    category,
		Name:        name,
		TypeID:      InvalidElementID,
		LevelID:     InvalidElementID,
		RoomID:      InvalidElementID,
		OwnerViewID: InvalidElementID,
	}
}

func (d *Document) add(e *Element) (*Element, error) {
	if e.OwnerViewID == 0 {
		e.OwnerViewID = InvalidElementID
	}
	if _, err := d.Add(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (d *Document) placementRefs(typeID, levelID ElementID, category string) (typ, level *Element, err error) {
	typ, ok := d.Element(typeID)
	if !ok || !typ.IsElementType() {
		return nil, nil, invalid("type %d not found", typeID)
	}
	if category != "" && typ.Category != category {
		return nil, nil, invalid("type %d belongs to %s, not %s", typeID, typ.Category, category)
	}
	level, ok = d.Element(levelID)
	if !ok || level.Class != ClassLevel {
		return nil, nil, invalid("level %d not found", levelID)
	}
	return typ, level, nil
}

func (d *Document) ownerView(id ElementID) (*Element, error) {
	v, ok := d.Element(id)
	if !ok || v.View == nil {
		return nil, invalid("view %d not found", id)
	}
	if !v.View.Graphical() || v.View.IsTemplate {
		return nil, invalid("view %q cannot host annotations", v.Name)
	}
	return v, nil
}

func typeNum(typ *Element, builtIn string, fallback float64) float64 {
	if p, ok := typ.Params[builtIn]; ok && p.Num > 0 {
		return p.Num
	}
	return fallback
}

func firstPositive(vs ...float64) float64 {
	for _, v := range vs {
		if v > 0 {
			return v
		}
	}
	return 0
}

// sweptBox bounds a horizontal segment widened by half on both sides.
func sweptBox(l geom.Line, half, zlo, zhi float64) *geom.Box {
	b, _ := geom.BoxOf(l.Start, l.End)
	dx, dy := l.End.X-l.Start.X, l.End.Y-l.Start.Y
	n := math.Hypot(dx, dy)
	// offset along the normal, projected onto each axis
	ox, oy := math.Abs(dy/n)*half, math.Abs(dx/n)*half
	b.Min.X -= ox
	b.Max.X += ox
	b.Min.Y -= oy
	b.Max.Y += oy
	b.Min.Z, b.Max.Z = zlo, zhi
	return &b
}

func footprintBox(at geom.XYZ, width, depth, rotation, zlo, zhi float64) *geom.Box {
	cos, sin := math.Cos(rotation), math.Sin(rotation)
	hw, hd := width/2, depth/2
	var pts []geom.XYZ
	for _, c := range [][2]float64{{-hw, -hd}, {hw, -hd}, {hw, hd}, {-hw, hd}} {
		pts = append(pts, geom.XYZ{
			X: at.X + c[0]*cos - c[1]*sin,
			Y: at.Y + c[0]*sin + c[1]*cos,
		})
	}
	b, _ := geom.BoxOf(pts...)
	b.Min.Z, b.Max.Z = zlo, zhi
	return &b
}

func polygonArea(pts []geom.XYZ) float64 {
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(s) / 2
}

func polygonPerimeter(pts []geom.XYZ) float64 {
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += math.Hypot(pts[j].X-pts[i].X, pts[j].Y-pts[i].Y)
	}
	return s
}

func pointInPolygon(pt geom.XYZ, poly []geom.XYZ) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}
