package host

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

// Model is the YAML seed format. Lengths are millimetres, angles degrees.
// Levels and views are referenced by name, everything else by key.
type Model struct {
	Title       string           `yaml:"title"`
	Levels      []LevelSpec      `yaml:"levels"`
	Grids       []GridSpec       `yaml:"grids"`
	Types       []TypeSpec       `yaml:"types"`
	Elements    []ElementSpec    `yaml:"elements"`
	Rooms       []RoomSpec       `yaml:"rooms"`
	Views       []ViewSpec       `yaml:"views"`
	Annotations []AnnotationSpec `yaml:"annotations"`
	Groups      []GroupSpec      `yaml:"groups"`
	Links       []LinkSpec       `yaml:"links"`
	Selection   []string         `yaml:"selection"`
}

// LevelSpec declares a level.
type LevelSpec struct {
	Name      string  `yaml:"name"`
	Elevation float64 `yaml:"elevation"`
}

// GridSpec declares a grid line.
type GridSpec struct {
	Name  string     `yaml:"name"`
	Start geom.Point `yaml:"start"`
	End   geom.Point `yaml:"end"`
}

// TypeSpec declares a type element.
type TypeSpec struct {
	Key      string         `yaml:"key"`
	Class    string         `yaml:"class"`
	Category string         `yaml:"category"`
	Family   string         `yaml:"family"`
	Name     string         `yaml:"name"`
	Params   map[string]any `yaml:"params"`
	Link     *LinkData      `yaml:"link"`
}

// ElementSpec declares a placed model element.
type ElementSpec struct {
	Key       string         `yaml:"key"`
	Class     string         `yaml:"class"`
	Category  string         `yaml:"category"`
	Type      string         `yaml:"type"`
	Level     string         `yaml:"level"`
	Start     *geom.Point    `yaml:"start"`
	End       *geom.Point    `yaml:"end"`
	Point     *geom.Point    `yaml:"point"`
	Boundary  []geom.Point   `yaml:"boundary"`
	Height    float64        `yaml:"height"`
	Offset    float64        `yaml:"offset"`
	Thickness float64        `yaml:"thickness"`
	Rotation  float64        `yaml:"rotation"`
	Host      string         `yaml:"host"`
	Params    map[string]any `yaml:"params"`
}

// RoomSpec declares a room, area or space.
type RoomSpec struct {
	Key      string       `yaml:"key"`
	Class    string       `yaml:"class"`
	Name     string       `yaml:"name"`
	Number   string       `yaml:"number"`
	Level    string       `yaml:"level"`
	Boundary []geom.Point `yaml:"boundary"`
	Height   float64      `yaml:"height"`
}

// ViewSpec declares a view.
type ViewSpec struct {
	Class       string      `yaml:"class"`
	Name        string      `yaml:"name"`
	ViewType    string      `yaml:"viewType"`
	Scale       int         `yaml:"scale"`
	DetailLevel string      `yaml:"detailLevel"`
	Level       string      `yaml:"level"`
	Template    bool        `yaml:"template"`
	Open        bool        `yaml:"open"`
	Active      bool        `yaml:"active"`
	SectionMin  *geom.Point `yaml:"sectionMin"`
	SectionMax  *geom.Point `yaml:"sectionMax"`
}

// AnnotationSpec declares a view-specific annotation or dimension.
type AnnotationSpec struct {
	Key       string      `yaml:"key"`
	Class     string      `yaml:"class"`
	Category  string      `yaml:"category"`
	View      string      `yaml:"view"`
	Type      string      `yaml:"type"`
	Name      string      `yaml:"name"`
	Point     geom.Point  `yaml:"point"`
	Text      string      `yaml:"text"`
	Tags      string      `yaml:"tags"`
	Start     *geom.Point `yaml:"start"`
	End       *geom.Point `yaml:"end"`
	LinePoint *geom.Point `yaml:"linePoint"`
	Refs      []string    `yaml:"refs"`
}

// GroupSpec declares a model group.
type GroupSpec struct {
	Key     string   `yaml:"key"`
	Type    string   `yaml:"type"`
	Members []string `yaml:"members"`
}

// LinkSpec declares a linked model instance.
type LinkSpec struct {
	Key   string     `yaml:"key"`
	Type  string     `yaml:"type"`
	Point geom.Point `yaml:"point"`
}

// LoadModel reads a YAML seed model from path.
func LoadModel(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return ParseModel(data)
}

// ParseModel builds a document from YAML.
func ParseModel(data []byte) (*Document, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	return Build(&m)
}

// Build creates a document from a decoded model in a single transaction.
func Build(m *Model) (*Document, error) {
	title := m.Title
	if title == "" {
		title = "Untitled"
	}
	doc := NewDocument(title)
	b := &modelBuilder{
		doc:    doc,
		keys:   make(map[string]ElementID),
		levels: make(map[string]ElementID),
		views:  make(map[string]ElementID),
	}

	tx := NewTransaction(doc, "Load model")
	if err := tx.Start(); err != nil {
		return nil, err
	}
	if err := b.build(m); err != nil {
		_ = tx.RollBack()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, v := range m.Views {
		if v.Open && !v.Active {
			doc.openViews = append(doc.openViews, b.views[v.Name])
		}
	}
	for _, v := range m.Views {
		if v.Active {
			if err := doc.SetActiveView(b.views[v.Name]); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(m.Selection) > 0 {
		ids := make([]ElementID, 0, len(m.Selection))
		for _, k := range m.Selection {
			id, err := b.key(k)
			if err != nil {
				return nil, fmt.Errorf("selection: %w", err)
			}
			ids = append(ids, id)
		}
		if err := doc.SetSelection(ids); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

type modelBuilder struct {
	doc    *Document
	keys   map[string]ElementID
	levels map[string]ElementID
	views  map[string]ElementID
}

func (b *modelBuilder) build(m *Model) error {
	steps := []func(*Model) error{
		b.buildLevels, b.buildGrids, b.buildTypes, b.buildRooms,
		b.buildElements, b.buildViews, b.buildAnnotations, b.buildGroups, b.buildLinks,
	}
	for _, step := range steps {
		if err := step(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) buildLevels(m *Model) error {
	for _, l := range m.Levels {
		if _, dup := b.levels[l.Name]; dup {
			return fmt.Errorf("level %q declared twice", l.Name)
		}
		e, err := b.doc.CreateLevel(l.Name, geom.ToInternal(l.Elevation))
		if err != nil {
			return err
		}
		b.levels[l.Name] = e.ID
	}
	return nil
}

func (b *modelBuilder) buildGrids(m *Model) error {
	for _, g := range m.Grids {
		if _, err := b.doc.CreateGrid(g.Name, geom.Line{Start: g.Start.Internal(), End: g.End.Internal()}); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) buildTypes(m *Model) error {
	for _, t := range m.Types {
		class, err := lookupClass(t.Class)
		if err != nil {
			return fmt.Errorf("type %q: %w", t.Key, err)
		}
		params, err := convertParams(t.Params)
		if err != nil {
			return fmt.Errorf("type %q: %w", t.Key, err)
		}
		e, err := b.doc.CreateType(TypeDefinition{
			Class:      class,
			Category:   t.Category,
			FamilyName: t.Family,
			Name:       t.Name,
			Params:     params,
			Link:       t.Link,
		})
		if err != nil {
			return fmt.Errorf("type %q: %w", t.Key, err)
		}
		if err := b.remember(t.Key, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) buildRooms(m *Model) error {
	for _, r := range m.Rooms {
		class := ClassRoom
		if r.Class != "" {
			var err error
			if class, err = lookupClass(r.Class); err != nil {
				return fmt.Errorf("room %q: %w", r.Name, err)
			}
		}
		level, err := b.level(r.Level)
		if err != nil {
			return fmt.Errorf("room %q: %w", r.Name, err)
		}
		e, err := b.doc.CreateRoom(RoomDefinition{
			Class:    class,
			Name:     r.Name,
			Number:   r.Number,
			LevelID:  level,
			Boundary: internalAll(r.Boundary),
			Height:   geom.ToInternal(r.Height),
		})
		if err != nil {
			return err
		}
		if err := b.remember(r.Key, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) buildElements(m *Model) error {
	for i, s := range m.Elements {
		e, err := b.placeElement(s)
		if err != nil {
			return fmt.Errorf("element %d (%s): %w", i, s.Key, err)
		}
		if len(s.Params) > 0 {
			params, err := convertParams(s.Params)
			if err != nil {
				return fmt.Errorf("element %d (%s): %w", i, s.Key, err)
			}
			for _, p := range params {
				e.SetParam(p)
			}
		}
		if err := b.remember(s.Key, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) placeElement(s ElementSpec) (*Element, error) {
	class, err := lookupClass(s.Class)
	if err != nil {
		return nil, err
	}
	typeID, err := b.key(s.Type)
	if err != nil {
		return nil, err
	}
	level, err := b.level(s.Level)
	if err != nil {
		return nil, err
	}
	category := s.Category
	if category == "" {
		if t, ok := b.doc.Element(typeID); ok {
			category = t.Category
		}
	}

	switch {
	case s.Start != nil && s.End != nil:
		return b.doc.CreateLineBased(LinePlacement{
			Class:      class,
			Category:   category,
			TypeID:     typeID,
			LevelID:    level,
			Curve:      geom.Line{Start: s.Start.Internal(), End: s.End.Internal()},
			Height:     geom.ToInternal(s.Height),
			BaseOffset: geom.ToInternal(s.Offset),
			Thickness:  geom.ToInternal(s.Thickness),
		})
	case s.Point != nil:
		var hostID = InvalidElementID
		if s.Host != "" {
			if hostID, err = b.key(s.Host); err != nil {
				return nil, err
			}
		}
		return b.doc.CreatePointBased(PointPlacement{
			Category:   category,
			TypeID:     typeID,
			LevelID:    level,
			Point:      s.Point.Internal(),
			BaseOffset: geom.ToInternal(s.Offset),
			Rotation:   s.Rotation * math.Pi / 180,
			Height:     geom.ToInternal(s.Height),
			HostID:     hostID,
		})
	case len(s.Boundary) > 0:
		return b.doc.CreateSurfaceBased(SurfacePlacement{
			Class:      class,
			Category:   category,
			TypeID:     typeID,
			LevelID:    level,
			Boundary:   internalAll(s.Boundary),
			Thickness:  geom.ToInternal(s.Thickness),
			BaseOffset: geom.ToInternal(s.Offset),
		})
	}
	return nil, fmt.Errorf("%w: needs start/end, point or boundary", ErrInvalidPlacement)
}

func (b *modelBuilder) buildViews(m *Model) error {
	active := 0
	for _, v := range m.Views {
		class, err := lookupClass(v.Class)
		if err != nil {
			return fmt.Errorf("view %q: %w", v.Name, err)
		}
		if _, dup := b.views[v.Name]; dup {
			return fmt.Errorf("view %q declared twice", v.Name)
		}
		data := ViewData{
			ViewType:    v.ViewType,
			Scale:       v.Scale,
			IsTemplate:  v.Template,
			DetailLevel: v.DetailLevel,
			GenLevelID:  InvalidElementID,
		}
		if v.Level != "" {
			if data.GenLevelID, err = b.level(v.Level); err != nil {
				return fmt.Errorf("view %q: %w", v.Name, err)
			}
		}
		if (v.SectionMin == nil) != (v.SectionMax == nil) {
			return fmt.Errorf("view %q: sectionMin and sectionMax must be set together", v.Name)
		}
		if v.SectionMin != nil {
			data.SectionBox = &geom.Box{Min: v.SectionMin.Internal(), Max: v.SectionMax.Internal()}
		}
		e, err := b.doc.CreateView(class, v.Name, data)
		if err != nil {
			return err
		}
		b.views[v.Name] = e.ID
		if v.Active {
			active++
		}
	}
	if active > 1 {
		return fmt.Errorf("%d views marked active", active)
	}
	return nil
}

func (b *modelBuilder) buildAnnotations(m *Model) error {
	for i, a := range m.Annotations {
		e, err := b.placeAnnotation(a)
		if err != nil {
			return fmt.Errorf("annotation %d (%s): %w", i, a.Key, err)
		}
		if err := b.remember(a.Key, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) placeAnnotation(a AnnotationSpec) (*Element, error) {
	class, err := lookupClass(a.Class)
	if err != nil {
		return nil, err
	}
	view, ok := b.views[a.View]
	if !ok {
		return nil, fmt.Errorf("view %q not declared", a.View)
	}

	if class == ClassDimension {
		if a.Start == nil || a.End == nil {
			return nil, fmt.Errorf("%w: dimension needs start and end", ErrInvalidPlacement)
		}
		linePoint := a.Start.Internal()
		if a.LinePoint != nil {
			linePoint = a.LinePoint.Internal()
		}
		refs := make([]ElementID, 0, len(a.Refs))
		for _, k := range a.Refs {
			id, err := b.key(k)
			if err != nil {
				return nil, err
			}
			refs = append(refs, id)
		}
		return b.doc.CreateDimension(DimensionPlacement{
			ViewID:    view,
			Name:      a.Name,
			Start:     a.Start.Internal(),
			End:       a.End.Internal(),
			LinePoint: linePoint,
			Refs:      refs,
		})
	}

	p := AnnotationPlacement{
		Class:    class,
		Category: a.Category,
		ViewID:   view,
		TypeID:   InvalidElementID,
		Name:     a.Name,
		Point:    a.Point.Internal(),
		Text:     a.Text,
		Tagged:   InvalidElementID,
	}
	if a.Type != "" {
		if p.TypeID, err = b.key(a.Type); err != nil {
			return nil, err
		}
	}
	if a.Tags != "" {
		if p.Tagged, err = b.key(a.Tags); err != nil {
			return nil, err
		}
	}
	if p.Category == "" {
		p.Category = defaultAnnotationCategory(class)
	}
	return b.doc.CreateAnnotation(p)
}

func defaultAnnotationCategory(c Class) string {
	switch c {
	case ClassTextNote:
		return "OST_TextNotes"
	case ClassRoomTag:
		return "OST_RoomTags"
	case ClassSpotDimension:
		return "OST_SpotElevations"
	default:
		return "OST_GenericAnnotation"
	}
}

func (b *modelBuilder) buildGroups(m *Model) error {
	for _, g := range m.Groups {
		typeID, err := b.key(g.Type)
		if err != nil {
			return fmt.Errorf("group %q: %w", g.Key, err)
		}
		members := make([]ElementID, 0, len(g.Members))
		for _, k := range g.Members {
			id, err := b.key(k)
			if err != nil {
				return fmt.Errorf("group %q: %w", g.Key, err)
			}
			members = append(members, id)
		}
		e, err := b.doc.CreateGroup(typeID, members)
		if err != nil {
			return err
		}
		if err := b.remember(g.Key, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) buildLinks(m *Model) error {
	for _, l := range m.Links {
		typeID, err := b.key(l.Type)
		if err != nil {
			return fmt.Errorf("link %q: %w", l.Key, err)
		}
		e, err := b.doc.CreateLink(typeID, l.Point.Internal())
		if err != nil {
			return err
		}
		if err := b.remember(l.Key, e.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBuilder) remember(key string, id ElementID) error {
	if key == "" {
		return nil
	}
	if _, dup := b.keys[key]; dup {
		return fmt.Errorf("key %q declared twice", key)
	}
	b.keys[key] = id
	return nil
}

func (b *modelBuilder) key(k string) (ElementID, error) {
	id, ok := b.keys[k]
	if !ok {
		return InvalidElementID, fmt.Errorf("key %q not declared", k)
	}
	return id, nil
}

func (b *modelBuilder) level(name string) (ElementID, error) {
	id, ok := b.levels[name]
	if !ok {
		return InvalidElementID, fmt.Errorf("level %q not declared", name)
	}
	return id, nil
}

func lookupClass(name string) (Class, error) {
	c, ok := LookupClass(name)
	if !ok {
		return 0, &UnknownNameError{What: "element class", Name: name}
	}
	return c, nil
}

func internalAll(pts []geom.Point) []geom.XYZ {
	out := make([]geom.XYZ, len(pts))
	for i, p := range pts {
		out[i] = p.Internal()
	}
	return out
}

// convertParams turns YAML values into parameters. Built-in names take their
// spec from the catalog and are converted from display units. Other names
// become user parameters typed by their YAML value.
func convertParams(values map[string]any) ([]Parameter, error) {
	out := make([]Parameter, 0, len(values))
	for name, raw := range values {
		p, builtIn := BuiltInParam(name)
		if !builtIn {
			p = Parameter{Name: name}
			switch v := raw.(type) {
			case string:
				p.Spec, p.Text = SpecText, v
			case int:
				p.Spec, p.Num = SpecInteger, float64(v)
			case float64:
				p.Spec, p.Num = SpecNumber, v
			default:
				return nil, fmt.Errorf("parameter %q: unsupported value %v", name, raw)
			}
			out = append(out, p)
			continue
		}

		if p.Spec == SpecText {
			p.Text = fmt.Sprint(raw)
			out = append(out, p)
			continue
		}
		num, ok := toFloat(raw)
		if !ok || p.Spec == SpecElementID {
			return nil, fmt.Errorf("parameter %q: unsupported value %v", name, raw)
		}
		switch p.Spec {
		case SpecLength:
			num = geom.ToInternal(num)
		case SpecArea:
			num /= geom.MillimetersPerFoot * geom.MillimetersPerFoot
		case SpecVolume:
			num /= geom.MillimetersPerFoot * geom.MillimetersPerFoot * geom.MillimetersPerFoot
		case SpecAngle:
			num = num * math.Pi / 180
		}
		p.Num = num
		out = append(out, p)
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
