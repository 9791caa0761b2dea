package command

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// noValue groups elements whose parameter is missing or empty.
const noValue = "None"

// Gradient endpoints, blue for the first group and red for the last.
var (
	gradientFrom = host.RGB{R: 0, G: 0, B: 180}
	gradientTo   = host.RGB{R: 180, G: 0, B: 0}
)

// ColorGroup is the set of elements sharing one parameter value.
type ColorGroup struct {
	ParameterValue string  `json:"parameterValue"`
	Count          int     `json:"count"`
	Color          Color   `json:"color"`
	ElementIDs     []int64 `json:"elementIds"`
}

// ColorSplashResult reports how the active view was colored.
type ColorSplashResult struct {
	TotalElements int          `json:"totalElements"`
	ColoredGroups int          `json:"coloredGroups"`
	Results       []ColorGroup `json:"results"`
}

func (s *service) colorSplash(ui *host.UI, p ColorSplashParams) (envelope.Envelope[ColorSplashResult], error) {
	doc := ui.Document()
	view, err := activeView(doc)
	if err != nil {
		return envelope.Envelope[ColorSplashResult]{}, err
	}
	if !view.View.Graphical() || view.View.IsTemplate {
		return envelope.Envelope[ColorSplashResult]{}, fmt.Errorf(
			"%w: cannot modify visibility settings in %s views", domain.ErrValidation, view.View.ViewType)
	}
	cat, ok := host.LookupCategory(p.Category)
	if !ok {
		return envelope.Envelope[ColorSplashResult]{}, domain.NewResolutionError("category", p.Category)
	}
	elems := host.NewCollector(doc).
		WherePasses(host.VisibleInViewFilter{ViewID: view.ID}).
		WhereElementIsNotElementType().
		OfCategory(cat.BuiltIn).
		Elements()
	if len(elems) == 0 {
		return envelope.Envelope[ColorSplashResult]{}, fmt.Errorf(
			"%w: no elements of category %q found in the current view", domain.ErrResolution, cat.Name)
	}

	groups := groupByParam(doc, elems, strings.TrimSpace(p.Parameter))
	for i := range groups {
		g := &groups[i]
		var c host.RGB
		switch {
		case i < len(p.CustomColors):
			c = p.CustomColors[i].rgb()
		case p.UseGradient && len(groups) > 1:
			c = gradient(float64(i) / float64(len(groups)-1))
		default:
			c = paletteColor(g.ParameterValue)
		}
		g.Color = Color{R: int(c.R), G: int(c.G), B: int(c.B)}
	}

	err = modifyActiveView(doc, func(v *host.ViewData) {
		for _, g := range groups {
			c := host.RGB{R: uint8(g.Color.R), G: uint8(g.Color.G), B: uint8(g.Color.B)}
			for _, id := range g.ElementIDs {
				o := v.Overrides[host.ElementID(id)]
				o.Color = &c
				v.Overrides = put(v.Overrides, host.ElementID(id), o)
			}
		}
	})
	if err != nil {
		return envelope.Envelope[ColorSplashResult]{}, fmt.Errorf("%w: %w", domain.ErrTransaction, err)
	}

	res := ColorSplashResult{TotalElements: len(elems), ColoredGroups: len(groups), Results: groups}
	return envelope.OK(res, fmt.Sprintf("Colored %d %s elements in %d groups by %q",
		len(elems), cat.Name, len(groups), p.Parameter)), nil
}

// groupByParam groups elements by display value. Groups are ordered by value
// with the group of elements without a value last.
func groupByParam(doc *host.Document, elems []*host.Element, name string) []ColorGroup {
	idx := make(map[string]int)
	var groups []ColorGroup
	for _, e := range elems {
		v := paramValue(doc, e, name)
		i, ok := idx[v]
		if !ok {
			i = len(groups)
			idx[v] = i
			groups = append(groups, ColorGroup{ParameterValue: v})
		}
		groups[i].Count++
		groups[i].ElementIDs = append(groups[i].ElementIDs, int64(e.ID))
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].ParameterValue, groups[j].ParameterValue
		if (a == noValue) != (b == noValue) {
			return b == noValue
		}
		return a < b
	})
	return groups
}

// paramValue reads an instance parameter, falling back to the element type.
// Element id values are shown as the name of the referenced element.
func paramValue(doc *host.Document, e *host.Element, name string) string {
	p, ok := e.Param(name)
	if !ok && e.TypeID.Valid() {
		if typ, found := doc.Element(e.TypeID); found {
			p, ok = typ.Param(name)
		}
	}
	if !ok || !p.HasValue() {
		return noValue
	}
	if p.Spec == host.SpecElementID {
		if ref, found := doc.Element(p.Ref); found && ref.Name != "" {
			return ref.Name
		}
	}
	if v := p.ValueString(); v != "" {
		return v
	}
	return noValue
}

func gradient(ratio float64) host.RGB {
	mix := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*ratio) }
	return host.RGB{
		R: mix(gradientFrom.R, gradientTo.R),
		G: mix(gradientFrom.G, gradientTo.G),
		B: mix(gradientFrom.B, gradientTo.B),
	}
}

// paletteColor derives a mid-range color from the value so that the same
// value gets the same color on every run.
func paletteColor(value string) host.RGB {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	sum := h.Sum32()
	channel := func(shift uint) uint8 { return uint8(30 + (sum>>shift)%170) }
	return host.RGB{R: channel(0), G: channel(8), B: channel(16)}
}

// WallTag is a tag placed on a wall.
type WallTag struct {
	ID       int64      `json:"id"`
	WallID   int64      `json:"wallId"`
	WallName string     `json:"wallName"`
	Location geom.Point `json:"location"`
}

// TagWallsResult reports the tags placed in the active view. Walls that could
// not be tagged are listed in Errors.
type TagWallsResult struct {
	TotalWalls  int       `json:"totalWalls"`
	TaggedWalls int       `json:"taggedWalls"`
	Tags        []WallTag `json:"tags"`
	Errors      []string  `json:"errors,omitempty"`
}

var wallTagCategories = []string{"OST_WallTags", "OST_MultiCategoryTags"}

func (s *service) tagWalls(ui *host.UI, p TagWallsParams) (envelope.Envelope[TagWallsResult], error) {
	doc := ui.Document()
	view, err := activeView(doc)
	if err != nil {
		return envelope.Envelope[TagWallsResult]{}, err
	}
	walls := host.NewCollector(doc).
		WherePasses(host.VisibleInViewFilter{ViewID: view.ID}).
		WhereElementIsNotElementType().
		OfClass(host.ClassWall).
		Elements()
	if len(walls) == 0 {
		return envelope.OK(TagWallsResult{Tags: []WallTag{}}, fmt.Sprintf("No walls found in view %q", view.Name)), nil
	}
	tagType, err := resolveWallTagType(doc, host.ElementID(p.TagTypeID))
	if err != nil {
		return envelope.Envelope[TagWallsResult]{}, err
	}

	res := TagWallsResult{TotalWalls: len(walls), Tags: make([]WallTag, 0, len(walls))}
	for _, w := range walls {
		if w.Location.Kind != host.LocationCurve {
			res.Errors = append(res.Errors, fmt.Sprintf("wall %d has no location line", w.ID))
			continue
		}
		at := w.Location.Curve.Start.Midpoint(w.Location.Curve.End)
		tag, err := doc.CreateAnnotation(host.AnnotationPlacement{
			Class:    host.ClassIndependentTag,
			Category: tagType.Category,
			ViewID:   view.ID,
			TypeID:   tagType.ID,
			Name:     tagType.Name,
			Point:    at,
			Tagged:   w.ID,
			Leader:   p.UseLeader,
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("wall %d: %v", w.ID, err))
			continue
		}
		res.Tags = append(res.Tags, WallTag{
			ID:       int64(tag.ID),
			WallID:   int64(w.ID),
			WallName: w.Name,
			Location: at.External(),
		})
	}
	res.TaggedWalls = len(res.Tags)
	return envelope.OK(res, fmt.Sprintf("Tagged %d of %d walls in view %q", res.TaggedWalls, res.TotalWalls, view.Name)), nil
}

// resolveWallTagType uses id when it names a wall or multi-category tag type,
// otherwise the first wall tag type, then the first multi-category tag type.
func resolveWallTagType(doc *host.Document, id host.ElementID) (*host.Element, error) {
	isTagType := func(e *host.Element) bool {
		if !e.Is(host.ClassFamilySymbol) {
			return false
		}
		for _, c := range wallTagCategories {
			if e.Category == c {
				return true
			}
		}
		return false
	}
	if id.Valid() {
		if e, ok := doc.Element(id); ok && isTagType(e) {
			return e, nil
		}
	}
	for _, c := range wallTagCategories {
		var found *host.Element
		host.NewCollector(doc).OfCategory(c).WhereElementIsElementType().Each(func(e *host.Element) bool {
			if isTagType(e) {
				found = e
				return false
			}
			return true
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("%w: no wall tag family type found", domain.ErrResolution)
}
