package command

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// loopTolerance is how far apart, in mm, consecutive boundary lines may end.
const loopTolerance = 1.0

// batch creates one element per item. The first failing item aborts the
// batch; the bridge then rolls the whole transaction back.
func batch[T any](ui *host.UI, items []T, create func(*host.Document, T) (*host.Element, error)) (envelope.Envelope[[]int64], error) {
	doc := ui.Document()
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		e, err := create(doc, item)
		if err != nil {
			return envelope.Envelope[[]int64]{}, fmt.Errorf("%w: item %d: %w", domain.ErrTransaction, i, err)
		}
		ids = append(ids, int64(e.ID))
	}
	return envelope.OK(ids, fmt.Sprintf(
		"Successfully created %d elements, their element ids are in the response", len(ids))), nil
}

func (s *service) createLineBased(ui *host.UI, p CreateParams[LineElement]) (envelope.Envelope[[]int64], error) {
	return batch(ui, p.Data, func(doc *host.Document, item LineElement) (*host.Element, error) {
		typ, err := resolveType(doc, item.TypeID, item.Category)
		if err != nil {
			return nil, err
		}
		var class host.Class
		switch {
		case typ.Class == host.ClassWallType:
			class = host.ClassWall
		case typ.Is(host.ClassFamilySymbol):
			class = host.ClassFamilyInstance
		default:
			return nil, fmt.Errorf("%w: %s cannot be placed along a line", host.ErrInvalidPlacement, typ.Category)
		}
		level, offset, err := placementLevel(doc, item.BaseLevel, item.BaseOffset)
		if err != nil {
			return nil, err
		}
		return doc.CreateLineBased(host.LinePlacement{
			Class:      class,
			Category:   typ.Category,
			TypeID:     typ.ID,
			LevelID:    level.ID,
			Curve:      geom.Line{Start: item.LocationLine.P0.Internal(), End: item.LocationLine.P1.Internal()},
			Height:     geom.ToInternal(item.Height),
			BaseOffset: offset,
			Thickness:  geom.ToInternal(item.Thickness),
		})
	})
}

func (s *service) createPointBased(ui *host.UI, p CreateParams[PointElement]) (envelope.Envelope[[]int64], error) {
	return batch(ui, p.Data, func(doc *host.Document, item PointElement) (*host.Element, error) {
		typ, err := resolveType(doc, item.TypeID, item.Category)
		if err != nil {
			return nil, err
		}
		if !typ.Is(host.ClassFamilySymbol) {
			return nil, fmt.Errorf("%w: %s cannot be placed at a point", host.ErrInvalidPlacement, typ.Category)
		}
		level, offset, err := placementLevel(doc, item.BaseLevel, item.BaseOffset)
		if err != nil {
			return nil, err
		}
		at := item.LocationPoint.Internal()
		hostID := host.InvalidElementID
		if typ.Category == "OST_Doors" || typ.Category == "OST_Windows" {
			wall, ok := hostWallAt(doc, level.ID, at)
			if !ok {
				return nil, fmt.Errorf("%w: no wall on %s hosts the point (%.0f, %.0f)",
					host.ErrInvalidPlacement, level.Name, item.LocationPoint.X, item.LocationPoint.Y)
			}
			hostID = wall.ID
		}
		return doc.CreatePointBased(host.PointPlacement{
			Category:   typ.Category,
			TypeID:     typ.ID,
			LevelID:    level.ID,
			Point:      at,
			BaseOffset: offset,
			Rotation:   item.Rotation * math.Pi / 180,
			Width:      geom.ToInternal(item.Width),
			Depth:      geom.ToInternal(item.Depth),
			Height:     geom.ToInternal(item.Height),
			HostID:     hostID,
		})
	})
}

var surfaceClasses = map[string]host.Class{
	"OST_Floors":   host.ClassFloor,
	"OST_Ceilings": host.ClassCeiling,
	"OST_Roofs":    host.ClassFootPrintRoof,
}

func (s *service) createSurfaceBased(ui *host.UI, p CreateParams[SurfaceElement]) (envelope.Envelope[[]int64], error) {
	return batch(ui, p.Data, func(doc *host.Document, item SurfaceElement) (*host.Element, error) {
		typ, err := resolveType(doc, item.TypeID, item.Category)
		if err != nil {
			return nil, err
		}
		class, ok := surfaceClasses[typ.Category]
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot be placed from a boundary", host.ErrInvalidPlacement, typ.Category)
		}
		outer, err := loopVertices(item.Boundary.OuterLoop)
		if err != nil {
			return nil, fmt.Errorf("outer loop: %w", err)
		}
		openings := make([][]geom.XYZ, 0, len(item.Boundary.InnerLoops))
		for i, loop := range item.Boundary.InnerLoops {
			pts, err := loopVertices(loop)
			if err != nil {
				return nil, fmt.Errorf("inner loop %d: %w", i, err)
			}
			openings = append(openings, pts)
		}
		level, offset, err := placementLevel(doc, item.BaseLevel, item.BaseOffset)
		if err != nil {
			return nil, err
		}
		return doc.CreateSurfaceBased(host.SurfacePlacement{
			Class:      class,
			Category:   typ.Category,
			TypeID:     typ.ID,
			LevelID:    level.ID,
			Boundary:   outer,
			Openings:   openings,
			Thickness:  geom.ToInternal(item.Thickness),
			BaseOffset: offset,
		})
	})
}

func (s *service) createDimensions(ui *host.UI, p DimensionsParams) (envelope.Envelope[[]int64], error) {
	env, err := batch(ui, p.Dimensions, func(doc *host.Document, d DimensionInfo) (*host.Element, error) {
		view, err := dimensionView(doc, d.ViewID)
		if err != nil {
			return nil, err
		}
		start, end := d.StartPoint.Internal(), d.EndPoint.Internal()
		linePoint := start.Midpoint(end).Add(geom.XYZ{Y: 1})
		if d.LinePoint != nil {
			linePoint = d.LinePoint.Internal()
		}
		refs := make([]host.ElementID, 0, len(d.ElementIDs))
		for _, id := range d.ElementIDs {
			refs = append(refs, host.ElementID(id))
		}
		return doc.CreateDimension(host.DimensionPlacement{
			ViewID:    view.ID,
			Start:     start,
			End:       end,
			LinePoint: linePoint,
			Refs:      refs,
		})
	})
	if err != nil || !env.Success() {
		return env, err
	}
	return envelope.OK(env.Response(), fmt.Sprintf(
		"Successfully created %d dimensions, their element ids are in the response", len(env.Response()))), nil
}

// dimensionView returns the requested view, falling back to the active view
// when the id is unset or does not name a view.
func dimensionView(doc *host.Document, id int64) (*host.Element, error) {
	if id > 0 {
		if v, ok := doc.Element(host.ElementID(id)); ok && v.View != nil {
			return v, nil
		}
	}
	return activeView(doc)
}

// resolveType picks the type by id, or else the first type of the category.
func resolveType(doc *host.Document, typeID int64, category string) (*host.Element, error) {
	if typeID > 0 {
		t, ok := doc.Element(host.ElementID(typeID))
		if !ok || !t.IsElementType() {
			return nil, fmt.Errorf("%w: type %d", domain.ErrResolution, typeID)
		}
		return t, nil
	}
	cat, ok := host.LookupCategory(category)
	if !ok {
		return nil, domain.NewResolutionError("category", category)
	}
	t, ok := doc.DefaultType(cat.BuiltIn)
	if !ok {
		return nil, fmt.Errorf("%w: no type of category %s", domain.ErrResolution, cat.BuiltIn)
	}
	return t, nil
}

// placementLevel returns the nearest level at or below baseLevel (mm) and the
// offset from it, in feet, that keeps the element at baseLevel+baseOffset.
func placementLevel(doc *host.Document, baseLevel, baseOffset float64) (*host.Element, float64, error) {
	level, ok := doc.LevelAt(geom.ToInternal(baseLevel))
	if !ok {
		return nil, 0, fmt.Errorf("%w: document has no levels", domain.ErrResolution)
	}
	return level, geom.ToInternal(baseLevel+baseOffset) - level.Elevation, nil
}

// loopVertices turns a closed chain of lines into its vertices.
func loopVertices(lines []LinePoints) ([]geom.XYZ, error) {
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: a loop needs at least 3 lines, got %d", host.ErrInvalidPlacement, len(lines))
	}
	pts := make([]geom.XYZ, 0, len(lines))
	for i, l := range lines {
		next := lines[(i+1)%len(lines)]
		if !near(l.P1, next.P0) {
			return nil, fmt.Errorf("%w: line %d does not connect to line %d", host.ErrInvalidPlacement, i, (i+1)%len(lines))
		}
		pts = append(pts, l.P0.Internal())
	}
	return pts, nil
}

func near(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) <= loopTolerance && math.Abs(a.Y-b.Y) <= loopTolerance
}

// hostWallAt finds a wall on the level whose footprint contains pt.
func hostWallAt(doc *host.Document, levelID host.ElementID, pt geom.XYZ) (*host.Element, bool) {
	var found *host.Element
	host.NewCollector(doc).OfClass(host.ClassWall).Each(func(w *host.Element) bool {
		b := w.Box
		if w.LevelID != levelID || b == nil {
			return true
		}
		const eps = 1e-6
		if pt.X >= b.Min.X-eps && pt.X <= b.Max.X+eps && pt.Y >= b.Min.Y-eps && pt.Y <= b.Max.Y+eps {
			found = w
			return false
		}
		return true
	})
	return found, found != nil
}
