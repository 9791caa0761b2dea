package command

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/descriptor"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// MessageNoElements is the failure message of a filter without matches.
const MessageNoElements = "no elements found, check filter settings"

// ViewInfo describes a view.
type ViewInfo struct {
	ID          int64  `json:"id"`
	UniqueID    string `json:"uniqueId"`
	Name        string `json:"name"`
	ViewType    string `json:"viewType"`
	IsTemplate  bool   `json:"isTemplate"`
	Scale       int    `json:"scale"`
	DetailLevel string `json:"detailLevel"`
}

// ElementInfo is the compact element listing used by the view and selection commands.
type ElementInfo struct {
	ID         int64             `json:"id"`
	UniqueID   string            `json:"uniqueId"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ViewElementsResult lists the elements of the active view.
type ViewElementsResult struct {
	ViewID               int64         `json:"viewId"`
	ViewName             string        `json:"viewName"`
	TotalElementsInView  int           `json:"totalElementsInView"`
	FilteredElementCount int           `json:"filteredElementCount"`
	Elements             []ElementInfo `json:"elements"`
}

// FamilyTypeInfo describes a placeable type.
type FamilyTypeInfo struct {
	FamilyTypeID int64  `json:"familyTypeId"`
	UniqueID     string `json:"uniqueId"`
	FamilyName   string `json:"familyName"`
	TypeName     string `json:"typeName"`
	Category     string `json:"category"`
}

// Categories listed by get_current_view_elements when the request names none.
var (
	DefaultModelCategories = []string{
		"OST_Walls", "OST_Doors", "OST_Windows", "OST_Furniture", "OST_Columns", "OST_Floors",
		"OST_Roofs", "OST_Stairs", "OST_StructuralFraming", "OST_Ceilings", "OST_MEPSpaces", "OST_Rooms",
	}
	DefaultAnnotationCategories = []string{
		"OST_Dimensions", "OST_TextNotes", "OST_GenericAnnotation", "OST_WallTags", "OST_DoorTags",
		"OST_WindowTags", "OST_RoomTags", "OST_AreaTags", "OST_SpaceTags", "OST_ViewportLabels", "OST_TitleBlocks",
	}
)

// service holds the command operations. Every method runs on the UI goroutine.
type service struct {
	coll   Collector
	desc   Describer
	logger *zap.Logger
}

func (s *service) filterElements(ui *host.UI, req filterRequest) (envelope.Envelope[descriptor.List], error) {
	doc := ui.Document()
	res, err := s.coll.Collect(doc, req.desc)
	if err != nil {
		return envelope.Envelope[descriptor.List]{}, err
	}
	for _, d := range res.Diagnostics {
		s.logger.Info("filter diagnostic", zap.String("detail", d))
	}
	if res.Total == 0 {
		return envelope.Fail[descriptor.List](MessageNoElements), nil
	}

	list := s.desc.Describe(doc, res.Elements)
	msg := fmt.Sprintf(
		"Successfully obtained %d element infos, there are %d elements in total that meet the filtering criteria",
		len(list), res.Total)
	if len(res.Elements) < res.Total {
		msg += fmt.Sprintf(", showing the first %d", len(res.Elements))
	}
	if dropped := len(res.Elements) - len(list); dropped > 0 {
		msg += fmt.Sprintf(", %d could not be described", dropped)
	}
	if len(res.Diagnostics) > 0 {
		msg += " (" + strings.Join(res.Diagnostics, "; ") + ")"
	}
	return envelope.OK(list, msg), nil
}

func (s *service) elementInfo(ui *host.UI, p ElementInfoParams) (envelope.Envelope[descriptor.List], error) {
	doc := ui.Document()
	elems := make([]*host.Element, 0, len(p.ElementIDs))
	var missing []string
	for _, id := range p.ElementIDs {
		e, ok := doc.Element(host.ElementID(id))
		if !ok {
			missing = append(missing, fmt.Sprint(id))
			continue
		}
		elems = append(elems, e)
	}
	if len(elems) == 0 {
		return envelope.Envelope[descriptor.List]{}, fmt.Errorf(
			"elements %s: %w", strings.Join(missing, ", "), domain.ErrNotFound)
	}

	list := s.desc.Describe(doc, elems)
	msg := fmt.Sprintf("Successfully obtained %d element infos", len(list))
	if len(missing) > 0 {
		msg += ", not found: " + strings.Join(missing, ", ")
	}
	return envelope.OK(list, msg), nil
}

func (s *service) currentViewInfo(ui *host.UI, _ noParams) (envelope.Envelope[ViewInfo], error) {
	view, err := activeView(ui.Document())
	if err != nil {
		return envelope.Envelope[ViewInfo]{}, err
	}
	return envelope.OK(viewInfo(view), "Successfully obtained the active view"), nil
}

func viewInfo(v *host.Element) ViewInfo {
	return ViewInfo{
		ID:          int64(v.ID),
		UniqueID:    v.UniqueID,
		Name:        v.Name,
		ViewType:    v.View.ViewType,
		IsTemplate:  v.View.IsTemplate,
		Scale:       v.View.Scale,
		DetailLevel: v.View.DetailLevel,
	}
}

func (s *service) currentViewElements(ui *host.UI, p ViewElementsParams) (envelope.Envelope[ViewElementsResult], error) {
	doc := ui.Document()
	view, err := activeView(doc)
	if err != nil {
		return envelope.Envelope[ViewElementsResult]{}, err
	}

	modelCats := p.ModelCategories
	if len(modelCats) == 0 {
		modelCats = DefaultModelCategories
	}
	annotationCats := p.AnnotationCategories
	if len(annotationCats) == 0 {
		annotationCats = DefaultAnnotationCategories
	}
	cats, err := resolveCategories(append(append([]string(nil), modelCats...), annotationCats...))
	if err != nil {
		return envelope.Envelope[ViewElementsResult]{}, err
	}

	inView := host.ElementFilter(host.VisibleInViewFilter{ViewID: view.ID})
	if p.IncludeHidden {
		inView = host.DrawnInViewFilter{ViewID: view.ID}
	}
	elems := host.NewCollector(doc).
		WherePasses(inView).
		WhereElementIsNotElementType().
		WherePasses(host.MultiCategoryFilter{Categories: cats}).
		Elements()
	if p.Limit > 0 && len(elems) > p.Limit {
		elems = elems[:p.Limit]
	}

	total := host.NewCollector(doc).
		WherePasses(host.VisibleInViewFilter{ViewID: view.ID}).
		WhereElementIsNotElementType().
		Count()

	infos := make([]ElementInfo, 0, len(elems))
	for _, e := range elems {
		infos = append(infos, elementInfo(doc, e, true))
	}
	res := ViewElementsResult{
		ViewID:               int64(view.ID),
		ViewName:             view.Name,
		TotalElementsInView:  total,
		FilteredElementCount: len(infos),
		Elements:             infos,
	}
	return envelope.OK(res, fmt.Sprintf("Successfully obtained %d elements of view %q", len(infos), view.Name)), nil
}

func (s *service) selectedElements(ui *host.UI, p SelectedElementsParams) (envelope.Envelope[[]ElementInfo], error) {
	doc := ui.Document()
	ids := doc.Selection()
	if p.Limit > 0 && len(ids) > p.Limit {
		ids = ids[:p.Limit]
	}
	out := make([]ElementInfo, 0, len(ids))
	for _, id := range ids {
		if e, ok := doc.Element(id); ok {
			out = append(out, elementInfo(doc, e, false))
		}
	}
	return envelope.OK(out, fmt.Sprintf("Successfully obtained %d selected elements", len(out))), nil
}

// familyTypeClasses are listed in this order: loadable family types first,
// then the system types.
var familyTypeClasses = []host.Class{host.ClassFamilySymbol, host.ClassWallType, host.ClassFloorType, host.ClassRoofType}

func (s *service) availableFamilyTypes(ui *host.UI, p FamilyTypesParams) (envelope.Envelope[[]FamilyTypeInfo], error) {
	doc := ui.Document()
	var cats map[string]bool
	if len(p.Categories) > 0 {
		resolved, err := resolveCategories(p.Categories)
		if err != nil {
			return envelope.Envelope[[]FamilyTypeInfo]{}, err
		}
		cats = make(map[string]bool, len(resolved))
		for _, c := range resolved {
			cats[c] = true
		}
	}
	needle := strings.ToLower(strings.TrimSpace(p.FamilyNameFilter))

	var out []FamilyTypeInfo
	for _, class := range familyTypeClasses {
		host.NewCollector(doc).OfClass(class).Each(func(e *host.Element) bool {
			if cats != nil && !cats[e.Category] {
				return true
			}
			family := familyName(e)
			if needle != "" &&
				!strings.Contains(strings.ToLower(family), needle) &&
				!strings.Contains(strings.ToLower(e.Name), needle) {
				return true
			}
			out = append(out, FamilyTypeInfo{
				FamilyTypeID: int64(e.ID),
				UniqueID:     e.UniqueID,
				FamilyName:   family,
				TypeName:     e.Name,
				Category:     categoryName(e.Category),
			})
			return true
		})
	}
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	if out == nil {
		out = []FamilyTypeInfo{}
	}
	return envelope.OK(out, fmt.Sprintf("Successfully obtained %d family types", len(out))), nil
}

func familyName(t *host.Element) string {
	if t.FamilyName != "" {
		return t.FamilyName
	}
	return strings.TrimSuffix(t.Class.String(), "Type")
}

func activeView(doc *host.Document) (*host.Element, error) {
	v, ok := doc.ActiveView()
	if !ok || v.View == nil {
		return nil, fmt.Errorf("%w: no active view", domain.ErrResolution)
	}
	return v, nil
}

func resolveCategories(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		c, ok := host.LookupCategory(n)
		if !ok {
			return nil, domain.NewResolutionError("category", n)
		}
		out = append(out, c.BuiltIn)
	}
	return out, nil
}

func categoryName(builtIn string) string {
	if c, ok := host.LookupCategory(builtIn); ok {
		return c.Name
	}
	return builtIn
}

// elementInfo builds the compact listing. With properties set, the location
// in mm and the common identity parameters are added.
func elementInfo(doc *host.Document, e *host.Element, properties bool) ElementInfo {
	info := ElementInfo{
		ID:       int64(e.ID),
		UniqueID: e.UniqueID,
		Name:     e.Name,
		Category: categoryName(e.Category),
	}
	if !properties {
		return info
	}

	props := map[string]string{"ElementId": fmt.Sprint(int64(e.ID))}
	switch e.Location.Kind {
	case host.LocationPoint:
		p := e.Location.Point.External()
		props["LocationX"] = formatF2(p.X)
		props["LocationY"] = formatF2(p.Y)
		props["LocationZ"] = formatF2(p.Z)
	case host.LocationCurve:
		s, end := e.Location.Curve.Start.External(), e.Location.Curve.End.External()
		props["Start"] = formatPoint(s)
		props["End"] = formatPoint(end)
		props["Length"] = formatF2(geom.FromInternal(e.Location.Curve.Length()))
	}
	for name, builtIn := range map[string]string{"Comments": "ALL_MODEL_INSTANCE_COMMENTS", "Mark": "ALL_MODEL_MARK"} {
		if p, ok := e.Param(builtIn); ok && p.HasValue() {
			props[name] = p.ValueString()
		}
	}
	if lvl, ok := doc.Element(e.LevelID); ok && e.LevelID.Valid() {
		props["Level"] = lvl.Name
	}
	if e.FamilyName != "" {
		props["Family"] = e.FamilyName
	}
	if t, ok := doc.Element(e.TypeID); ok && e.TypeID.Valid() {
		props["Type"] = t.Name
	}
	info.Properties = props
	return info
}

func formatF2(v float64) string { return fmt.Sprintf("%.2f", v) }

func formatPoint(p geom.Point) string {
	return formatF2(p.X) + ", " + formatF2(p.Y) + ", " + formatF2(p.Z)
}
