package command

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// sectionBoxMargin pads the section box around the selected elements, in feet.
const sectionBoxMargin = 1.0

func (s *service) operateElement(ui *host.UI, p OperateParams) (envelope.Envelope[bool], error) {
	action, err := ParseAction(p.Action)
	if err != nil {
		return envelope.Envelope[bool]{}, err
	}
	doc := ui.Document()
	ids := make([]host.ElementID, 0, len(p.ElementIDs))
	for _, id := range p.ElementIDs {
		if _, err := doc.MustElement(host.ElementID(id)); err != nil {
			return envelope.Envelope[bool]{}, fmt.Errorf("%w: element %d", domain.ErrResolution, id)
		}
		ids = append(ids, host.ElementID(id))
	}

	switch action {
	case ActionSelect:
		err = doc.SetSelection(ids)
	case ActionSelectionBox:
		err = selectionBox(doc, ids)
	case ActionDelete:
		_, err = doc.Delete(ids...)
	default:
		err = modifyActiveView(doc, func(v *host.ViewData) { applyViewAction(v, action, ids, p) })
	}
	if err != nil {
		return envelope.Envelope[bool]{}, fmt.Errorf("%s: %w", action, err)
	}
	return envelope.OK(true, fmt.Sprintf("Successfully executed %s on %d elements", action, len(ids))), nil
}

func applyViewAction(v *host.ViewData, action Action, ids []host.ElementID, p OperateParams) {
	switch action {
	case ActionSetColor:
		rgb := p.rgb()
		for _, id := range ids {
			o := v.Overrides[id]
			o.Color = &host.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}
			v.Overrides = put(v.Overrides, id, o)
		}
	case ActionSetTransparency:
		t := p.transparency()
		for _, id := range ids {
			o := v.Overrides[id]
			o.Transparency = t
			v.Overrides = put(v.Overrides, id, o)
		}
	case ActionHide:
		for _, id := range ids {
			v.Hidden = put(v.Hidden, id, true)
		}
	case ActionTempHide:
		for _, id := range ids {
			v.TempHidden = put(v.TempHidden, id, true)
		}
	case ActionIsolate:
		v.Isolated = make(map[host.ElementID]bool, len(ids))
		for _, id := range ids {
			v.Isolated[id] = true
		}
	case ActionUnhide:
		for _, id := range ids {
			delete(v.Hidden, id)
		}
	case ActionResetIsolate:
		v.TempHidden = nil
		v.Isolated = nil
	}
}

func put[V any](m map[host.ElementID]V, id host.ElementID, v V) map[host.ElementID]V {
	if m == nil {
		m = make(map[host.ElementID]V)
	}
	m[id] = v
	return m
}

func modifyActiveView(doc *host.Document, fn func(*host.ViewData)) error {
	view, err := activeView(doc)
	if err != nil {
		return err
	}
	return doc.Modify(view.ID, func(e *host.Element) { fn(e.View) })
}

// selectionBox crops a 3D view to the elements' combined bounding box and
// activates it. The active view is used when it is 3D, otherwise the default
// 3D view.
func selectionBox(doc *host.Document, ids []host.ElementID) error {
	target, err := target3D(doc)
	if err != nil {
		return err
	}
	var corners []geom.XYZ
	for _, id := range ids {
		if e, ok := doc.Element(id); ok && e.Box != nil {
			corners = append(corners, e.Box.Min, e.Box.Max)
		}
	}
	box, ok := geom.BoxOf(corners...)
	if !ok {
		return fmt.Errorf("%w: selected elements have no bounding box", domain.ErrResolution)
	}
	m := geom.XYZ{X: sectionBoxMargin, Y: sectionBoxMargin, Z: sectionBoxMargin}
	box = geom.Box{Min: box.Min.Add(geom.XYZ{X: -m.X, Y: -m.Y, Z: -m.Z}), Max: box.Max.Add(m)}

	if err := doc.Modify(target.ID, func(e *host.Element) { e.View.SectionBox = &box }); err != nil {
		return err
	}
	if err := doc.SetActiveView(target.ID); err != nil {
		return err
	}
	return doc.SetSelection(ids)
}

func target3D(doc *host.Document) (*host.Element, error) {
	if v, ok := doc.ActiveView(); ok && v.Class == host.ClassView3D {
		return v, nil
	}
	var found *host.Element
	host.NewCollector(doc).OfClass(host.ClassView3D).Each(func(e *host.Element) bool {
		if e.View != nil && !e.View.IsTemplate && !e.Pinned &&
			(strings.Contains(e.Name, "{3D}") || strings.Contains(e.Name, "Default 3D")) {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: no 3D view available for a section box", domain.ErrResolution)
	}
	return found, nil
}
