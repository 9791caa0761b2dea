package command

import (
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

func TestOperate_ColorAndTransparencyClamped(t *testing.T) {
	r, app := newTestRegistry(t)
	w1 := elementID(t, app, host.ClassWall, "W-01")
	ids := `[` + itoa(w1) + `]`

	mustSucceed[bool](t, r, NameOperateElement, `{"elementIds": `+ids+`, "action": "setcolor", "colorValue": [300, -5, 10]}`)
	mustSucceed[bool](t, r, NameOperateElement, `{"data": {"elementIds": `+ids+`, "action": "SetTransparency", "transparencyValue": 150}}`)

	onUI(t, app, func(doc *host.Document) {
		view, _ := doc.ActiveView()
		o := view.View.Overrides[host.ElementID(w1)]
		if o.Color == nil || *o.Color != (host.RGB{R: 255, G: 0, B: 10}) {
			t.Errorf("color = %+v", o.Color)
		}
		if o.Transparency != 100 {
			t.Errorf("transparency = %d, want 100", o.Transparency)
		}
	})
}

func TestOperate_Defaults(t *testing.T) {
	p := defaultOperateParams()
	if p.transparency() != DefaultTransparency || p.rgb() != [3]uint8{255, 0, 0} {
		t.Errorf("defaults: transparency %d, color %v", p.transparency(), p.rgb())
	}
	p.Color = []int{1, 2}
	if p.rgb() != [3]uint8{255, 0, 0} {
		t.Errorf("short color should fall back to red, got %v", p.rgb())
	}
}

func TestOperate_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	tests := []struct {
		name   string
		params string
		want   string
	}{
		{"unknown action", `{"elementIds": [1], "action": "Explode"}`, "unsupported action"},
		{"no elements", `{"elementIds": [], "action": "Hide"}`, "no elements"},
		{"missing element", `{"elementIds": [999999], "action": "Hide"}`, "999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := mustFail(t, r, NameOperateElement, tt.params); !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
	mustSucceed[bool](t, r, NameOperateElement, `{"action": "ResetIsolate"}`)
}

func TestOperate_IsolateAndReset(t *testing.T) {
	r, app := newTestRegistry(t)
	w2 := elementID(t, app, host.ClassWall, "W-02")
	walls := `{"modelCategoryList": ["OST_Walls"], "annotationCategoryList": ["OST_TextNotes"]}`

	mustSucceed[bool](t, r, NameOperateElement, `{"elementIds": [`+itoa(w2)+`], "action": "Isolate"}`)
	isolated := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements, walls)
	if isolated.FilteredElementCount != 1 || isolated.Elements[0].ID != w2 {
		t.Errorf("after isolate: %+v", isolated.Elements)
	}

	mustSucceed[bool](t, r, NameOperateElement, `{"action": "ResetIsolate"}`)
	reset := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements, walls)
	if reset.FilteredElementCount != 4 {
		t.Errorf("after reset: %d elements, want 4", reset.FilteredElementCount)
	}
}

func TestOperate_SelectAndDelete(t *testing.T) {
	r, app := newTestRegistry(t)
	w3 := elementID(t, app, host.ClassWall, "W-03")
	before := elementCount(t, app)

	mustSucceed[bool](t, r, NameOperateElement, `{"elementIds": [`+itoa(w3)+`], "action": "Select"}`)
	sel := mustSucceed[[]ElementInfo](t, r, NameSelectedElements, `{}`)
	if len(sel) != 1 || sel[0].ID != w3 {
		t.Fatalf("selection = %+v", sel)
	}

	mustSucceed[bool](t, r, NameOperateElement, `{"elementIds": [`+itoa(w3)+`], "action": "Delete"}`)
	if got := elementCount(t, app); got != before-1 {
		t.Errorf("element count = %d, want %d", got, before-1)
	}
	if sel := mustSucceed[[]ElementInfo](t, r, NameSelectedElements, `{}`); len(sel) != 0 {
		t.Errorf("deleted element still selected: %+v", sel)
	}
}

func TestOperate_SelectionBox(t *testing.T) {
	r, app := newTestRegistry(t)
	w1 := elementID(t, app, host.ClassWall, "W-01")

	mustSucceed[bool](t, r, NameOperateElement, `{"elementIds": [`+itoa(w1)+`], "action": "SelectionBox"}`)
	view := mustSucceed[ViewInfo](t, r, NameCurrentViewInfo, ``)
	if view.Name != "{3D}" {
		t.Fatalf("active view = %q, want {3D}", view.Name)
	}
	onUI(t, app, func(doc *host.Document) {
		v, _ := doc.ActiveView()
		wall, _ := doc.Element(host.ElementID(w1))
		box := v.View.SectionBox
		if box == nil {
			t.Fatal("no section box")
		}
		if math.Abs(box.Min.X-(wall.Box.Min.X-sectionBoxMargin)) > 1e-9 ||
			math.Abs(box.Max.Z-(wall.Box.Max.Z+sectionBoxMargin)) > 1e-9 {
			t.Errorf("section box %+v does not pad wall box %+v", *box, *wall.Box)
		}
	})
}

func TestCreateLineBased(t *testing.T) {
	r, app := newTestRegistry(t)
	level2 := elementID(t, app, host.ClassLevel, "Level 2")

	ids := mustSucceed[[]int64](t, r, NameCreateLineBased, `{"data": [
		{"category": "OST_Walls", "locationLine": {"p0": {"x": 0, "y": 8000}, "p1": {"x": 4000, "y": 8000}},
		 "thickness": 250, "height": 2800, "baseLevel": 3000, "baseOffset": 100},
		{"category": "OST_StructuralFraming", "locationLine": {"p0": {"x": 0, "y": 1000}, "p1": {"x": 5000, "y": 1000}},
		 "baseLevel": 3500}
	]}`)
	if len(ids) != 2 {
		t.Fatalf("created %v", ids)
	}
	onUI(t, app, func(doc *host.Document) {
		wall, _ := doc.Element(host.ElementID(ids[0]))
		if wall.Class != host.ClassWall || int64(wall.LevelID) != level2 {
			t.Errorf("wall = %s on level %d", wall, wall.LevelID)
		}
		if z := geom.FromInternal(wall.Box.Min.Z); math.Abs(z-3100) > 1e-6 {
			t.Errorf("wall base = %.3f mm, want 3100", z)
		}
		beam, _ := doc.Element(host.ElementID(ids[1]))
		if beam.Class != host.ClassFamilyInstance || beam.Category != "OST_StructuralFraming" {
			t.Errorf("beam = %s (%s)", beam, beam.Category)
		}
		if z := geom.FromInternal(beam.Location.Curve.Start.Z); math.Abs(z-3500) > 1e-6 {
			t.Errorf("beam elevation = %.3f mm, want 3500", z)
		}
	})
}

func TestCreate_FailedItemRollsBackBatch(t *testing.T) {
	r, app := newTestRegistry(t)
	before := elementCount(t, app)

	msg := mustFail(t, r, NameCreateLineBased, `{"data": [
		{"category": "OST_Walls", "locationLine": {"p0": {"x": 0, "y": 8000}, "p1": {"x": 4000, "y": 8000}}, "height": 3000},
		{"category": "OST_Walls", "locationLine": {"p0": {"x": 0, "y": 9000}, "p1": {"x": 4000, "y": 9000}}, "height": 0}
	]}`)
	if !strings.Contains(msg, "transaction rolled back") || !strings.Contains(msg, "item 1") {
		t.Errorf("message = %q", msg)
	}
	if got := elementCount(t, app); got != before {
		t.Errorf("element count = %d after rollback, want %d", got, before)
	}
}

func TestCreate_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	tests := []struct {
		name    string
		command string
		params  string
		want    string
	}{
		{"empty batch", NameCreatePointBased, `{"data": []}`, "data is empty"},
		{"no type", NameCreatePointBased, `{"data": [{"locationPoint": {"x": 0, "y": 0}}]}`, "typeId or category"},
		{"no line", NameCreateLineBased, `{"data": [{"category": "OST_Walls"}]}`, "locationLine"},
		{"short loop", NameCreateSurfaceBased, `{"data": [{"category": "OST_Floors", "boundary": {"outerLoop": []}}]}`, "outer loop"},
		{"unknown type", NameCreatePointBased, `{"data": [{"typeId": 999999, "locationPoint": {"x": 0, "y": 0}}]}`, "999999"},
		{"wrong shape", NameCreatePointBased, `{"data": [{"category": "OST_Walls", "locationPoint": {"x": 0, "y": 0}}]}`, "cannot be placed at a point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := mustFail(t, r, tt.command, tt.params); !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestCreatePointBased(t *testing.T) {
	r, app := newTestRegistry(t)
	office := elementID(t, app, host.ClassRoom, "Office")
	w1 := elementID(t, app, host.ClassWall, "W-01")

	ids := mustSucceed[[]int64](t, r, NameCreatePointBased, `{"data": [
		{"category": "OST_Furniture", "locationPoint": {"x": 1000, "y": 1000}, "rotation": 90},
		{"category": "OST_Doors", "locationPoint": {"x": 1000, "y": 0}}
	]}`)
	onUI(t, app, func(doc *host.Document) {
		desk, _ := doc.Element(host.ElementID(ids[0]))
		if int64(desk.RoomID) != office {
			t.Errorf("desk room = %d, want %d", desk.RoomID, office)
		}
		if math.Abs(desk.Location.Rotation-math.Pi/2) > 1e-9 {
			t.Errorf("rotation = %v", desk.Location.Rotation)
		}
		door, _ := doc.Element(host.ElementID(ids[1]))
		wall, _ := doc.Element(host.ElementID(w1))
		if door.Category != "OST_Doors" || door.LevelID != wall.LevelID {
			t.Errorf("door = %s (%s) on level %d", door, door.Category, door.LevelID)
		}
	})

	msg := mustFail(t, r, NameCreatePointBased, `{"data": [{"category": "OST_Doors", "locationPoint": {"x": 1000, "y": 9000}}]}`)
	if !strings.Contains(msg, "no wall") {
		t.Errorf("unhosted door message = %q", msg)
	}
}

func TestCreateSurfaceBased(t *testing.T) {
	r, app := newTestRegistry(t)

	ids := mustSucceed[[]int64](t, r, NameCreateSurfaceBased, `{"data": [{
		"category": "OST_Floors", "baseLevel": 3000,
		"boundary": {
			"outerLoop": [
				{"p0": {"x": 0, "y": 10000}, "p1": {"x": 2000, "y": 10000}},
				{"p0": {"x": 2000, "y": 10000}, "p1": {"x": 2000, "y": 12000}},
				{"p0": {"x": 2000, "y": 12000}, "p1": {"x": 0, "y": 12000}},
				{"p0": {"x": 0, "y": 12000}, "p1": {"x": 0, "y": 10000}}
			],
			"innerLoops": [[
				{"p0": {"x": 500, "y": 10500}, "p1": {"x": 1500, "y": 10500}},
				{"p0": {"x": 1500, "y": 10500}, "p1": {"x": 1500, "y": 11500}},
				{"p0": {"x": 1500, "y": 11500}, "p1": {"x": 500, "y": 11500}},
				{"p0": {"x": 500, "y": 11500}, "p1": {"x": 500, "y": 10500}}
			]]
		}
	}]}`)
	onUI(t, app, func(doc *host.Document) {
		floor, _ := doc.Element(host.ElementID(ids[0]))
		if floor.Class != host.ClassFloor {
			t.Fatalf("created %s", floor)
		}
		area, _ := floor.Param("HOST_AREA_COMPUTED")
		if got := geom.AreaFromInternal(area.Num); math.Abs(got-3e6) > 1 {
			t.Errorf("area = %.1f mm², want 3e6", got)
		}
	})

	msg := mustFail(t, r, NameCreateSurfaceBased, `{"data": [{
		"category": "OST_Floors",
		"boundary": {"outerLoop": [
			{"p0": {"x": 0, "y": 0}, "p1": {"x": 1000, "y": 0}},
			{"p0": {"x": 1000, "y": 0}, "p1": {"x": 1000, "y": 1000}},
			{"p0": {"x": 900, "y": 1000}, "p1": {"x": 0, "y": 0}}
		]}
	}]}`)
	if !strings.Contains(msg, "does not connect") {
		t.Errorf("open loop message = %q", msg)
	}
}

func TestCreateDimensions(t *testing.T) {
	r, app := newTestRegistry(t)
	level1View := elementID(t, app, host.ClassViewPlan, "Level 1")
	w2 := elementID(t, app, host.ClassWall, "W-02")

	ids := mustSucceed[[]int64](t, r, NameCreateDimensions, `{"dimensions": [
		{"startPoint": {"x": 0, "y": 4000}, "endPoint": {"x": 3000, "y": 4000}},
		{"startPoint": {"x": 0, "y": 0}, "endPoint": {"x": 0, "y": 4000}, "linePoint": {"x": -800, "y": 0}, "elementIds": [`+itoa(w2)+`], "viewId": 999999}
	]}`)
	if len(ids) != 2 {
		t.Fatalf("created %v", ids)
	}
	onUI(t, app, func(doc *host.Document) {
		first, _ := doc.Element(host.ElementID(ids[0]))
		if int64(first.OwnerViewID) != level1View {
			t.Errorf("owner view = %d, want the active view %d", first.OwnerViewID, level1View)
		}
		if got := geom.FromInternal(*first.Measured); math.Abs(got-3000) > 1e-6 {
			t.Errorf("value = %.3f mm, want 3000", got)
		}
		// default line point: one foot off the midpoint
		if y := first.Location.Curve.Start.Y; math.Abs(y-(geom.ToInternal(4000)+1)) > 1e-9 {
			t.Errorf("dimension line y = %v ft", y)
		}
		second, _ := doc.Element(host.ElementID(ids[1]))
		if x := geom.FromInternal(second.Location.Curve.Start.X); math.Abs(x+800) > 1e-6 {
			t.Errorf("dimension line x = %.3f mm, want -800", x)
		}
	})

	if msg := mustFail(t, r, NameCreateDimensions, `{"dimensions": [{"startPoint": {"x": 1}, "endPoint": {"x": 2}, "dimensionType": "Angular"}]}`); !strings.Contains(msg, "Angular") {
		t.Errorf("message = %q", msg)
	}
}
