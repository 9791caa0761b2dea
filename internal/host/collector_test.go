package host

import (
	"testing"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

func names(elems []*Element) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.Class.String() + ":" + e.Name
	}
	return out
}

func TestCollector_Filters(t *testing.T) {
	doc := newTestDoc(t)

	walls := NewCollector(doc).OfCategory("OST_Walls").WhereElementIsNotElementType().Elements()
	if len(walls) != 3 {
		t.Fatalf("walls = %v", names(walls))
	}
	for i := 1; i < len(walls); i++ {
		if walls[i-1].ID >= walls[i].ID {
			t.Error("collector must keep creation order")
		}
	}

	types := NewCollector(doc).OfCategory("OST_Walls").WhereElementIsElementType().Count()
	if types != 1 {
		t.Errorf("wall types = %d", types)
	}

	if n := NewCollector(doc).OfClass(ClassHostObject).Count(); n != 4 {
		t.Errorf("host objects = %d, want 3 walls and 1 floor", n)
	}

	doorType := mustFind(t, doc, ClassFamilySymbol, "900 x 2100mm")
	doors := NewCollector(doc).WherePasses(FamilySymbolFilter{SymbolID: doorType.ID}).Elements()
	if len(doors) != 1 || doors[0].Class != ClassFamilyInstance {
		t.Errorf("doors = %v", names(doors))
	}
}

func TestCollector_BoundingBox(t *testing.T) {
	doc := newTestDoc(t)

	// a small box straddling the east wall at x=5000mm
	window := geom.Box{
		Min: geom.Point{X: 4950, Y: 1000, Z: 500}.Internal(),
		Max: geom.Point{X: 5050, Y: 2000, Z: 600}.Internal(),
	}
	got := NewCollector(doc).
		WhereElementIsNotElementType().
		WherePasses(And(CategoryFilter{Category: "OST_Walls"}, BoundingBoxIntersectsFilter{Outline: window})).
		Elements()
	if len(got) != 1 {
		t.Fatalf("got %v", names(got))
	}
	w2 := got[0]
	if w2.Location.Curve.Start.X != geom.ToInternal(5000) {
		t.Errorf("wrong wall %v", w2)
	}
}

func TestCollector_ViewVisibility(t *testing.T) {
	doc := newTestDoc(t)
	plan := mustFind(t, doc, ClassViewPlan, "Level 1")
	threeD := mustFind(t, doc, ClassView3D, "{3D}")
	schedule := mustFind(t, doc, ClassViewSchedule, "Door Schedule")
	note := mustFind(t, doc, ClassTextNote, "")

	count := func(view *Element, category string) int {
		c, err := NewViewCollector(doc, view.ID)
		if err != nil {
			t.Fatalf("view collector: %v", err)
		}
		return c.OfCategory(category).Count()
	}

	if n := count(plan, "OST_Walls"); n != 2 {
		t.Errorf("plan walls = %d, want the two on Level 1", n)
	}
	if n := count(threeD, "OST_Walls"); n != 3 {
		t.Errorf("3D walls = %d", n)
	}
	if n := count(schedule, "OST_Walls"); n != 0 {
		t.Errorf("schedule draws %d walls", n)
	}
	if n := count(plan, "OST_TextNotes"); n != 1 {
		t.Errorf("plan notes = %d", n)
	}
	if n := count(threeD, "OST_TextNotes"); n != 0 {
		t.Errorf("note leaked into 3D view")
	}

	w1 := mustFind(t, doc, ClassWall, "Generic - 200mm")
	inTx(t, doc, func() {
		if err := doc.Modify(plan.ID, func(v *Element) {
			v.View.Hidden = map[ElementID]bool{w1.ID: true}
		}); err != nil {
			t.Fatal(err)
		}
	})
	if n := count(plan, "OST_Walls"); n != 1 {
		t.Errorf("hidden wall still visible: %d", n)
	}
	drawn := NewCollector(doc).WherePasses(DrawnInViewFilter{ViewID: plan.ID}).OfCategory("OST_Walls").Count()
	if drawn != 2 {
		t.Errorf("drawn walls = %d, hide state must be ignored", drawn)
	}

	inTx(t, doc, func() {
		_ = doc.Modify(plan.ID, func(v *Element) {
			v.View.Hidden = nil
			v.View.Isolated = map[ElementID]bool{note.ID: true}
		})
	})
	if n := count(plan, "OST_Walls"); n != 0 {
		t.Errorf("isolation leaked %d walls", n)
	}

	if _, err := NewViewCollector(doc, w1.ID); err == nil {
		t.Error("expected error for non-view element")
	}
}
