package host

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/bimlink/internal/domain/geom"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestParseModel(t *testing.T) {
	doc := newTestDoc(t)

	if doc.Title() != "Test Project" {
		t.Errorf("title = %q", doc.Title())
	}
	active, ok := doc.ActiveView()
	if !ok || active.Name != "Level 1" {
		t.Errorf("active view = %v", active)
	}
	threeD := mustFind(t, doc, ClassView3D, "{3D}")
	if !doc.IsOpen(threeD.ID) || !doc.IsOpen(active.ID) {
		t.Errorf("open views = %v", doc.OpenViews())
	}
	if len(doc.Selection()) != 2 {
		t.Errorf("selection = %v", doc.Selection())
	}

	room := mustFind(t, doc, ClassRoom, "Office")
	area, _ := room.Param("ROOM_AREA")
	if got := geom.AreaFromInternal(area.Num); !near(got, 5000*4000) {
		t.Errorf("room area = %v mm²", got)
	}
	perim, _ := room.Param("ROOM_PERIMETER")
	if got := geom.FromInternal(perim.Num); !near(got, 18000) {
		t.Errorf("room perimeter = %v mm", got)
	}

	door := mustFind(t, doc, ClassFamilyInstance, "900 x 2100mm")
	if door.RoomID != room.ID {
		t.Errorf("door room = %d, want %d", door.RoomID, room.ID)
	}
	if mark, _ := door.Param("ALL_MODEL_MARK"); mark.Text != "D-01" {
		t.Errorf("door mark = %+v", mark)
	}
	if h := geom.FromInternal(door.Box.Height()); !near(h, 2100) {
		t.Errorf("door height = %v", h)
	}

	floor := mustFind(t, doc, ClassFloor, "Generic 250mm")
	if !near(geom.FromInternal(floor.Box.Max.Z), 0) || !near(geom.FromInternal(floor.Box.Min.Z), -250) {
		t.Errorf("floor should hang below its level: %+v", floor.Box)
	}

	dim := mustFind(t, doc, ClassDimension, "Linear Dimension")
	if dim.Measured == nil || !near(geom.FromInternal(*dim.Measured), 5000) {
		t.Errorf("dimension = %v", dim.Measured)
	}
	if !near(geom.FromInternal(dim.Location.Curve.Start.Y), -1000) {
		t.Errorf("dimension line not offset: %+v", dim.Location.Curve)
	}
}

func TestParseModel_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "title: x\nbogus: 1\n", "bogus"},
		{"unknown class", "types:\n  - {key: t, class: Spaceship, name: x}\n", "Spaceship"},
		{"missing level", `
types:
  - {key: t, class: WallType, category: OST_Walls, name: W}
elements:
  - {class: Wall, type: t, level: Nowhere, start: {x: 0, y: 0}, end: {x: 1, y: 0}, height: 1}
`, "Nowhere"},
		{"duplicate key", `
levels: [{name: L, elevation: 0}]
types:
  - {key: t, class: WallType, category: OST_Walls, name: W}
  - {key: t, class: WallType, category: OST_Walls, name: W2}
`, "declared twice"},
		{"type category mismatch", `
levels: [{name: L, elevation: 0}]
types:
  - {key: t, class: FloorType, category: OST_Floors, name: F}
elements:
  - {class: Wall, category: OST_Walls, type: t, level: L, start: {x: 0, y: 0}, end: {x: 1000, y: 0}, height: 1000}
`, "belongs to OST_Floors"},
		{"two active views", `
views:
  - {name: A, class: View3D, viewType: ThreeD, active: true}
  - {name: B, class: View3D, viewType: ThreeD, active: true}
`, "marked active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	doc := newTestDoc(t)
	snap, err := doc.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := Restore(&decoded)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	again, err := restored.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snap, again) {
		t.Error("snapshot changed through JSON")
	}

	// new ids continue after the restored ones
	inTx(t, restored, func() {
		l, err := restored.CreateLevel("Level 9", 90)
		if err != nil {
			t.Fatal(err)
		}
		if l.ID != snap.NextID {
			t.Errorf("new id = %d, want %d", l.ID, snap.NextID)
		}
	})
}
