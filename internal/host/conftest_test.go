package host

import (
	"testing"
)

const testModel = `
title: Test Project
levels:
  - {name: Level 1, elevation: 0}
  - {name: Level 2, elevation: 3000}
grids:
  - {name: A, start: {x: 0, y: -1000}, end: {x: 0, y: 5000}}
types:
  - {key: wall-200, class: WallType, category: OST_Walls, family: Basic Wall, name: Generic - 200mm, params: {WALL_ATTR_WIDTH_PARAM: 200}}
  - {key: floor-250, class: FloorType, category: OST_Floors, family: Floor, name: Generic 250mm, params: {FLOOR_ATTR_THICKNESS_PARAM: 250}}
  - {key: door-900, class: FamilySymbol, category: OST_Doors, family: Single-Flush, name: 900 x 2100mm, params: {FAMILY_WIDTH_PARAM: 900, FAMILY_HEIGHT_PARAM: 2100, FAMILY_THICKNESS_PARAM: 50}}
  - {key: group-a, class: GroupType, category: OST_IOSModelGroups, name: Group A}
rooms:
  - key: office
    name: Office
    number: "101"
    level: Level 1
    height: 3000
    boundary: [{x: 0, y: 0}, {x: 5000, y: 0}, {x: 5000, y: 4000}, {x: 0, y: 4000}]
elements:
  - {key: w1, class: Wall, type: wall-200, level: Level 1, start: {x: 0, y: 0}, end: {x: 5000, y: 0}, height: 3000}
  - {key: w2, class: Wall, type: wall-200, level: Level 1, start: {x: 5000, y: 0}, end: {x: 5000, y: 4000}, height: 3000}
  - {key: w3, class: Wall, type: wall-200, level: Level 2, start: {x: 0, y: 0}, end: {x: 5000, y: 0}, height: 3000}
  - {key: d1, class: FamilyInstance, type: door-900, level: Level 1, point: {x: 2500, y: 500}, host: w1, params: {ALL_MODEL_MARK: D-01}}
  - key: f1
    class: Floor
    type: floor-250
    level: Level 1
    boundary: [{x: 0, y: 0}, {x: 5000, y: 0}, {x: 5000, y: 4000}, {x: 0, y: 4000}]
views:
  - {name: Level 1, class: ViewPlan, viewType: FloorPlan, level: Level 1, scale: 100, detailLevel: Medium, active: true}
  - {name: "{3D}", class: View3D, viewType: ThreeD, detailLevel: Fine, open: true}
  - {name: Door Schedule, class: ViewSchedule, viewType: Schedule}
annotations:
  - {key: n1, class: TextNote, view: Level 1, text: CHECK DOOR, point: {x: 1000, y: 1000}}
  - {key: dim1, class: Dimension, view: Level 1, start: {x: 0, y: 0}, end: {x: 5000, y: 0}, linePoint: {x: 0, y: -1000}, refs: [w2]}
groups:
  - {key: g1, type: group-a, members: [w1, d1]}
selection: [w1, d1]
`

func newTestDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseModel([]byte(testModel))
	if err != nil {
		t.Fatalf("parse test model: %v", err)
	}
	return doc
}

func mustFind(t *testing.T, doc *Document, class Class, name string) *Element {
	t.Helper()
	var found *Element
	doc.Each(func(e *Element) bool {
		if e.Class == class && e.Name == name {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("%s %q not found", class, name)
	}
	return found
}

func inTx(t *testing.T, doc *Document, fn func()) {
	t.Helper()
	tx := NewTransaction(doc, "test")
	if err := tx.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	fn()
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
