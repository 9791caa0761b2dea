package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/domain/descriptor"
	"github.com/kailas-cloud/bimlink/internal/host"
	"github.com/kailas-cloud/bimlink/internal/usecase/classify"
	"github.com/kailas-cloud/bimlink/internal/usecase/filter"
)

func TestRegistry_List(t *testing.T) {
	r, _ := newTestRegistry(t, WithTimeouts(map[string]time.Duration{NameCurrentViewElements: 5 * time.Second}))

	infos := r.List()
	if len(infos) != 13 {
		t.Fatalf("got %d commands, want 13", len(infos))
	}
	tests := []struct {
		name    string
		timeout time.Duration
		mutates bool
	}{
		{NameFilter, 10 * time.Second, false},
		{NameCurrentViewElements, 5 * time.Second, false},
		{NameSelectedElements, 15 * time.Second, false},
		{NameOperateElement, 10 * time.Second, true},
		{NameCreateSurfaceBased, 15 * time.Second, true},
		{NameCreateDimensions, 20 * time.Second, true},
		{NameColorSplash, 15 * time.Second, true},
		{NameTagWalls, 15 * time.Second, true},
	}
	for _, tt := range tests {
		c, ok := r.Get(tt.name)
		if !ok {
			t.Errorf("%s not registered", tt.name)
			continue
		}
		if info := c.Info(); info.Timeout != tt.timeout || info.Mutates != tt.mutates {
			t.Errorf("%s: got %+v", tt.name, info)
		}
	}
	if infos[0].Name != NameFilter || infos[12].Name != NameTagWalls {
		t.Errorf("registration order not kept: first %s, last %s", infos[0].Name, infos[12].Name)
	}
}

func TestRegistry_UnknownCommand(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Invoke(context.Background(), "teleport", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFilter_FiveWallsShowingTwo(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := invoke(t, r, NameFilter, `{"data": {"filterCategory": "OST_Walls", "maxElements": 2}}`)
	if !res.Envelope.Success() {
		t.Fatalf("filter failed: %s", res.Envelope.Message())
	}
	want := "Successfully obtained 2 element infos, there are 5 elements in total " +
		"that meet the filtering criteria, showing the first 2"
	if res.Envelope.Message() != want {
		t.Errorf("message = %q", res.Envelope.Message())
	}
	var list descriptor.List
	if err := json.Unmarshal(res.Envelope.Response(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d descriptors", len(list))
	}
	for _, d := range list {
		if d.Kind() != descriptor.KindInstance {
			t.Errorf("%d: kind %s, want instance", d.Ident().ID, d.Kind())
		}
	}
}

func TestFilter_BareParams(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := invoke(t, r, NameFilter, `{"filterCategory": "OST_Doors"}`)
	if !res.Envelope.Success() {
		t.Fatalf("filter failed: %s", res.Envelope.Message())
	}
	if strings.Contains(res.Envelope.Message(), "showing") {
		t.Errorf("untruncated result mentions truncation: %q", res.Envelope.Message())
	}
}

// dropFirst describes every element except the first one.
type dropFirst struct{ inner Describer }

func (d dropFirst) Describe(doc *host.Document, elems []*host.Element) descriptor.List {
	if len(elems) == 0 {
		return nil
	}
	return d.inner.Describe(doc, elems[1:])
}

func TestFilter_DroppedElementsAreNotTruncation(t *testing.T) {
	doc, err := host.LoadModel(sampleModel)
	if err != nil {
		t.Fatal(err)
	}
	app := host.NewApp(doc)
	app.Start(context.Background())
	t.Cleanup(app.Stop)
	r := New(app, filter.New(nil), dropFirst{classify.New(nil, nil)}, nil)

	res := invoke(t, r, NameFilter, `{"filterCategory": "OST_Walls"}`)
	want := "Successfully obtained 4 element infos, there are 5 elements in total " +
		"that meet the filtering criteria, 1 could not be described"
	if res.Envelope.Message() != want {
		t.Errorf("message = %q", res.Envelope.Message())
	}

	res = invoke(t, r, NameFilter, `{"filterCategory": "OST_Walls", "maxElements": 3}`)
	want = "Successfully obtained 2 element infos, there are 5 elements in total " +
		"that meet the filtering criteria, showing the first 3, 1 could not be described"
	if res.Envelope.Message() != want {
		t.Errorf("message = %q", res.Envelope.Message())
	}
}

func TestFilter_Failures(t *testing.T) {
	r, _ := newTestRegistry(t)
	tests := []struct {
		name   string
		params string
		want   string
	}{
		{"no matches", `{"filterCategory": "OST_Stairs"}`, MessageNoElements},
		{"no primary condition", `{"data": {"maxElements": 3}}`, "validation failed"},
		{"visibility on types", `{"filterCategory": "OST_Walls", "includeTypes": true, "includeInstances": false, "filterVisibleInCurrentView": true}`, "instances only"},
		{"inverted bounds", `{"filterCategory": "OST_Walls", "boundingBoxMin": {"x": 10, "y": 0, "z": 0}, "boundingBoxMax": {"x": 0, "y": 0, "z": 0}}`, "validation failed"},
		{"unknown category", `{"filterCategory": "OST_Spaceships"}`, "OST_Spaceships"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := mustFail(t, r, NameFilter, tt.params); !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestFilter_MalformedJSON(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Invoke(context.Background(), NameFilter, json.RawMessage(`{"data":`))
	if !errors.Is(err, domain.ErrMalformedRequest) {
		t.Fatalf("err = %v, want ErrMalformedRequest", err)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	params := `{"filterElementType": "Wall", "boundingBoxMin": {"x": -500, "y": -500, "z": 0}, "boundingBoxMax": {"x": 6000, "y": 500, "z": 1000}}`

	first := invoke(t, r, NameFilter, params)
	second := invoke(t, r, NameFilter, params)
	if !first.Envelope.Success() {
		t.Fatalf("filter failed: %s", first.Envelope.Message())
	}
	if !bytes.Equal(first.Envelope.Response(), second.Envelope.Response()) ||
		first.Envelope.Message() != second.Envelope.Message() {
		t.Error("repeated filter returned a different result")
	}
	if first.Version != second.Version {
		t.Errorf("read-only filter changed the version: %d -> %d", first.Version, second.Version)
	}
}

func TestElementInfo(t *testing.T) {
	r, app := newTestRegistry(t)
	door := elementID(t, app, host.ClassFamilyInstance, "D-01")

	res := invoke(t, r, NameElementInfo, `{"elementIds": [`+itoa(door)+`, 999999]}`)
	if !res.Envelope.Success() {
		t.Fatalf("failed: %s", res.Envelope.Message())
	}
	var list descriptor.List
	if err := json.Unmarshal(res.Envelope.Response(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Ident().ID != door {
		t.Errorf("got %v", list)
	}
	if !strings.Contains(res.Envelope.Message(), "not found: 999999") {
		t.Errorf("message = %q", res.Envelope.Message())
	}

	if msg := mustFail(t, r, NameElementInfo, `{"elementIds": []}`); !strings.Contains(msg, "empty") {
		t.Errorf("empty ids message = %q", msg)
	}
	if msg := mustFail(t, r, NameElementInfo, `{"elementIds": [999999]}`); !strings.Contains(msg, "not found") {
		t.Errorf("missing ids message = %q", msg)
	}
}

func TestCurrentViewInfo(t *testing.T) {
	r, _ := newTestRegistry(t)
	v := mustSucceed[ViewInfo](t, r, NameCurrentViewInfo, ``)
	if v.Name != "Level 1" || v.ViewType != "FloorPlan" || v.Scale != 100 || v.IsTemplate || v.DetailLevel != "Medium" {
		t.Errorf("got %+v", v)
	}
}

func TestCurrentViewElements(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements,
		`{"modelCategoryList": ["OST_Walls"], "annotationCategoryList": ["OST_TextNotes"]}`)
	if res.ViewName != "Level 1" || res.FilteredElementCount != 4 || len(res.Elements) != 4 {
		t.Fatalf("got view %q with %d elements", res.ViewName, res.FilteredElementCount)
	}
	if res.TotalElementsInView < res.FilteredElementCount {
		t.Errorf("total %d < filtered %d", res.TotalElementsInView, res.FilteredElementCount)
	}

	w1 := res.Elements[0]
	want := map[string]string{
		"ElementId": itoa(w1.ID),
		"Start":     "0.00, 0.00, 0.00",
		"End":       "5000.00, 0.00, 0.00",
		"Length":    "5000.00",
		"Mark":      "W-01",
		"Level":     "Level 1",
		"Family":    "Basic Wall",
		"Type":      "Generic - 200mm",
	}
	if !reflect.DeepEqual(w1.Properties, want) {
		t.Errorf("W-01 properties = %v, want %v", w1.Properties, want)
	}
	if w1.Category != "Walls" {
		t.Errorf("category = %q", w1.Category)
	}
	if note := res.Elements[3]; note.Category != "Text Notes" || note.Properties["LocationX"] != "2500.00" {
		t.Errorf("text note = %+v", note)
	}
}

func TestCurrentViewElements_DefaultsAndLimit(t *testing.T) {
	r, _ := newTestRegistry(t)

	all := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements, `{}`)
	if all.FilteredElementCount == 0 {
		t.Fatal("default categories found nothing")
	}
	limited := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements, `{"limit": 2}`)
	if limited.FilteredElementCount != 2 {
		t.Errorf("limit 2 returned %d", limited.FilteredElementCount)
	}
	if limited.TotalElementsInView != all.TotalElementsInView {
		t.Errorf("total depends on limit: %d vs %d", limited.TotalElementsInView, all.TotalElementsInView)
	}
	if msg := mustFail(t, r, NameCurrentViewElements, `{"modelCategoryList": ["OST_Teapots"]}`); !strings.Contains(msg, "OST_Teapots") {
		t.Errorf("message = %q", msg)
	}
}

func TestCurrentViewElements_IncludeHidden(t *testing.T) {
	r, app := newTestRegistry(t)
	w1 := elementID(t, app, host.ClassWall, "W-01")
	mustSucceed[bool](t, r, NameOperateElement, `{"elementIds": [`+itoa(w1)+`], "action": "Hide"}`)

	params := func(hidden bool) string {
		b, _ := json.Marshal(ViewElementsParams{ModelCategories: []string{"OST_Walls"},
			AnnotationCategories: []string{"OST_TextNotes"}, IncludeHidden: hidden})
		return string(b)
	}
	visible := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements, params(false))
	drawn := mustSucceed[ViewElementsResult](t, r, NameCurrentViewElements, params(true))
	if visible.FilteredElementCount != 3 || drawn.FilteredElementCount != 4 {
		t.Errorf("visible %d, drawn %d; want 3 and 4", visible.FilteredElementCount, drawn.FilteredElementCount)
	}
}

func TestSelectedElements(t *testing.T) {
	r, _ := newTestRegistry(t)

	sel := mustSucceed[[]ElementInfo](t, r, NameSelectedElements, `{}`)
	var names []string
	for _, e := range sel {
		names = append(names, e.Name)
		if e.Properties != nil {
			t.Errorf("selection listing carries properties: %v", e.Properties)
		}
	}
	if !reflect.DeepEqual(names, []string{"Generic - 200mm", "900 x 2100mm"}) {
		t.Errorf("selection = %v", names)
	}
	if got := mustSucceed[[]ElementInfo](t, r, NameSelectedElements, `{"limit": 1}`); len(got) != 1 {
		t.Errorf("limit 1 returned %d", len(got))
	}
}

func TestAvailableFamilyTypes(t *testing.T) {
	r, _ := newTestRegistry(t)

	all := mustSucceed[[]FamilyTypeInfo](t, r, NameAvailableFamilyTypes, `{}`)
	if len(all) != 8 {
		t.Fatalf("got %d types, want 4 family types and 4 system types", len(all))
	}
	if all[0].FamilyName != "Single-Flush" || all[4].FamilyName != "Basic Wall" {
		t.Errorf("family types must precede system types: %+v", all)
	}

	tests := []struct {
		name   string
		params string
		want   []string
	}{
		{"category", `{"categoryList": ["OST_Doors"]}`, []string{"900 x 2100mm"}},
		{"family name", `{"familyNameFilter": "basic wall"}`, []string{"Generic - 200mm", "Exterior - 300mm"}},
		{"type name", `{"familyNameFilter": "1200"}`, []string{"1200 x 1500mm"}},
		{"limit", `{"limit": 2}`, []string{"900 x 2100mm", "1200 x 1500mm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustSucceed[[]FamilyTypeInfo](t, r, NameAvailableFamilyTypes, tt.params)
			var names []string
			for _, ft := range got {
				names = append(names, ft.TypeName)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("got %v, want %v", names, tt.want)
			}
		})
	}
}
