package host

import (
	"sort"
	"strings"
)

// Class is the concrete host object class of an element. Classes form a
// single-inheritance tree rooted at ClassElement.
type Class uint8

// Known classes. Abstract bases are listed before their subclasses.
const (
	ClassElement Class = iota
	ClassElementType
	ClassHostObjAttributes
	ClassWallType
	ClassFloorType
	ClassCeilingType
	ClassRoofType
	ClassFamilySymbol
	ClassGroupType
	ClassRevitLinkType
	ClassViewFamilyType
	ClassHostObject
	ClassWall
	ClassFloor
	ClassCeiling
	ClassRoofBase
	ClassFootPrintRoof
	ClassStairs
	ClassFamilyInstance
	ClassAnnotationSymbol
	ClassLevel
	ClassGrid
	ClassSpatialElement
	ClassRoom
	ClassArea
	ClassSpace
	ClassView
	ClassViewPlan
	ClassView3D
	ClassViewSection
	ClassViewDrafting
	ClassViewSheet
	ClassViewSchedule
	ClassTextNote
	ClassDimension
	ClassSpotDimension
	ClassIndependentTag
	ClassSpatialElementTag
	ClassRoomTag
	ClassGroup
	ClassRevitLinkInstance
	classCount
)

const (
	nsDB           = "Autodesk.Revit.DB"
	nsArchitecture = "Autodesk.Revit.DB.Architecture"
	nsMechanical   = "Autodesk.Revit.DB.Mechanical"
)

type classInfo struct {
	name      string
	parent    Class
	namespace string
}

var classTable = [classCount]classInfo{
	ClassElement:           {"Element", ClassElement, nsDB},
	ClassElementType:       {"ElementType", ClassElement, nsDB},
	ClassHostObjAttributes: {"HostObjAttributes", ClassElementType, nsDB},
	ClassWallType:          {"WallType", ClassHostObjAttributes, nsDB},
	ClassFloorType:         {"FloorType", ClassHostObjAttributes, nsDB},
	ClassCeilingType:       {"CeilingType", ClassHostObjAttributes, nsDB},
	ClassRoofType:          {"RoofType", ClassHostObjAttributes, nsDB},
	ClassFamilySymbol:      {"FamilySymbol", ClassElementType, nsDB},
	ClassGroupType:         {"GroupType", ClassElementType, nsDB},
	ClassRevitLinkType:     {"RevitLinkType", ClassElementType, nsDB},
	ClassViewFamilyType:    {"ViewFamilyType", ClassElementType, nsDB},
	ClassHostObject:        {"HostObject", ClassElement, nsDB},
	ClassWall:              {"Wall", ClassHostObject, nsDB},
	ClassFloor:             {"Floor", ClassHostObject, nsDB},
	ClassCeiling:           {"Ceiling", ClassHostObject, nsDB},
	ClassRoofBase:          {"RoofBase", ClassHostObject, nsDB},
	ClassFootPrintRoof:     {"FootPrintRoof", ClassRoofBase, nsDB},
	ClassStairs:            {"Stairs", ClassElement, nsArchitecture},
	ClassFamilyInstance:    {"FamilyInstance", ClassElement, nsDB},
	ClassAnnotationSymbol:  {"AnnotationSymbol", ClassFamilyInstance, nsDB},
	ClassLevel:             {"Level", ClassElement, nsDB},
	ClassGrid:              {"Grid", ClassElement, nsDB},
	ClassSpatialElement:    {"SpatialElement", ClassElement, nsDB},
	ClassRoom:              {"Room", ClassSpatialElement, nsArchitecture},
	ClassArea:              {"Area", ClassSpatialElement, nsDB},
	ClassSpace:             {"Space", ClassSpatialElement, nsMechanical},
	ClassView:              {"View", ClassElement, nsDB},
	ClassViewPlan:          {"ViewPlan", ClassView, nsDB},
	ClassView3D:            {"View3D", ClassView, nsDB},
	ClassViewSection:       {"ViewSection", ClassView, nsDB},
	ClassViewDrafting:      {"ViewDrafting", ClassView, nsDB},
	ClassViewSheet:         {"ViewSheet", ClassView, nsDB},
	ClassViewSchedule:      {"ViewSchedule", ClassView, nsDB},
	ClassTextNote:          {"TextNote", ClassElement, nsDB},
	ClassDimension:         {"Dimension", ClassElement, nsDB},
	ClassSpotDimension:     {"SpotDimension", ClassDimension, nsDB},
	ClassIndependentTag:    {"IndependentTag", ClassElement, nsDB},
	ClassSpatialElementTag: {"SpatialElementTag", ClassElement, nsDB},
	ClassRoomTag:           {"RoomTag", ClassSpatialElementTag, nsArchitecture},
	ClassGroup:             {"Group", ClassElement, nsDB},
	ClassRevitLinkInstance: {"RevitLinkInstance", ClassElement, nsDB},
}

// knownNamespaces are stripped when resolving qualified class names.
var knownNamespaces = []string{
	nsArchitecture + ".",
	nsMechanical + ".",
	nsDB + ".Structure.",
	nsDB + ".Plumbing.",
	nsDB + ".Electrical.",
	nsDB + ".",
	"DB.",
}

var classByName = func() map[string]Class {
	m := make(map[string]Class, classCount)
	for c := Class(0); c < classCount; c++ {
		m[strings.ToLower(classTable[c].name)] = c
	}
	return m
}()

func (c Class) String() string {
	if c < classCount {
		return classTable[c].name
	}
	return "Unknown"
}

// QualifiedName returns the namespace-qualified class name.
func (c Class) QualifiedName() string {
	if c < classCount {
		return classTable[c].namespace + "." + classTable[c].name
	}
	return c.String()
}

// Is reports whether c is base or derives from it.
func (c Class) Is(base Class) bool {
	for c < classCount {
		if c == base {
			return true
		}
		if c == ClassElement {
			return false
		}
		c = classTable[c].parent
	}
	return false
}

// IsElementType reports whether elements of this class are type definitions.
func (c Class) IsElementType() bool { return c.Is(ClassElementType) }

// IsView reports whether elements of this class are views.
func (c Class) IsView() bool { return c.Is(ClassView) }

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	v, ok := LookupClass(string(b))
	if !ok {
		return &UnknownNameError{What: "element class", Name: string(b)}
	}
	*c = v
	return nil
}

// LookupClass resolves a class name. It accepts the bare name, a
// namespace-qualified name and an assembly-qualified name, in any letter case.
func LookupClass(name string) (Class, bool) {
	candidates := []string{strings.TrimSpace(name)}

	// "Autodesk.Revit.DB.Wall, RevitAPI"
	if base, _, ok := strings.Cut(candidates[0], ","); ok {
		candidates = append(candidates, strings.TrimSpace(base))
	}
	for _, n := range candidates[:len(candidates):len(candidates)] {
		for _, ns := range knownNamespaces {
			if len(n) > len(ns) && strings.EqualFold(n[:len(ns)], ns) {
				candidates = append(candidates, n[len(ns):])
			}
		}
	}

	for _, n := range candidates {
		if c, ok := classByName[strings.ToLower(n)]; ok {
			return c, true
		}
	}
	return 0, false
}

// CategoryType distinguishes model, annotation and internal categories.
type CategoryType uint8

// Category types.
const (
	CategoryModel CategoryType = iota
	CategoryAnnotation
	CategoryInternal
)

// Category is a built-in element category.
type Category struct {
	BuiltIn            string // OST_* name
	Name               string // display name
	Type               CategoryType
	MaterialQuantities bool
}

var categoryTable = []Category{
	{"OST_Walls", "Walls", CategoryModel, true},
	{"OST_Floors", "Floors", CategoryModel, true},
	{"OST_Ceilings", "Ceilings", CategoryModel, true},
	{"OST_Roofs", "Roofs", CategoryModel, true},
	{"OST_Doors", "Doors", CategoryModel, true},
	{"OST_Windows", "Windows", CategoryModel, true},
	{"OST_Columns", "Columns", CategoryModel, true},
	{"OST_StructuralColumns", "Structural Columns", CategoryModel, true},
	{"OST_StructuralFraming", "Structural Framing", CategoryModel, true},
	{"OST_Furniture", "Furniture", CategoryModel, true},
	{"OST_Stairs", "Stairs", CategoryModel, true},
	{"OST_GenericModel", "Generic Models", CategoryModel, true},
	{"OST_Rooms", "Rooms", CategoryModel, false},
	{"OST_Areas", "Areas", CategoryModel, false},
	{"OST_MEPSpaces", "Spaces", CategoryModel, false},
	{"OST_IOSModelGroups", "Model Groups", CategoryModel, false},
	{"OST_RvtLinks", "RVT Links", CategoryModel, false},
	{"OST_Levels", "Levels", CategoryAnnotation, false},
	{"OST_Grids", "Grids", CategoryAnnotation, false},
	{"OST_Dimensions", "Dimensions", CategoryAnnotation, false},
	{"OST_SpotElevations", "Spot Elevations", CategoryAnnotation, false},
	{"OST_TextNotes", "Text Notes", CategoryAnnotation, false},
	{"OST_GenericAnnotation", "Generic Annotations", CategoryAnnotation, false},
	{"OST_WallTags", "Wall Tags", CategoryAnnotation, false},
	{"OST_DoorTags", "Door Tags", CategoryAnnotation, false},
	{"OST_MultiCategoryTags", "Multi-Category Tags", CategoryAnnotation, false},
	{"OST_WindowTags", "Window Tags", CategoryAnnotation, false},
	{"OST_RoomTags", "Room Tags", CategoryAnnotation, false},
	{"OST_AreaTags", "Area Tags", CategoryAnnotation, false},
	{"OST_SpaceTags", "Space Tags", CategoryAnnotation, false},
	{"OST_ViewportLabels", "Viewport Labels", CategoryAnnotation, false},
	{"OST_TitleBlocks", "Title Blocks", CategoryAnnotation, false},
	{"OST_Views", "Views", CategoryInternal, false},
	{"OST_Sheets", "Sheets", CategoryInternal, false},
}

var categoryByName = func() map[string]int {
	m := make(map[string]int, 2*len(categoryTable))
	for i, c := range categoryTable {
		m[strings.ToLower(c.BuiltIn)] = i
		m[strings.ToLower(c.Name)] = i
	}
	return m
}()

// LookupCategory resolves a built-in category by OST_ name or display name, in any letter case.
func LookupCategory(name string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if i, ok := categoryByName[key]; ok {
		return categoryTable[i], true
	}
	if i, ok := categoryByName["ost_"+key]; ok {
		return categoryTable[i], true
	}
	return Category{}, false
}

// Categories returns all known categories sorted by built-in name.
func Categories() []Category {
	out := make([]Category, len(categoryTable))
	copy(out, categoryTable)
	sort.Slice(out, func(i, j int) bool { return out[i].BuiltIn < out[j].BuiltIn })
	return out
}

// UnknownNameError reports a name missing from the static registries.
type UnknownNameError struct {
	What string
	Name string
}

func (e *UnknownNameError) Error() string {
	return "unknown " + e.What + " " + `"` + e.Name + `"`
}
