package host

import "sort"

type paramDef struct {
	name     string
	spec     Spec
	readOnly bool
}

var builtInParams = map[string]paramDef{
	"ALL_MODEL_INSTANCE_COMMENTS":    {"Comments", SpecText, false},
	"ALL_MODEL_TYPE_COMMENTS":        {"Type Comments", SpecText, false},
	"ALL_MODEL_MARK":                 {"Mark", SpecText, false},
	"ALL_MODEL_DESCRIPTION":          {"Description", SpecText, false},
	"ALL_MODEL_MANUFACTURER":         {"Manufacturer", SpecText, false},
	"ALL_MODEL_MODEL":                {"Model", SpecText, false},
	"ALL_MODEL_COST":                 {"Cost", SpecNumber, false},
	"WALL_ATTR_WIDTH_PARAM":          {"Width", SpecLength, true},
	"WALL_USER_HEIGHT_PARAM":         {"Unconnected Height", SpecLength, false},
	"WALL_BASE_OFFSET":               {"Base Offset", SpecLength, false},
	"WALL_BASE_CONSTRAINT":           {"Base Constraint", SpecElementID, false},
	"FLOOR_ATTR_THICKNESS_PARAM":     {"Default Thickness", SpecLength, true},
	"FLOOR_HEIGHTABOVELEVEL_PARAM":   {"Height Offset From Level", SpecLength, false},
	"CEILING_THICKNESS":              {"Thickness", SpecLength, true},
	"CEILING_HEIGHTABOVELEVEL_PARAM": {"Height Offset From Level", SpecLength, false},
	"ROOF_ATTR_THICKNESS_PARAM":      {"Thickness", SpecLength, true},
	"ROOF_SLOPE":                     {"Slope", SpecAngle, false},
	"ROOF_BASE_LEVEL_PARAM":          {"Base Level", SpecElementID, false},
	"FAMILY_THICKNESS_PARAM":         {"Thickness", SpecLength, false},
	"FAMILY_WIDTH_PARAM":             {"Width", SpecLength, false},
	"FAMILY_HEIGHT_PARAM":            {"Height", SpecLength, false},
	"FAMILY_ROUGH_WIDTH_PARAM":       {"Rough Width", SpecLength, false},
	"FAMILY_ROUGH_HEIGHT_PARAM":      {"Rough Height", SpecLength, false},
	"INSTANCE_SILL_HEIGHT_PARAM":     {"Sill Height", SpecLength, false},
	"INSTANCE_HEAD_HEIGHT_PARAM":     {"Head Height", SpecLength, false},
	"LEVEL_PARAM":                    {"Level", SpecElementID, false},
	"FAMILY_LEVEL_PARAM":             {"Level", SpecElementID, false},
	"SCHEDULE_LEVEL_PARAM":           {"Level", SpecElementID, false},
	"INSTANCE_REFERENCE_LEVEL_PARAM": {"Reference Level", SpecElementID, false},
	"LEVEL_ELEV":                     {"Elevation", SpecLength, false},
	"CURVE_ELEM_LENGTH":              {"Length", SpecLength, true},
	"HOST_AREA_COMPUTED":             {"Area", SpecArea, true},
	"HOST_VOLUME_COMPUTED":           {"Volume", SpecVolume, true},
	"ROOM_NAME":                      {"Name", SpecText, false},
	"ROOM_NUMBER":                    {"Number", SpecText, false},
	"ROOM_AREA":                      {"Area", SpecArea, true},
	"ROOM_PERIMETER":                 {"Perimeter", SpecLength, true},
	"ROOM_VOLUME":                    {"Volume", SpecVolume, true},
	"ROOM_HEIGHT":                    {"Unbounded Height", SpecLength, true},
	"VIEW_NAME":                      {"View Name", SpecText, false},
	"VIEW_SCALE":                     {"View Scale", SpecInteger, false},
	"DIM_VALUE_LENGTH":               {"Value", SpecLength, true},
	"TEXT_TEXT":                      {"Text", SpecText, false},
	"LEADER_LINE":                    {"Leader Line", SpecInteger, false},
	"GROUP_ATTACHED_PARENT_NAME":     {"Attached to", SpecText, true},
}

// BuiltInParam returns an empty parameter for a known built-in name.
func BuiltInParam(builtIn string) (Parameter, bool) {
	def, ok := builtInParams[builtIn]
	if !ok {
		return Parameter{}, false
	}
	return Parameter{Name: def.name, BuiltIn: builtIn, Spec: def.spec, ReadOnly: def.readOnly}, true
}

// BuiltInParamNames lists the known built-in parameter names.
func BuiltInParamNames() []string {
	out := make([]string, 0, len(builtInParams))
	for k := range builtInParams {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NumParam builds a numeric built-in parameter. v is in internal units.
func NumParam(builtIn string, v float64) Parameter {
	p := mustBuiltIn(builtIn)
	p.Num = v
	return p
}

// TextParam builds a text built-in parameter.
func TextParam(builtIn, s string) Parameter {
	p := mustBuiltIn(builtIn)
	p.Text = s
	return p
}

// RefParam builds an element id built-in parameter.
func RefParam(builtIn string, id ElementID) Parameter {
	p := mustBuiltIn(builtIn)
	p.Ref = id
	return p
}

func mustBuiltIn(builtIn string) Parameter {
	p, ok := BuiltInParam(builtIn)
	if !ok {
		panic("host: unknown built-in parameter " + builtIn)
	}
	return p
}
