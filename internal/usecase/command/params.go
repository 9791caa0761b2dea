package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/bimlink/internal/domain"
	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/domain/geom"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// filterRequest carries the decoded filter and the outcome of validating it,
// so that a bad filter fails before the host is involved.
type filterRequest struct {
	params domfilter.Params
	desc   domfilter.Description
	err    error
}

func (r filterRequest) Validate() error { return r.err }

func decodeFilter(raw json.RawMessage) (filterRequest, error) {
	p, err := decodeJSON(domfilter.DefaultParams, true)(raw)
	if err != nil {
		return filterRequest{}, err
	}
	d, err := domfilter.New(p)
	return filterRequest{params: p, desc: d, err: err}, nil
}

// ElementInfoParams selects elements by id.
type ElementInfoParams struct {
	ElementIDs []int64 `json:"elementIds"`
}

func (p ElementInfoParams) Validate() error {
	if len(p.ElementIDs) == 0 {
		return fmt.Errorf("%w: elementIds is empty", domain.ErrValidation)
	}
	return nil
}

// ViewElementsParams selects elements of the active view.
type ViewElementsParams struct {
	ModelCategories      []string `json:"modelCategoryList"`
	AnnotationCategories []string `json:"annotationCategoryList"`
	IncludeHidden        bool     `json:"includeHidden"`
	Limit                int      `json:"limit"`
}

func defaultViewElementsParams() ViewElementsParams {
	return ViewElementsParams{Limit: 100}
}

// SelectedElementsParams caps the selection listing. Limit <= 0 lists everything.
type SelectedElementsParams struct {
	Limit int `json:"limit"`
}

// FamilyTypesParams narrows the family type listing.
type FamilyTypesParams struct {
	Categories       []string `json:"categoryList"`
	FamilyNameFilter string   `json:"familyNameFilter"`
	Limit            int      `json:"limit"`
}

// Action is an operate_element action.
type Action string

// Actions.
const (
	ActionSelect          Action = "Select"
	ActionSelectionBox    Action = "SelectionBox"
	ActionSetColor        Action = "SetColor"
	ActionSetTransparency Action = "SetTransparency"
	ActionDelete          Action = "Delete"
	ActionHide            Action = "Hide"
	ActionTempHide        Action = "TempHide"
	ActionIsolate         Action = "Isolate"
	ActionUnhide          Action = "Unhide"
	ActionResetIsolate    Action = "ResetIsolate"
)

var actions = []Action{
	ActionSelect, ActionSelectionBox, ActionSetColor, ActionSetTransparency, ActionDelete,
	ActionHide, ActionTempHide, ActionIsolate, ActionUnhide, ActionResetIsolate,
}

// ParseAction resolves an action name in any letter case.
func ParseAction(s string) (Action, error) {
	for _, a := range actions {
		if strings.EqualFold(string(a), strings.TrimSpace(s)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported action %q", domain.ErrValidation, s)
}

// DefaultTransparency applies when transparencyValue is omitted.
const DefaultTransparency = 50

// DefaultColor is red.
var DefaultColor = [3]int{255, 0, 0}

// OperateParams is an operate_element request.
type OperateParams struct {
	ElementIDs   []int64 `json:"elementIds"`
	Action       string  `json:"action"`
	Transparency int     `json:"transparencyValue"`
	Color        []int   `json:"colorValue"`
}

func defaultOperateParams() OperateParams {
	return OperateParams{
		Action:       string(ActionSelect),
		Transparency: DefaultTransparency,
		Color:        append([]int(nil), DefaultColor[:]...),
	}
}

func (p OperateParams) Validate() error {
	a, err := ParseAction(p.Action)
	if err != nil {
		return err
	}
	if len(p.ElementIDs) == 0 && a != ActionResetIsolate {
		return fmt.Errorf("%w: no elements specified for %s", domain.ErrValidation, a)
	}
	return nil
}

// transparency clamps to 0..100.
func (p OperateParams) transparency() int {
	return clamp(p.Transparency, 0, 100)
}

// rgb clamps each component to 0..255. Fewer than three components select
// the default color.
func (p OperateParams) rgb() [3]uint8 {
	c := DefaultColor[:]
	if len(p.Color) >= 3 {
		c = p.Color
	}
	return [3]uint8{uint8(clamp(c[0], 0, 255)), uint8(clamp(c[1], 0, 255)), uint8(clamp(c[2], 0, 255))}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// LinePoints is a segment in mm.
type LinePoints struct {
	P0 geom.Point `json:"p0"`
	P1 geom.Point `json:"p1"`
}

// Face is a planar boundary made of line loops in mm.
type Face struct {
	OuterLoop  []LinePoints   `json:"outerLoop"`
	InnerLoops [][]LinePoints `json:"innerLoops"`
}

// LineElement places a wall or a line-based family instance. BaseLevel is an
// elevation in mm; the element goes on the nearest level at or below it.
type LineElement struct {
	Category     string      `json:"category"`
	TypeID       int64       `json:"typeId"`
	LocationLine *LinePoints `json:"locationLine"`
	Thickness    float64     `json:"thickness"`
	Height       float64     `json:"height"`
	BaseLevel    float64     `json:"baseLevel"`
	BaseOffset   float64     `json:"baseOffset"`
}

func (e LineElement) validate() error {
	if err := validateTypeRef(e.Category, e.TypeID); err != nil {
		return err
	}
	if e.LocationLine == nil {
		return errors.New("locationLine is required")
	}
	return nil
}

// PointElement places a family instance. Rotation is in degrees.
type PointElement struct {
	Category      string      `json:"category"`
	TypeID        int64       `json:"typeId"`
	LocationPoint *geom.Point `json:"locationPoint"`
	Width         float64     `json:"width"`
	Depth         float64     `json:"depth"`
	Height        float64     `json:"height"`
	BaseLevel     float64     `json:"baseLevel"`
	BaseOffset    float64     `json:"baseOffset"`
	Rotation      float64     `json:"rotation"`
}

func (e PointElement) validate() error {
	if err := validateTypeRef(e.Category, e.TypeID); err != nil {
		return err
	}
	if e.LocationPoint == nil {
		return errors.New("locationPoint is required")
	}
	return nil
}

// SurfaceElement places a floor, ceiling or roof.
type SurfaceElement struct {
	Category   string  `json:"category"`
	TypeID     int64   `json:"typeId"`
	Boundary   *Face   `json:"boundary"`
	Thickness  float64 `json:"thickness"`
	BaseLevel  float64 `json:"baseLevel"`
	BaseOffset float64 `json:"baseOffset"`
}

func (e SurfaceElement) validate() error {
	if err := validateTypeRef(e.Category, e.TypeID); err != nil {
		return err
	}
	if e.Boundary == nil || len(e.Boundary.OuterLoop) < 3 {
		return errors.New("boundary needs an outer loop of at least 3 lines")
	}
	return nil
}

func validateTypeRef(category string, typeID int64) error {
	if typeID <= 0 && (category == "" || strings.EqualFold(category, "INVALID")) {
		return errors.New("either typeId or category is required")
	}
	return nil
}

// CreateParams is a batch of elements to create in one transaction.
type CreateParams[T interface{ validate() error }] struct {
	Data []T `json:"data"`
}

func (p CreateParams[T]) Validate() error {
	if len(p.Data) == 0 {
		return fmt.Errorf("%w: data is empty", domain.ErrValidation)
	}
	for i, e := range p.Data {
		if err := e.validate(); err != nil {
			return fmt.Errorf("%w: item %d: %w", domain.ErrValidation, i, err)
		}
	}
	return nil
}

// DimensionInfo places one linear dimension. Points are in mm. ViewID <= 0
// selects the active view.
type DimensionInfo struct {
	StartPoint    geom.Point  `json:"startPoint"`
	EndPoint      geom.Point  `json:"endPoint"`
	LinePoint     *geom.Point `json:"linePoint"`
	ElementIDs    []int64     `json:"elementIds"`
	DimensionType string      `json:"dimensionType"`
	ViewID        int64       `json:"viewId"`
}

// DimensionsParams is a create_dimensions request.
type DimensionsParams struct {
	Dimensions []DimensionInfo `json:"dimensions"`
}

func (p DimensionsParams) Validate() error {
	if len(p.Dimensions) == 0 {
		return fmt.Errorf("%w: dimensions is empty", domain.ErrValidation)
	}
	for i, d := range p.Dimensions {
		if d.DimensionType != "" && !strings.EqualFold(d.DimensionType, "Linear") {
			return fmt.Errorf("%w: dimension %d: unsupported type %q", domain.ErrValidation, i, d.DimensionType)
		}
		if d.StartPoint == d.EndPoint {
			return fmt.Errorf("%w: dimension %d: start and end points coincide", domain.ErrValidation, i)
		}
	}
	return nil
}

// Color is an 8-bit RGB color in requests and responses.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func (c Color) rgb() host.RGB {
	return host.RGB{R: uint8(clamp(c.R, 0, 255)), G: uint8(clamp(c.G, 0, 255)), B: uint8(clamp(c.B, 0, 255))}
}

// ColorSplashParams colors the elements of one category in the active view
// by the value of a parameter. CustomColors are used by group index before
// the gradient or the value-derived palette.
type ColorSplashParams struct {
	Category     string  `json:"categoryName"`
	Parameter    string  `json:"parameterName"`
	UseGradient  bool    `json:"useGradient"`
	CustomColors []Color `json:"customColors"`
}

func (p ColorSplashParams) Validate() error {
	if strings.TrimSpace(p.Category) == "" {
		return fmt.Errorf("%w: categoryName is required", domain.ErrValidation)
	}
	if strings.TrimSpace(p.Parameter) == "" {
		return fmt.Errorf("%w: parameterName is required", domain.ErrValidation)
	}
	return nil
}

// TagWallsParams tags every wall of the active view. TagTypeID <= 0 picks
// the first wall tag type of the model.
type TagWallsParams struct {
	UseLeader bool  `json:"useLeader"`
	TagTypeID int64 `json:"tagTypeId"`
}
