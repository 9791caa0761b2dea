// Package command registers the plugin commands. Every command decodes its
// JSON parameters and runs on the host UI goroutine through its own bridge.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/bridge"
	"github.com/kailas-cloud/bimlink/internal/domain"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// Command names.
const (
	NameFilter               = "ai_element_filter"
	NameElementInfo          = "get_element_info"
	NameCurrentViewInfo      = "get_current_view_info"
	NameCurrentViewElements  = "get_current_view_elements"
	NameSelectedElements     = "get_selected_elements"
	NameAvailableFamilyTypes = "get_available_family_types"
	NameOperateElement       = "operate_element"
	NameCreateLineBased      = "create_line_based_element"
	NameCreatePointBased     = "create_point_based_element"
	NameCreateSurfaceBased   = "create_surface_based_element"
	NameCreateDimensions     = "create_dimensions"
	NameColorSplash          = "color_splash"
	NameTagWalls             = "tag_walls"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	timeouts map[string]time.Duration
	metrics  bridge.Metrics
}

// WithTimeouts overrides the wait budget of individual commands.
func WithTimeouts(t map[string]time.Duration) Option {
	return func(o *options) { o.timeouts = t }
}

// WithMetrics sets the collectors every bridge reports to.
func WithMetrics(m bridge.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Registry holds the commands in registration order.
type Registry struct {
	cmds  map[string]domcmd.Invoker
	order []string
}

// New registers every command against host h.
func New(h bridge.Poster, coll Collector, desc Describer, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{cmds: make(map[string]domcmd.Invoker)}
	s := &service{coll: coll, desc: desc, logger: logger}
	reg := registrar{r: r, host: h, logger: logger, opts: o}

	register(reg, NameFilter, 10*time.Second, false, decodeFilter, s.filterElements)
	register(reg, NameElementInfo, 10*time.Second, false, decodeJSON(noDefaults[ElementInfoParams], false), s.elementInfo)
	register(reg, NameCurrentViewInfo, 10*time.Second, false, ignoreParams, s.currentViewInfo)
	register(reg, NameCurrentViewElements, 60*time.Second, false, decodeJSON(defaultViewElementsParams, false), s.currentViewElements)
	register(reg, NameSelectedElements, 15*time.Second, false, decodeJSON(noDefaults[SelectedElementsParams], false), s.selectedElements)
	register(reg, NameAvailableFamilyTypes, 15*time.Second, false, decodeJSON(noDefaults[FamilyTypesParams], false), s.availableFamilyTypes)
	register(reg, NameOperateElement, 10*time.Second, true, decodeJSON(defaultOperateParams, true), s.operateElement)
	register(reg, NameCreateLineBased, 15*time.Second, true, decodeJSON(noDefaults[CreateParams[LineElement]], false), s.createLineBased)
	register(reg, NameCreatePointBased, 15*time.Second, true, decodeJSON(noDefaults[CreateParams[PointElement]], false), s.createPointBased)
	register(reg, NameCreateSurfaceBased, 15*time.Second, true, decodeJSON(noDefaults[CreateParams[SurfaceElement]], false), s.createSurfaceBased)
	register(reg, NameCreateDimensions, 20*time.Second, true, decodeJSON(noDefaults[DimensionsParams], false), s.createDimensions)
	register(reg, NameColorSplash, 15*time.Second, true, decodeJSON(noDefaults[ColorSplashParams], true), s.colorSplash)
	register(reg, NameTagWalls, 15*time.Second, true, decodeJSON(noDefaults[TagWallsParams], true), s.tagWalls)
	return r
}

// Get returns the named command.
func (r *Registry) Get(name string) (domcmd.Invoker, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

// List describes the commands in registration order.
func (r *Registry) List() []domcmd.Info {
	out := make([]domcmd.Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.cmds[name].Info())
	}
	return out
}

// Invoke runs the named command.
func (r *Registry) Invoke(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error) {
	c, ok := r.cmds[name]
	if !ok {
		return domcmd.Result{}, fmt.Errorf("command %q: %w", name, domain.ErrNotFound)
	}
	return c.Invoke(ctx, params)
}

// Decorate replaces the named command with wrap(current), e.g. to add caching.
func (r *Registry) Decorate(name string, wrap func(domcmd.Invoker) domcmd.Invoker) error {
	c, ok := r.cmds[name]
	if !ok {
		return fmt.Errorf("command %q: %w", name, domain.ErrNotFound)
	}
	r.cmds[name] = wrap(c)
	return nil
}

type registrar struct {
	r      *Registry
	host   bridge.Poster
	logger *zap.Logger
	opts   options
}

func register[P, R any](
	reg registrar, name string, timeout time.Duration, mutates bool,
	decode func(json.RawMessage) (P, error), op func(*host.UI, P) (envelope.Envelope[R], error),
) {
	if d, ok := reg.opts.timeouts[name]; ok && d > 0 {
		timeout = d
	}
	cfg := bridge.Config{Name: name, Timeout: timeout, Mutates: mutates}
	reg.r.cmds[name] = newTyped(cfg, decode, op, reg.host, reg.logger, reg.opts.metrics)
	reg.r.order = append(reg.r.order, name)
}
