// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package depot

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/mapper"
	"rivaas.dev/depot/namer"
	"rivaas.dev/depot/pipeline"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
	"rivaas.dev/depot/ware"
)

// Plugin tags with built-in behavior.
const (
	TagRoute  = "route"  // Filters run on every added entry
	TagAttach = "attach" // Transforms run on every entry right before coupling
)

// Attach transforms an entry right before it is coupled. Returning nil skips
// the entry.
type Attach[T any] func(e route.Entry, d *Depot[T]) route.Entry

// RoutesProvider is implemented by controllers that declare their own routes.
type RoutesProvider interface {
	Routes() route.Routes
}

// Prioritizer is implemented by controllers that declare their own priority.
type Prioritizer interface {
	Priority() priority.Level
}

// ControllerConfig carries the optional settings of a controller.
type ControllerConfig struct {
	Routes     route.Routes        `mapstructure:"-"`
	Priority   priority.Level      `mapstructure:"priority"`
	Wares      []string            `mapstructure:"wares"` // Warehouse tokens applied as group middleware
	Middleware []route.HandlerFunc `mapstructure:"-"`
}

// Depot collects routes, controllers and groups in priority order and
// couples them onto a transport of type T. Declarations can be made in any
// order; nothing touches the transport until Couple.
//
// A Depot is safe for concurrent use.
type Depot[T any] struct {
	coupler     Coupler[T]
	routes      *route.List
	filters     *pipeline.Pipeline[route.Filter]
	attach      *pipeline.Pipeline[Attach[T]]
	warehouse   *ware.Warehouse
	mapper      mapper.Mapper
	wrappers    []route.Wrapper
	logger      *slog.Logger
	diagnostics DiagnosticHandler

	mu      sync.RWMutex
	plugins map[string][]any
}

// New creates a depot coupling onto T through c.
//
// Returns a configuration error when c is missing, or when c is a
// CouplerFuncs with an unset member.
//
// Example:
//
//	d, err := depot.New[chi.Router](chicoupler.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d.Get("/health", route.HandlerFunc(health), nil)
//	d.Controller("/users", &Users{}, nil)
//	r, err := d.Couple(chi.NewRouter())
func New[T any](c Coupler[T], opts ...Option) (*Depot[T], error) {
	if err := checkCoupler(c); err != nil {
		return nil, err
	}

	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.warehouse == nil {
		s.warehouse = ware.NewWarehouse(ware.WithLogger(s.logger))
	}
	if s.mapper == nil {
		s.mapper = mapper.Convention{}
	}

	filters := pipeline.New[route.Filter]()
	for _, f := range s.filters {
		filters.Add(f, priority.Default)
	}

	d := &Depot[T]{
		coupler:     c,
		filters:     filters,
		attach:      pipeline.New[Attach[T]](),
		warehouse:   s.warehouse,
		mapper:      s.mapper,
		wrappers:    s.wrappers,
		logger:      s.logger,
		diagnostics: s.diagnostics,
		plugins:     make(map[string][]any),
	}
	d.routes = d.newList()
	return d, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](c Coupler[T], opts ...Option) *Depot[T] {
	d, err := New(c, opts...)
	if err != nil {
		panic(fmt.Sprintf("depot.MustNew: %v", err))
	}
	return d
}

// newList creates a list sharing the depot's filters and default wrappers.
func (d *Depot[T]) newList() *route.List {
	return route.NewList(
		route.WithFilters(d.filters),
		route.WithDefaultWrappers(d.wrappers...),
		route.WithLogger(d.logger),
	)
}

// Route declares a route. It returns nil without error when a filter vetoed
// the route.
func (d *Depot[T]) Route(request, method string, def route.Definition, context any, cfg any) (*route.Route, error) {
	rt, err := d.routes.Route(request, method, def, context, cfg)
	if err != nil {
		return nil, err
	}
	if rt == nil {
		d.vetoed(request)
		return nil, nil
	}
	d.registered(rt)
	return rt, nil
}

// Get declares a GET route.
func (d *Depot[T]) Get(path string, def route.Definition, cfg any) (*route.Route, error) {
	return d.Route(path, "get", def, nil, cfg)
}

// Post declares a POST route.
func (d *Depot[T]) Post(path string, def route.Definition, cfg any) (*route.Route, error) {
	return d.Route(path, "post", def, nil, cfg)
}

// Put declares a PUT route.
func (d *Depot[T]) Put(path string, def route.Definition, cfg any) (*route.Route, error) {
	return d.Route(path, "put", def, nil, cfg)
}

// Patch declares a PATCH route.
func (d *Depot[T]) Patch(path string, def route.Definition, cfg any) (*route.Route, error) {
	return d.Route(path, "patch", def, nil, cfg)
}

// Delete declares a DELETE route.
func (d *Depot[T]) Delete(path string, def route.Definition, cfg any) (*route.Route, error) {
	return d.Route(path, "delete", def, nil, cfg)
}

// Any declares a route matching every method.
func (d *Depot[T]) Any(path string, def route.Definition, cfg any) (*route.Route, error) {
	return d.Route(path, route.MethodAll, def, nil, cfg)
}

// AddRoute adds a prebuilt route or group. It returns nil when a filter
// vetoed the entry.
func (d *Depot[T]) AddRoute(e route.Entry) route.Entry {
	added := d.routes.Add(e)
	if added == nil {
		if e != nil {
			d.vetoed(e.Endpoint())
		}
		return nil
	}
	d.registered(added)
	return added
}

func (d *Depot[T]) registered(e route.Entry) {
	d.logger.Debug("entry registered", "endpoint", e.Endpoint(), "priority", e.Priority())
	d.emit(DiagRouteRegistered, "entry registered", map[string]any{
		"endpoint": e.Endpoint(),
		"priority": int(e.Priority()),
	})
}

func (d *Depot[T]) vetoed(endpoint string) {
	d.logger.Debug("entry vetoed", "endpoint", endpoint)
	d.emit(DiagRouteVetoed, "entry vetoed by a route filter", map[string]any{
		"endpoint": endpoint,
	})
}

// Controller mounts ctrl at endpoint. Routes come from the config or from
// ctrl's RoutesProvider implementation; without either it fails. The
// priority comes from the config, then from ctrl's Prioritizer, then
// Default. cfg may be a ControllerConfig, a priority or a map.
//
// Named handlers are resolved against ctrl, so a route naming a missing
// method fails here. Ware tokens in the config are resolved through the
// depot's warehouse and applied as group middleware.
//
// It returns nil without error when a filter vetoed the group.
func (d *Depot[T]) Controller(endpoint string, ctrl any, cfg any) (*route.Group, error) {
	c, err := ToControllerConfig(cfg)
	if err != nil {
		return nil, fault.Configuration("depot", "controller", err)
	}

	if c.Routes == nil {
		if rp, ok := ctrl.(RoutesProvider); ok {
			c.Routes = rp.Routes()
		}
	}
	if c.Routes == nil {
		return nil, fault.Configurationf("depot", "controller",
			"controller %s at %q expects routes", namer.TypeName(ctrl), endpoint)
	}

	if c.Priority == 0 {
		if p, ok := ctrl.(Prioritizer); ok {
			c.Priority = p.Priority()
		}
	}

	g := route.NewGroup(endpoint, ctrl, route.GroupConfig{
		Priority:   c.Priority.OrDefault(),
		Controller: true,
		Middleware: c.Middleware,
	}, d.newList())

	if len(c.Wares) > 0 {
		var wares []*ware.Ware
		for _, token := range c.Wares {
			found := d.warehouse.Find(token)
			if len(found) == 0 {
				return nil, fault.Configurationf("depot", "controller", "unknown ware %q for %q", token, endpoint)
			}
			wares = append(wares, found...)
		}
		fns, err := d.warehouse.Assemble(wares)
		if err != nil {
			return nil, err
		}
		g.Use(fns...)
	}

	if err := g.Configure(c.Routes); err != nil {
		return nil, err
	}

	added, _ := d.AddRoute(g).(*route.Group)
	return added, nil
}

// Resource mounts ctrl with routes derived from the resource actions it
// implements (Index, Show, Store, ...).
func (d *Depot[T]) Resource(endpoint string, ctrl any, cfg any) (*route.Group, error) {
	c, err := ToControllerConfig(cfg)
	if err != nil {
		return nil, fault.Configuration("depot", "resource", err)
	}
	c.Routes = orEmpty(d.mapper.Resource(ctrl, endpoint))
	return d.Controller(endpoint, ctrl, c)
}

// Implicit mounts ctrl with routes derived from its method names, so
// GetUserProfile serves GET /user-profile.
func (d *Depot[T]) Implicit(endpoint string, ctrl any, cfg any) (*route.Group, error) {
	c, err := ToControllerConfig(cfg)
	if err != nil {
		return nil, fault.Configuration("depot", "implicit", err)
	}
	c.Routes = orEmpty(d.mapper.Implicit(ctrl))
	return d.Controller(endpoint, ctrl, c)
}

func orEmpty(r route.Routes) route.Routes {
	if r == nil {
		return route.Routes{}
	}
	return r
}

// Filter installs a route filter. Controller lists share the depot's
// filters, so it sees nested routes too.
func (d *Depot[T]) Filter(f route.Filter) bool {
	return d.filters.Add(f, priority.Default)
}

// Attach installs a transform run by Assemble.
func (d *Depot[T]) Attach(fn Attach[T]) bool {
	return d.attach.Add(fn, priority.Default)
}

// Plugin registers an extension under tag. TagRoute takes a route.Filter,
// TagAttach an Attach[T]; both also accept the plain function types. Any
// other tag just stores the plugin for Plugins.
func (d *Depot[T]) Plugin(tag string, p any) error {
	switch tag {
	case TagRoute:
		f, ok := asFilter(p)
		if !ok {
			return fault.Configurationf("depot", "plugin", "%s plugin must be a route.Filter, not %T", tag, p)
		}
		d.Filter(f)
	case TagAttach:
		a, ok := asAttach[T](p)
		if !ok {
			return fault.Configurationf("depot", "plugin", "%s plugin must be an Attach, not %T", tag, p)
		}
		d.Attach(a)
	default:
		if p == nil {
			return fault.Configurationf("depot", "plugin", "nil %s plugin", tag)
		}
	}

	d.mu.Lock()
	d.plugins[tag] = append(d.plugins[tag], p)
	d.mu.Unlock()
	return nil
}

func asFilter(p any) (route.Filter, bool) {
	switch f := p.(type) {
	case route.Filter:
		return f, f != nil
	case func(route.Entry) route.Entry:
		return f, f != nil
	}
	return nil, false
}

func asAttach[T any](p any) (Attach[T], bool) {
	switch f := p.(type) {
	case Attach[T]:
		return f, f != nil
	case func(route.Entry, *Depot[T]) route.Entry:
		return f, f != nil
	}
	return nil, false
}

// Plugins returns the plugins registered under tag.
func (d *Depot[T]) Plugins(tag string) []any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.plugins[tag])
}

// Tags returns the plugin tags in use, sorted.
func (d *Depot[T]) Tags() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tags := slices.Collect(maps.Keys(d.plugins))
	sort.Strings(tags)
	return tags
}

// Assemble runs e through the attach transforms. A nil result means the
// entry must not be coupled.
func (d *Depot[T]) Assemble(e route.Entry) route.Entry {
	return pipeline.Fold(d.attach, e, func(fn Attach[T], cur route.Entry) route.Entry {
		if cur == nil {
			return nil
		}
		if next := fn(cur, d); !isNil(next) {
			return next
		}
		return nil
	})
}

// All returns the top-level entries in priority order.
func (d *Depot[T]) All() []route.Entry {
	return d.routes.All()
}

// Skipped returns how many entries route filters vetoed at the top level.
func (d *Depot[T]) Skipped() int {
	return d.routes.Skipped()
}

// Each calls fn with every assembled top-level entry, in priority order.
// Entries the attach transforms drop are skipped. Couplers call it from
// their Depot operation.
func (d *Depot[T]) Each(fn func(route.Entry) error) error {
	for _, e := range d.All() {
		assembled := d.Assemble(e)
		if assembled == nil {
			d.logger.Debug("entry skipped by attach plugin", "endpoint", e.Endpoint())
			d.emit(DiagEntrySkipped, "entry skipped by an attach plugin", map[string]any{
				"endpoint": e.Endpoint(),
			})
			continue
		}
		if err := fn(assembled); err != nil {
			return err
		}
		d.emit(DiagEntryCoupled, "entry coupled", map[string]any{
			"endpoint": assembled.Endpoint(),
		})
	}
	return nil
}

// Couple attaches every entry to t through the coupler.
func (d *Depot[T]) Couple(t T) (T, error) {
	return d.coupler.Depot(d, t)
}

// Coupler returns the coupler.
func (d *Depot[T]) Coupler() Coupler[T] {
	return d.coupler
}

// Warehouse returns the warehouse controllers resolve wares from.
func (d *Depot[T]) Warehouse() *ware.Warehouse {
	return d.warehouse
}

// Logger returns the depot's logger.
func (d *Depot[T]) Logger() *slog.Logger {
	return d.logger
}

// Endpoints lists every route that would be coupled as "METHOD /path", in
// coupling order, descending into groups.
func (d *Depot[T]) Endpoints() []string {
	var out []string
	for _, e := range d.All() {
		if e = d.Assemble(e); e != nil {
			out = appendEndpoints(out, e, "")
		}
	}
	return out
}

// LogEndpoints writes Endpoints to the depot's logger at info level.
func (d *Depot[T]) LogEndpoints() {
	for _, ep := range d.Endpoints() {
		d.logger.Info("endpoint", "route", ep)
	}
}

func appendEndpoints(out []string, e route.Entry, prefix string) []string {
	switch v := e.(type) {
	case *route.Route:
		m := v.Method()
		if m == "" {
			m = route.MethodAll
		}
		out = append(out, strings.ToUpper(m)+" "+route.JoinPath(prefix, v.Path()))
	case *route.Group:
		for _, child := range v.All() {
			out = appendEndpoints(out, child, route.JoinPath(prefix, v.Endpoint()))
		}
	}
	return out
}

func isNil(e route.Entry) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ToControllerConfig normalizes a loosely typed controller configuration:
// nil, ControllerConfig, *ControllerConfig, a priority (number or name), or
// a map with "priority" and "wares" keys.
func ToControllerConfig(v any) (ControllerConfig, error) {
	switch c := v.(type) {
	case nil:
		return ControllerConfig{}, nil
	case ControllerConfig:
		return c, nil
	case *ControllerConfig:
		if c == nil {
			return ControllerConfig{}, nil
		}
		return *c, nil
	case string:
		return ControllerConfig{Priority: priority.Parse(c)}, nil
	case map[string]any:
		var cfg ControllerConfig
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       priority.DecodeHook(),
			WeaklyTypedInput: true,
			Result:           &cfg,
		})
		if err != nil {
			return ControllerConfig{}, err
		}
		if err := dec.Decode(c); err != nil {
			return ControllerConfig{}, fmt.Errorf("decode controller config: %w", err)
		}
		return cfg, nil
	case priority.Level, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return ControllerConfig{Priority: priority.Resolve(c)}, nil
	}
	return ControllerConfig{}, fmt.Errorf("unsupported controller config %T", v)
}
