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
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
	"rivaas.dev/depot/ware"
)

// recorder is a fake transport writing one line per coupled route.
type recorder struct {
	prefix string
	lines  *[]string
}

func newRecorder() recorder {
	return recorder{prefix: "/", lines: &[]string{}}
}

func (r recorder) Lines() []string {
	return *r.lines
}

type recordingCoupler struct{}

func (c recordingCoupler) Route(rt *route.Route, r recorder) (recorder, error) {
	method := rt.Method()
	if method == "" {
		method = route.MethodAll
	}
	*r.lines = append(*r.lines, strings.ToUpper(method)+" "+route.JoinPath(r.prefix, rt.Path()))
	return r, nil
}

func (c recordingCoupler) Group(g *route.Group, r recorder) (recorder, error) {
	scope := recorder{prefix: route.JoinPath(r.prefix, g.Endpoint()), lines: r.lines}
	if n := len(g.Middleware()); n > 0 {
		*r.lines = append(*r.lines, "USE "+scope.prefix)
	}
	if _, err := Fold[recorder](c, g.All(), scope); err != nil {
		return r, err
	}
	return r, nil
}

func (c recordingCoupler) Depot(d *Depot[recorder], r recorder) (recorder, error) {
	err := d.Each(func(e route.Entry) error {
		var err error
		r, err = Dispatch[recorder](c, e, r)
		return err
	})
	return r, err
}

func ok(http.ResponseWriter, *http.Request, route.Next) {}

type users struct{}

func (*users) Index(http.ResponseWriter, *http.Request)          {}
func (*users) Show(http.ResponseWriter, *http.Request, route.Next) {}
func (*users) GetUserProfile(http.ResponseWriter, *http.Request)  {}
func (*users) PostAvatar(http.ResponseWriter, *http.Request)      {}
func (*users) Helper() string                                     { return "" }

type accounts struct{}

func (accounts) Routes() route.Routes {
	return route.Routes{
		{Request: "GET /", Handler: route.Name("list")},
		{Request: "POST /", Handler: route.Name("create")},
	}
}

func (accounts) Priority() priority.Level { return priority.High }

func (accounts) List(http.ResponseWriter, *http.Request)   {}
func (accounts) Create(http.ResponseWriter, *http.Request) {}

type events struct {
	mu    sync.Mutex
	kinds []DiagnosticKind
}

func (e *events) OnDiagnostic(ev DiagnosticEvent) {
	e.mu.Lock()
	e.kinds = append(e.kinds, ev.Kind)
	e.mu.Unlock()
}

func (e *events) count(kind DiagnosticKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, k := range e.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func couple(t *testing.T, d *Depot[recorder]) []string {
	t.Helper()
	r, err := d.Couple(newRecorder())
	require.NoError(t, err)
	return r.Lines()
}

func TestNew_RequiresCoupler(t *testing.T) {
	t.Parallel()

	_, err := New[recorder](nil)
	require.ErrorIs(t, err, fault.ErrConfiguration)
	assert.Contains(t, err.Error(), "a coupler is required")

	var typed *CouplerFuncs[recorder]
	_, err = New[recorder](typed)
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestNew_CouplerFuncsMissingMember(t *testing.T) {
	t.Parallel()

	c := recordingCoupler{}
	tests := []struct {
		name    string
		funcs   CouplerFuncs[recorder]
		missing string
	}{
		{name: "route", funcs: CouplerFuncs[recorder]{GroupFunc: c.Group, DepotFunc: c.Depot}, missing: "Route"},
		{name: "depot", funcs: CouplerFuncs[recorder]{RouteFunc: c.Route, GroupFunc: c.Group}, missing: "Depot"},
		{name: "group", funcs: CouplerFuncs[recorder]{RouteFunc: c.Route, DepotFunc: c.Depot}, missing: "Group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New[recorder](tt.funcs)
			require.ErrorIs(t, err, fault.ErrConfiguration)
			assert.Contains(t, err.Error(), "the coupler is missing "+tt.missing)
		})
	}

	_, err := New[recorder](CouplerFuncs[recorder]{RouteFunc: c.Route, GroupFunc: c.Group, DepotFunc: c.Depot})
	assert.NoError(t, err)
}

func TestMustNew_Panics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t,
		"depot.MustNew: configuration error in depot during new: a coupler is required",
		func() { MustNew[recorder](nil) })
}

func TestDepot_PriorityOrder(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	_, err := d.Get("/default", route.HandlerFunc(ok), nil)
	require.NoError(t, err)
	_, err = d.Get("/one", route.HandlerFunc(ok), 1)
	require.NoError(t, err)
	_, err = d.Post("/twelve", route.HandlerFunc(ok), 12)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /one", "POST /twelve", "GET /default"}, couple(t, d))
}

func TestDepot_Verbs(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	h := route.HandlerFunc(ok)
	for _, declare := range []func(string, route.Definition, any) (*route.Route, error){
		d.Get, d.Post, d.Put, d.Patch, d.Delete, d.Any,
	} {
		_, err := declare("/x", h, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"GET /x", "POST /x", "PUT /x", "PATCH /x", "DELETE /x", "ALL /x",
	}, couple(t, d))
}

func TestDepot_CoupleTwiceIsStable(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	_, err := d.Get("/b", route.HandlerFunc(ok), priority.Low)
	require.NoError(t, err)
	_, err = d.Get("/a", route.HandlerFunc(ok), nil)
	require.NoError(t, err)
	_, err = d.Controller("/accounts", accounts{}, nil)
	require.NoError(t, err)

	first := couple(t, d)
	second := couple(t, d)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("coupling order changed (-first +second):\n%s", diff)
	}
}

func TestDepot_Controller(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	_, err := d.Get("/late", route.HandlerFunc(ok), nil)
	require.NoError(t, err)

	g, err := d.Controller("/accounts", accounts{}, nil)
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.True(t, g.IsController())
	assert.Equal(t, priority.High, g.Priority(), "priority comes from the controller")
	assert.Equal(t, []string{"GET /accounts", "POST /accounts", "GET /late"}, couple(t, d))

	for _, e := range g.All() {
		rt := e.(*route.Route)
		assert.True(t, rt.FromController())
		assert.Equal(t, "/accounts", rt.Mount())
	}
}

func TestDepot_ControllerConfigOverrides(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	g, err := d.Controller("/accounts", accounts{}, ControllerConfig{
		Priority: priority.Low,
		Routes:   route.Routes{{Request: "GET /only", Handler: route.Name("list")}},
	})
	require.NoError(t, err)

	assert.Equal(t, priority.Low, g.Priority())
	assert.Equal(t, []string{"GET /accounts/only"}, couple(t, d))
}

func TestDepot_ControllerErrors(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})

	_, err := d.Controller("/users", &users{}, nil)
	require.ErrorIs(t, err, fault.ErrConfiguration)
	assert.Contains(t, err.Error(), "expects routes")

	_, err = d.Controller("/users", &users{}, ControllerConfig{
		Routes: route.Routes{{Request: "GET /", Handler: route.Name("missing")}},
	})
	require.ErrorIs(t, err, fault.ErrResolution)
	assert.ErrorIs(t, err, route.ErrUnknownHandler)

	_, err = d.Controller("/users", &users{}, true)
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	assert.Empty(t, d.All())
}

func TestDepot_ControllerWares(t *testing.T) {
	t.Parallel()

	h := ware.NewWarehouse()
	require.NoError(t, h.Add("auth", ware.Func(ok), nil))
	require.NoError(t, h.Add("audit", ware.Funcs(ok, ok), nil))

	d := MustNew[recorder](recordingCoupler{}, WithWarehouse(h))
	assert.Same(t, h, d.Warehouse())

	g, err := d.Controller("/accounts", accounts{}, map[string]any{
		"wares":    []string{"auth", "audit:read"},
		"priority": "low",
	})
	require.NoError(t, err)
	assert.Len(t, g.Middleware(), 3)
	assert.Equal(t, priority.Low, g.Priority())
	assert.Equal(t, []string{"USE /accounts", "GET /accounts", "POST /accounts"}, couple(t, d))

	_, err = d.Controller("/other", accounts{}, ControllerConfig{Wares: []string{"nope"}})
	require.ErrorIs(t, err, fault.ErrConfiguration)
	assert.Contains(t, err.Error(), `unknown ware "nope"`)
}

func TestDepot_Resource(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	g, err := d.Resource("/users", &users{}, nil)
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, []string{"GET /users", "GET /users/:usersId"}, couple(t, d))
}

func TestDepot_Implicit(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	_, err := d.Implicit("/me", &users{}, priority.High)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"GET /me/user-profile", "POST /me/avatar"}, couple(t, d))
}

func TestDepot_ImplicitWithoutMatches(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	g, err := d.Implicit("/empty", struct{}{}, nil)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Empty(t, g.All())
}

func TestDepot_RouteFilterVeto(t *testing.T) {
	t.Parallel()

	ev := &events{}
	d := MustNew[recorder](recordingCoupler{}, WithDiagnostics(ev))
	require.NoError(t, d.Plugin(TagRoute, route.Filter(func(e route.Entry) route.Entry {
		if strings.Contains(e.Endpoint(), "/internal") {
			return nil
		}
		return e
	})))

	rt, err := d.Get("/internal/debug", route.HandlerFunc(ok), nil)
	require.NoError(t, err)
	assert.Nil(t, rt)

	_, err = d.Get("/public", route.HandlerFunc(ok), nil)
	require.NoError(t, err)

	// Controller lists share the depot's filters.
	g, err := d.Controller("/accounts", accounts{}, ControllerConfig{
		Routes: route.Routes{
			{Request: "GET /internal", Handler: route.Name("list")},
			{Request: "GET /", Handler: route.Name("list")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, g.List().Skipped())

	assert.Equal(t, 1, d.Skipped())
	assert.Equal(t, 1, ev.count(DiagRouteVetoed))
	assert.Equal(t, 2, ev.count(DiagRouteRegistered))
	assert.Equal(t, []string{"GET /accounts", "GET /public"}, couple(t, d))
}

func TestDepot_FilterTransforms(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{}, WithFilters(func(e route.Entry) route.Entry {
		if e.Endpoint() == "/last" {
			e.SetPriority(priority.Lowest)
		}
		return e
	}))

	_, err := d.Get("/last", route.HandlerFunc(ok), priority.High)
	require.NoError(t, err)
	_, err = d.Get("/first", route.HandlerFunc(ok), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /first", "GET /last"}, couple(t, d))
}

func TestDepot_AttachSkipsEntries(t *testing.T) {
	t.Parallel()

	ev := &events{}
	d := MustNew[recorder](recordingCoupler{}, WithDiagnostics(ev))

	var seen []string
	require.NoError(t, d.Plugin(TagAttach, func(e route.Entry, _ *Depot[recorder]) route.Entry {
		seen = append(seen, e.Endpoint())
		if e.Endpoint() == "/hidden" {
			return nil
		}
		return e
	}))

	_, err := d.Get("/hidden", route.HandlerFunc(ok), nil)
	require.NoError(t, err)
	_, err = d.Get("/shown", route.HandlerFunc(ok), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /shown"}, couple(t, d))
	assert.Equal(t, []string{"/hidden", "/shown"}, seen)
	assert.Equal(t, 1, ev.count(DiagEntrySkipped))
	assert.Equal(t, 1, ev.count(DiagEntryCoupled))
	assert.Len(t, d.All(), 2, "attach plugins never remove entries")
}

func TestDepot_AttachFoldsInOrder(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	var order []string
	d.Attach(func(e route.Entry, _ *Depot[recorder]) route.Entry {
		order = append(order, "first")
		return e
	})
	d.Attach(func(e route.Entry, _ *Depot[recorder]) route.Entry {
		order = append(order, "second")
		return nil
	})
	d.Attach(func(e route.Entry, _ *Depot[recorder]) route.Entry {
		order = append(order, "third")
		return e
	})

	rt := route.MustNew("GET /x", "", route.HandlerFunc(ok), nil, nil)
	assert.Nil(t, d.Assemble(rt))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDepot_Plugin(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})

	err := d.Plugin(TagRoute, "not a filter")
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	err = d.Plugin(TagAttach, route.Filter(func(e route.Entry) route.Entry { return e }))
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	assert.ErrorIs(t, d.Plugin("custom", nil), fault.ErrConfiguration)
	require.NoError(t, d.Plugin("custom", 42))
	require.NoError(t, d.Plugin("custom", "x"))
	require.NoError(t, d.Plugin(TagRoute, func(e route.Entry) route.Entry { return e }))

	assert.Equal(t, []any{42, "x"}, d.Plugins("custom"))
	assert.Empty(t, d.Plugins("unknown"))
	assert.Equal(t, []string{"custom", TagRoute}, d.Tags())
}

func TestDepot_DefaultWrappersReachControllers(t *testing.T) {
	t.Parallel()

	var calls []string
	w := route.Wrapper(func(_ *route.Connection, proceed route.Proceed, rt *route.Route, _ route.Handle) {
		calls = append(calls, rt.Key())
		proceed(nil)
	})

	d := MustNew[recorder](recordingCoupler{}, WithWrappers(w))
	g, err := d.Controller("/accounts", accounts{}, nil)
	require.NoError(t, err)

	rt := g.All()[0].(*route.Route)
	require.Len(t, rt.Wrappers(), 1)

	fns, err := rt.Handlers()
	require.NoError(t, err)
	require.Len(t, fns, 1)
	fns[0](nil, nil, nil)

	assert.Equal(t, []string{"GET /accounts"}, calls)
}

func TestDepot_Endpoints(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	_, err := d.Any("/health", route.HandlerFunc(ok), priority.High)
	require.NoError(t, err)
	_, err = d.Controller("/accounts", accounts{}, priority.Low)
	require.NoError(t, err)

	assert.Equal(t, []string{"ALL /health", "GET /accounts", "POST /accounts"}, d.Endpoints())
}

func TestDepot_AddRoute(t *testing.T) {
	t.Parallel()

	d := MustNew[recorder](recordingCoupler{})
	rt := route.MustNew("DELETE /users/:id", "", route.HandlerFunc(ok), nil, nil)

	assert.Same(t, rt, d.AddRoute(rt))
	assert.Nil(t, d.AddRoute(nil))
	assert.Equal(t, []string{"DELETE /users/:id"}, couple(t, d))
}

func TestToControllerConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		want    priority.Level
		wantErr bool
	}{
		{name: "nil", in: nil, want: 0},
		{name: "number", in: 12, want: 12},
		{name: "level", in: priority.Low, want: priority.Low},
		{name: "name", in: "high", want: priority.High},
		{name: "value", in: ControllerConfig{Priority: 7}, want: 7},
		{name: "pointer", in: &ControllerConfig{Priority: 8}, want: 8},
		{name: "map", in: map[string]any{"priority": "lowest"}, want: priority.Lowest},
		{name: "unsupported", in: []int{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ToControllerConfig(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Priority)
		})
	}
}
