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

package manifest

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
	"rivaas.dev/depot/ware"
)

func noop(_ http.ResponseWriter, _ *http.Request, next route.Next) { next(nil) }

func write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

const yamlManifest = `
wares:
  auth:
    priority: high
    group: secure
welds:
  api: [auth, "audit:api"]
routes:
  "get users/:id":
    priority: 10
  users.show:
    name: users.profile
  "DELETE /users/:id":
    disabled: true
`

func TestFormatOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"depot.yaml", FormatYAML, false},
		{"depot.YML", FormatYAML, false},
		{"conf/depot.toml", FormatTOML, false},
		{"depot.json", FormatJSON, false},
		{"depot.ini", "", true},
		{"depot", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, err := FormatOf(tt.path)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"get users/:id":   "GET /users/:id",
		"POST  /avatars/": "POST /avatars",
		"/admin//stats":   "/admin/stats",
		"users.show":      "users.show",
		"fetch /x":        "fetch /x",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), in)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	m, err := Load(write(t, "depot.yaml", yamlManifest))
	require.NoError(t, err)

	assert.Equal(t, Ware{Priority: priority.High, Group: "secure"}, m.Wares["auth"])
	assert.Equal(t, []string{"auth", "audit:api"}, m.Welds["api"])
	assert.Equal(t, priority.Level(10), m.Routes["GET /users/:id"].Priority)
	assert.Equal(t, "users.profile", m.Routes["users.show"].Name)
	assert.True(t, m.Routes["DELETE /users/:id"].Disabled)
}

func TestLoad_TOMLAndJSON(t *testing.T) {
	t.Parallel()

	tomlPath := write(t, "depot.toml", `
[wares.auth]
priority = "medium"

[groups]
secure = ["auth"]
`)
	jsonPath := write(t, "depot.json", `{"routes": {"GET /health": {"priority": 1}}}`)

	m, err := Load(tomlPath, jsonPath)
	require.NoError(t, err)

	assert.Equal(t, priority.Medium, m.Wares["auth"].Priority)
	assert.Equal(t, []string{"auth"}, m.Groups["secure"])
	assert.Equal(t, priority.Level(1), m.Routes["GET /health"].Priority)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"unknown extension", func(t *testing.T) string { return write(t, "depot.ini", "") }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") }},
		{"malformed", func(t *testing.T) string { return write(t, "depot.json", "{") }},
		{"unknown section", func(t *testing.T) string { return write(t, "depot.yaml", "plugins: {}") }},
		{"empty group", func(t *testing.T) string { return write(t, "depot.yaml", "groups:\n  secure: []") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(tt.path(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, fault.ErrConfiguration)
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("a=1"), "ini")
	assert.Error(t, err)
}

func TestMerge_CombinesSections(t *testing.T) {
	t.Parallel()

	m, err := Merge(
		map[string]any{"Wares": map[string]any{"auth": map[string]any{"priority": 100}}},
		map[string]any{"welds": map[string]any{"api": []any{"auth"}}},
	)
	require.NoError(t, err)

	assert.Equal(t, priority.High, m.Wares["auth"].Priority)
	assert.Equal(t, []string{"auth"}, m.Welds["api"])
}

func TestApply(t *testing.T) {
	t.Parallel()

	h := ware.NewWarehouse()
	require.NoError(t, h.Add("auth", ware.Func(noop), nil))
	require.NoError(t, h.Add("audit", ware.Func(noop), nil))

	m, err := Load(write(t, "depot.yaml", yamlManifest))
	require.NoError(t, err)
	require.NoError(t, m.Apply(h))

	assert.Equal(t, priority.High, h.Get("auth").Priority())
	assert.Equal(t, []string{"auth"}, h.Members("secure"))

	welded := h.Welded("api")
	require.Len(t, welded, 2)
	assert.Equal(t, "auth", welded[0].Name())
	assert.Equal(t, []string{"api"}, welded[1].Args())
}

func TestApply_CollectsErrors(t *testing.T) {
	t.Parallel()

	h := ware.NewWarehouse()
	require.NoError(t, h.Add("auth", ware.Func(noop), nil))

	m := &Manifest{
		Wares: map[string]Ware{
			"ghost":   {Priority: priority.High},
			"phantom": {Group: "x"},
			"auth":    {Priority: priority.Low},
		},
	}

	err := m.Apply(h)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Equal(t, priority.Low, h.Get("auth").Priority(), "valid entries still apply")
}

func TestFilter(t *testing.T) {
	t.Parallel()

	m, err := Load(write(t, "depot.yaml", yamlManifest))
	require.NoError(t, err)

	l := route.NewList()
	require.True(t, l.AddFilter(m.Filter()))

	show, err := l.Route("GET /users/:id", "", route.HandlerFunc(noop), nil, map[string]any{"name": "users.show"})
	require.NoError(t, err)
	require.NotNil(t, show)
	assert.Equal(t, priority.Level(10), show.Priority())

	list, err := l.Route("GET /users", "", route.HandlerFunc(noop), nil, map[string]any{"name": "users.show"})
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, "users.profile", list.Name())

	removed, err := l.Route("DELETE /users/:id", "", route.HandlerFunc(noop), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, removed)
	assert.Equal(t, 1, l.Skipped())

	other, err := l.Route("GET /health", "", route.HandlerFunc(noop), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, priority.Default, other.Priority())
}

func TestFilter_Groups(t *testing.T) {
	t.Parallel()

	m := &Manifest{Routes: map[string]Route{
		"/admin":    {Priority: priority.High},
		"/internal": {Disabled: true},
	}}
	f := m.Filter()

	admin := route.NewGroup("/admin", nil, route.GroupConfig{}, nil)
	assert.Same(t, admin, f(admin))
	assert.Equal(t, priority.High, admin.Priority())

	assert.Nil(t, f(route.NewGroup("/internal", nil, route.GroupConfig{}, nil)))
}
