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

// Package manifest applies a declarative overlay to a depot: ware priorities,
// groups and welds for the warehouse, and priority, naming and disabling of
// routes.
//
// Manifests are YAML, TOML or JSON documents. Several files merge in order,
// later files overriding earlier ones:
//
//	wares:
//	  auth: {priority: high, group: secure}
//	welds:
//	  api: [auth, "audit:api"]
//	routes:
//	  "GET /users/:id": {priority: 10}
//	  users.show: {name: users.profile}
//	  "DELETE /users/:id": {disabled: true}
//
//	m, err := manifest.Load("depot.yaml", "depot.local.yaml")
//	err = m.Apply(d.Warehouse())
//	d.Filter(m.Filter())
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
	"rivaas.dev/depot/ware"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

var extensionFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".toml": FormatTOML,
	".json": FormatJSON,
}

// FormatOf detects the format of a file from its extension.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("cannot detect manifest format from extension %q", ext)
}

// Ware overrides a registered ware.
type Ware struct {
	Priority priority.Level `mapstructure:"priority" validate:"gte=0"`
	Group    string         `mapstructure:"group"`
}

// Route overrides the routes matching its key: a route key such as
// "GET /users/:id", a route name, or a group endpoint.
type Route struct {
	Priority priority.Level `mapstructure:"priority" validate:"gte=0"`
	Name     string         `mapstructure:"name"`
	Disabled bool           `mapstructure:"disabled"`
}

// Manifest is a decoded overlay.
type Manifest struct {
	Wares  map[string]Ware     `mapstructure:"wares" validate:"dive,keys,required,endkeys"`
	Groups map[string][]string `mapstructure:"groups" validate:"dive,keys,required,endkeys,min=1,dive,required"`
	Welds  map[string][]string `mapstructure:"welds" validate:"dive,keys,required,endkeys,min=1,dive,required"`
	Routes map[string]Route    `mapstructure:"routes" validate:"dive,keys,required,endkeys"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes one document into a raw map.
func Parse(data []byte, format Format) (map[string]any, error) {
	raw := make(map[string]any)
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s manifest: %w", format, err)
	}
	return raw, nil
}

// Load reads, merges and decodes manifest files. Later files override
// earlier ones.
func Load(paths ...string) (*Manifest, error) {
	docs := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		format, err := FormatOf(p)
		if err != nil {
			return nil, fault.Configuration("manifest "+p, "load", err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fault.Configuration("manifest "+p, "load", err)
		}
		raw, err := Parse(data, format)
		if err != nil {
			return nil, fault.Configuration("manifest "+p, "parse", err)
		}
		docs = append(docs, raw)
	}
	return Merge(docs...)
}

// Merge merges raw documents in order and decodes the result.
func Merge(docs ...map[string]any) (*Manifest, error) {
	merged := make(map[string]any)
	for i, doc := range docs {
		if err := mergo.Map(&merged, lowerKeys(doc), mergo.WithOverride); err != nil {
			return nil, fault.Configuration(fmt.Sprintf("manifest[%d]", i), "merge", err)
		}
	}
	return Decode(merged)
}

// lowerKeys lowers the section names only; route keys and ware names keep
// their case.
func lowerKeys(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Decode turns a raw map into a validated Manifest. Route keys of the form
// "METHOD /path" are normalized to the route key format.
func Decode(raw map[string]any) (*Manifest, error) {
	var m Manifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       priority.DecodeHook(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &m,
	})
	if err != nil {
		return nil, fault.Configuration("manifest", "decode", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fault.Configuration("manifest", "decode", err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fault.Configuration("manifest", "validate", err)
	}

	if len(m.Routes) > 0 {
		routes := make(map[string]Route, len(m.Routes))
		for k, r := range m.Routes {
			routes[NormalizeKey(k)] = r
		}
		m.Routes = routes
	}
	return &m, nil
}

// NormalizeKey rewrites "get users/:id" as "GET /users/:id" and a bare path
// as a joined path. Other keys are names and stay as they are.
func NormalizeKey(k string) string {
	k = strings.TrimSpace(k)
	if method, path, ok := strings.Cut(k, " "); ok && route.ValidMethod(method) {
		return strings.ToUpper(method) + " " + route.JoinPath(strings.TrimSpace(path))
	}
	if strings.HasPrefix(k, "/") {
		return route.JoinPath(k)
	}
	return k
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Apply writes the ware overrides, groups and welds to h. It applies
// everything it can and reports every failure.
func (m *Manifest) Apply(h *ware.Warehouse) error {
	var result *multierror.Error

	for _, name := range sortedKeys(m.Wares) {
		w := m.Wares[name]
		if !h.Exists(name) {
			result = multierror.Append(result, fault.Configurationf("manifest", "apply", "unknown ware %q", name))
			continue
		}
		if w.Priority != 0 {
			if err := h.Prioritize(name, w.Priority); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if w.Group != "" {
			if err := h.Join(w.Group, name); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	for _, group := range sortedKeys(m.Groups) {
		for _, member := range m.Groups[group] {
			if err := h.Join(group, member); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	for _, name := range sortedKeys(m.Welds) {
		if _, err := h.Weld(name, m.Welds[name]...); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// Lookup returns the override for an entry: by route key, then route name
// for routes, by endpoint for groups.
func (m *Manifest) Lookup(e route.Entry) (Route, bool) {
	switch v := e.(type) {
	case *route.Route:
		if r, ok := m.Routes[v.Key()]; ok {
			return r, true
		}
		r, ok := m.Routes[v.Name()]
		return r, ok
	case *route.Group:
		r, ok := m.Routes[route.JoinPath(v.Endpoint())]
		return r, ok
	}
	return Route{}, false
}

// Filter returns a route filter applying the route overrides. Disabled
// entries are vetoed.
func (m *Manifest) Filter() route.Filter {
	return func(e route.Entry) route.Entry {
		r, ok := m.Lookup(e)
		if !ok {
			return e
		}
		if r.Disabled {
			return nil
		}
		if r.Priority != 0 {
			e.SetPriority(r.Priority)
		}
		if rt, isRoute := e.(*route.Route); isRoute && r.Name != "" {
			rt.SetName(r.Name)
		}
		return e
	}
}
