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

// Package mapper derives route tables for controllers from naming conventions.
//
// Resource maps the seven resource actions a controller implements:
//
//	Index   GET    /
//	Create  GET    /create
//	Store   POST   /
//	Show    GET    /:userId
//	Edit    GET    /:userId/edit
//	Update  PUT    /:userId
//	Destroy DELETE /:userId
//
// Implicit maps every handler method whose name starts with a verb:
// GetUserProfile becomes GET /user-profile and GetIndex becomes GET /.
package mapper

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/huandu/xstrings"

	"rivaas.dev/depot/namer"
	"rivaas.dev/depot/route"
)

// Mapper synthesizes route tables for controllers.
type Mapper interface {
	Resource(ctrl any, resource string) route.Routes
	Implicit(ctrl any) route.Routes
}

// Convention is the default Mapper.
type Convention struct{}

var _ Mapper = Convention{}

type action struct {
	method string
	parts  []string // after the verb; "{id}" stands for the id parameter
}

var resourceActions = []struct {
	name string
	action
}{
	{"Index", action{"get", nil}},
	{"Create", action{"get", []string{"create"}}},
	{"Store", action{"post", nil}},
	{"Show", action{"get", []string{"{id}"}}},
	{"Edit", action{"get", []string{"{id}", "edit"}}},
	{"Update", action{"put", []string{"{id}"}}},
	{"Destroy", action{"delete", []string{"{id}"}}},
}

var verbs = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true, "delete": true, "head": true, "all": true,
}

// Resource maps the resource actions ctrl implements. The id parameter is
// named after the last segment of resource ("/api/user-posts" gives
// ":userPostsId"); an empty resource falls back to the controller type name.
func (Convention) Resource(ctrl any, resource string) route.Routes {
	methods := handlerMethods(ctrl)
	id := ":" + IDField(resource, ctrl)

	var routes route.Routes
	for _, a := range resourceActions {
		if !methods[a.name] {
			continue
		}
		parts := make([]string, len(a.parts))
		for i, p := range a.parts {
			if p == "{id}" {
				p = id
			}
			parts[i] = p
		}
		routes = append(routes, route.Mapping{
			Request: Key(a.method, parts, "/"),
			Handler: route.Name(a.name),
		})
	}
	return routes
}

// Implicit maps every handler method of ctrl named verb+words. Methods with a
// single word or an unknown verb are skipped.
func (Convention) Implicit(ctrl any) route.Routes {
	var routes route.Routes
	for _, name := range handlerMethodNames(ctrl) {
		parts := strings.Split(xstrings.ToKebabCase(name), "-")
		if len(parts) < 2 || !verbs[parts[0]] {
			continue
		}
		routes = append(routes, route.Mapping{
			Request: Key(parts[0], parts[1:], "-"),
			Handler: route.Name(name),
		})
	}
	return routes
}

// Key builds "METHOD /part<joiner>part". A lone "index" part maps to "/".
func Key(method string, parts []string, joiner string) string {
	if len(parts) == 1 && parts[0] == "index" {
		parts = nil
	}
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToUpper(method) + " /" + strings.Join(kept, joiner)
}

// IDField returns the id parameter name for a resource, e.g. "userPostsId".
func IDField(resource string, ctrl any) string {
	name := ""
	for seg := range strings.SplitSeq(resource, "/") {
		if seg != "" {
			name = seg
		}
	}
	if name == "" {
		name = namer.TypeName(ctrl)
	}
	return xstrings.FirstRuneToLower(xstrings.ToCamelCase(name)) + "Id"
}

var (
	connectType = reflect.TypeFor[func(http.ResponseWriter, *http.Request, route.Next)]()
	plainType   = reflect.TypeFor[func(http.ResponseWriter, *http.Request)]()
)

// handlerMethodNames lists, in name order, the methods of ctrl usable as
// handlers.
func handlerMethodNames(ctrl any) []string {
	v := reflect.ValueOf(ctrl)
	if !v.IsValid() {
		return nil
	}
	var names []string
	t := v.Type()
	for i := range t.NumMethod() {
		mt := v.Method(i).Type()
		if mt == connectType || mt == plainType {
			names = append(names, t.Method(i).Name)
		}
	}
	return names
}

func handlerMethods(ctrl any) map[string]bool {
	set := make(map[string]bool)
	for _, n := range handlerMethodNames(ctrl) {
		set[n] = true
	}
	return set
}
