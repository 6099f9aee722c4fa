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

// Package namer derives human-readable route and handler names.
package namer

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/huandu/xstrings"
)

// ByHandlers builds a dashed, dotted name from the owning context's name and
// the last handler's name, e.g. ("UserController", "ShowProfile") gives
// "user-controller.show-profile".
func ByHandlers(context, handler string) string {
	suffix := xstrings.ToKebabCase(handler)
	if context == "" {
		return suffix
	}
	return xstrings.ToKebabCase(context) + "." + suffix
}

// ByURL builds a dotted name from the context name and the route path, e.g.
// ("UserController", "/users/:id") gives "user.controller.users.id".
// The root path is named "index".
func ByURL(context, path string) string {
	var parts []string
	if context != "" {
		parts = strings.Split(xstrings.ToSnakeCase(context), "_")
	}
	parts = append(parts, strings.Split(path, "/")...)

	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		p = strings.ReplaceAll(p, ":", "")
		if p == "" || p == "http" {
			continue
		}
		out = append(out, p)
	}
	if path == "/" {
		out = append(out, "index")
	}
	return strings.Join(out, ".")
}

// FuncName returns the short name of a function value: "Show" for a method
// value, "funcN" for a closure and "" for nil or non-functions.
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}

	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// IsPlaceholder reports whether name carries no meaning of its own: empty, or
// the compiler-generated "funcN" of an anonymous function.
func IsPlaceholder(name string) bool {
	if name == "" {
		return true
	}
	rest, ok := strings.CutPrefix(name, "func")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TypeName returns the name of v's type, looking through pointers.
// Unnamed types give "".
func TypeName(v any) string {
	if v == nil {
		return ""
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
