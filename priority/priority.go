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

// Package priority defines the ordered scale used to sort routes, groups and
// wares. Lower levels sort first; an unset (zero) level means Default.
package priority

import (
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Level is a sort weight. Lower values are attached earlier.
type Level int

// The fixed scale, from earliest to latest.
const (
	High    Level = 100
	Medium  Level = 500
	Default Level = 999
	Low     Level = 9999
	Lowest  Level = 99999
)

var names = map[string]Level{
	"HIGH":    High,
	"MEDIUM":  Medium,
	"MED":     Medium,
	"DEFAULT": Default,
	"LOW":     Low,
	"LOWEST":  Lowest,
	"MEH":     Lowest,
}

// OrDefault returns l, or Default when l is unset.
func (l Level) OrDefault() Level {
	if l == 0 {
		return Default
	}
	return l
}

// String returns the scale name for l, or its number when l is off-scale.
func (l Level) String() string {
	switch l {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Default:
		return "DEFAULT"
	case Low:
		return "LOW"
	case Lowest:
		return "LOWEST"
	}
	return cast.ToString(int(l))
}

// Lookup returns the level registered under name (case-insensitive).
func Lookup(name string) (Level, bool) {
	l, ok := names[strings.ToUpper(strings.TrimSpace(name))]
	return l, ok
}

// Parse resolves a level name, falling back to Default for unknown names.
func Parse(name string) Level {
	if l, ok := Lookup(name); ok {
		return l
	}
	return Default
}

// Resolve turns a loosely typed priority into a Level.
// Numbers and numeric strings are taken as-is, names are looked up on the
// scale and anything else (including zero) resolves to Default.
func Resolve(v any) Level {
	switch val := v.(type) {
	case nil:
		return Default
	case Level:
		return val.OrDefault()
	case string:
		if l, ok := Lookup(val); ok {
			return l
		}
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return Default
	}
	return Level(n).OrDefault()
}

var levelType = reflect.TypeFor[Level]()

// DecodeHook lets mapstructure decode names and numbers into Level fields.
func DecodeHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != levelType {
			return data, nil
		}
		return Resolve(data), nil
	}
}
