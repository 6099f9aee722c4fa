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

package route

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"rivaas.dev/depot/priority"
)

// Config carries the optional settings of a route.
type Config struct {
	Name           string         `mapstructure:"name"`
	Priority       priority.Level `mapstructure:"priority"`
	Root           string         `mapstructure:"root"`
	FromController bool           `mapstructure:"from_controller"`

	// Binding is the context used when none is passed explicitly.
	Binding any `mapstructure:"binding"`

	// Wrappers run before every handler of the route, in order.
	Wrappers []Wrapper `mapstructure:"-"`
}

// ToConfig normalizes a loosely typed route configuration:
//   - nil gives the zero Config
//   - Config and *Config are used as-is
//   - a priority.Level or any number gives {Priority: n}
//   - a string gives the priority of that name, or Default
//   - a map[string]any is decoded field by field
func ToConfig(v any) (Config, error) {
	switch c := v.(type) {
	case nil:
		return Config{}, nil
	case Config:
		return c, nil
	case *Config:
		if c == nil {
			return Config{}, nil
		}
		return *c, nil
	case string:
		return Config{Priority: priority.Parse(c)}, nil
	case map[string]any:
		return decodeConfig(c)
	case priority.Level, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Config{Priority: priority.Resolve(c)}, nil
	}
	return Config{}, fmt.Errorf("unsupported route config %T", v)
}

func decodeConfig(m map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       priority.DecodeHook(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, fmt.Errorf("decode route config: %w", err)
	}
	return cfg, nil
}
