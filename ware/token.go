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

package ware

import "strings"

// Token is a reference to a ware or group with optional call-time
// arguments, written "name" or "name:arg1,arg2".
type Token struct {
	Name string
	Args []string
}

// ParseToken splits a token into its name and arguments. Blank arguments are
// dropped.
func ParseToken(s string) Token {
	name, rest, found := strings.Cut(strings.TrimSpace(s), ":")
	t := Token{Name: strings.TrimSpace(name)}
	if !found {
		return t
	}
	for arg := range strings.SplitSeq(rest, ",") {
		if arg = strings.TrimSpace(arg); arg != "" {
			t.Args = append(t.Args, arg)
		}
	}
	return t
}

// String formats the token back into its textual form.
func (t Token) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + ":" + strings.Join(t.Args, ",")
}
