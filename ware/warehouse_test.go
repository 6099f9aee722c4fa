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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
)

func names(wares []*Ware) []string {
	out := make([]string, len(wares))
	for i, w := range wares {
		out[i] = w.Key()
	}
	return out
}

func TestWarehouse_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("bob", Func(session), nil))
	require.NoError(t, h.Add("bob", Func(session), priority.High))
	require.NoError(t, h.Register(Module{Name: "bob", Handler: Func(session)}))

	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Exists("bob"))
	assert.False(t, h.Exists("jets"))
	assert.Equal(t, priority.Default, h.Get("bob").Priority(), "the first registration wins")
}

func TestWarehouse_AddValidatesName(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()

	for _, name := range []string{"", "ab", "Bob"} {
		err := h.Add(name, Func(session), nil)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, fault.ErrConfiguration)
		assert.ErrorIs(t, err, ErrIllegalName)
	}

	require.NoError(t, h.Add("", Func(session), map[string]any{"name": "fromcfg"}))
	assert.True(t, h.Exists("fromcfg"))
	assert.Equal(t, 1, h.Len())
}

func TestWarehouse_AddJoinsConfiguredGroup(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("dev-logger", Func(session), Config{Group: "dev"}))
	require.NoError(t, h.Add("dev-timer", Func(session), Config{Group: "dev", Priority: priority.High}))

	assert.Equal(t, []string{"dev-logger", "dev-timer"}, h.Members("dev"))
	assert.Equal(t, []string{"dev-timer", "dev-logger"}, names(h.Group("dev")))
}

func TestWarehouse_Join(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Join("cats", "dogs"))
	require.NoError(t, h.Join("cats", "dogs"))
	assert.Equal(t, []string{"dogs"}, h.Members("cats"))

	err := h.Join("", "dogs")
	assert.ErrorIs(t, err, fault.ErrConfiguration)
	assert.ErrorIs(t, h.Join("cats", ""), fault.ErrConfiguration)
}

func TestWarehouse_Group(t *testing.T) {
	t.Parallel()

	var got [][]string
	h := NewWarehouse()
	require.NoError(t, h.Add("can", Factory(func(args ...string) Spec {
		got = append(got, args)
		return Func(session)
	}), nil))
	require.NoError(t, h.Add("cat", Func(session), priority.High))

	require.NoError(t, h.Join("pets", "can:meow"))
	require.NoError(t, h.Join("pets", "cat"))
	require.NoError(t, h.Join("zoo", "pets"))
	require.NoError(t, h.Join("zoo", "zoo"))

	assert.Empty(t, h.Group("unknown"))
	assert.Equal(t, []string{"cat", "can:meow"}, names(h.Group("pets")))
	assert.Equal(t, []string{"cat:loud", "can:meow,loud"}, names(h.Group("zoo:loud")))

	wares := h.Group("pets")
	_, err := wares[1].Operators()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"meow"}}, got)
}

func TestWarehouse_GetClones(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("auth", Func(session), Config{Args: []string{"base"}}))

	assert.Nil(t, h.Get("missing"))

	w := h.Get("auth:admin", "extra")
	require.NotNil(t, w)
	assert.Equal(t, []string{"base", "admin", "extra"}, w.Args())

	w.SetPriority(priority.High)
	fresh := h.Get("auth")
	assert.Equal(t, []string{"base"}, fresh.Args())
	assert.Equal(t, priority.Default, fresh.Priority())
}

func TestWarehouse_Find(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("auth", Func(session), nil))
	require.NoError(t, h.Add("csrf", Func(session), Config{Group: "web"}))

	assert.Equal(t, []string{"auth"}, names(h.Find("auth")))
	assert.Equal(t, []string{"csrf"}, names(h.Find("web")))
	assert.Empty(t, h.Find("nothing"))
	assert.Equal(t, []string{"auth", "csrf"}, names(h.Resolve("auth", "nothing", "web")))
}

func TestWarehouse_Weld(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	h := NewWarehouse()
	require.NoError(t, h.Add("can", Factory(func(args ...string) Spec {
		return Single{Name: "can", Fn: tr.handler("can:" + args[0])}
	}), nil))
	require.NoError(t, h.Add("cat", Single{Name: "cat", Fn: tr.handler("cat")}, nil))

	team, err := h.Weld("team", "can:meow", "cat")
	require.NoError(t, err)
	require.Len(t, team, 2)

	for _, w := range team {
		ops, err := w.Operators()
		require.NoError(t, err)
		assert.Len(t, ops, 1)
		run(ops)
	}
	assert.Equal(t, []string{"can:meow", "cat"}, tr.list())

	unknown, err := h.Weld("x", "unknown")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	assert.Equal(t, names(team), names(h.Welded("team")))
	assert.Equal(t, []string{"can:meow", "cat"}, h.Members("team"), "a weld doubles as a group")
	assert.Nil(t, h.Welded("nope"))
}

func TestWarehouse_WeldErrors(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()

	_, err := h.Weld("empty")
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	_, err = h.Weld("", "cat")
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestWarehouse_WeldKeepsExistingGroup(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("cat", Func(session), Config{Group: "team"}))
	require.NoError(t, h.Add("dog", Func(session), nil))

	_, err := h.Weld("team", "dog")
	require.NoError(t, err)

	assert.Equal(t, []string{"cat"}, h.Members("team"))
	assert.Equal(t, []string{"dog"}, names(h.Welded("team")))
}

func TestWarehouse_Assemble(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	h := NewWarehouse()
	require.NoError(t, h.Add("late", Single{Name: "late", Fn: tr.handler("late")}, priority.Low))
	require.NoError(t, h.Add("early", Sequence{
		Single{Name: "e1", Fn: tr.handler("e1")},
		Single{Name: "e2", Fn: tr.handler("e2")},
	}, priority.High))

	wares := h.Resolve("late", "early", "late")
	fns, err := h.Assemble(wares)
	require.NoError(t, err)
	require.Len(t, fns, 3)

	run(fns)
	assert.Equal(t, []string{"e1", "e2", "late"}, tr.list())

	_, err = h.Assemble(nil)
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	empty, err := h.Assemble([]*Ware{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWarehouse_AssembleKeepsDistinctUnnamedWares(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	first, err := New(Func(tr.handler("first")), nil)
	require.NoError(t, err)
	second, err := New(Func(tr.handler("second")), nil)
	require.NoError(t, err)

	h := NewWarehouse()
	fns, err := h.Assemble([]*Ware{first, second, first})
	require.NoError(t, err)
	require.Len(t, fns, 2)

	run(fns)
	assert.Equal(t, []string{"first", "second"}, tr.list())

	var coupled []route.HandlerFunc
	require.NoError(t, h.Couple([]*Ware{first, second}, func(fns ...route.HandlerFunc) {
		coupled = append(coupled, fns...)
	}))
	assert.Len(t, coupled, 2)
}

func TestWarehouse_AssembleIsRepeatable(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("one", Func(session), priority.Low))
	require.NoError(t, h.Add("two", Func(session), priority.High))
	require.NoError(t, h.Add("three", Func(session), nil))

	first := names(h.All())
	second := names(h.All())

	assert.Empty(t, cmp.Diff(first, second))
	assert.Equal(t, []string{"two", "three", "one"}, first)

	a, err := h.Assemble(h.All())
	require.NoError(t, err)
	b, err := h.Assemble(h.All())
	require.NoError(t, err)
	assert.Len(t, b, len(a))
}

func TestWarehouse_Prioritize(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("one", Func(session), nil))
	require.NoError(t, h.Add("two", Func(session), nil))

	require.NoError(t, h.Prioritize("two", priority.High))
	assert.Equal(t, []string{"two", "one"}, names(h.All()))

	assert.ErrorIs(t, h.Prioritize("ghost", priority.High), fault.ErrConfiguration)
}

func TestWarehouse_SharedBuilders(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	inject := Builder(func(s Spec, _ *Ware) (Spec, error) {
		if single, ok := s.(Single); ok && single.Name == "placeholder" {
			return Single{Name: "injected", Fn: tr.handler("injected")}, nil
		}
		return s, nil
	})

	h := NewWarehouse()
	require.NoError(t, h.Add("late", Single{Name: "placeholder"}, nil))
	assert.True(t, h.AddBuilder(inject, priority.Low))

	fns, err := h.Assemble(h.Resolve("late"))
	require.NoError(t, err)
	run(fns)
	assert.Equal(t, []string{"injected"}, tr.list())

	other := NewWarehouse(WithBuilder(inject, priority.Low))
	require.NoError(t, other.Add("early", Single{Name: "placeholder"}, nil))
	_, err = other.Assemble(other.Resolve("early"))
	assert.NoError(t, err)
}

func TestWarehouse_Couple(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	require.NoError(t, h.Add("auth", Funcs(session, session), nil))

	var used []route.HandlerFunc
	require.NoError(t, h.Couple(h.Resolve("auth"), func(fns ...route.HandlerFunc) {
		used = append(used, fns...)
	}))
	assert.Len(t, used, 2)

	assert.ErrorIs(t, h.Couple(nil, func(...route.HandlerFunc) {}), fault.ErrConfiguration)
	assert.ErrorIs(t, h.Couple([]*Ware{}, nil), ErrNoConsumer)
}

func TestWarehouse_AddWare(t *testing.T) {
	t.Parallel()

	h := NewWarehouse()
	w, err := New(Func(session), Config{Name: "auth"})
	require.NoError(t, err)

	got, err := h.AddWare(w)
	require.NoError(t, err)
	assert.Same(t, w, got)

	dup, err := New(Func(session), Config{Name: "auth"})
	require.NoError(t, err)
	got, err = h.AddWare(dup)
	require.NoError(t, err)
	assert.Same(t, w, got)

	_, err = h.AddWare(nil)
	assert.ErrorIs(t, err, fault.ErrConfiguration)

	bad, err := New(Func(session), nil)
	require.NoError(t, err)
	_, err = h.AddWare(bad)
	assert.ErrorIs(t, err, ErrIllegalName)
}
