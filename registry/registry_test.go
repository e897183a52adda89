package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/flagpole/flagspace"
)

func newSpace(t *testing.T, names ...string) *flagspace.Space {
	t.Helper()
	s, err := flagspace.New(names...)
	require.NoError(t, err)
	return s
}

func constant(v any) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (any, error) {
		return v, nil
	}
}

func TestRegister(t *testing.T) {
	t.Run("stores bindings in registration order", func(t *testing.T) {
		space := newSpace(t, "ONE", "TWO")
		reg := New(space)

		require.NoError(t, reg.Register(space.MustValue("ONE"), constant(1), WithKey("one")))
		assert.Equal(t, 1, reg.Len())

		require.NoError(t, reg.Register(space.MustValue("TWO"), constant(2), WithKey("two")))
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("nil handler is rejected", func(t *testing.T) {
		space := newSpace(t, "ONE")
		reg := New(space)

		err := reg.Register(space.MustValue("ONE"), nil)
		var cfgErr *flagspace.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("trigger must be a single declared bit", func(t *testing.T) {
		space := newSpace(t, "ONE", "TWO")
		reg := New(space)

		err := reg.Register(space.All(), constant(nil))
		var cfgErr *flagspace.ConfigError
		assert.ErrorAs(t, err, &cfgErr)

		err = reg.Register(flagspace.None, constant(nil))
		assert.ErrorAs(t, err, &cfgErr)

		err = reg.Register(flagspace.Flag(4), constant(nil))
		var unknownErr *flagspace.UnknownFlagError
		assert.ErrorAs(t, err, &unknownErr)
	})

	t.Run("dependency flags must belong to the space", func(t *testing.T) {
		space := newSpace(t, "ONE")
		reg := New(space)

		err := reg.Register(space.MustValue("ONE"), constant(nil), DependsOn(flagspace.Flag(8)))
		var unknownErr *flagspace.UnknownFlagError
		assert.ErrorAs(t, err, &unknownErr)
	})

	t.Run("re-registering a trigger replaces the previous binding", func(t *testing.T) {
		space := newSpace(t, "ONE", "TWO")
		reg := New(space)

		require.NoError(t, reg.Register(space.MustValue("ONE"), constant("old"), WithKey("value")))
		require.NoError(t, reg.Register(space.MustValue("ONE"), constant("new"), WithKey("value")))
		assert.Equal(t, 1, reg.Len())

		result, err := reg.Build(context.Background(), space.MustValue("ONE"))
		require.NoError(t, err)
		assert.Equal(t, Result{"value": "new"}, result)
	})
}

func TestRegisterMulti(t *testing.T) {
	multi := func(values ...any) MultiHandlerFunc {
		return func(ctx context.Context, inv Invocation) ([]any, error) {
			return values, nil
		}
	}

	t.Run("parallel lists must have equal length", func(t *testing.T) {
		space := newSpace(t, "PETS", "FARM")
		reg := New(space)

		err := reg.RegisterMulti(
			[]flagspace.Flag{space.MustValue("PETS"), space.MustValue("FARM")},
			[]string{"pets"},
			multi("cat", "pig"))
		var cfgErr *flagspace.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.ErrorContains(t, err, "mismatched")
	})

	t.Run("empty flag list is rejected", func(t *testing.T) {
		space := newSpace(t, "PETS")
		reg := New(space)

		err := reg.RegisterMulti(nil, nil, multi())
		var cfgErr *flagspace.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("duplicate trigger within one registration is rejected", func(t *testing.T) {
		space := newSpace(t, "PETS")
		reg := New(space)

		pets := space.MustValue("PETS")
		err := reg.RegisterMulti([]flagspace.Flag{pets, pets}, []string{"a", "b"}, multi("x", "y"))
		var cfgErr *flagspace.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("WithKey is rejected on multi-output bindings", func(t *testing.T) {
		space := newSpace(t, "PETS")
		reg := New(space)

		err := reg.RegisterMulti(
			[]flagspace.Flag{space.MustValue("PETS")},
			[]string{"pets"},
			multi("cat"),
			WithKey("nope"))
		var cfgErr *flagspace.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("one binding serves all of its trigger flags", func(t *testing.T) {
		space := newSpace(t, "PETS", "FARM", "WILD")
		reg := New(space)

		require.NoError(t, reg.RegisterMulti(
			[]flagspace.Flag{space.MustValue("PETS"), space.MustValue("FARM"), space.MustValue("WILD")},
			[]string{"pets", "farm", "wild"},
			multi("cat", "pig", "rhino")))
		assert.Equal(t, 1, reg.Len())

		result, err := reg.Build(context.Background(), space.All())
		require.NoError(t, err)
		assert.Equal(t, Result{"pets": "cat", "farm": "pig", "wild": "rhino"}, result)
	})
}
