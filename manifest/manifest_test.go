package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/flagpole/flagspace"
	"github.com/specialistvlad/flagpole/registry"
)

const albManifest = `
space {
  flags = ["BASE", "LISTENERS", "RULES"]
}

binding "base" {
  flag = "BASE"
}

binding "listeners" {
  flag = "LISTENERS"
  key  = "listeners"
}

binding "rules" {
  flag       = "RULES"
  key        = "rules"
  depends_on = ["LISTENERS"]
}

profile "everything" {
  build = ["ALL"]
  seed {
    Arn     = "abc"
    retries = 3
    dry_run = false
    tags    = ["alpha", "beta"]
    owner   = { team = "infra" }
  }
}

profile "rules_only" {
  build = ["RULES"]
}
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadALB(t *testing.T) *Manifest {
	t.Helper()
	m, err := Load(context.Background(), writeManifest(t, "alb.hcl", albManifest))
	require.NoError(t, err)
	return m
}

func TestLoad(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		m := loadALB(t)
		assert.Equal(t, []string{"BASE", "LISTENERS", "RULES"}, m.Flags)
		require.Len(t, m.Bindings, 3)
		assert.Equal(t, []string{"everything", "rules_only"}, m.ProfileNames())
	})

	t.Run("directory merges all files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "space.hcl"), []byte(`
space {
  flags = ["A", "B"]
}
`), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bindings.hcl"), []byte(`
binding "a" {
  flag = "A"
  key  = "a"
}
`), 0o644))

		m, err := Load(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, m.Flags)
		assert.Len(t, m.Bindings, 1)
	})

	t.Run("seed attributes convert to native Go values", func(t *testing.T) {
		m := loadALB(t)
		seed, err := m.Seed("everything")
		require.NoError(t, err)

		assert.Equal(t, "abc", seed["Arn"])
		assert.Equal(t, float64(3), seed["retries"])
		assert.Equal(t, false, seed["dry_run"])
		assert.Equal(t, []any{"alpha", "beta"}, seed["tags"])
		assert.Equal(t, map[string]any{"team": "infra"}, seed["owner"])
	})

	t.Run("error cases", func(t *testing.T) {
		_, err := Load(context.Background(), writeManifest(t, "m.hcl", `binding "a" { flag = "A" }`))
		assert.ErrorContains(t, err, "no space block")

		_, err = Load(context.Background(), writeManifest(t, "m.hcl", `
space { flags = ["A"] }
space { flags = ["B"] }
`))
		assert.ErrorContains(t, err, "more than one space")

		_, err = Load(context.Background(), writeManifest(t, "m.hcl", `
space { flags = ["A"] }
binding "a" { flag = "A" }
binding "a" { flag = "A" }
`))
		assert.ErrorContains(t, err, `duplicate binding "a"`)

		_, err = Load(context.Background(), writeManifest(t, "m.hcl", `this is not hcl {{{`))
		assert.ErrorContains(t, err, "failed to parse")

		_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))
		assert.ErrorContains(t, err, "error accessing path")
	})
}

func TestResolve(t *testing.T) {
	m := loadALB(t)
	space, err := m.Space()
	require.NoError(t, err)

	all, err := m.Resolve(space, "everything")
	require.NoError(t, err)
	assert.Equal(t, space.All(), all)

	rules, err := m.Resolve(space, "rules_only")
	require.NoError(t, err)
	assert.Equal(t, space.MustValue("RULES"), rules)

	_, err = m.Resolve(space, "missing")
	assert.ErrorContains(t, err, "not declared")
}

func TestApply(t *testing.T) {
	handlerSet := func(space *flagspace.Space) map[string]registry.HandlerFunc {
		return map[string]registry.HandlerFunc{
			"base": func(ctx context.Context, inv registry.Invocation) (any, error) {
				return map[string]any{"region": "us-east-1", "_version": 1}, nil
			},
			"listeners": func(ctx context.Context, inv registry.Invocation) (any, error) {
				return []map[string]any{{"ListenerArn": "x"}}, nil
			},
			"rules": func(ctx context.Context, inv registry.Invocation) (any, error) {
				require.Contains(t, inv.State, "listeners")
				return []map[string]any{{"rule": "y"}}, nil
			},
		}
	}

	t.Run("end to end build from a manifest", func(t *testing.T) {
		m := loadALB(t)
		space, err := m.Space()
		require.NoError(t, err)

		reg := registry.New(space)
		require.NoError(t, m.Apply(space, reg, handlerSet(space)))

		flags, err := m.Resolve(space, "everything")
		require.NoError(t, err)
		seed, err := m.Seed("everything")
		require.NoError(t, err)

		result, err := reg.Build(context.Background(), flags, registry.StartWith(seed))
		require.NoError(t, err)

		assert.Equal(t, "abc", result["Arn"])
		assert.Equal(t, "us-east-1", result["region"])
		assert.Equal(t, []map[string]any{{"ListenerArn": "x"}}, result["listeners"])
		assert.Equal(t, []map[string]any{{"rule": "y"}}, result["rules"])
	})

	t.Run("binding without a handler is an error", func(t *testing.T) {
		m := loadALB(t)
		space, err := m.Space()
		require.NoError(t, err)

		handlers := handlerSet(space)
		delete(handlers, "rules")
		err = m.Apply(space, registry.New(space), handlers)
		assert.ErrorContains(t, err, `binding "rules" has no matching Go handler`)
	})

	t.Run("handler without a binding is an error", func(t *testing.T) {
		m := loadALB(t)
		space, err := m.Space()
		require.NoError(t, err)

		handlers := handlerSet(space)
		handlers["stray"] = handlers["base"]
		err = m.Apply(space, registry.New(space), handlers)
		assert.ErrorContains(t, err, `handler "stray" has no matching binding`)
	})

	t.Run("binding naming an unknown flag is an error", func(t *testing.T) {
		m, err := Load(context.Background(), writeManifest(t, "m.hcl", `
space { flags = ["A"] }
binding "a" { flag = "MISSING" }
`))
		require.NoError(t, err)
		space, err := m.Space()
		require.NoError(t, err)

		err = m.Apply(space, registry.New(space), map[string]registry.HandlerFunc{
			"a": func(ctx context.Context, inv registry.Invocation) (any, error) { return nil, nil },
		})
		var unknownErr *flagspace.UnknownFlagError
		assert.ErrorAs(t, err, &unknownErr)
	})
}
