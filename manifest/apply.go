package manifest

import (
	"fmt"
	"maps"

	"github.com/specialistvlad/flagpole/flagspace"
	"github.com/specialistvlad/flagpole/registry"
)

// Space realizes the declared flag space.
func (m *Manifest) Space() (*flagspace.Space, error) {
	return flagspace.New(m.Flags...)
}

// ProfileNames lists the declared profiles in declaration order.
func (m *Manifest) ProfileNames() []string {
	names := make([]string, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// Resolve turns a profile's build list into a flag combination. The list
// entries are flag names; the "ALL" and "NONE" aliases are allowed.
func (m *Manifest) Resolve(space *flagspace.Space, profileName string) (flagspace.Flag, error) {
	p := m.profile(profileName)
	if p == nil {
		return flagspace.None, fmt.Errorf("profile %q is not declared in the manifest", profileName)
	}
	return space.Union(p.Build...)
}

// Seed returns a copy of the profile's seed attributes as a result
// structure ready to be passed to StartWith. A profile without a seed
// yields an empty structure.
func (m *Manifest) Seed(profileName string) (registry.Result, error) {
	p := m.profile(profileName)
	if p == nil {
		return nil, fmt.Errorf("profile %q is not declared in the manifest", profileName)
	}
	seed := make(registry.Result, len(p.Seed))
	maps.Copy(seed, p.Seed)
	return seed, nil
}

// Apply registers every declared binding against reg, pairing it with the
// Go handler of the same name. The two sides must match exactly: a binding
// without a handler, or a handler without a binding, is an error. This keeps
// the manifest and the compiled code in sync and fails at setup time rather
// than mid-build.
func (m *Manifest) Apply(space *flagspace.Space, reg *registry.Registry, handlers map[string]registry.HandlerFunc) error {
	for name := range handlers {
		if m.binding(name) == nil {
			return fmt.Errorf("handler %q has no matching binding block in the manifest", name)
		}
	}

	for _, b := range m.Bindings {
		fn, ok := handlers[b.Name]
		if !ok {
			return fmt.Errorf("binding %q has no matching Go handler", b.Name)
		}

		flag, err := space.Value(b.Flag)
		if err != nil {
			return fmt.Errorf("binding %q: %w", b.Name, err)
		}
		deps, err := space.Union(b.DependsOn...)
		if err != nil {
			return fmt.Errorf("binding %q: %w", b.Name, err)
		}

		var opts []registry.Option
		if b.Key != "" {
			opts = append(opts, registry.WithKey(b.Key))
		}
		if deps != flagspace.None {
			opts = append(opts, registry.DependsOn(deps))
		}
		if err := reg.Register(flag, fn, opts...); err != nil {
			return fmt.Errorf("binding %q: %w", b.Name, err)
		}
	}
	return nil
}
