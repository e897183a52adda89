package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/specialistvlad/flagpole/flagspace"
)

// Result is the open structure a build writes handler outputs into. It is
// either supplied by the caller or created fresh per Build call; the
// registry only writes into it during a single Build invocation.
type Result map[string]any

// Invocation carries the per-call inputs handed to a handler.
type Invocation struct {
	// State is a snapshot of the result structure at call time. It is nil
	// unless the binding declares dependencies or the build was made with
	// PassState. Writes to it are discarded; handlers contribute to the
	// result only through their return values.
	State Result
	// Args are the positional pass-through arguments given to Build.
	Args []any
	// Params are the named pass-through arguments given to Build.
	Params map[string]any
}

// HandlerFunc is the callable behind a single-output binding. Its return
// value is stored under the binding's output key, or merged key-by-key into
// the result when the binding has no key (in which case it must return a
// map).
type HandlerFunc func(ctx context.Context, inv Invocation) (any, error)

// MultiHandlerFunc is the callable behind a multi-output binding. It returns
// one value per registered (flag, key) pair, positionally aligned.
type MultiHandlerFunc func(ctx context.Context, inv Invocation) ([]any, error)

// slot is one (trigger flag, output key) pair of a binding. An empty key
// means the corresponding return value is merged into the result as a map.
type slot struct {
	flag flagspace.Flag
	key  string
}

// binding is a registered association between trigger flags, dependency
// flags, output keys and a callable. Immutable once registered.
type binding struct {
	label string
	slots []slot
	deps  flagspace.Flag

	// Exactly one of single or multi is set, fixed at registration time.
	single HandlerFunc
	multi  MultiHandlerFunc
}

// triggers returns the union of the binding's trigger flags.
func (b *binding) triggers() flagspace.Flag {
	var f flagspace.Flag
	for _, sl := range b.slots {
		f |= sl.flag
	}
	return f
}

// Registry maps capability flags to handler bindings and resolves them into
// an execution order on demand. Registration must happen before any Build;
// the registry itself is never mutated by Build, so concurrent builds are
// safe once registration has stopped. Registration and building must not be
// interleaved without external synchronization.
type Registry struct {
	space    *flagspace.Space
	bindings []*binding
	byFlag   map[flagspace.Flag]*binding
}

// New creates an empty Registry over the given flag space.
func New(space *flagspace.Space) *Registry {
	return &Registry{
		space:  space,
		byFlag: make(map[flagspace.Flag]*binding),
	}
}

// Space returns the flag space this registry was built over.
func (r *Registry) Space() *flagspace.Space {
	return r.space
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	return len(r.bindings)
}

// Option configures a single registration call.
type Option func(*bindConfig)

type bindConfig struct {
	key  string
	deps flagspace.Flag
}

// WithKey sets the output key the binding's return value is stored under.
// Without it, the return value is merged into the result as a map.
func WithKey(key string) Option {
	return func(c *bindConfig) {
		c.key = key
	}
}

// DependsOn declares flags whose bindings must run before this one. The
// given flags may be combinations; the dependency covers every binding
// reachable from their bits.
func DependsOn(flags ...flagspace.Flag) Option {
	return func(c *bindConfig) {
		for _, f := range flags {
			c.deps |= f
		}
	}
}

// Register stores a single-output binding for one trigger flag. Registering
// a flag that already has a binding replaces the previous binding entirely
// and logs a warning; the replacement policy is deliberate so a caller can
// override defaults at setup time.
func (r *Registry) Register(flag flagspace.Flag, fn HandlerFunc, opts ...Option) error {
	if fn == nil {
		return &flagspace.ConfigError{Message: "nil handler"}
	}
	cfg := bindConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &binding{
		slots:  []slot{{flag: flag, key: cfg.key}},
		deps:   cfg.deps,
		single: fn,
	}
	return r.add(b)
}

// RegisterMulti stores a multi-output binding: parallel lists of trigger
// flags and output keys, positionally aligned with the handler's return
// values. An empty string key means "merge that value as a map". The lists
// must have equal, non-zero length.
func (r *Registry) RegisterMulti(flags []flagspace.Flag, keys []string, fn MultiHandlerFunc, opts ...Option) error {
	if fn == nil {
		return &flagspace.ConfigError{Message: "nil handler"}
	}
	if len(flags) == 0 {
		return &flagspace.ConfigError{Message: "multi-output binding requires at least one trigger flag"}
	}
	if len(flags) != len(keys) {
		return &flagspace.ConfigError{Message: fmt.Sprintf("mismatched registration: %d trigger flags but %d output keys", len(flags), len(keys))}
	}
	cfg := bindConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.key != "" {
		return &flagspace.ConfigError{Message: "WithKey is not valid on a multi-output binding; use the keys list"}
	}

	b := &binding{
		deps:  cfg.deps,
		multi: fn,
	}
	seen := make(map[flagspace.Flag]bool, len(flags))
	for i, f := range flags {
		if seen[f] {
			return &flagspace.ConfigError{Message: "duplicate trigger flag within one registration"}
		}
		seen[f] = true
		b.slots = append(b.slots, slot{flag: f, key: keys[i]})
	}
	return r.add(b)
}

// add validates a binding against the space and inserts it, replacing any
// previous bindings on the same trigger flags.
func (r *Registry) add(b *binding) error {
	var names []string
	for _, sl := range b.slots {
		if sl.flag == 0 || sl.flag&(sl.flag-1) != 0 {
			return &flagspace.ConfigError{Message: fmt.Sprintf("trigger flag must be a single bit, got 0x%x", uint64(sl.flag))}
		}
		if !r.space.Contains(sl.flag) {
			return &flagspace.UnknownFlagError{Flag: sl.flag}
		}
		name, _ := r.space.Name(sl.flag)
		names = append(names, name)
	}
	if !r.space.Contains(b.deps) {
		return &flagspace.UnknownFlagError{Flag: b.deps &^ r.space.All()}
	}
	b.label = strings.Join(names, "+")

	for _, sl := range b.slots {
		if prev, exists := r.byFlag[sl.flag]; exists {
			name, _ := r.space.Name(sl.flag)
			slog.Warn("Duplicate binding registration, previous binding will be replaced.",
				"flag", name, "binding", prev.label)
			r.remove(prev)
		}
	}
	r.bindings = append(r.bindings, b)
	for _, sl := range b.slots {
		r.byFlag[sl.flag] = b
	}
	return nil
}

// remove drops a binding and all of its trigger mappings.
func (r *Registry) remove(b *binding) {
	for _, sl := range b.slots {
		if r.byFlag[sl.flag] == b {
			delete(r.byFlag, sl.flag)
		}
	}
	for i, other := range r.bindings {
		if other == b {
			r.bindings = append(r.bindings[:i], r.bindings[i+1:]...)
			return
		}
	}
}
