package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/specialistvlad/flagpole/flagspace"
	"github.com/specialistvlad/flagpole/internal/ctxlog"
	"github.com/specialistvlad/flagpole/internal/dag"
)

// BuildOption configures a single Build call.
type BuildOption func(*buildConfig)

type buildConfig struct {
	start     Result
	args      []any
	params    map[string]any
	passState bool
}

// StartWith supplies the result structure for the build to mutate in place.
// Without it, Build creates a fresh one.
func StartWith(r Result) BuildOption {
	return func(c *buildConfig) {
		c.start = r
	}
}

// WithArgs sets positional pass-through arguments handed to every handler.
func WithArgs(args ...any) BuildOption {
	return func(c *buildConfig) {
		c.args = args
	}
}

// WithParams sets named pass-through arguments handed to every handler.
func WithParams(params map[string]any) BuildOption {
	return func(c *buildConfig) {
		c.params = params
	}
}

// PassState hands every handler a snapshot of the result structure, not just
// the handlers that declare dependencies.
func PassState() BuildOption {
	return func(c *buildConfig) {
		c.passState = true
	}
}

// Step describes one entry of a resolved execution plan.
type Step struct {
	// Label identifies the binding by its trigger flag names.
	Label string
	// Flags are the binding's trigger flag names.
	Flags []string
	// Keys are the binding's output keys, aligned with Flags. An empty key
	// means that slot merges its value into the result as a map.
	Keys []string
	// DependsOn names the flags the binding waits for.
	DependsOn []string
	// Requested is false when the binding was not part of the requested
	// combination and was pulled in as a dependency.
	Requested bool
}

// Plan is the outcome of resolving a requested flag combination without
// executing anything.
type Plan struct {
	// Requested is the combination the caller asked for.
	Requested flagspace.Flag
	// Effective is Requested plus every transitively pulled-in dependency.
	Effective flagspace.Flag
	// Steps lists the selected bindings in execution order.
	Steps []Step
}

// Plan resolves a requested flag combination into an execution order:
// selection, transitive dependency pull-in, cycle detection and ordering,
// with no handler execution. Build runs the same resolution, so a Plan that
// succeeds describes exactly what Build would do.
func (r *Registry) Plan(requested flagspace.Flag) (*Plan, error) {
	ordered, effective, err := r.resolve(requested)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Requested: requested,
		Effective: effective,
	}
	for _, b := range ordered {
		step := Step{
			Label:     b.label,
			DependsOn: r.space.Describe(b.deps),
			Requested: b.triggers()&requested != 0,
		}
		for _, sl := range b.slots {
			name, _ := r.space.Name(sl.flag)
			step.Flags = append(step.Flags, name)
			step.Keys = append(step.Keys, sl.key)
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

// Build resolves the requested flag combination and executes the selected
// bindings sequentially on the calling goroutine, merging their outputs into
// one result structure, which it returns.
//
// Resolution errors (UnknownFlagError, CycleError) surface before any
// handler runs. Handler errors propagate unwrapped; bindings that already
// ran have already written into the result, so a caller-supplied StartWith
// structure may be partially mutated in that case.
func (r *Registry) Build(ctx context.Context, requested flagspace.Flag, opts ...BuildOption) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ordered, effective, err := r.resolve(requested)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build resolution complete.",
		"requested", r.space.Describe(requested),
		"effective", r.space.Describe(effective),
		"bindings", len(ordered))

	result := cfg.start
	if result == nil {
		result = make(Result)
	}

	for _, b := range ordered {
		inv := Invocation{Args: cfg.args, Params: cfg.params}
		// Dependents read their dependencies' outputs, so they always get
		// the state snapshot even when the caller did not ask for it.
		if cfg.passState || b.deps != 0 {
			inv.State = maps.Clone(result)
		}

		logger.Debug("Executing binding.", "binding", b.label)
		if b.multi != nil {
			values, err := b.multi(ctx, inv)
			if err != nil {
				return nil, err
			}
			if len(values) != len(b.slots) {
				return nil, fmt.Errorf("binding %s returned %d values, want %d", b.label, len(values), len(b.slots))
			}
			for i, sl := range b.slots {
				// A slot whose flag was neither requested nor pulled in as
				// a dependency contributes nothing, even though the handler
				// returned a value for it.
				if sl.flag&effective == 0 {
					continue
				}
				if err := merge(result, b, sl, values[i]); err != nil {
					return nil, err
				}
			}
		} else {
			value, err := b.single(ctx, inv)
			if err != nil {
				return nil, err
			}
			if err := merge(result, b, b.slots[0], value); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// merge writes one return value into the result. Keyed slots store under
// their key; keyless slots require a map and merge it entry by entry. Both
// overwrite existing entries, so write order (= execution order) decides
// collisions.
func merge(result Result, b *binding, sl slot, value any) error {
	if sl.key != "" {
		result[sl.key] = value
		return nil
	}
	switch m := value.(type) {
	case Result:
		for k, v := range m {
			result[k] = v
		}
	case map[string]any:
		for k, v := range m {
			result[k] = v
		}
	default:
		return fmt.Errorf("binding %s has no output key and must return a map, got %T", b.label, value)
	}
	return nil
}

// resolve selects the bindings triggered by the requested combination, pulls
// in transitive dependencies, validates the dependency graph and returns the
// bindings in execution order together with the effective flag combination.
func (r *Registry) resolve(requested flagspace.Flag) ([]*binding, flagspace.Flag, error) {
	// Expand the requested combination until no selected binding adds new
	// dependency bits. A dependency must run before its dependents even if
	// the caller did not ask for it.
	effective := requested
	for {
		next := effective
		for _, b := range r.bindings {
			if b.triggers()&next != 0 {
				next |= b.deps
			}
		}
		if next == effective {
			break
		}
		effective = next
	}

	// All registered trigger bits, to tell "not selected" from "not known".
	var known flagspace.Flag
	for _, b := range r.bindings {
		known |= b.triggers()
	}

	var selected []*binding
	for _, b := range r.bindings {
		if b.triggers()&effective == 0 {
			continue
		}
		if missing := b.deps &^ known; missing != 0 {
			return nil, 0, &flagspace.UnknownFlagError{Flag: missing}
		}
		selected = append(selected, b)
	}

	graph := dag.New()
	for _, b := range selected {
		graph.AddNode(b.label)
	}
	for _, b := range selected {
		for _, dep := range r.dependenciesOf(b) {
			if dep == b {
				return nil, 0, &CycleError{Flags: []string{b.label, b.label}}
			}
			if err := graph.AddEdge(dep.label, b.label); err != nil {
				return nil, 0, translateCycle(err)
			}
		}
	}

	if err := graph.DetectCycles(); err != nil {
		return nil, 0, translateCycle(err)
	}
	order, err := graph.TopoSort()
	if err != nil {
		return nil, 0, translateCycle(err)
	}

	byLabel := make(map[string]*binding, len(selected))
	for _, b := range selected {
		byLabel[b.label] = b
	}
	ordered := make([]*binding, 0, len(order))
	for _, label := range order {
		ordered = append(ordered, byLabel[label])
	}
	return ordered, effective, nil
}

// dependenciesOf lists the bindings covered by b's dependency flags, in
// registration order.
func (r *Registry) dependenciesOf(b *binding) []*binding {
	if b.deps == 0 {
		return nil
	}
	var deps []*binding
	for _, other := range r.bindings {
		if other.triggers()&b.deps != 0 {
			deps = append(deps, other)
		}
	}
	return deps
}

// translateCycle converts a graph-level cycle into the registry's error
// type; other graph errors pass through unchanged.
func translateCycle(err error) error {
	var cycleErr *dag.CycleError
	if errors.As(err, &cycleErr) {
		return &CycleError{Flags: cycleErr.Path}
	}
	return err
}
