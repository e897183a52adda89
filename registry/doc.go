// Package registry maps capability flags to handler bindings and executes
// the right bindings, in dependency order, for a requested flag combination.
//
// A binding associates one or more trigger flags with a callable, an
// optional output key per flag, and optional dependency flags naming other
// bindings that must run first. Registration happens once at setup time:
//
//	space, _ := flagspace.New("BASE", "LISTENERS", "RULES")
//	reg := registry.New(space)
//
//	reg.Register(space.MustValue("LISTENERS"), getListeners,
//		registry.WithKey("listeners"))
//	reg.Register(space.MustValue("RULES"), getRules,
//		registry.WithKey("rules"),
//		registry.DependsOn(space.MustValue("LISTENERS")))
//
// Build then selects every binding whose trigger flag is set in the
// requested combination, pulls in dependencies transitively, orders the
// bindings (dependencies first, registration order between unconstrained
// bindings), runs them sequentially and merges their return values into one
// result structure:
//
//	result, err := reg.Build(ctx, space.All(),
//		registry.StartWith(registry.Result{"Arn": "abc"}))
//
// Handlers that declare dependencies receive a snapshot of the result built
// so far via Invocation.State. Cycles among selected bindings abort the
// build with a CycleError before anything executes; handler errors propagate
// to the Build caller unwrapped.
package registry
