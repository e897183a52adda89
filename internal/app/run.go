package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/flagpole/internal/ctxlog"
	"github.com/specialistvlad/flagpole/registry"
)

// Run prints the flag space and, when a profile is configured, its resolved
// execution plan. Handlers live in embedding applications, so nothing is
// executed here; declared bindings are registered with stand-ins purely to
// compute the plan.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.printSpace()

	if a.config.Profile == "" {
		if names := a.manifest.ProfileNames(); len(names) > 0 {
			fmt.Fprintf(a.outW, "\nProfiles: %s\n", strings.Join(names, ", "))
		}
		a.logger.Debug("No profile requested, flag space listing only.")
		return nil
	}

	return a.explainProfile(ctx, a.config.Profile)
}

// printSpace renders the declared flags and their bit values.
func (a *App) printSpace() {
	fmt.Fprintln(a.outW, "Flag space:")
	tw := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	for _, name := range a.space.Names() {
		fmt.Fprintf(tw, "  %s\t%d\n", name, uint64(a.space.MustValue(name)))
	}
	fmt.Fprintf(tw, "  ALL\t%d\n", uint64(a.space.All()))
	tw.Flush()
}

// explainProfile resolves a profile and prints its execution plan.
func (a *App) explainProfile(ctx context.Context, profileName string) error {
	flags, err := a.manifest.Resolve(a.space, profileName)
	if err != nil {
		return err
	}
	a.logger.Debug("Profile resolved.", "profile", profileName, "flags", a.space.Describe(flags))

	// Register the declared bindings with no-op handlers; Plan never calls
	// them.
	reg := registry.New(a.space)
	stubs := make(map[string]registry.HandlerFunc, len(a.manifest.Bindings))
	for _, b := range a.manifest.Bindings {
		stubs[b.Name] = func(ctx context.Context, inv registry.Invocation) (any, error) {
			return registry.Result{}, nil
		}
	}
	if err := a.manifest.Apply(a.space, reg, stubs); err != nil {
		return fmt.Errorf("failed to register manifest bindings: %w", err)
	}

	plan, err := reg.Plan(flags)
	if err != nil {
		return fmt.Errorf("failed to resolve profile %q: %w", profileName, err)
	}

	fmt.Fprintf(a.outW, "\nProfile %q resolves to: %s\n",
		profileName, strings.Join(a.space.Describe(plan.Effective), ", "))

	fmt.Fprintln(a.outW, "\nExecution plan:")
	tw := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	for i, step := range plan.Steps {
		var notes []string
		for _, key := range step.Keys {
			if key != "" {
				notes = append(notes, "-> "+key)
			}
		}
		if len(step.DependsOn) > 0 {
			notes = append(notes, "(depends on "+strings.Join(step.DependsOn, ", ")+")")
		}
		if !step.Requested {
			notes = append(notes, "(pulled in as dependency)")
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\n", i+1, step.Label, strings.Join(notes, " "))
	}
	tw.Flush()

	seed, err := a.manifest.Seed(profileName)
	if err != nil {
		return err
	}
	if len(seed) > 0 {
		fmt.Fprintln(a.outW, "\nSeed:")
		keys := make([]string, 0, len(seed))
		for k := range seed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encoded, err := json.Marshal(seed[k])
			if err != nil {
				return fmt.Errorf("failed to render seed attribute %q: %w", k, err)
			}
			fmt.Fprintf(a.outW, "  %s = %s\n", k, encoded)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
