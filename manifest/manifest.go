package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/flagpole/internal/ctxlog"
)

// Binding is the declarative half of a handler binding: trigger flag,
// output key and dependencies by name. The callable half is supplied in Go
// at Apply time.
type Binding struct {
	Name      string
	Flag      string
	Key       string
	DependsOn []string
}

// Profile is a named, reusable flag combination with an optional seed for
// the result structure.
type Profile struct {
	Name  string
	Build []string
	Seed  map[string]any
}

// Manifest is the merged content of one or more manifest files: one flag
// space declaration, binding metadata, and build profiles.
type Manifest struct {
	Flags    []string
	Bindings []*Binding
	Profiles []*Profile
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Spaces   []*spaceBlock   `hcl:"space,block"`
	Bindings []*bindingBlock `hcl:"binding,block"`
	Profiles []*profileBlock `hcl:"profile,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type spaceBlock struct {
	Flags []string `hcl:"flags"`
}

type bindingBlock struct {
	Name      string   `hcl:"name,label"`
	Flag      string   `hcl:"flag"`
	Key       string   `hcl:"key,optional"`
	DependsOn []string `hcl:"depends_on,optional"`
}

type profileBlock struct {
	Name  string     `hcl:"name,label"`
	Build []string   `hcl:"build"`
	Seed  *seedBlock `hcl:"seed,block"`
}

// seedBlock carries arbitrary attributes, decoded separately via
// JustAttributes because the schema is open.
type seedBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Load reads a manifest from a single .hcl file or from every .hcl file
// under a directory, and merges all discovered blocks. Exactly one space
// block must exist across all files; binding and profile names must be
// unique.
func Load(ctx context.Context, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Manifest loader started.", "path", path)

	files, err := findManifestFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl manifest files found at %s", path)
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	m := &Manifest{}
	parser := hclparse.NewParser()
	spaceCount := 0

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest file %s: %w", file, diags)
		}

		for _, sp := range root.Spaces {
			spaceCount++
			if spaceCount > 1 {
				return nil, fmt.Errorf("manifest declares more than one space block (second one in %s)", file)
			}
			m.Flags = sp.Flags
		}
		for _, b := range root.Bindings {
			if m.binding(b.Name) != nil {
				return nil, fmt.Errorf("duplicate binding %q in %s", b.Name, file)
			}
			m.Bindings = append(m.Bindings, &Binding{
				Name:      b.Name,
				Flag:      b.Flag,
				Key:       b.Key,
				DependsOn: b.DependsOn,
			})
		}
		for _, p := range root.Profiles {
			if m.profile(p.Name) != nil {
				return nil, fmt.Errorf("duplicate profile %q in %s", p.Name, file)
			}
			seed, err := decodeSeed(p.Seed)
			if err != nil {
				return nil, fmt.Errorf("in profile %q (%s): %w", p.Name, file, err)
			}
			m.Profiles = append(m.Profiles, &Profile{
				Name:  p.Name,
				Build: p.Build,
				Seed:  seed,
			})
		}
	}

	if spaceCount == 0 {
		return nil, fmt.Errorf("manifest at %s declares no space block", path)
	}

	logger.Debug("Manifest loading complete.",
		"flags", len(m.Flags), "bindings", len(m.Bindings), "profiles", len(m.Profiles))
	return m, nil
}

// decodeSeed converts a seed block's attributes into native Go values.
func decodeSeed(sb *seedBlock) (map[string]any, error) {
	if sb == nil {
		return nil, nil
	}
	attrs, diags := sb.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read seed attributes: %w", diags)
	}
	seed := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate seed attribute %q: %w", name, diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("seed attribute %q: %w", name, err)
		}
		seed[name] = native
	}
	return seed, nil
}

// findManifestFiles resolves a path into a flat list of .hcl files. A file
// path is returned as-is; a directory is walked recursively.
func findManifestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// binding returns the declared binding with the given name, or nil.
func (m *Manifest) binding(name string) *Binding {
	for _, b := range m.Bindings {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// profile returns the declared profile with the given name, or nil.
func (m *Manifest) profile(name string) *Profile {
	for _, p := range m.Profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}
