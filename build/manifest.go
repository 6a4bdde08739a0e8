package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hoistjs/hoist/compiler/modgraph"
	"github.com/hoistjs/hoist/internal/errorList"
)

// ManifestName is the file name FindManifest looks for.
const ManifestName = "hoist.toml"

// Manifest describes a bundle: its output and the modules it is made of.
type Manifest struct {
	// Path is the manifest file, Root the directory relative paths in it
	// are resolved against.
	Path string `toml:"-"`
	Root string `toml:"-"`

	Bundle  BundleConfig      `toml:"bundle"`
	Modules []ModuleConfig    `toml:"module"`
	Renames map[string]string `toml:"renames"`
}

// BundleConfig is the [bundle] table.
type BundleConfig struct {
	Output     string `toml:"output"`
	SourceRoot string `toml:"source_root"`
	// Map enables writing <output>.map. It defaults to true.
	Map *bool `toml:"map"`
}

// ModuleConfig is one [[module]] entry. File holds the module's compiled
// code, already wrapped so that its bindings use the synthetic export names.
// Map is its source map, if any; without one the file is mapped onto Source
// (or onto itself) line by line.
type ModuleConfig struct {
	ID        int            `toml:"id"`
	File      string         `toml:"file"`
	Map       string         `toml:"map"`
	Source    string         `toml:"source"`
	Exports   []string       `toml:"exports"`
	Wildcards []string       `toml:"wildcards"`
	Deps      map[string]int `toml:"deps"`
}

// FindManifest looks for hoist.toml in dir and its parents.
func FindManifest(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found", ManifestName)
		}
		dir = parent
	}
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	path = mustAbs(path)
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	m.Path = path
	m.Root = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	var errs errorList.ErrorList
	if m.Bundle.Output == "" {
		errs = errs.Append(errors.New("bundle.output is required"))
	}
	if len(m.Modules) == 0 {
		errs = errs.Append(errors.New("at least one [[module]] is required"))
	}
	for i, mod := range m.Modules {
		if mod.File == "" {
			errs = errs.Append(fmt.Errorf("module #%d (id %d): file is required", i+1, mod.ID))
		}
	}
	if _, err := m.Graph(); err != nil {
		errs = errs.Append(err)
	}
	return errs.ErrOrNil()
}

// WritesMap reports whether a source map is written next to the bundle.
func (m *Manifest) WritesMap() bool { return m.Bundle.Map == nil || *m.Bundle.Map }

// Resolve returns p relative to the manifest directory.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}

// OutputPath returns the absolute bundle path.
func (m *Manifest) OutputPath() string { return m.Resolve(m.Bundle.Output) }

// Graph returns the module graph the manifest describes.
func (m *Manifest) Graph() (*modgraph.Graph, error) {
	g := &modgraph.Graph{}
	for _, mod := range m.Modules {
		if err := g.Add(&modgraph.Module{
			ID:        mod.ID,
			Deps:      mod.Deps,
			Exports:   mod.Exports,
			Wildcards: mod.Wildcards,
		}); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Files returns every file the bundle is built from, the manifest included,
// sorted.
func (m *Manifest) Files() []string {
	files := []string{m.Path}
	for _, mod := range m.Modules {
		files = append(files, m.Resolve(mod.File))
		if mod.Map != "" {
			files = append(files, m.Resolve(mod.Map))
		}
	}
	sort.Strings(files)
	return files
}
