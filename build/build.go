// Package build assembles bundles: it loads the modules a manifest lists,
// concatenates them, hoists their cross-module references into a single
// scope and writes the result together with its source map.
package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hoistjs/hoist/build/cache"
	"github.com/hoistjs/hoist/compiler/concat"
	"github.com/hoistjs/hoist/compiler/jsast"
	"github.com/hoistjs/hoist/compiler/srcmap"
	"github.com/hoistjs/hoist/internal/sourcemapx"
)

// Wrapper lines put around the concatenated modules, so that the modules
// share one function scope.
const (
	wrapperHead = "(function () {\n"
	wrapperTail = "})();\n"
)

type Options struct {
	// Verbose lists every loaded module. Watch mode implies it.
	Verbose bool
	Watch   bool
	NoCache bool
	// Version is part of the cache keys.
	Version string
}

// Session builds the bundle of one manifest.
type Session struct {
	options      *Options
	manifestPath string
	cache        *cache.BuildCache
	Watcher      *fsnotify.Watcher
}

func NewSession(manifestPath string, options *Options) (*Session, error) {
	options.Verbose = options.Verbose || options.Watch

	s := &Session{
		options:      options,
		manifestPath: mustAbs(manifestPath),
	}
	if !options.NoCache {
		s.cache = &cache.BuildCache{Version: options.Version}
	}
	if options.Watch {
		var err error
		s.Watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to watch for changes: %w", err)
		}
	}
	return s, nil
}

// Result is an assembled bundle.
type Result struct {
	Manifest *Manifest
	Code     string
	// Map is nil when the manifest disables source maps.
	Map *srcmap.Store
}

// asset is a loaded module file.
type asset struct {
	config *ModuleConfig
	code   string
	store  *srcmap.Store
}

// Bundle loads, concatenates and rewrites the modules of the manifest.
func (s *Session) Bundle(ctx context.Context) (*Result, error) {
	start := time.Now()
	m, err := LoadManifest(s.manifestPath)
	if err != nil {
		return nil, err
	}
	s.watch(m)
	graph, err := m.Graph()
	if err != nil {
		return nil, err
	}

	assets, err := s.loadAssets(ctx, m)
	if err != nil {
		return nil, err
	}
	code, store := concatenate(assets)

	f, err := jsast.Parse(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse concatenated modules: %w", err)
	}
	defer f.Close()
	ed, err := concat.Rewrite(f, graph, m.Renames)
	if err != nil {
		return nil, err
	}

	out := &bytes.Buffer{}
	stage := srcmap.NewEmpty()
	input := filepath.Base(m.OutputPath())
	filter := &sourcemapx.Filter{Writer: out}
	if m.WritesMap() {
		filter.MappingCallback = func(line, column int, orig sourcemapx.Pos, name string) {
			mapping := srcmap.Mapping{Generated: srcmap.Position{Line: line, Column: column}}
			if orig.IsValid() {
				mapping.Original = &srcmap.Position{Line: orig.Line, Column: orig.Column}
				mapping.Source = input
				mapping.Name = name
			}
			stage.AddMapping(mapping, 0, 0)
		}
	}
	if err := ed.Fprint(filter, m.WritesMap()); err != nil {
		return nil, err
	}

	res := &Result{Manifest: m, Code: out.String()}
	if m.WritesMap() {
		if res.Map, err = store.Compose(stage); err != nil {
			return nil, fmt.Errorf("failed to map the rewritten bundle: %w", err)
		}
	}
	log.Infof("Bundled %d modules into %q (%v).", len(assets), m.Bundle.Output, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// loadAssets reads every module file and its source map. Files are loaded
// concurrently, each into its own store.
func (s *Session) loadAssets(ctx context.Context, m *Manifest) ([]*asset, error) {
	assets := make([]*asset, len(m.Modules))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range m.Modules {
		mod := &m.Modules[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := s.loadAsset(m, mod)
			if err != nil {
				return err
			}
			assets[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.options.Verbose {
		for _, a := range assets {
			log.Infof("module %d: %s", a.config.ID, a.config.File)
		}
	}
	return assets, nil
}

func (s *Session) loadAsset(m *Manifest, mod *ModuleConfig) (*asset, error) {
	file := m.Resolve(mod.File)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("module %d: %w", mod.ID, err)
	}
	a := &asset{config: mod, code: string(data)}
	if !strings.HasSuffix(a.code, "\n") {
		a.code += "\n"
	}

	if mod.Map == "" {
		name := mod.Source
		if name == "" {
			name = sourceName(m.Root, file)
		}
		a.store = srcmap.NewEmpty().GenerateEmptyMap(name, string(data))
		log.Debugf("Module %d has no source map, mapped onto %q line by line.", mod.ID, name)
		return a, nil
	}

	mapFile := m.Resolve(mod.Map)
	mapData, err := os.ReadFile(mapFile)
	if err != nil {
		return nil, fmt.Errorf("module %d: %w", mod.ID, err)
	}
	a.store, err = decodeMap(s.cache, sourceName(m.Root, mapFile), mapData)
	if err != nil {
		return nil, fmt.Errorf("module %d: %w", mod.ID, err)
	}
	return a, nil
}

// concatenate joins the assets inside the wrapper and merges their stores,
// each shifted to the line its asset starts at. The wrapper lines get
// mappings without an original position.
func concatenate(assets []*asset) (string, *srcmap.Store) {
	var code strings.Builder
	store := srcmap.NewEmpty()

	code.WriteString(wrapperHead)
	store.AddMapping(srcmap.Mapping{Generated: srcmap.Position{Line: 1}}, 0, 0)
	line := 1
	for _, a := range assets {
		// AddMap of a *Store can't fail.
		_ = store.AddMap(a.store, line, 0)
		code.WriteString(a.code)
		line += strings.Count(a.code, "\n")
	}
	code.WriteString(wrapperTail)
	store.AddMapping(srcmap.Mapping{Generated: srcmap.Position{Line: line + 1}}, 0, 0)
	return code.String(), store
}

// Write stores the bundle and, when enabled, its source map next to it.
func (s *Session) Write(res *Result) error {
	output := res.Manifest.OutputPath()
	code := res.Code
	if res.Map != nil {
		mapName := filepath.Base(output) + ".map"
		text, err := res.Map.Stringify(filepath.Base(output), res.Manifest.Bundle.SourceRoot)
		if err != nil {
			return err
		}
		if err := writeFile(output+".map", []byte(text)); err != nil {
			return fmt.Errorf("failed to write source map: %w", err)
		}
		code += "//# sourceMappingURL=" + mapName + "\n"
	}
	if err := writeFile(output, []byte(code)); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	log.Infof("Wrote %q.", output)
	return nil
}

// watch adds the files of the manifest to the watcher, if any.
func (s *Session) watch(m *Manifest) {
	if s.Watcher == nil {
		return
	}
	for _, f := range m.Files() {
		if err := s.Watcher.Add(f); err != nil {
			log.Warningf("Failed to watch %q: %v", f, err)
		}
	}
}

// WaitForChange blocks until one of the watched files changes, then closes
// the watcher. The session must be created in watch mode.
func (s *Session) WaitForChange() {
	defer s.Watcher.Close()
	// Bundle may have failed before it added anything.
	if err := s.Watcher.Add(s.manifestPath); err != nil {
		log.Warningf("Failed to watch %q: %v", s.manifestPath, err)
	}
	log.Info("Watching for changes...")
	for {
		select {
		case ev, ok := <-s.Watcher.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			log.Infof("Change detected: %s", ev.Name)
			return
		case err, ok := <-s.Watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("Watcher error: %v", err)
			return
		}
	}
}
