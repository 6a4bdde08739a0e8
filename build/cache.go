package build

import (
	"fmt"

	"github.com/hoistjs/hoist/build/cache"
	"github.com/hoistjs/hoist/compiler/srcmap"
)

// mapArtifact is the cacheable form of a decoded asset source map.
type mapArtifact struct {
	store *srcmap.Store
}

var _ cache.Cacheable = (*mapArtifact)(nil)

func (a *mapArtifact) Write(encode func(any) error) error {
	sources := a.store.Sources()
	contents := make([]*string, len(sources))
	for i, src := range sources {
		if content, ok := a.store.SourceContentFor(src); ok {
			contents[i] = &content
		}
	}
	if err := encode(a.store.Mappings()); err != nil {
		return err
	}
	if err := encode(sources); err != nil {
		return err
	}
	return encode(contents)
}

func (a *mapArtifact) Read(decode func(any) error) error {
	var (
		mappings []srcmap.Mapping
		sources  []string
		contents []*string
	)
	if err := decode(&mappings); err != nil {
		return err
	}
	if err := decode(&sources); err != nil {
		return err
	}
	if err := decode(&contents); err != nil {
		return err
	}
	if len(contents) != len(sources) {
		return fmt.Errorf("cached map has %d sources but %d contents", len(sources), len(contents))
	}

	list := make([]*srcmap.Mapping, len(mappings))
	for i := range mappings {
		list[i] = &mappings[i]
	}
	table := make(map[string]*string, len(sources))
	for i, src := range sources {
		table[src] = contents[i]
	}
	store, err := srcmap.New(list, table)
	if err != nil {
		return fmt.Errorf("invalid cached map: %w", err)
	}
	a.store = store
	return nil
}

// decodeMap returns the decoded store for the serialized map data read from
// name, going through the cache when one is configured.
func decodeMap(bc *cache.BuildCache, name string, data []byte) (*srcmap.Store, error) {
	artifact := &mapArtifact{}
	if bc.Load(artifact, name, data) {
		return artifact.store, nil
	}
	store := srcmap.NewEmpty()
	if err := store.AddMap(srcmap.EncodedText(data), 0, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	artifact.store = store
	bc.Store(artifact, name, data)
	return store, nil
}
