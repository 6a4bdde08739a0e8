package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type CacheableMock struct {
	Data  string
	Lines []int
}

func (m *CacheableMock) Write(encode func(any) error) error {
	if err := encode(m.Data); err != nil {
		return err
	}
	return encode(m.Lines)
}

func (m *CacheableMock) Read(decode func(any) error) error {
	if err := decode(&m.Data); err != nil {
		return err
	}
	return decode(&m.Lines)
}

func TestStore(t *testing.T) {
	cacheForTest(t)

	const name = `src/a.js.map`
	content := []byte(`{"version":3}`)
	want := &CacheableMock{Data: "fake/data", Lines: []int{1, 2, 3}}
	bc := BuildCache{}
	if bc.Load(&CacheableMock{}, name, content) {
		t.Errorf("Got: %s was found in the cache. Want: empty cache.", name)
	}

	if !bc.Store(want, name, content) {
		t.Errorf("Failed to store %s with %q.", name, want.Data)
	}

	got := &CacheableMock{}
	if !bc.Load(got, name, content) {
		t.Errorf("Got: %s was not found in the cache. Want: artifact found.", name)
	} else if diff := cmp.Diff(want, got); len(diff) > 0 {
		t.Errorf("Loaded artifact is different from stored (-want,+got):\n%s", diff)
	}

	// Make sure the file names are a part of the cache key.
	got = &CacheableMock{}
	if bc.Load(got, "src/b.js.map", content) {
		t.Errorf("Got: src/b.js.map was found in cache: %#v. Want: miss for files that weren't cached.", got)
	}
}

func TestContentInvalidation(t *testing.T) {
	cacheForTest(t)

	const name = `src/a.js.map`
	bc := BuildCache{}
	if !bc.Store(&CacheableMock{Data: "old"}, name, []byte("old content")) {
		t.Fatalf("Failed to store %s.", name)
	}
	got := &CacheableMock{}
	if bc.Load(got, name, []byte("new content")) {
		t.Errorf("Got: %q loaded for changed content. Want: content change invalidates cache.", got.Data)
	}
}

func TestVersionInvalidation(t *testing.T) {
	cacheForTest(t)

	const name = `src/a.js.map`
	content := []byte("content")
	cache1 := BuildCache{Version: "1.0.0"}
	cache2 := BuildCache{Version: "1.1.0"}
	if !cache1.Store(&CacheableMock{Data: "data"}, name, content) {
		t.Fatalf("Failed to store cache for cache1: %v", cache1)
	}
	got := &CacheableMock{}
	if cache2.Load(got, name, content) {
		t.Logf("-cache1,+cache2:\n%s", cmp.Diff(cache1, cache2))
		t.Errorf("Got: %v loaded from cache. Want: version change invalidates cache.", got)
	}
}

func TestCorruptedArtifact(t *testing.T) {
	cacheForTest(t)

	const name = `src/a.js.map`
	content := []byte("content")
	bc := BuildCache{}
	if !bc.Store(&CacheableMock{Data: "data"}, name, content) {
		t.Fatalf("Failed to store %s.", name)
	}
	path := cachedPath(bc.artifactKey(name, Digest(content)))
	if err := os.WriteFile(path, []byte("not gzip"), 0o644); err != nil {
		t.Fatalf("Failed to corrupt %s: %v", path, err)
	}
	got := &CacheableMock{}
	if bc.Load(got, name, content) {
		t.Errorf("Got: %v loaded from a corrupted artifact. Want: cache miss.", got)
	}
}

func TestDisabledCache(t *testing.T) {
	cacheForTest(t)

	var bc *BuildCache
	if bc.Store(&CacheableMock{}, "a", nil) {
		t.Errorf("Got: nil cache stored an artifact. Want: caching disabled.")
	}
	if bc.Load(&CacheableMock{}, "a", nil) {
		t.Errorf("Got: nil cache loaded an artifact. Want: caching disabled.")
	}
	entries, err := os.ReadDir(cacheRoot)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", cacheRoot, err)
	}
	if len(entries) != 0 {
		t.Errorf("Got: %d entries in %s. Want: none.", len(entries), filepath.Base(cacheRoot))
	}
}

func cacheForTest(t *testing.T) {
	t.Helper()
	originalRoot := cacheRoot
	t.Cleanup(func() { cacheRoot = originalRoot })
	cacheRoot = t.TempDir()
}
