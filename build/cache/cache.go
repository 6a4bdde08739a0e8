// Package cache keeps decoded source maps of bundle assets on disk, so that
// rebuilding a bundle only decodes the maps that actually changed.
package cache

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion is part of every cache key. Bump it when the layout of cached
// artifacts changes.
const schemaVersion = 1

// Cacheable defines methods to serialize and deserialize cachable objects.
//
// The encode and decode functions wrap msgpack.Encoder.Encode and
// msgpack.Decoder.Decode, values are written and read in the same order.
type Cacheable interface {
	Write(encode func(any) error) error
	Read(decode func(any) error) error
}

// Cache defines methods to store and load cacheable objects.
type Cache interface {
	// Store saves the artifact derived from the given content of the named
	// file. Any error inside this method will cause the cache not to be
	// persisted.
	Store(c Cacheable, name string, content []byte) bool

	// Load reads an artifact previously stored for exactly the same name
	// and content.
	Load(c Cacheable, name string, content []byte) bool
}

// cacheRoot is the base path of the cache.
var cacheRoot = func() string {
	path, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(path, "hoist", "build_cache")
	}
	return filepath.Join(os.TempDir(), "hoist_build_cache")
}()

// cachedPath returns a location inside the build cache for a given set of key
// strings. The set of keys must uniquely identify cacheable object.
func cachedPath(keys ...string) string {
	key := path.Join(keys...)
	if key == "" {
		panic("cachedPath() must not be used with an empty string")
	}
	sum := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
	return filepath.Join(cacheRoot, sum[0:2], sum)
}

// Digest returns the hex encoded SHA-256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Clear the cache. This will remove *all* cached artifacts of all versions.
func Clear() error {
	return os.RemoveAll(cacheRoot)
}

var _ Cache = (*BuildCache)(nil)

// BuildCache manages decoded artifacts that are cached for incremental builds.
//
// Cache is designed to be non-durable: any store and load errors are swallowed
// and simply lead to a cache miss. The caller must be able to handle cache
// misses. Nil pointer to BuildCache is valid and simply disables caching.
//
// Artifacts are keyed by the file name and a digest of the content they were
// derived from, so a changed file is never served from the cache. The cached
// files are gzip compressed, therefore each file uses the gzip checksum as a
// basic integrity check performed after reading the file.
//
// There is no upper limit for the total cache size. It can be cleared
// programmatically via the Clear() function, or the user can just delete the
// directory if it grows too big.
type BuildCache struct {
	// Version should be set to the version of the tool, artifacts produced
	// by another version are never reused.
	Version string
}

func (bc BuildCache) String() string {
	return fmt.Sprintf("%#v", bc)
}

func (bc *BuildCache) Store(c Cacheable, name string, content []byte) bool {
	if bc == nil {
		return false // Caching is disabled.
	}

	start := time.Now()
	digest := Digest(content)
	path := cachedPath(bc.artifactKey(name, digest))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		log.Warningf("Failed to create build cache directory: %v", err)
		return false
	}
	// Write the artifact in a temporary file first to avoid concurrency errors.
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		log.Warningf("Failed to create temporary build cache file: %v", err)
		return false
	}
	defer f.Close()
	if err := bc.serialize(c, digest, f); err != nil {
		log.Warningf("Failed to write build cache artifact for %q: %v", name, err)
		// Make sure we don't leave a half-written artifact behind.
		os.Remove(f.Name())
		return false
	}
	f.Close()
	// Rename fully written file into its permanent name.
	if err := os.Rename(f.Name(), path); err != nil {
		log.Warningf("Failed to rename build cache artifact for %q to %q: %v", name, path, err)
		return false
	}
	dur := time.Since(start).Round(time.Millisecond)
	log.Infof("Successfully stored build artifact for %q as %q (%v).", name, path, dur)
	return true
}

func (bc *BuildCache) Load(c Cacheable, name string, content []byte) bool {
	if bc == nil {
		return false // Caching is disabled.
	}

	start := time.Now()
	digest := Digest(content)
	path := cachedPath(bc.artifactKey(name, digest))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("No cached artifact for %q at %q.", name, path)
		} else {
			log.Warningf("Failed to open cached artifact for %q at %q: %v", name, path, err)
		}
		return false // Cache miss.
	}
	defer f.Close()
	if err := bc.deserialize(c, digest, f); err != nil {
		log.Warningf("Failed to read cached artifact for %q at %q: %v", name, path, err)
		return false // Invalid/corrupted artifact, cache miss.
	}
	dur := time.Since(start).Round(time.Millisecond)
	log.Infof("Found cached artifact for %q (%v).", name, dur)
	return true
}

func (bc *BuildCache) serialize(c Cacheable, digest string, w io.Writer) (err error) {
	zw := gzip.NewWriter(w)
	defer func() {
		// This close flushes the gzip but does not close the given writer.
		if closeErr := zw.Close(); err == nil {
			err = closeErr
		}
	}()

	enc := msgpack.NewEncoder(zw)
	if err := enc.Encode(digest); err != nil {
		return err
	}
	return c.Write(enc.Encode)
}

// deserialize decodes into a scratch buffer first, so that c is only filled
// from an artifact whose gzip checksum verified.
func (bc *BuildCache) deserialize(c Cacheable, digest string, r io.Reader) (err error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		return err
	}
	if err := zr.Close(); err != nil {
		return err
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var stored string
	if err := dec.Decode(&stored); err != nil {
		return err
	}
	if stored != digest {
		return fmt.Errorf("artifact digest %s doesn't match content digest %s", stored, digest)
	}
	return c.Read(dec.Decode)
}

// commonKey returns a part of the cache key common for all artifacts generated
// under a given BuildCache configuration.
func (bc *BuildCache) commonKey() string {
	type commonKey struct {
		Schema  int
		Version string
	}
	return fmt.Sprintf("%#v", commonKey{Schema: schemaVersion, Version: bc.Version})
}

// artifactKey returns a full cache key for the artifact of a file.
func (bc *BuildCache) artifactKey(name, digest string) string {
	return path.Join("artifact", bc.commonKey(), name, digest)
}
