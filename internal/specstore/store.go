// Package specstore maintains the in-memory representation of every spec
// under the configured root, refreshed on demand or via sync events. It owns
// the per-file cache and builds the specgraph.Graph the rest of the engine
// queries.
package specstore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specio"
	"github.com/mark3labs/specflow/internal/specio/jsonfmt"
	"github.com/mark3labs/specflow/internal/specio/yamlfmt"
	"github.com/mark3labs/specflow/internal/specmodel"
	"golang.org/x/sync/singleflight"
)

type loadResult struct {
	spec     *specmodel.Spec
	warnings []specio.ParseWarning
	err      error
}

// Store is the Spec Store: it loads, caches, and indexes every spec file
// under Root, producing a specgraph.Graph on demand.
type Store struct {
	Root    string
	MaxAge  time.Duration
	formats []specio.Format

	mu    sync.Mutex
	cache *lruCache
	group singleflight.Group
}

// New constructs a Store backed by the default format adapters
// (yamlfmt for markdown + front-matter documents, jsonfmt for plain JSON).
func New(root string, maxCacheEntries int, maxAge time.Duration) *Store {
	return &Store{
		Root:    root,
		MaxAge:  maxAge,
		formats: []specio.Format{yamlfmt.Format{}, jsonfmt.Format{}},
		cache:   newLRUCache(maxCacheEntries),
	}
}

// formatFor returns the Format that claims ext, if any.
func (s *Store) formatFor(ext string) specio.Format {
	for _, f := range s.formats {
		for _, e := range f.SupportedExtensions() {
			if e == ext {
				return f
			}
		}
	}
	return nil
}

// LoadAll walks Root, parses every recognized spec file, and returns the
// resulting Graph. Parse failures are collected into the graph's Errors()
// rather than aborting the walk.
func (s *Store) LoadAll() (*specgraph.Graph, error) {
	var specs []*specmodel.Spec
	var parseErrs []specgraph.ParseError

	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if s.formatFor(filepath.Ext(path)) == nil {
			return nil
		}
		spec, _, loadErr := s.LoadPath(path)
		if loadErr != nil {
			parseErrs = append(parseErrs, specgraph.ParseError{Path: path, Message: loadErr.Error()})
			return nil
		}
		specs = append(specs, spec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.Root, err)
	}

	return specgraph.New(specs, parseErrs), nil
}

// Load looks up a spec by id by scanning Root for a matching file. Callers
// that already know the path should prefer LoadPath.
func (s *Store) Load(specID string) (*specmodel.Spec, []specio.ParseWarning, error) {
	graph, err := s.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	spec, ok := graph.Spec(specID)
	if !ok {
		return nil, nil, fmt.Errorf("spec %s not found under %s", specID, s.Root)
	}
	return spec, nil, nil
}

// LoadPath parses a single file at path, using the per-(path,mtime,size)
// cache when the file is unchanged. Concurrent callers for the same stale
// path coalesce into a single re-parse via singleflight.
func (s *Store) LoadPath(path string) (*specmodel.Spec, []specio.ParseWarning, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	s.mu.Lock()
	if entry, ok := s.cache.Get(path); ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		s.mu.Unlock()
		return entry.value.spec, entry.value.warnings, entry.value.err
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(path, func() (any, error) {
		return s.parse(path, info)
	})
	if err != nil {
		return nil, nil, err
	}
	res := v.(*loadResult)
	return res.spec, res.warnings, res.err
}

func (s *Store) parse(path string, info os.FileInfo) (*loadResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	format := s.formatFor(filepath.Ext(path))
	if format == nil {
		return nil, fmt.Errorf("%s: no format adapter for extension %s", path, filepath.Ext(path))
	}

	spec, warnings, parseErr := format.Parse(content, specio.FileMeta{Path: path, ModTime: info.ModTime(), Size: info.Size()})
	res := &loadResult{spec: spec, warnings: warnings, err: parseErr}

	s.mu.Lock()
	s.cache.Put(&cacheEntry{path: path, modTime: info.ModTime(), size: info.Size(), loadedAt: time.Now(), value: res})
	s.mu.Unlock()

	if parseErr != nil {
		return nil, parseErr
	}
	return res, nil
}

// Invalidate drops the cache entry for path so the next LoadPath re-parses
// it unconditionally.
func (s *Store) Invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(path)
}

// Maintain evicts cache entries older than MaxAge. Callers typically invoke
// this from the health-monitor tick.
func (s *Store) Maintain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Sweep(s.MaxAge, time.Now())
}

// Reflect loads the spec at path, applies mutate to it, and atomically
// rewrites the file with the same format adapter it was parsed with
// (temp file + rename). The cache entry for path is invalidated on success
// so the next LoadPath observes the new mtime.
func (s *Store) Reflect(path string, mutate func(*specmodel.Spec) error) error {
	spec, _, err := s.LoadPath(path)
	if err != nil {
		return fmt.Errorf("loading %s for reflection: %w", path, err)
	}
	if err := mutate(spec); err != nil {
		return err
	}

	format := s.formatFor(filepath.Ext(path))
	if format == nil {
		return fmt.Errorf("%s: no format adapter for extension %s", path, filepath.Ext(path))
	}
	content, err := format.Serialize(spec)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", path, err)
	}

	if err := atomicWrite(path, content); err != nil {
		return err
	}
	s.Invalidate(path)
	return nil
}

// atomicWrite writes content to a temp file in the same directory as path
// and renames it into place, so readers never observe a half-written file.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
