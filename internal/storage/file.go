package storage

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/gunerr"
)

// File is a one-file-per-soul persistent store with an in-memory read
// cache, loaded eagerly at startup. Grounded on
// original_source/src/storage.rs LocalStorage: URL-encoded filenames,
// atomic write-then-rename, synchronous writes matching browser
// localStorage semantics.
type File struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*graph.Node
}

// NewFile opens (creating if absent) a directory-backed store and loads
// every existing soul file into the read cache.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.NewFile", err)
	}
	f := &File{dir: dir, cache: make(map[string]*graph.Node)}
	if err := f.loadAll(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) loadAll() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.File.loadAll", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".tmp" {
			continue
		}
		soul, err := url.QueryUnescape(name)
		if err != nil {
			soul = name
		}
		node, err := f.loadFile(name)
		if err != nil {
			continue
		}
		f.cache[soul] = node
	}
	return nil
}

func (f *File) loadFile(filename string) (*graph.Node, error) {
	b, err := os.ReadFile(filepath.Join(f.dir, filename))
	if err != nil {
		return nil, err
	}
	n := &graph.Node{}
	if err := json.Unmarshal(b, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (f *File) filename(soul string) string {
	return url.QueryEscape(soul)
}

func (f *File) Get(soul string) (*graph.Node, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.cache[soul]
	if !ok {
		return nil, gunerr.New(gunerr.KindNotFound, "storage.File.Get", "soul not found: "+soul)
	}
	return n.Clone(), nil
}

// Put writes node to disk atomically (temp file + rename) and updates the
// cache, matching LocalStorage's synchronous write-through behavior.
func (f *File) Put(soul string, node *graph.Node) error {
	b, err := json.Marshal(node)
	if err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.File.Put", err)
	}

	path := filepath.Join(f.dir, f.filename(soul))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.File.Put", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.File.Put", fmt.Errorf("rename: %w", err))
	}

	f.mu.Lock()
	f.cache[soul] = node.Clone()
	f.mu.Unlock()
	return nil
}

func (f *File) Has(soul string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.cache[soul]
	return ok, nil
}
