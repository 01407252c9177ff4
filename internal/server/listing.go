package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Nomadcxx/swipesort/internal/mover"
)

// hidden reports dot-prefixed names, which are never listed
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// listFolders walks root and returns every directory below it as a
// slash-separated relative path, in walk order
func listFolders(m *mover.Mover) ([]string, error) {
	folders := []string{}
	root := m.Root()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			if path != root && d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if hidden(d.Name()) {
			return filepath.SkipDir
		}

		rel, err := m.Relative(path)
		if err != nil {
			return err
		}
		folders = append(folders, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return folders, nil
}

// listFiles returns the regular files directly inside dir, relative to root
func listFiles(m *mover.Mover, dir string) ([]string, error) {
	abs, err := m.Resolve(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	files := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || hidden(e.Name()) {
			continue
		}
		rel, err := m.Relative(filepath.Join(abs, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, rel)
	}

	return files, nil
}

// folderCache memoizes the folder walk until something invalidates it
type folderCache struct {
	mu      sync.Mutex
	mover   *mover.Mover
	folders []string
	valid   bool
}

func newFolderCache(m *mover.Mover) *folderCache {
	return &folderCache{mover: m}
}

func (c *folderCache) Get() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid {
		return c.folders, nil
	}

	folders, err := listFolders(c.mover)
	if err != nil {
		return nil, err
	}
	c.folders = folders
	c.valid = true
	return folders, nil
}

func (c *folderCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
