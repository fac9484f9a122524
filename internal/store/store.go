// Package store persists the resolved speech resource and reading
// bookmarks as JSON files under the user's data directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"

	"github.com/kittycrypto-gg/readaloud/speak/region"
)

const (
	resourceFile = "speech_resource.json"
	bookmarkFile = "bookmarks.json"
)

// DefaultDir returns the per-user data directory for persisted state.
func DefaultDir() (string, error) {
	scope := gap.NewScope(gap.User, "readaloud")
	dir, err := scope.DataPath("")
	if err != nil {
		return "", fmt.Errorf("store: resolve data dir: %w", err)
	}
	return dir, nil
}

// writeJSON marshals v and atomically replaces path with it.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".store-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("store: parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// ResourceStore keeps the most recently confirmed region for each
// credential so later sessions skip probing.
type ResourceStore struct {
	path string
}

// NewResourceStore creates a store rooted at dir.
func NewResourceStore(dir string) *ResourceStore {
	return &ResourceStore{path: filepath.Join(dir, resourceFile)}
}

// Load returns the saved resource. The second result is false when nothing
// has been saved yet.
func (s *ResourceStore) Load() (region.Resource, bool, error) {
	var res region.Resource
	ok, err := readJSON(s.path, &res)
	if err != nil || !ok {
		return region.Resource{}, false, err
	}
	return res, true, nil
}

// Save replaces the stored resource.
func (s *ResourceStore) Save(res region.Resource) error {
	return writeJSON(s.path, res)
}

// Clear removes the stored resource. Missing file is not an error.
func (s *ResourceStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: clear resource: %w", err)
	}
	return nil
}

// Bookmark records where reading stopped in one document.
type Bookmark struct {
	ParagraphID string `json:"paragraph_id"`
	Index       int    `json:"index"`
}

// BookmarkStore maps document keys to bookmarks in a single JSON file.
type BookmarkStore struct {
	path string
}

// NewBookmarkStore creates a store rooted at dir.
func NewBookmarkStore(dir string) *BookmarkStore {
	return &BookmarkStore{path: filepath.Join(dir, bookmarkFile)}
}

func (s *BookmarkStore) load() (map[string]Bookmark, error) {
	marks := make(map[string]Bookmark)
	if _, err := readJSON(s.path, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

// Load returns the bookmark for a document key, or nil when none exists.
func (s *BookmarkStore) Load(key string) (*Bookmark, error) {
	marks, err := s.load()
	if err != nil {
		return nil, err
	}
	mark, ok := marks[key]
	if !ok {
		return nil, nil
	}
	return &mark, nil
}

// Save records the bookmark for a document key.
func (s *BookmarkStore) Save(key string, mark Bookmark) error {
	marks, err := s.load()
	if err != nil {
		return err
	}
	marks[key] = mark
	return writeJSON(s.path, marks)
}

// Clear drops the bookmark for a document key.
func (s *BookmarkStore) Clear(key string) error {
	marks, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := marks[key]; !ok {
		return nil
	}
	delete(marks, key)
	return writeJSON(s.path, marks)
}
