package kv

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"branddna/pkg/utils"
)

// File keeps one JSON file per key below a root directory.
type File struct {
	root string
	mu   sync.Mutex
}

func NewFile(root string) (*File, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &File{root: root}, nil
}

func (f *File) path(key string) string {
	collection, name := split(key)
	return filepath.Join(f.root, collection, name+".json")
}

func (f *File) Exists(_ context.Context, key string) (bool, error) {
	return utils.Exists(f.path(key)), nil
}

func (f *File) ReadJSON(_ context.Context, key string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := utils.Load[json.RawMessage](f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		if err := utils.Save(f.path(key), empty); err != nil {
			return nil, err
		}
		return slices.Clone(empty), nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *File) WriteJSON(_ context.Context, key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return utils.Save(f.path(key), v)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *File) List(_ context.Context, prefix string) ([]string, error) {
	collection, rest := split(prefix)
	entries, err := os.ReadDir(filepath.Join(f.root, collection))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || !strings.HasPrefix(name, rest) {
			continue
		}
		keys = append(keys, collection+"/"+name)
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *File) Close() error { return nil }
