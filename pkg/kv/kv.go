// Package kv stores JSON documents under slash separated keys.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

var ErrClosed = errors.New("kv: store closed")

// Store is the storage backend for DNA documents. Keys have the form
// "collection/name" as built by Key.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	// ReadJSON returns the stored document. A missing key is initialised
	// to an empty object and that object is returned.
	ReadJSON(ctx context.Context, key string) (json.RawMessage, error)
	WriteJSON(ctx context.Context, key string, v any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

var empty = json.RawMessage("{}")

// Key joins a collection and a natural name into a storage key. The name
// is path-escaped so names containing slashes stay a single segment.
func Key(collection, name string) string {
	return collection + "/" + url.PathEscape(name)
}

// Name recovers the natural name from a key built by Key.
func Name(key string) string {
	_, name, ok := strings.Cut(key, "/")
	if !ok {
		return key
	}
	if n, err := url.PathUnescape(name); err == nil {
		return n
	}
	return name
}

// Prefix is the List prefix for every key in collection.
func Prefix(collection string) string {
	return collection + "/"
}

func split(key string) (collection, name string) {
	collection, name, _ = strings.Cut(key, "/")
	return collection, name
}

func marshal(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
