package kv

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore keeps one document per key. The key's collection is the
// Firestore collection and the escaped name is the document ID.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, project, database string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, project, cmp.Or(database, firestore.DefaultDatabaseID), opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) doc(key string) *firestore.DocumentRef {
	collection, name := split(key)
	return f.client.Collection(collection).Doc(name)
}

func (f *Firestore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := f.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return err == nil, err
}

func (f *Firestore) ReadJSON(ctx context.Context, key string) (json.RawMessage, error) {
	ref := f.doc(key)
	if _, err := ref.Create(ctx, map[string]any{}); err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return slices.Clone(empty), nil
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap.Data())
}

// WriteJSON stores v as native Firestore fields so documents stay
// readable in the console.
func (f *Firestore) WriteJSON(ctx context.Context, key string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("firestore documents must be JSON objects: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	_, err = f.doc(key).Set(ctx, fields)
	return err
}

func (f *Firestore) Delete(ctx context.Context, key string) error {
	_, err := f.doc(key).Delete(ctx)
	return err
}

func (f *Firestore) List(ctx context.Context, prefix string) ([]string, error) {
	collection, rest := split(prefix)
	it := f.client.Collection(collection).DocumentRefs(ctx)
	var keys []string
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(ref.ID, rest) {
			keys = append(keys, collection+"/"+ref.ID)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *Firestore) Close() error { return f.client.Close() }
