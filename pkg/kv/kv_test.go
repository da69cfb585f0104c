package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	out := map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": db,
	}

	// The Firestore client talks to the emulator when this is set.
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		fs, err := NewFirestore(context.Background(), fmt.Sprintf("kv-test-%d", time.Now().UnixNano()), "")
		if err != nil {
			t.Fatalf("NewFirestore: %v", err)
		}
		t.Cleanup(func() { fs.Close() })
		out["firestore"] = fs
	}
	return out
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("brands", "Acme/Co")

			ok, err := s.Exists(ctx, key)
			if err != nil || ok {
				t.Fatalf("Exists before write = %v, %v", ok, err)
			}

			doc, err := s.ReadJSON(ctx, key)
			if err != nil {
				t.Fatalf("ReadJSON missing: %v", err)
			}
			var m map[string]any
			if err := json.Unmarshal(doc, &m); err != nil || len(m) != 0 {
				t.Fatalf("missing key should read as {}, got %s", doc)
			}
			if ok, _ := s.Exists(ctx, key); !ok {
				t.Fatal("read-through should create the key")
			}

			if err := s.WriteJSON(ctx, key, map[string]any{"brandName": "Acme/Co"}); err != nil {
				t.Fatalf("WriteJSON: %v", err)
			}
			if err := s.WriteJSON(ctx, Key("brands", "Zeta"), map[string]any{}); err != nil {
				t.Fatalf("WriteJSON: %v", err)
			}
			if err := s.WriteJSON(ctx, Key("creators", "Acme"), map[string]any{}); err != nil {
				t.Fatalf("WriteJSON: %v", err)
			}

			doc, err = s.ReadJSON(ctx, key)
			if err != nil {
				t.Fatalf("ReadJSON: %v", err)
			}
			m = nil
			if err := json.Unmarshal(doc, &m); err != nil || m["brandName"] != "Acme/Co" {
				t.Fatalf("ReadJSON = %s", doc)
			}

			keys, err := s.List(ctx, Prefix("brands"))
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{Key("brands", "Acme/Co"), Key("brands", "Zeta")}
			if !slices.Equal(keys, want) {
				t.Fatalf("List = %v, want %v", keys, want)
			}
			if Name(keys[0]) != "Acme/Co" {
				t.Fatalf("Name(%q) = %q", keys[0], Name(keys[0]))
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if ok, _ := s.Exists(ctx, key); ok {
				t.Fatal("key still exists after delete")
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("second Delete: %v", err)
			}
		})
	}
}
