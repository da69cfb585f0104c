package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis keeps one hash per collection, field = escaped name.
type Redis struct {
	rdb       *goredis.Client
	namespace string
}

func NewRedis(ctx context.Context, addr, password string, db int, namespace string) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if namespace == "" {
		namespace = "branddna"
	}
	return &Redis{rdb: rdb, namespace: namespace}, nil
}

func (r *Redis) hash(collection string) string {
	return r.namespace + ":" + collection
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	collection, name := split(key)
	return r.rdb.HExists(ctx, r.hash(collection), name).Result()
}

func (r *Redis) ReadJSON(ctx context.Context, key string) (json.RawMessage, error) {
	collection, name := split(key)
	if err := r.rdb.HSetNX(ctx, r.hash(collection), name, string(empty)).Err(); err != nil {
		return nil, err
	}
	value, err := r.rdb.HGet(ctx, r.hash(collection), name).Result()
	if errors.Is(err, goredis.Nil) {
		return slices.Clone(empty), nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

func (r *Redis) WriteJSON(ctx context.Context, key string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	collection, name := split(key)
	return r.rdb.HSet(ctx, r.hash(collection), name, string(data)).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	collection, name := split(key)
	return r.rdb.HDel(ctx, r.hash(collection), name).Err()
}

func (r *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	collection, rest := split(prefix)
	names, err := r.rdb.HKeys(ctx, r.hash(collection)).Result()
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, name := range names {
		if len(name) >= len(rest) && name[:len(rest)] == rest {
			keys = append(keys, collection+"/"+name)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
