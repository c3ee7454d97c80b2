// Package rediscache stores station lookups in Redis so several API and
// worker instances share one warm cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/airwatch/airwatch/internal/airquality"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second

	// DefaultPrefix namespaces station keys.
	DefaultPrefix = "airwatch:stations:"
)

// NewClient returns a configured go-redis client and validates the
// connection with PING.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return client, nil
}

// Store is a Redis-backed airquality.Cache.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore returns a store writing keys under prefix (DefaultPrefix if empty).
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get returns cached stations. A missing key is not an error.
func (s *Store) Get(ctx context.Context, key string) ([]*airquality.Station, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stations []*airquality.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, false, fmt.Errorf("decode cached stations: %w", err)
	}
	return stations, true, nil
}

// Set caches stations for ttl.
func (s *Store) Set(ctx context.Context, key string, stations []*airquality.Station, ttl time.Duration) error {
	data, err := json.Marshal(stations)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, ttl).Err()
}

// Delete removes a cached lookup.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
