// Package cache provides the read-through memoization store used by the collector.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync/atomic"
)

// Store keeps encoded fetch results by key.
type Store interface {
	Name() string
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
}

// Stats tracks store hits and misses.
type Stats struct {
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func (s *Stats) Hit()  { s.hits.Add(1) }
func (s *Stats) Miss() { s.misses.Add(1) }
func (s *Stats) Set()  { s.sets.Add(1) }

// Snapshot returns hits, misses and sets so far.
func (s *Stats) Snapshot() (hits, misses, sets int64) {
	return s.hits.Load(), s.misses.Load(), s.sets.Load()
}

// Encode serializes a cached value. Gob carries NaN floats, which price rows use for absent columns.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes into v, which must be a pointer.
func Decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
