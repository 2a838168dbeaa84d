// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package domaincache

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultShards is the number of independently locked shards of a [Memory]
// cache, unless overridden using [WithShards].
const DefaultShards = 32

// Memory is an in-process domain verdict cache. It is split into shards, each
// with its own lock, so that concurrent workers looking up different domains
// rarely contend for the same lock.
//
// By default, verdicts are retained for the lifetime of the cache without any
// size limit.
type Memory struct {
	ttl      time.Duration
	capacity uint64 // in total; 0 means unlimited.
	nshards  int
	shards   []*ttlcache.Cache[string, Verdict]
	expiring bool // true if shards run their background expiration.
}

var _ Cache = (*Memory)(nil)

// MemoryOption can be passed to NewMemory when creating new [Memory] caches.
type MemoryOption func(*Memory)

// NewMemory returns a new in-process domain verdict cache.
func NewMemory(options ...MemoryOption) *Memory {
	m := &Memory{
		ttl:     ttlcache.NoTTL,
		nshards: DefaultShards,
	}
	for _, opt := range options {
		opt(m)
	}
	// Every shard needs room for at least one verdict, so never use more
	// shards than the capacity allows.
	if m.capacity > 0 && uint64(m.nshards) > m.capacity {
		m.nshards = int(m.capacity)
	}
	m.shards = make([]*ttlcache.Cache[string, Verdict], m.nshards)
	for idx := range m.shards {
		opts := []ttlcache.Option[string, Verdict]{
			ttlcache.WithTTL[string, Verdict](m.ttl),
		}
		if m.capacity > 0 {
			// Spread the remainder over the first shards, so that the shard
			// capacities add up to exactly the total capacity.
			perShard := m.capacity / uint64(m.nshards)
			if uint64(idx) < m.capacity%uint64(m.nshards) {
				perShard++
			}
			opts = append(opts, ttlcache.WithCapacity[string, Verdict](perShard))
		}
		m.shards[idx] = ttlcache.New[string, Verdict](opts...)
	}
	if m.ttl > 0 {
		m.expiring = true
		for _, shard := range m.shards {
			go shard.Start()
		}
	}
	return m
}

// WithTTL sets the duration for which a verdict is retained. A zero or
// negative duration retains verdicts forever.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithCapacity limits the number of cached verdicts. When the limit is
// reached, least recently used verdicts get evicted. As the limit is
// distributed across the shards, eviction is per shard; a capacity below the
// number of shards reduces the number of shards accordingly.
func WithCapacity(capacity uint64) MemoryOption {
	return func(m *Memory) {
		m.capacity = capacity
	}
}

// WithShards sets the number of shards.
func WithShards(shards uint) MemoryOption {
	return func(m *Memory) {
		if shards > 0 {
			m.nshards = int(shards)
		}
	}
}

// Get returns the cached verdict for the specified domain, if any.
func (m *Memory) Get(_ context.Context, domain string) (Verdict, bool) {
	key := Key(domain)
	item := m.shard(key).Get(key)
	if item == nil {
		return Verdict{}, false
	}
	return item.Value(), true
}

// Set caches the verdict for the specified domain.
func (m *Memory) Set(_ context.Context, domain string, v Verdict) {
	key := Key(domain)
	m.shard(key).Set(key, v, ttlcache.DefaultTTL)
}

// Len returns the number of cached verdicts.
func (m *Memory) Len() int {
	n := 0
	for _, shard := range m.shards {
		n += shard.Len()
	}
	return n
}

// Close stops the background expiration of verdicts, if any.
func (m *Memory) Close() {
	if !m.expiring {
		return
	}
	m.expiring = false
	for _, shard := range m.shards {
		shard.Stop()
	}
}

// shard returns the shard responsible for the specified key.
func (m *Memory) shard(key string) *ttlcache.Cache[string, Verdict] {
	if len(m.shards) == 1 {
		return m.shards[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}
