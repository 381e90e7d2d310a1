// Package shardindex implements the live containment index over known token
// addresses. Addresses are decomposed into overlapping fixed-length shard
// keys; lookups probe a message's windows against the shard buckets and the
// caller confirms candidates by exact string match. Locking is striped by
// key hash so feed inserts do not block concurrent extractor lookups.
package shardindex

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"mintsniper/internal/domain"
)

// stripeCount is the number of independent lock stripes. Power of two.
const stripeCount = 64

type keyStripe struct {
	mu      sync.RWMutex
	buckets map[string]map[string]struct{} // shard key -> set of addresses
}

type addrStripe struct {
	mu    sync.RWMutex
	addrs map[string]int64 // address -> observed_at (ms)
}

// Index is the sharded, concurrency-safe containment index.
type Index struct {
	keys  [stripeCount]keyStripe
	addrs [stripeCount]addrStripe

	// dirty shard keys pending a mirror flush
	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	now func() int64
}

// New creates an empty Index.
func New() *Index {
	return NewWithClock(func() int64 { return time.Now().UnixMilli() })
}

// NewWithClock creates an Index with an injected millisecond clock.
func NewWithClock(now func() int64) *Index {
	ix := &Index{
		dirty: make(map[string]struct{}),
		now:   now,
	}
	for i := range ix.keys {
		ix.keys[i].buckets = make(map[string]map[string]struct{})
	}
	for i := range ix.addrs {
		ix.addrs[i].addrs = make(map[string]int64)
	}
	return ix
}

func stripeOf(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() % stripeCount
}

// Insert adds an address to the index under all of its shard keys and marks
// the affected keys dirty for the mirror. Returns false if the address was
// already indexed. The address must be address-shaped.
func (ix *Index) Insert(address string, observedAt int64) (bool, error) {
	return ix.insert(address, observedAt, true)
}

// Restore inserts an address during mirror rehydration without marking
// shard keys dirty.
func (ix *Index) Restore(address string, observedAt int64) (bool, error) {
	return ix.insert(address, observedAt, false)
}

func (ix *Index) insert(address string, observedAt int64, markDirty bool) (bool, error) {
	if !domain.IsAddressShaped(address) {
		return false, fmt.Errorf("not an address-shaped string: %q", address)
	}
	if observedAt == 0 {
		observedAt = ix.now()
	}

	as := &ix.addrs[stripeOf(address)]
	as.mu.Lock()
	if _, exists := as.addrs[address]; exists {
		as.mu.Unlock()
		return false, nil
	}
	as.addrs[address] = observedAt
	as.mu.Unlock()

	keys := ShardKeys(address)
	for _, key := range keys {
		ks := &ix.keys[stripeOf(key)]
		ks.mu.Lock()
		bucket, ok := ks.buckets[key]
		if !ok {
			bucket = make(map[string]struct{})
			ks.buckets[key] = bucket
		}
		bucket[address] = struct{}{}
		ks.mu.Unlock()
	}

	if markDirty {
		ix.dirtyMu.Lock()
		for _, key := range keys {
			ix.dirty[key] = struct{}{}
		}
		ix.dirtyMu.Unlock()
	}

	return true, nil
}

// Contains reports whether the exact address is indexed.
func (ix *Index) Contains(address string) bool {
	as := &ix.addrs[stripeOf(address)]
	as.mu.RLock()
	_, ok := as.addrs[address]
	as.mu.RUnlock()
	return ok
}

// ObservedAt returns the observation timestamp of an indexed address.
func (ix *Index) ObservedAt(address string) (int64, bool) {
	as := &ix.addrs[stripeOf(address)]
	as.mu.RLock()
	ts, ok := as.addrs[address]
	as.mu.RUnlock()
	return ts, ok
}

// ContainsAny probes the given shard-key windows and returns the sorted set
// of known addresses sharing at least one window. A returned address is a
// candidate, not a confirmed token: two distinct addresses can share a
// window, so callers must confirm by exact full-string match.
func (ix *Index) ContainsAny(windows []string) []string {
	seen := make(map[string]struct{})
	for _, w := range windows {
		if len(w) != domain.ShardKeyLen {
			continue
		}
		ks := &ix.keys[stripeOf(w)]
		ks.mu.RLock()
		for addr := range ks.buckets[w] {
			seen[addr] = struct{}{}
		}
		ks.mu.RUnlock()
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of indexed addresses.
func (ix *Index) Size() int {
	var n int
	for i := range ix.addrs {
		as := &ix.addrs[i]
		as.mu.RLock()
		n += len(as.addrs)
		as.mu.RUnlock()
	}
	return n
}

// Remove drops an address from the address set and every shard bucket.
// Returns false if the address was not indexed.
func (ix *Index) Remove(address string) bool {
	as := &ix.addrs[stripeOf(address)]
	as.mu.Lock()
	if _, exists := as.addrs[address]; !exists {
		as.mu.Unlock()
		return false
	}
	delete(as.addrs, address)
	as.mu.Unlock()

	for _, key := range ShardKeys(address) {
		ks := &ix.keys[stripeOf(key)]
		ks.mu.Lock()
		if bucket, ok := ks.buckets[key]; ok {
			delete(bucket, address)
			if len(bucket) == 0 {
				delete(ks.buckets, key)
			}
		}
		ks.mu.Unlock()
	}
	return true
}

// EvictOlderThan removes every address observed before cutoff (ms) and
// returns the removed addresses. Bounds memory growth under continuous
// feed ingestion.
func (ix *Index) EvictOlderThan(cutoff int64) []string {
	var stale []string
	for i := range ix.addrs {
		as := &ix.addrs[i]
		as.mu.RLock()
		for addr, ts := range as.addrs {
			if ts < cutoff {
				stale = append(stale, addr)
			}
		}
		as.mu.RUnlock()
	}
	sort.Strings(stale)
	for _, addr := range stale {
		ix.Remove(addr)
	}
	return stale
}

// Verify checks the index invariant for one address: indexed if and only if
// every one of its shard keys maps to a bucket containing it.
func (ix *Index) Verify(address string) bool {
	if !ix.Contains(address) {
		return false
	}
	for _, key := range ShardKeys(address) {
		ks := &ix.keys[stripeOf(key)]
		ks.mu.RLock()
		_, ok := ks.buckets[key][address]
		ks.mu.RUnlock()
		if !ok {
			return false
		}
	}
	return true
}

// Repair rebuilds the shard entries of an indexed address and returns the
// number of shard keys re-written. Used when Verify detects corruption;
// callers should log it as a repair event.
func (ix *Index) Repair(address string) int {
	if !ix.Contains(address) {
		return 0
	}
	keys := ShardKeys(address)
	for _, key := range keys {
		ks := &ix.keys[stripeOf(key)]
		ks.mu.Lock()
		bucket, ok := ks.buckets[key]
		if !ok {
			bucket = make(map[string]struct{})
			ks.buckets[key] = bucket
		}
		bucket[address] = struct{}{}
		ks.mu.Unlock()
	}
	ix.dirtyMu.Lock()
	for _, key := range keys {
		ix.dirty[key] = struct{}{}
	}
	ix.dirtyMu.Unlock()
	return len(keys)
}

// takeDirty snapshots and clears the dirty key set.
func (ix *Index) takeDirty() []string {
	ix.dirtyMu.Lock()
	defer ix.dirtyMu.Unlock()
	if len(ix.dirty) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ix.dirty))
	for key := range ix.dirty {
		keys = append(keys, key)
	}
	ix.dirty = make(map[string]struct{})
	return keys
}

// markDirty re-marks keys dirty, used when a mirror flush fails.
func (ix *Index) markDirty(keys []string) {
	ix.dirtyMu.Lock()
	for _, key := range keys {
		ix.dirty[key] = struct{}{}
	}
	ix.dirtyMu.Unlock()
}

// membersOf collects the mirror rows of the given shard keys.
func (ix *Index) membersOf(keys []string) []domain.ShardMember {
	var members []domain.ShardMember
	for _, key := range keys {
		ks := &ix.keys[stripeOf(key)]
		ks.mu.RLock()
		addrs := make([]string, 0, len(ks.buckets[key]))
		for addr := range ks.buckets[key] {
			addrs = append(addrs, addr)
		}
		ks.mu.RUnlock()

		for _, addr := range addrs {
			ts, ok := ix.ObservedAt(addr)
			if !ok {
				// Address evicted between snapshot and read; skip.
				continue
			}
			members = append(members, domain.ShardMember{
				ShardKey:   key,
				Address:    addr,
				ObservedAt: ts,
			})
		}
	}
	return members
}
