// Package mesh implements the DAM (Directed Acyclic Mesh) peer-to-peer
// message routing layer: deduplication, peer registry, batching, and the
// WebSocket/WebRTC signalling handshake. Grounded on
// original_source/src/dam.rs and dup.rs (Gun.js mesh.js/dup.js ported to
// Rust), adapted to Go idioms the way the teacher's internal/fabric hub
// shapes its own peer registry.
package mesh

import (
	"sync"
	"time"
)

// dupEntry records when a message id was last seen and, optionally, the
// peer it arrived from (for loop-avoidance routing) and its payload (for
// replay to late joiners in "? then !" chains).
type dupEntry struct {
	seenAt time.Time
	via    string
	data   any
}

// Dedup is a bounded, time-windowed set of recently seen DAM message ids,
// used to suppress re-broadcasting the same message around a mesh loop.
// Matches Gun.js dup.js defaults: max 999 entries, 9s age (original_source
// src/dup.rs Dup::new_default).
type Dedup struct {
	mu      sync.RWMutex
	entries map[string]dupEntry
	maxSize int
	maxAge  time.Duration
}

// NewDedup builds a Dedup with the given capacity and age bound.
func NewDedup(maxSize int, maxAge time.Duration) *Dedup {
	return &Dedup{
		entries: make(map[string]dupEntry),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
}

// NewDefaultDedup builds a Dedup with Gun.js's stock limits (999 ids, 9s).
func NewDefaultDedup() *Dedup {
	return NewDedup(999, 9*time.Second)
}

// Check reports whether id has already been seen within the age window.
// A stale entry (past maxAge) is treated as not-a-duplicate.
func (d *Dedup) Check(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return false
	}
	return time.Since(e.seenAt) < d.maxAge
}

// Track marks id as seen now, evicting expired entries first if the set is
// at capacity.
func (d *Dedup) Track(id string) {
	d.TrackVia(id, "")
}

// CheckAndTrack reports whether id was already seen, then marks it seen via
// via. Satisfies the dedupChecker interface shared with RedisDedup so Mesh
// can swap backing stores without changing its hot path.
func (d *Dedup) CheckAndTrack(id, via string) bool {
	dup := d.Check(id)
	d.TrackVia(id, via)
	return dup
}

// TrackVia marks id as seen now, recording which peer it arrived from.
func (d *Dedup) TrackVia(id, via string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.entries) >= d.maxSize {
		d.dropExpiredLocked()
	}
	e := d.entries[id]
	e.seenAt = time.Now()
	if via != "" {
		e.via = via
	}
	d.entries[id] = e
}

// Store attaches payload data to id, for peers that want to replay a
// message they've already deduplicated (e.g. answering a late "?" with a
// cached "!").
func (d *Dedup) Store(id string, data any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.entries[id]
	e.data = data
	if e.seenAt.IsZero() {
		e.seenAt = time.Now()
	}
	d.entries[id] = e
}

// Get returns the stored payload for id, if any.
func (d *Dedup) Get(id string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return nil, false
	}
	return e.data, e.data != nil
}

// Via returns the peer id most recently recorded for id by TrackVia, if
// any.
func (d *Dedup) Via(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok || e.via == "" {
		return "", false
	}
	return e.via, true
}

// Remove discards id unconditionally, used by DAM self-deduplication when
// a peer hands us back our own message id.
func (d *Dedup) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, id)
}

// DropExpired evicts every entry older than maxAge.
func (d *Dedup) DropExpired() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropExpiredLocked()
}

func (d *Dedup) dropExpiredLocked() {
	now := time.Now()
	for id, e := range d.entries {
		if now.Sub(e.seenAt) >= d.maxAge {
			delete(d.entries, id)
		}
	}
}

// Len reports how many ids are currently tracked.
func (d *Dedup) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
