package graph

import (
	"math"
	"sync"
	"time"
)

// EventEmitter is the minimal surface Graph needs from the event bus. It is
// defined here (rather than imported from internal/events) so graph stays
// free of a dependency on the pub/sub package; internal/events.Bus
// satisfies it structurally.
type EventEmitter interface {
	Emit(topic string, data any)
}

// StorageAdapter is the minimal surface Graph needs from a storage backend
// (spec §6 "Storage adapter contract"). internal/storage implementations
// satisfy it structurally.
type StorageAdapter interface {
	Put(soul string, node *Node) error
}

// GlobalTopic is emitted on every merge, for any soul, for subscribers that
// observe the whole graph rather than one soul (e.g. the mesh's outbound
// broadcast of locally-applied writes, wired in internal/core.AttachMesh).
// Per-soul listeners use "node_update:<soul>" instead.
const GlobalTopic = "graph_update"

// NodeUpdate is the payload emitted on both a soul's "node_update:<soul>"
// topic and GlobalTopic: the node's full merged snapshot plus exactly the
// fields this particular merge actually changed (spec §4.5 map()'s
// "re-invokes cb per changed field").
type NodeUpdate struct {
	Soul    string
	Data    map[string]any
	Changed []string
}

// deferredField is a future-stamped write queued for retry once wall-clock
// time catches up to its state (spec §4.3, Open Question #1: this
// implementation defers rather than accepting future states outright).
type deferredField struct {
	soul    string
	field   string
	value   any
	state   float64
	dueAt   float64
}

// Graph is the in-memory soul → node map with HAM merge (spec §4.3). Reads
// and writes are O(1); a write holds the lock only for the merge of a
// single soul.
type Graph struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	clock  *Clock
	events EventEmitter
	store  StorageAdapter

	deferMu  sync.Mutex
	deferred []deferredField
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds an empty graph. events and store may be nil.
func New(clock *Clock, events EventEmitter, store StorageAdapter) *Graph {
	g := &Graph{
		nodes:  make(map[string]*Node),
		clock:  clock,
		events: events,
		store:  store,
		stopCh: make(chan struct{}),
	}
	go g.runDeferredFlusher()
	return g
}

// Close stops the deferred-field flusher goroutine.
func (g *Graph) Close() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

// Get returns the node stored under soul, or nil if absent.
func (g *Graph) Get(soul string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[soul]; ok {
		return n.Clone()
	}
	return nil
}

// Has reports whether soul is present in the graph.
func (g *Graph) Has(soul string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[soul]
	return ok
}

// Put stores a node verbatim, bypassing HAM merge. Used to create
// placeholder nodes for as-yet-unwritten link targets (spec §3 invariant 3).
func (g *Graph) Put(soul string, node *Node) {
	g.mu.Lock()
	g.nodes[soul] = node
	g.mu.Unlock()
}

// Merge resolves incoming into the existing node for soul using HAM
// (spec §4.3) and returns the merged node. incoming is never mutated.
func (g *Graph) Merge(soul string, incoming *Node) *Node {
	now := wallClockMS()

	g.mu.Lock()
	existing, ok := g.nodes[soul]
	if !ok {
		existing = NewNode(soul)
	}
	merged := existing.Clone()
	merged.Soul = soul

	var changed []string
	for field, incomingVal := range incoming.Data {
		if field == MetaKey {
			continue
		}
		sExisting, hasExisting := merged.State[field]
		if !hasExisting {
			sExisting = negInf
		}
		sIncoming, hasIncoming := incoming.State[field]
		if !hasIncoming {
			sIncoming = negInf
		}

		if sIncoming > now+driftMS {
			// Future write: queue for retry, don't apply yet.
			g.deferMu.Lock()
			g.deferred = append(g.deferred, deferredField{
				soul: soul, field: field, value: incomingVal, state: sIncoming, dueAt: sIncoming,
			})
			g.deferMu.Unlock()
			continue
		}

		switch {
		case sIncoming > sExisting:
			merged.Set(field, incomingVal, sIncoming)
			changed = append(changed, field)
		case sIncoming < sExisting:
			// keep existing
		default:
			// tie: lexicographically greater serialised value wins
			if canonicalJSON(incomingVal) > canonicalJSON(merged.Data[field]) {
				merged.Set(field, incomingVal, sIncoming)
				changed = append(changed, field)
			}
		}
	}
	g.nodes[soul] = merged
	result := merged.Clone()
	g.mu.Unlock()

	if g.events != nil && len(changed) > 0 {
		update := NodeUpdate{Soul: soul, Data: result.Data, Changed: changed}
		g.events.Emit("node_update:"+soul, update)
		g.events.Emit(GlobalTopic, update)
	}
	if g.store != nil {
		_ = g.store.Put(soul, result)
	}
	return result
}

var negInf = math.Inf(-1)

// runDeferredFlusher periodically re-applies queued future-stamped fields
// once wall-clock time reaches their due state. Coarse polling is
// sufficient: HAM convergence tolerates bounded delay (spec Non-goals:
// "strong consistency").
func (g *Graph) runDeferredFlusher() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			g.flushDue()
		}
	}
}

func (g *Graph) flushDue() {
	now := wallClockMS()
	g.deferMu.Lock()
	var ready []deferredField
	remaining := g.deferred[:0]
	for _, d := range g.deferred {
		if d.dueAt <= now {
			ready = append(ready, d)
		} else {
			remaining = append(remaining, d)
		}
	}
	g.deferred = remaining
	g.deferMu.Unlock()

	for _, d := range ready {
		n := NewNode(d.soul)
		n.Set(d.field, d.value, d.state)
		g.Merge(d.soul, n)
	}
}
