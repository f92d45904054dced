// Package core wires the Gun subsystems (graph, clock, events, storage,
// mesh dedup) into a single instance, the way Gun.js's root.js/core.js
// bind graph+state+events+storage together. Grounded on
// original_source/src/core.rs GunCore, kept in the teacher's package
// layout (internal/core held the domain wiring struct before too).
package core

import (
	"sync/atomic"

	"github.com/gundb/gun-go/internal/events"
	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/mesh"
	"github.com/gundb/gun-go/internal/storage"
)

// GunCore bundles the subsystems shared by every Chain rooted at the same
// Gun instance: the in-memory graph, the monotonic state clock, the event
// bus, and (optionally) persistent storage and the DAM mesh.
type GunCore struct {
	Graph   *graph.Graph
	Clock   *graph.Clock
	Events  *events.Bus
	Storage storage.Storage
	Mesh    *mesh.Mesh

	chainIDCounter uint64
}

// New builds a GunCore with no persistence and no mesh, suitable for a
// purely local, in-memory Gun instance.
func New() *GunCore {
	clock := graph.NewClock(nil)
	bus := events.NewBus()
	return &GunCore{
		Graph:  graph.New(clock, bus, nil),
		Clock:  clock,
		Events: bus,
	}
}

// NewWithStorage builds a GunCore whose graph durably persists every merge
// to store.
func NewWithStorage(store storage.Storage) *GunCore {
	clock := graph.NewClock(nil)
	bus := events.NewBus()
	return &GunCore{
		Graph:   graph.New(clock, bus, store),
		Clock:   clock,
		Events:  bus,
		Storage: store,
	}
}

// AttachMesh wires a DAM mesh to this core for P2P sync. Safe to call once,
// typically from cmd/gun's startup wiring. Every local merge (spec §2, §4.6:
// writes must reach peers) is broadcast to the mesh as a "put" frame scoped
// to the soul that changed, mirroring the "contains put: merge" half of
// mesh.hear on the sending side.
func (c *GunCore) AttachMesh(m *mesh.Mesh) {
	c.Mesh = m
	c.Events.On(graph.GlobalTopic, func(data any) {
		update, ok := data.(graph.NodeUpdate)
		if !ok {
			return
		}
		n := c.Graph.Get(update.Soul)
		if n == nil {
			return
		}
		_ = m.Say(map[string]any{"put": map[string]any{update.Soul: n}}, nil)
	})
}

// Soul mints a new soul: base36(clock tick) + length random characters
// (spec §3; matches Gun.js's Gun.state().toString(36) + String.random()).
func (c *GunCore) Soul(length int) string {
	if length <= 0 {
		length = 12
	}
	return graph.NewSoul(c.Clock, length)
}

// RandomID returns a length-character random alphanumeric string, used for
// DAM message ids and similar non-soul identifiers.
func (c *GunCore) RandomID(length int) string {
	return graph.RandomID(length)
}

// NextChainID returns a process-unique, monotonically increasing id used
// to key listener bookkeeping shared across a chain's lineage (spec §4.5).
func (c *GunCore) NextChainID() uint64 {
	return atomic.AddUint64(&c.chainIDCounter, 1)
}

// Close releases background resources (the graph's deferred-field
// flusher).
func (c *GunCore) Close() {
	if c.Graph != nil {
		c.Graph.Close()
	}
}
