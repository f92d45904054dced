// Package gun is the Gun SDK for Go programs: the library you embed to
// get a decentralized, real-time, eventually-consistent graph database
// with an optional P2P mesh. Grounded on the teacher's pkg/sdk, which
// also wraps an internal pipeline behind a small client-facing API, but
// rewired here from an HTTP gateway client to an in-process Chain root.
//
// Three integration patterns:
//
//  1. Embedded (no mesh): gun.New() for a purely local graph store.
//  2. Peered: gun.New(gun.WithPeers(url)) to sync over WebSocket.
//  3. Relay: serve wsock.Handler(db.Mesh()) from an HTTP server to also
//     accept inbound peer connections (cmd/gun does this and also serves
//     /status, /metrics).
//
// Quick start:
//
//	db := gun.New(gun.WithStorage(storage.NewMemory()))
//	defer db.Close()
//
//	db.Get("users").Get("alice").Put(map[string]any{"name": "Alice"})
//	db.Get("users").Get("alice").On(func(v any, key string) {
//	    fmt.Println("alice updated:", v)
//	})
package gun

import (
	"github.com/gundb/gun-go/internal/chain"
	"github.com/gundb/gun-go/internal/core"
	"github.com/gundb/gun-go/internal/mesh"
	"github.com/gundb/gun-go/internal/storage"
	"github.com/gundb/gun-go/internal/transport/wsock"
)

// Chain is the fluent graph cursor re-exported for callers of this
// package; see internal/chain for the full operation set (spec §4.5).
type Chain = chain.Chain

// Options configures a Gun instance (spec §6 Configuration Object).
type Options struct {
	// Storage persists every merge; nil means in-memory only.
	Storage storage.Storage
	// Peers are WebSocket URLs to dial on startup.
	Peers []string
	// MeshOptions tunes the DAM mesh (size limit, dial retries); nil uses
	// mesh.DefaultOptions().
	MeshOptions *mesh.Options
}

// Option mutates Options; see With* constructors below.
type Option func(*Options)

// WithStorage sets the persistence backend.
func WithStorage(s storage.Storage) Option {
	return func(o *Options) { o.Storage = s }
}

// WithPeers adds WebSocket peer URLs to dial on New.
func WithPeers(urls ...string) Option {
	return func(o *Options) { o.Peers = append(o.Peers, urls...) }
}

// WithMeshOptions overrides DAM mesh tuning.
func WithMeshOptions(opt mesh.Options) Option {
	return func(o *Options) { o.MeshOptions = &opt }
}

// Gun is an embeddable Gun database instance: a graph, an event bus, and
// an optional DAM mesh for P2P sync.
type Gun struct {
	core *core.GunCore
	mesh *mesh.Mesh
}

// New builds a Gun instance from opts, dialing any configured peers.
func New(opts ...Option) *Gun {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	var c *core.GunCore
	if o.Storage != nil {
		c = core.NewWithStorage(o.Storage)
	} else {
		c = core.New()
	}

	meshOpt := mesh.DefaultOptions()
	if o.MeshOptions != nil {
		meshOpt = *o.MeshOptions
	}
	m := mesh.New(c.RandomID, c.Graph, c.Events, meshOpt)
	c.AttachMesh(m)

	g := &Gun{core: c, mesh: m}
	for _, url := range o.Peers {
		_, _ = wsock.Dial(url, m, meshOpt.Retry)
	}
	return g
}

// Get returns a Chain rooted at key, the entrypoint for reads and writes
// (spec §4.5).
func (g *Gun) Get(key string) *Chain {
	return chain.Root(g.core).Get(key)
}

// Root returns the unpositioned root Chain, from which Get is normally
// called.
func (g *Gun) Root() *Chain {
	return chain.Root(g.core)
}

// Mesh exposes the underlying DAM mesh for transports (wsock.Handler,
// rtc.Manager) that need to register inbound peers directly.
func (g *Gun) Mesh() *mesh.Mesh {
	return g.mesh
}

// Close releases background resources (the graph's deferred-field
// flusher goroutine).
func (g *Gun) Close() {
	g.core.Close()
}
