// Package chain implements Gun's fluent query API: get/put/on/once/map/
// set/back/off over an immutable cursor. Grounded on
// original_source/src/chain.rs Chain, translated from Rust's Arc<Chain>
// cloning to Go value receivers plus a shared listener-id set kept alive
// across a chain's lineage via a pointer field (spec §4.5 "Chain identity"
// design note: listener bookkeeping is shared across a chain's ancestors
// and descendants, not per-node).
package chain

import (
	"sync"

	"github.com/gundb/gun-go/internal/core"
	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/gunerr"
)

// listenerRegistry is shared by every Chain derived from the same root via
// Get/Back, so Off() on any link in the lineage releases everything that
// lineage registered.
type listenerRegistry struct {
	mu   sync.Mutex
	ids  map[uint64]string // listener id -> topic, so Off knows what to unsubscribe
}

func newRegistry() *listenerRegistry {
	return &listenerRegistry{ids: make(map[uint64]string)}
}

func (r *listenerRegistry) track(id uint64, topic string) {
	r.mu.Lock()
	r.ids[id] = topic
	r.mu.Unlock()
}

func (r *listenerRegistry) drain() map[uint64]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ids
	r.ids = make(map[uint64]string)
	return out
}

// Chain is an immutable cursor into the graph: a soul, an optional key
// into that soul's node, and a parent link for Back(). Every chain
// operation returns a new Chain value; the zero-cost copy mirrors Gun.js's
// "every method returns a chainable context".
type Chain struct {
	core   *core.GunCore
	soul   string
	key    string
	hasKey bool
	parent *Chain
	id     uint64

	listeners *listenerRegistry
}

// Root builds the top-level chain for a Gun instance. It has no soul until
// Get or Put establishes one.
func Root(c *core.GunCore) *Chain {
	return &Chain{core: c, id: c.NextChainID(), listeners: newRegistry()}
}

// Get descends into key, returning a child chain that shares this chain's
// soul (if any) and listener bookkeeping.
func (c *Chain) Get(key string) *Chain {
	return &Chain{
		core:      c.core,
		soul:      c.soul,
		key:       key,
		hasKey:    true,
		parent:    c,
		id:        c.core.NextChainID(),
		listeners: c.listeners,
	}
}

// Soul returns the soul this chain currently points at, and whether one has
// been established yet.
func (c *Chain) Soul() (string, bool) {
	return c.soul, c.soul != ""
}

func (c *Chain) topic() string {
	if c.soul != "" {
		return "node_update:" + c.soul
	}
	return "graph_update"
}

// Put writes data into the node this chain points at. A bare scalar/Link
// is only valid when the chain already has a key (setting one field);
// a map[string]any puts a whole node, traversing nested objects into
// linked souls the way Gun.js's put does. Returns a chain rooted at the
// soul written (itself if it already had one, fresh otherwise).
func (c *Chain) Put(data any) (*Chain, error) {
	if obj, ok := data.(map[string]any); ok {
		return c.putObject(obj)
	}

	if !c.hasKey {
		return nil, gunerr.New(gunerr.KindInvalidData, "Chain.Put", "cannot put a scalar without a key; use an object")
	}
	if !graph.IsFinite(data) {
		return nil, gunerr.New(gunerr.KindInvalidData, "Chain.Put", "value is not a storable type")
	}

	soul := c.soul
	if soul == "" {
		soul = c.core.Soul(12)
	}

	state := c.core.Clock.Next()
	n := graph.NewNode(soul)
	n.Set(c.key, data, state)
	merged := c.core.Graph.Merge(soul, n)

	if c.core.Storage != nil {
		_ = c.core.Storage.Put(soul, merged)
	}

	return &Chain{core: c.core, soul: soul, parent: c, id: c.core.NextChainID(), listeners: c.listeners}, nil
}

func (c *Chain) putObject(obj map[string]any) (*Chain, error) {
	soul := c.soul
	if soul == "" {
		soul = c.core.Soul(12)
	}

	n := graph.NewNode(soul)
	for k, v := range obj {
		state := c.core.Clock.Next()
		if nested, ok := v.(map[string]any); ok {
			childSoul := c.core.Soul(12)
			if !c.core.Graph.Has(childSoul) {
				c.core.Graph.Put(childSoul, graph.NewNode(childSoul))
			}
			childChain := &Chain{core: c.core, soul: childSoul, parent: c, id: c.core.NextChainID(), listeners: c.listeners}
			if _, err := childChain.putObject(nested); err != nil {
				return nil, err
			}
			n.Set(k, graph.Link{Soul: childSoul}, state)
			continue
		}
		if !graph.IsFinite(v) {
			return nil, gunerr.New(gunerr.KindInvalidData, "Chain.Put", "value is not a storable type")
		}
		n.Set(k, v, state)
	}

	merged := c.core.Graph.Merge(soul, n)
	if c.core.Storage != nil {
		_ = c.core.Storage.Put(soul, merged)
	}

	return &Chain{core: c.core, soul: soul, parent: c, id: c.core.NextChainID(), listeners: c.listeners}, nil
}

// On subscribes cb to every future update of this chain's value (whole
// node if no key, else just that field). Per spec §4.5, it also invokes
// cb once synchronously with the current value if the node already
// exists. Returns this chain; the registration is tracked so Off() can
// later remove it.
func (c *Chain) On(cb func(value any, key string)) *Chain {
	topic := c.topic()
	key := c.key
	id := c.core.Events.On(topic, func(data any) {
		update, ok := data.(graph.NodeUpdate)
		if !ok {
			return
		}
		if key == "" {
			cb(update.Data, key)
			return
		}
		cb(update.Data[key], key)
	})
	c.listeners.track(id, topic)

	if c.soul != "" {
		if n := c.core.Graph.Get(c.soul); n != nil {
			if key == "" {
				cb(n.Data, key)
			} else {
				cb(n.Data[key], key)
			}
		}
	}
	return c
}

// Once reads the current value without subscribing. cb fires synchronously.
func (c *Chain) Once(cb func(value any, key string)) *Chain {
	if c.soul == "" {
		cb(nil, c.key)
		return c
	}
	n := c.core.Graph.Get(c.soul)
	if n == nil {
		cb(nil, c.key)
		return c
	}
	if c.key == "" {
		cb(n.Data, c.key)
		return c
	}
	cb(n.Data[c.key], c.key)
	return c
}

// Map subscribes cb to run once per field, both for the node's current
// state and for every future update, the way Gun.js's map() fans a node
// out into its properties.
func (c *Chain) Map(cb func(value any, key string)) *Chain {
	if c.soul == "" {
		return c
	}
	topic := c.topic()
	id := c.core.Events.On(topic, func(data any) {
		update, ok := data.(graph.NodeUpdate)
		if !ok {
			return
		}
		for _, k := range update.Changed {
			cb(update.Data[k], k)
		}
	})
	c.listeners.track(id, topic)

	if n := c.core.Graph.Get(c.soul); n != nil {
		for k, v := range n.Data {
			cb(v, k)
		}
	}
	return c
}

// Set adds item to the set this chain points at: if item is a link (a
// graph.Link or a {"#": soul} map), a link to that soul is stored; if it
// is any other map[string]any, a fresh node is created for it. Anything
// else, a *Chain included, is rejected (spec §9 Open Question #3
// resolution).
func (c *Chain) Set(item any) (*Chain, error) {
	obj, isObj := item.(map[string]any)

	var itemSoul string
	if link, ok := graph.AsLink(item); ok {
		itemSoul = link
	} else if isObj {
		itemSoul = c.core.Soul(12)
		itemChain := &Chain{core: c.core, soul: itemSoul, parent: c, id: c.core.NextChainID(), listeners: c.listeners}
		if _, err := itemChain.putObject(obj); err != nil {
			return nil, err
		}
	} else {
		return nil, gunerr.New(gunerr.KindInvalidData, "Chain.Set", "set() only accepts objects or existing node references")
	}

	setSoul := c.soul
	if setSoul == "" {
		setSoul = c.core.Soul(12)
	}

	state := c.core.Clock.Next()
	n := graph.NewNode(setSoul)
	n.Set(itemSoul, graph.Link{Soul: itemSoul}, state)
	merged := c.core.Graph.Merge(setSoul, n)
	if c.core.Storage != nil {
		_ = c.core.Storage.Put(setSoul, merged)
	}

	return &Chain{core: c.core, soul: setSoul, parent: c, id: c.core.NextChainID(), listeners: c.listeners}, nil
}

// Back returns the nth ancestor chain (1 = immediate parent, matching
// Gun.js's default amount). amount of 0 also returns the immediate parent.
// Returns nil at the root.
func (c *Chain) Back(amount int) *Chain {
	if amount <= 1 {
		return c.parent
	}
	cur := c.parent
	for i := 1; i < amount && cur != nil; i++ {
		cur = cur.parent
	}
	return cur
}

// Off removes every listener registered anywhere in this chain's lineage
// (shared registry), matching Gun.js's chain.off() "stop listening"
// semantics.
func (c *Chain) Off() *Chain {
	for id, topic := range c.listeners.drain() {
		c.core.Events.Off(topic, id)
	}
	return c
}
