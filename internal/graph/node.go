// Package graph implements the Gun data model: souls, nodes, the state
// clock, and the HAM (Hypothetical Amnesia Machine) merge that resolves
// per-field write conflicts. Ported from the teacher's in-memory map
// conventions (internal/core) and grounded on original_source/src/graph.rs
// and state.rs.
package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/gundb/gun-go/internal/gunerr"
)

// MetaKey is the reserved field name that never carries user data.
const MetaKey = "_"

// Link is a value of the form {"#": soul}, a reference to another node that
// need not exist yet.
type Link struct {
	Soul string `json:"#"`
}

// Node is a soul-addressed bag of fields plus the HAM state of each field.
type Node struct {
	Soul  string             `json:"-"`
	Data  map[string]any     `json:"-"`
	State map[string]float64 `json:"-"`
}

// NewNode creates an empty node stamped with the given soul.
func NewNode(soul string) *Node {
	return &Node{
		Soul:  soul,
		Data:  make(map[string]any),
		State: make(map[string]float64),
	}
}

// Clone deep-copies data/state so merges never mutate their inputs.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := NewNode(n.Soul)
	for k, v := range n.Data {
		cp.Data[k] = v
	}
	for k, v := range n.State {
		cp.State[k] = v
	}
	return cp
}

// Validate checks invariants V1/V2 from spec §8: every data key has a
// finite numeric state, and the soul is non-empty.
func (n *Node) Validate() error {
	if n.Soul == "" {
		return gunerr.New(gunerr.KindInvalidSoul, "Node.Validate", "soul must not be empty")
	}
	for k := range n.Data {
		s, ok := n.State[k]
		if !ok {
			return gunerr.New(gunerr.KindInvalidData, "Node.Validate", fmt.Sprintf("field %q missing state", k))
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return gunerr.New(gunerr.KindInvalidData, "Node.Validate", fmt.Sprintf("field %q has non-finite state", k))
		}
	}
	return nil
}

// Set stamps a field's value and state in one step, honoring the reserved
// meta key (spec §3 invariant 4: "_" never carries user state).
func (n *Node) Set(field string, value any, state float64) {
	if field == MetaKey {
		return
	}
	n.Data[field] = value
	n.State[field] = state
}

// IsFinite reports whether a value sits in the storable value domain: nil,
// bool, finite number, string, or Link. General objects/arrays are not
// storable leaf values (spec §3).
func IsFinite(v any) bool {
	switch t := v.(type) {
	case nil, bool, string, Link:
		return true
	case float64:
		return !math.IsNaN(t) && !math.IsInf(t, 0)
	case int, int64:
		return true
	default:
		return false
	}
}

// AsLink reports whether v is a link value and returns its target soul.
func AsLink(v any) (string, bool) {
	switch t := v.(type) {
	case Link:
		return t.Soul, true
	case map[string]any:
		if len(t) == 1 {
			if s, ok := t["#"].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// wireNode describes the JSON shape used on the wire:
// {"_": {"#": soul, ">": {field: state}}, field: value, ...}. MarshalJSON
// and UnmarshalJSON build and parse that shape by hand and do not use it.
type wireNode struct {
	Meta wireMeta       `json:"_"`
	Data map[string]any `json:"-"`
}

type wireMeta struct {
	Soul  string             `json:"#"`
	State map[string]float64 `json:"-"`
}

// MarshalJSON renders the node in Gun's wire format.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Data)+1)
	for k, v := range n.Data {
		out[k] = v
	}
	out[MetaKey] = map[string]any{
		"#": n.Soul,
		">": n.State,
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the wire format produced by MarshalJSON.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return gunerr.Wrap(gunerr.KindInvalidData, "Node.UnmarshalJSON", err)
	}
	metaRaw, ok := raw[MetaKey]
	if !ok {
		return gunerr.New(gunerr.KindInvalidData, "Node.UnmarshalJSON", "missing meta key")
	}
	var meta struct {
		Soul  string             `json:"#"`
		State map[string]float64 `json:">"`
	}
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return gunerr.Wrap(gunerr.KindInvalidData, "Node.UnmarshalJSON", err)
	}
	n.Soul = meta.Soul
	n.State = meta.State
	if n.State == nil {
		n.State = make(map[string]float64)
	}
	n.Data = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == MetaKey {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return gunerr.Wrap(gunerr.KindInvalidData, "Node.UnmarshalJSON", err)
		}
		if link, ok := val.(map[string]any); ok && len(link) == 1 {
			if s, ok := link["#"].(string); ok {
				val = Link{Soul: s}
			}
		}
		n.Data[k] = val
	}
	return nil
}

// canonicalJSON renders v deterministically (sorted object keys) so the HAM
// tie-break comparison is reproducible across processes.
func canonicalJSON(v any) string {
	b, err := marshalSorted(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func marshalSorted(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := marshalSorted(t[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return json.Marshal(v)
	}
}
