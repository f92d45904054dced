package mesh

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gundb/gun-go/internal/gunerr"
	"github.com/gundb/gun-go/internal/graph"
)

// Options tunes mesh batching and size limits (spec §6 Configuration
// Object). Defaults mirror Gun.js mesh.js, scaled down from the original's
// 300MB ceiling (original_source/src/dam.rs MeshOptions::default).
// The mesh itself reads only MaxMessageBytes: Say writes every frame on
// its own, and BatchSize, BatchGap and LackTimeout are carried but unused.
type Options struct {
	MaxMessageBytes int
	BatchSize       int
	BatchGap        time.Duration
	Retry           int
	LackTimeout     time.Duration
}

// DefaultOptions returns Gun.js's stock mesh tuning.
func DefaultOptions() Options {
	return Options{
		MaxMessageBytes: 90_000_000, // 300MB * 0.3
		BatchSize:       9000,       // 300MB * 0.3 * 0.01 * 0.01
		BatchGap:        0,
		Retry:           60,
		LackTimeout:     9 * time.Second,
	}
}

// frame is the wire envelope for DAM messages: arbitrary node-update
// payload keys alongside the reserved "#" (message id), "@" (reply-to),
// "dam" (handshake type), and "pid" (peer identity) fields (spec §6).
type frame map[string]any

// dedupChecker is the bounded, time-windowed "have I seen this message id"
// check Mesh needs. *Dedup backs it by default (in-process); *RedisDedup
// (via redisDedupAdapter) backs it when a relay shares dedup state
// across processes (spec §6 domain stack, super_peer fan-out).
type dedupChecker interface {
	CheckAndTrack(id, via string) bool
}

// Mesh is the DAM relay core: peer registry, dedup, inbound batch arrays,
// and handshake state machine. Grounded on original_source/src/dam.rs Mesh,
// adapted from Rust's async RwLock+mpsc model to Go's sync.RWMutex and the
// Sender interface so WebSocket and WebRTC peers share one code path.
type Mesh struct {
	mu    sync.RWMutex
	peers map[string]*Peer

	dup  dedupChecker
	near int

	pid string
	opt Options

	soulGen  func(int) string
	g        *graph.Graph
	inEvents interface {
		EmitAlways(topic string, data any)
	}
}

// New builds a Mesh. soulGen mints message/peer ids (normally graph.RandomID);
// g is the local graph merged into on inbound data frames; events (if
// non-nil) receives EmitAlways("in", frame) for raw-frame observers.
func New(soulGen func(int) string, g *graph.Graph, events interface {
	EmitAlways(topic string, data any)
}, opt Options) *Mesh {
	return &Mesh{
		peers:    make(map[string]*Peer),
		dup:      NewDefaultDedup(),
		pid:      soulGen(9),
		opt:      opt,
		soulGen:  soulGen,
		g:        g,
		inEvents: events,
	}
}

// Hi registers a peer and, on first registration, sends that peer a DAM
// "?" greeting carrying this mesh's pid.
// Matches Gun.js mesh.hi / original_source dam.rs Mesh::hi.
func (m *Mesh) Hi(p *Peer) {
	m.mu.Lock()
	_, existed := m.peers[p.ID]
	m.peers[p.ID] = p
	if !existed {
		m.near++
	}
	m.mu.Unlock()

	if !existed {
		m.Say(frame{"dam": "?", "pid": m.pid}, p)
	}
}

// SetDedup replaces the mesh's dedup backing store, e.g. with a RedisDedup
// adapter for multi-process relay deployments sharing a dedup window.
func (m *Mesh) SetDedup(d dedupChecker) {
	m.mu.Lock()
	m.dup = d
	m.mu.Unlock()
}

// Bye removes a peer from the registry. Matches mesh.bye.
func (m *Mesh) Bye(peerID string) {
	m.mu.Lock()
	if _, ok := m.peers[peerID]; ok {
		delete(m.peers, peerID)
		if m.near > 0 {
			m.near--
		}
	}
	m.mu.Unlock()
}

// Near reports the number of currently registered peers.
func (m *Mesh) Near() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.near
}

// Say sends msg to a specific peer, or broadcasts to every peer when p is
// nil. A message id ("#") is assigned if absent. Matches mesh.say.
func (m *Mesh) Say(msg frame, p *Peer) error {
	if _, ok := msg["#"]; !ok {
		msg["#"] = m.soulGen(9)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return gunerr.Wrap(gunerr.KindNetwork, "mesh.say", err)
	}
	if len(raw) > m.opt.MaxMessageBytes {
		return gunerr.New(gunerr.KindNetwork, "mesh.say", "message too big")
	}

	if p != nil {
		return p.Send(raw)
	}

	m.mu.RLock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, peer := range m.peers {
		peers = append(peers, peer)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, peer := range peers {
		if err := peer.Send(raw); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Hear processes a raw frame (or JSON array of frames, for batched sends)
// received from peer. Matches mesh.hear / hear.one.
func (m *Mesh) Hear(raw []byte, from *Peer) error {
	if len(raw) == 0 {
		return nil
	}
	if len(raw) > m.opt.MaxMessageBytes {
		// The error reply is written straight to the sender, outside Say's
		// size check, so a small limit cannot swallow it.
		reply, err := json.Marshal(frame{"#": m.soulGen(9), "dam": "!", "err": "Message too big!"})
		if err != nil {
			return gunerr.Wrap(gunerr.KindNetwork, "mesh.hear", err)
		}
		if from == nil {
			return nil
		}
		return from.Send(reply)
	}

	trimmed := skipSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []frame
		if err := json.Unmarshal(raw, &batch); err != nil {
			return gunerr.Wrap(gunerr.KindInvalidData, "mesh.hear", err)
		}
		for _, f := range batch {
			m.hearOne(f, from)
		}
		return nil
	}

	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return gunerr.Wrap(gunerr.KindInvalidData, "mesh.hear", err)
	}
	m.hearOne(f, from)
	return nil
}

func (m *Mesh) hearOne(f frame, from *Peer) {
	msgID, _ := f["#"].(string)
	if msgID == "" {
		msgID = m.soulGen(9)
	}

	via := ""
	if from != nil {
		via = from.ID
	}
	if m.dup.CheckAndTrack(msgID, via) {
		return
	}

	if damType, ok := f["dam"].(string); ok {
		m.hearDAM(damType, f, from)
		return
	}

	if put, ok := f["put"]; ok {
		m.mergePut(put)
	}
	if get, ok := f["get"]; ok {
		m.replyGet(get, from)
	}

	if m.inEvents != nil {
		m.inEvents.EmitAlways("in", f)
	}
}

func (m *Mesh) hearDAM(damType string, f frame, from *Peer) {
	switch damType {
	case "!":
		if errMsg, ok := f["err"].(string); ok {
			peerID := ""
			if from != nil {
				peerID = from.ID
			}
			slog.Warn("dam error from peer", "peer", peerID, "err", errMsg)
		}
	case "?":
		if pid, ok := f["pid"].(string); ok && from != nil {
			from.SetPID(pid)
			reply := frame{"dam": "?", "pid": m.pid}
			if replyTo, ok := f["#"]; ok {
				reply["@"] = replyTo
			}
			_ = m.Say(reply, from)
		}
	case "hi", "bye":
		// presence notifications: no reply required, observers use "in".
	default:
		// unrecognised DAM subtype, ignored per spec §6 forward-compat note.
	}
}

// mergePut merges every (soul -> node) pair carried by a "put" frame into
// the local graph (spec §4.6 hear step 5: "contains put: merge each
// (soul -> node) into the graph"). put is the frame's "put" value, a JSON
// object of soul to graph.Node wire shape.
func (m *Mesh) mergePut(put any) {
	if m.g == nil {
		return
	}
	nodes, ok := put.(map[string]any)
	if !ok {
		return
	}
	for soul, raw := range nodes {
		data, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		n := &graph.Node{}
		if err := json.Unmarshal(data, n); err != nil {
			continue
		}
		m.g.Merge(soul, n)
	}
}

// replyGet answers a "get" frame (spec §6 wire format: {"#": soul, ".":
// field?}) by looking up the requested soul and, if present, replying with
// a "put" frame scoped to it (and to just that field, if one was named),
// per spec §4.6 hear step 5.
func (m *Mesh) replyGet(get any, from *Peer) {
	if m.g == nil || from == nil {
		return
	}
	req, ok := get.(map[string]any)
	if !ok {
		return
	}
	soul, ok := req["#"].(string)
	if !ok || soul == "" {
		return
	}
	n := m.g.Get(soul)
	if n == nil {
		return
	}
	if field, ok := req["."].(string); ok && field != "" {
		val, has := n.Data[field]
		if !has {
			return
		}
		scoped := graph.NewNode(soul)
		scoped.Set(field, val, n.State[field])
		n = scoped
	}
	_ = m.Say(frame{"put": frame{soul: n}}, from)
}

func skipSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}
