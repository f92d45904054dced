package mesh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gundb/gun-go/internal/graph"
)

func testSoulGen(n int) string { return graph.RandomID(n) }

func newTestMesh(g *graph.Graph) *Mesh {
	return New(testSoulGen, g, nil, DefaultOptions())
}

type capturingSender struct {
	got []byte
}

func (s *capturingSender) Send(raw []byte) error {
	s.got = raw
	return nil
}

func TestHiRegistersPeerAndGreetsIt(t *testing.T) {
	m := newTestMesh(nil)
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)

	m.Hi(p)

	assert.Equal(t, 1, m.Near())
	require.NotEmpty(t, sender.got)

	var f frame
	require.NoError(t, json.Unmarshal(sender.got, &f))
	assert.Equal(t, "?", f["dam"])
}

func TestHiTwiceDoesNotDoubleCountOrRegreet(t *testing.T) {
	m := newTestMesh(nil)
	p := NewPeer("ws://a")
	m.Hi(p)
	m.Hi(p)
	assert.Equal(t, 1, m.Near())
}

func TestByeRemovesPeer(t *testing.T) {
	m := newTestMesh(nil)
	p := NewPeer("ws://a")
	m.Hi(p)
	require.Equal(t, 1, m.Near())

	m.Bye(p.ID)
	assert.Equal(t, 0, m.Near())
}

func TestByeOnUnknownPeerIsNoop(t *testing.T) {
	m := newTestMesh(nil)
	assert.NotPanics(t, func() { m.Bye("nonexistent") })
	assert.Equal(t, 0, m.Near())
}

func TestSayAssignsMessageIDWhenAbsent(t *testing.T) {
	m := newTestMesh(nil)
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)

	f := frame{"dam": "?"}
	require.NoError(t, m.Say(f, p))

	var sent frame
	require.NoError(t, json.Unmarshal(sender.got, &sent))
	assert.NotEmpty(t, sent["#"])
}

func TestSayBroadcastsToAllPeersWhenTargetNil(t *testing.T) {
	m := newTestMesh(nil)
	s1, s2 := &capturingSender{}, &capturingSender{}
	p1, p2 := NewPeer("ws://a"), NewPeer("ws://b")
	p1.SetSender(s1)
	p2.SetSender(s2)
	m.Hi(p1)
	m.Hi(p2)

	require.NoError(t, m.Say(frame{"hello": "world"}, nil))

	assert.NotEmpty(t, s1.got)
	assert.NotEmpty(t, s2.got)
}

func TestSayRejectsOversizedMessage(t *testing.T) {
	m := New(testSoulGen, nil, nil, Options{MaxMessageBytes: 10, Retry: 60})
	p := NewPeer("ws://a")
	p.SetSender(&capturingSender{})

	err := m.Say(frame{"dam": "a much too long payload for the limit"}, p)
	require.Error(t, err)
}

func TestHearDeduplicatesRepeatedMessageID(t *testing.T) {
	var emitted []any
	events := emitFunc(func(topic string, data any) { emitted = append(emitted, data) })
	m := New(testSoulGen, nil, events, DefaultOptions())

	raw := []byte(`{"#":"msg1","hello":"world"}`)
	require.NoError(t, m.Hear(raw, nil))
	require.NoError(t, m.Hear(raw, nil))

	assert.Len(t, emitted, 1, "second delivery of the same message id must be suppressed")
}

func TestHearHandlesBatchedArray(t *testing.T) {
	var emitted []any
	events := emitFunc(func(topic string, data any) { emitted = append(emitted, data) })
	m := New(testSoulGen, nil, events, DefaultOptions())

	raw := []byte(`[{"#":"msg1","a":1},{"#":"msg2","a":2}]`)
	require.NoError(t, m.Hear(raw, nil))

	assert.Len(t, emitted, 2)
}

func TestHearDAMHandshakeRepliesWithPID(t *testing.T) {
	m := newTestMesh(nil)
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)
	m.Hi(p) // consumes the initial greeting send
	sender.got = nil

	raw := []byte(`{"#":"req1","dam":"?","pid":"remote-pid"}`)
	require.NoError(t, m.Hear(raw, p))

	assert.Equal(t, "remote-pid", p.PID())
	require.NotEmpty(t, sender.got)

	var reply frame
	require.NoError(t, json.Unmarshal(sender.got, &reply))
	assert.Equal(t, "?", reply["dam"])
	assert.Equal(t, "req1", reply["@"])
}

func TestHearMergesPutFrameIntoGraph(t *testing.T) {
	// spec scenario §8.3: {"#":"abc","put":{"s":{"_":{"#":"s",">":{"x":1}},"x":1}}}
	g := graph.New(graph.NewClock(nil), nil, nil)
	defer g.Close()
	m := newTestMesh(g)

	raw := []byte(`{"#":"abc","put":{"s":{"_":{"#":"s",">":{"x":1}},"x":1}}}`)
	require.NoError(t, m.Hear(raw, nil))

	node := g.Get("s")
	require.NotNil(t, node)
	assert.Equal(t, float64(1), node.Data["x"])
}

func TestHearPutFrameMergesEverySoulInBatch(t *testing.T) {
	g := graph.New(graph.NewClock(nil), nil, nil)
	defer g.Close()
	m := newTestMesh(g)

	raw := []byte(`{"#":"abc","put":{
		"s1":{"_":{"#":"s1",">":{"x":1}},"x":1},
		"s2":{"_":{"#":"s2",">":{"y":2}},"y":2}
	}}`)
	require.NoError(t, m.Hear(raw, nil))

	assert.Equal(t, float64(1), g.Get("s1").Data["x"])
	assert.Equal(t, float64(2), g.Get("s2").Data["y"])
}

// countingEmitter counts node_update:s emissions only; every merge also
// emits graph.GlobalTopic, which is not counted here.
type countingEmitter struct{ n int }

func (e *countingEmitter) Emit(topic string, data any) {
	if topic == "node_update:s" {
		e.n++
	}
}

func TestHearDedupsSamePutDeliveredTwiceFromDifferentPeers(t *testing.T) {
	// spec §8.3 scenario 3: the same frame id delivered twice merges once.
	emitter := &countingEmitter{}
	g := graph.New(graph.NewClock(nil), emitter, nil)
	defer g.Close()
	m := newTestMesh(g)

	raw := []byte(`{"#":"abc","put":{"s":{"_":{"#":"s",">":{"x":1}},"x":1}}}`)
	p1, p2 := NewPeer("ws://a"), NewPeer("ws://b")
	require.NoError(t, m.Hear(raw, p1))
	require.NoError(t, m.Hear(raw, p2))

	assert.Equal(t, 1, emitter.n, "a frame id delivered twice must be processed at most once")
}

func TestHearGetFrameRepliesWithPutScopedToSoul(t *testing.T) {
	g := graph.New(graph.NewClock(nil), nil, nil)
	defer g.Close()
	n := graph.NewNode("s")
	n.Set("x", 1.0, 1.0)
	g.Merge("s", n)

	m := newTestMesh(g)
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)

	raw := []byte(`{"#":"req1","get":{"#":"s"}}`)
	require.NoError(t, m.Hear(raw, p))

	require.NotEmpty(t, sender.got)
	var reply frame
	require.NoError(t, json.Unmarshal(sender.got, &reply))
	put, ok := reply["put"].(map[string]any)
	require.True(t, ok)
	node, ok := put["s"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), node["x"])
}

func TestHearGetFrameScopedToFieldOmitsOtherFields(t *testing.T) {
	g := graph.New(graph.NewClock(nil), nil, nil)
	defer g.Close()
	n := graph.NewNode("s")
	n.Set("x", 1.0, 1.0)
	n.Set("y", 2.0, 1.0)
	g.Merge("s", n)

	m := newTestMesh(g)
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)

	raw := []byte(`{"#":"req1","get":{"#":"s",".":"x"}}`)
	require.NoError(t, m.Hear(raw, p))

	var reply frame
	require.NoError(t, json.Unmarshal(sender.got, &reply))
	put := reply["put"].(map[string]any)
	node := put["s"].(map[string]any)
	assert.Equal(t, float64(1), node["x"])
	_, hasY := node["y"]
	assert.False(t, hasY, "get scoped to a field must not leak other fields")
}

func TestHearGetFrameForMissingSoulGetsNoReply(t *testing.T) {
	g := graph.New(graph.NewClock(nil), nil, nil)
	defer g.Close()
	m := newTestMesh(g)
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)

	raw := []byte(`{"#":"req1","get":{"#":"does-not-exist"}}`)
	require.NoError(t, m.Hear(raw, p))

	assert.Empty(t, sender.got)
}

func TestHearRejectsOversizedIncomingMessage(t *testing.T) {
	m := New(testSoulGen, nil, nil, Options{MaxMessageBytes: 5, Retry: 60})
	sender := &capturingSender{}
	p := NewPeer("ws://a")
	p.SetSender(sender)

	err := m.Hear([]byte(`{"#":"too-big-for-the-limit"}`), p)
	require.NoError(t, err) // Hear itself reports the error to the peer, not to the caller

	var reply frame
	require.NoError(t, json.Unmarshal(sender.got, &reply))
	assert.Equal(t, "!", reply["dam"])
}

func TestHearEmptyRawIsNoop(t *testing.T) {
	m := newTestMesh(nil)
	assert.NoError(t, m.Hear(nil, nil))
}

type emitFunc func(topic string, data any)

func (f emitFunc) EmitAlways(topic string, data any) { f(topic, data) }
