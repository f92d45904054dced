package mesh

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sender is the minimal transport surface a peer needs: something that can
// push a raw JSON frame out. internal/transport/wsock.Conn and
// internal/transport/rtc.DataChannel both satisfy this structurally.
type Sender interface {
	Send(raw []byte) error
}

var peerCounter uint64

// Peer is one mesh connection: an outbound wire (once connected), a
// retry/backoff state machine, and a queue for messages sent before the
// wire is up. Grounded on original_source/src/dam.rs Peer, generalized
// from a single mpsc sender to the Sender interface so both WebSocket and
// WebRTC data channels can back a Peer.
type Peer struct {
	ID  string
	URL string

	mu     sync.Mutex
	sender Sender
	pid    string // remote's self-announced DAM peer id
	queue  [][]byte
	retry  int
	tried  time.Time

	tailBatch [][]byte
}

// NewPeer allocates a Peer with a locally unique id (spec §6: peer
// identity is a relay-assigned handle, not the DAM pid exchanged on wire).
func NewPeer(url string) *Peer {
	n := atomic.AddUint64(&peerCounter, 1)
	return &Peer{
		ID:    "peer_" + itoa(n),
		URL:   url,
		retry: 60,
	}
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// SetSender attaches the live transport and flushes anything queued while
// disconnected.
func (p *Peer) SetSender(s Sender) {
	p.mu.Lock()
	p.sender = s
	queued := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, raw := range queued {
		_ = s.Send(raw)
	}
}

// ClearSender detaches the transport, e.g. on disconnect, so future Sends
// queue instead of erroring.
func (p *Peer) ClearSender() {
	p.mu.Lock()
	p.sender = nil
	p.mu.Unlock()
}

// Send delivers raw immediately if connected, otherwise queues it for
// delivery once SetSender is called (spec §6: peers reconnect and resume).
func (p *Peer) Send(raw []byte) error {
	p.mu.Lock()
	s := p.sender
	if s == nil {
		p.queue = append(p.queue, raw)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return s.Send(raw)
}

// SetPID records the remote's self-announced DAM peer id from the
// handshake (spec §6 "dam: ?" exchange).
func (p *Peer) SetPID(pid string) {
	p.mu.Lock()
	p.pid = pid
	p.mu.Unlock()
}

// PID returns the remote's announced peer id, or "" before handshake.
func (p *Peer) PID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Connected reports whether a live sender is attached.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sender != nil
}

// MarkTried records a connection attempt for backoff bookkeeping.
func (p *Peer) MarkTried() {
	p.mu.Lock()
	p.tried = time.Now()
	p.mu.Unlock()
}

// LastTried returns when the peer was last dialed.
func (p *Peer) LastTried() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tried
}
