// Package rtc implements Gun's WebRTC peer transport: peers signal over
// the existing DAM mesh (offer/answer/ICE candidates riding inside
// ordinary DAM frames), then exchange data-channel messages directly.
// Grounded on orbas1-Synnergy/synnergy-network/core/rpc_webrtc.go's
// pion/webrtc/v4 usage (PeerConnection + named DataChannel per peer),
// adapted from its HTTP/RPC bridge to Gun's signalling-over-mesh model
// (original_source/src/dam.rs handles the "?"/"!" handshake the same way
// this package's signalling messages ride inside frames).
package rtc

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/gundb/gun-go/internal/gunerr"
	"github.com/gundb/gun-go/internal/mesh"
)

// State is the WebRTC peer connection lifecycle (spec §6 WebRTC state
// machine).
type State int

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

// signalFrame is the {ok: {rtc: {...}}} envelope signalling messages use
// to ride inside ordinary DAM frames (spec §6 "Signalling coupling"
// design note).
type signalFrame struct {
	ID        string                     `json:"id"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// Peer wraps one WebRTC connection and its Gun data channel.
type Peer struct {
	id      string
	conn    *webrtc.PeerConnection
	channel *webrtc.DataChannel
	state   State

	mu     sync.Mutex
	onData func([]byte)
}

// Send writes raw over the Gun data channel, satisfying mesh.Sender.
func (p *Peer) Send(raw []byte) error {
	p.mu.Lock()
	ch := p.channel
	p.mu.Unlock()
	if ch == nil {
		return gunerr.New(gunerr.KindNetwork, "rtc.Peer.Send", "data channel not open")
	}
	return ch.Send(raw)
}

// Close tears down the peer connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}

// Manager brokers WebRTC peer connections signalled via a DAM Mesh's "dam:
// ?" exchange pattern, rather than a separate signalling server.
type Manager struct {
	mu    sync.Mutex
	peers map[string]*Peer

	m      *mesh.Mesh
	config webrtc.Configuration
}

// NewManager builds a Manager that signals over m. Its ICE configuration
// uses Google's public STUN server; the exported API offers no way to
// change it.
func NewManager(m *mesh.Mesh) *Manager {
	return &Manager{
		peers: make(map[string]*Peer),
		m:     m,
		config: webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		},
	}
}

// Offer creates a new peer connection, a "gun" data channel, and returns
// the local SDP offer to send to dest via the mesh signalling frame.
func (mgr *Manager) Offer(id string, onData func([]byte)) (*Peer, *webrtc.SessionDescription, error) {
	pc, err := webrtc.NewPeerConnection(mgr.config)
	if err != nil {
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Offer", err)
	}

	dc, err := pc.CreateDataChannel("gun", nil)
	if err != nil {
		pc.Close()
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Offer", err)
	}

	p := &Peer{id: id, conn: pc, state: StateNew, onData: onData}
	dc.OnOpen(func() {
		p.mu.Lock()
		p.channel = dc
		p.state = StateConnected
		p.mu.Unlock()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if p.onData != nil {
			p.onData(msg.Data)
		}
	})
	mgr.trackState(p)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Offer", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Offer", err)
	}

	mgr.mu.Lock()
	mgr.peers[id] = p
	mgr.mu.Unlock()

	return p, pc.LocalDescription(), nil
}

// Answer accepts a remote offer and returns a local SDP answer.
func (mgr *Manager) Answer(id string, offer webrtc.SessionDescription, onData func([]byte)) (*Peer, *webrtc.SessionDescription, error) {
	pc, err := webrtc.NewPeerConnection(mgr.config)
	if err != nil {
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Answer", err)
	}

	p := &Peer{id: id, conn: pc, state: StateConnecting, onData: onData}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			p.mu.Lock()
			p.channel = dc
			p.state = StateConnected
			p.mu.Unlock()
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if p.onData != nil {
				p.onData(msg.Data)
			}
		})
	})
	mgr.trackState(p)

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Answer", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Answer", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return nil, nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.Answer", err)
	}

	mgr.mu.Lock()
	mgr.peers[id] = p
	mgr.mu.Unlock()

	return p, pc.LocalDescription(), nil
}

// AcceptAnswer completes the handshake after the remote side answers our
// offer.
func (mgr *Manager) AcceptAnswer(id string, answer webrtc.SessionDescription) error {
	mgr.mu.Lock()
	p, ok := mgr.peers[id]
	mgr.mu.Unlock()
	if !ok {
		return gunerr.New(gunerr.KindNotFound, "rtc.AcceptAnswer", "unknown peer: "+id)
	}
	if err := p.conn.SetRemoteDescription(answer); err != nil {
		return gunerr.Wrap(gunerr.KindNetwork, "rtc.AcceptAnswer", err)
	}
	return nil
}

// AddICECandidate forwards a remote ICE candidate to the matching peer
// connection.
func (mgr *Manager) AddICECandidate(id string, candidate webrtc.ICECandidateInit) error {
	mgr.mu.Lock()
	p, ok := mgr.peers[id]
	mgr.mu.Unlock()
	if !ok {
		return gunerr.New(gunerr.KindNotFound, "rtc.AddICECandidate", "unknown peer: "+id)
	}
	if err := p.conn.AddICECandidate(candidate); err != nil {
		return gunerr.Wrap(gunerr.KindNetwork, "rtc.AddICECandidate", err)
	}
	return nil
}

func (mgr *Manager) trackState(p *Peer) {
	p.conn.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.mu.Lock()
		switch s {
		case webrtc.PeerConnectionStateConnecting:
			p.state = StateConnecting
		case webrtc.PeerConnectionStateConnected:
			p.state = StateConnected
		case webrtc.PeerConnectionStateDisconnected:
			p.state = StateDisconnected
		case webrtc.PeerConnectionStateFailed:
			p.state = StateFailed
		case webrtc.PeerConnectionStateClosed:
			p.state = StateClosed
		}
		p.mu.Unlock()
	})
}

// EncodeSignal wraps a signalling payload in the {ok:{rtc:{...}}} mesh
// frame shape so it rides over the existing DAM connection.
func EncodeSignal(id string, offer, answer *webrtc.SessionDescription, candidate *webrtc.ICECandidateInit) (map[string]any, error) {
	f := signalFrame{ID: id, Offer: offer, Answer: answer, Candidate: candidate}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.EncodeSignal", err)
	}
	var inner map[string]any
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, gunerr.Wrap(gunerr.KindNetwork, "rtc.EncodeSignal", err)
	}
	return map[string]any{"ok": map[string]any{"rtc": inner}}, nil
}

// DecodeSignal extracts a signalFrame from a mesh frame previously built
// by EncodeSignal.
func DecodeSignal(frame map[string]any) (id string, offer, answer *webrtc.SessionDescription, candidate *webrtc.ICECandidateInit, err error) {
	ok, _ := frame["ok"].(map[string]any)
	rtcRaw, hasRTC := ok["rtc"]
	if !hasRTC {
		return "", nil, nil, nil, gunerr.New(gunerr.KindInvalidData, "rtc.DecodeSignal", "not an rtc signal frame")
	}
	raw, err := json.Marshal(rtcRaw)
	if err != nil {
		return "", nil, nil, nil, gunerr.Wrap(gunerr.KindInvalidData, "rtc.DecodeSignal", err)
	}
	var f signalFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", nil, nil, nil, gunerr.Wrap(gunerr.KindInvalidData, "rtc.DecodeSignal", err)
	}
	return f.ID, f.Offer, f.Answer, f.Candidate, nil
}
