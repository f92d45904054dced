package rtc

import (
	"log/slog"

	"github.com/gundb/gun-go/internal/mesh"
)

// eventBus is the subset of events.Bus that signalling needs, kept as an
// inline interface so rtc never imports internal/events directly (it only
// ever sees frames the mesh already decoded).
type eventBus interface {
	On(topic string, cb func(data any)) uint64
}

// Listen subscribes to the mesh's "in" topic and answers/acknowledges every
// {ok:{rtc:{...}}} signalling frame it sees (frames are not filtered by
// destination), replying over
// m so a remote offer turns into a broadcast answer (spec §6 Signalling
// coupling: WebRTC handshakes ride inside ordinary DAM frames instead of a
// dedicated signalling server).
func (mgr *Manager) Listen(bus eventBus, m *mesh.Mesh, onData func(peerID string, data []byte)) {
	bus.On("in", func(value any) {
		f, ok := value.(map[string]any)
		if !ok {
			return
		}
		id, offer, answer, candidate, err := DecodeSignal(f)
		if err != nil {
			return // not an rtc signal frame
		}

		switch {
		case offer != nil:
			_, localAnswer, err := mgr.Answer(id, *offer, func(data []byte) {
				if onData != nil {
					onData(id, data)
				}
			})
			if err != nil {
				slog.Warn("rtc: failed to answer offer", "id", id, "err", err)
				return
			}
			reply, err := EncodeSignal(id, nil, localAnswer, nil)
			if err != nil {
				return
			}
			_ = m.Say(reply, nil)

		case answer != nil:
			if err := mgr.AcceptAnswer(id, *answer); err != nil {
				slog.Warn("rtc: failed to accept answer", "id", id, "err", err)
			}

		case candidate != nil:
			if err := mgr.AddICECandidate(id, *candidate); err != nil {
				slog.Warn("rtc: failed to add ICE candidate", "id", id, "err", err)
			}
		}
	})
}

// Connect initiates an offer to id and broadcasts it over m, returning the
// local Peer handle; the answer arrives asynchronously via Listen.
func (mgr *Manager) Connect(id string, m *mesh.Mesh, onData func(data []byte)) (*Peer, error) {
	p, offer, err := mgr.Offer(id, onData)
	if err != nil {
		return nil, err
	}
	frame, err := EncodeSignal(id, offer, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := m.Say(frame, nil); err != nil {
		return nil, err
	}
	return p, nil
}
