package rtc

import (
	"testing"

	"github.com/gundb/gun-go/internal/gunerr"
)

func TestPeerSendBeforeOpenFails(t *testing.T) {
	p := &Peer{id: "peer-1"}
	err := p.Send([]byte("hello"))
	if err == nil {
		t.Fatal("expected error sending before data channel opens")
	}
	if !gunerr.Is(err, gunerr.KindNetwork) {
		t.Fatalf("expected KindNetwork, got %v", err)
	}
}
