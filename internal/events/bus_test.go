package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnEmitDeliversData(t *testing.T) {
	b := NewBus()
	var got any
	b.On("topic", func(data any) { got = data })

	b.Emit("topic", "hello")
	assert.Equal(t, "hello", got)
}

func TestEmitSuppressesDuplicateDelivery(t *testing.T) {
	b := NewBus()
	calls := 0
	b.On("topic", func(data any) { calls++ })

	b.Emit("topic", "same")
	b.Emit("topic", "same")
	assert.Equal(t, 1, calls, "identical consecutive values must be suppressed")

	b.Emit("topic", "different")
	assert.Equal(t, 2, calls)
}

func TestEmitSuppressionIsPerListener(t *testing.T) {
	b := NewBus()
	var calls1, calls2 int
	b.On("topic", func(data any) { calls1++ })
	b.Emit("topic", "a")

	b.On("topic", func(data any) { calls2++ })
	b.Emit("topic", "a") // same value again: listener1 suppressed, listener2 sees it fresh

	assert.Equal(t, 1, calls1)
	assert.Equal(t, 1, calls2)
}

func TestEmitAlwaysBypassesSuppression(t *testing.T) {
	b := NewBus()
	calls := 0
	b.On("topic", func(data any) { calls++ })

	b.EmitAlways("topic", "same")
	b.EmitAlways("topic", "same")
	assert.Equal(t, 2, calls)
}

func TestOffRemovesOnlyThatListener(t *testing.T) {
	b := NewBus()
	var calls1, calls2 int
	id1 := b.On("topic", func(data any) { calls1++ })
	b.On("topic", func(data any) { calls2++ })

	b.Off("topic", id1)
	b.Emit("topic", "x")

	assert.Equal(t, 0, calls1)
	assert.Equal(t, 1, calls2)
}

func TestOffOnUnknownTopicIsNoop(t *testing.T) {
	b := NewBus()
	assert.NotPanics(t, func() { b.Off("missing", 999) })
}

func TestListenerCountReflectsRegistrations(t *testing.T) {
	b := NewBus()
	assert.Equal(t, 0, b.ListenerCount("topic"))

	id := b.On("topic", func(data any) {})
	assert.Equal(t, 1, b.ListenerCount("topic"))

	b.Off("topic", id)
	assert.Equal(t, 0, b.ListenerCount("topic"))
}

func TestEmitWithNoListenersDoesNotPanic(t *testing.T) {
	b := NewBus()
	assert.NotPanics(t, func() { b.Emit("nobody-home", "x") })
}

func TestCallbackCanReEnterBusWithoutDeadlock(t *testing.T) {
	b := NewBus()
	done := make(chan struct{}, 1)
	b.On("a", func(data any) {
		b.Emit("b", data)
	})
	b.On("b", func(data any) {
		done <- struct{}{}
	})

	b.Emit("a", "trigger")
	select {
	case <-done:
	default:
		t.Fatal("expected nested Emit from within a callback to deliver")
	}
}

func TestNewCloudEventShape(t *testing.T) {
	ev := NewCloudEvent("node_update:abc", "gun", map[string]any{"x": 1.0}, 42)
	assert.Equal(t, "1.0", ev.SpecVersion)
	assert.Equal(t, "node_update:abc", ev.Type)
	assert.Equal(t, "gun", ev.Source)
	assert.Equal(t, "ev-42", ev.ID)
	assert.False(t, ev.Time.IsZero())
}
