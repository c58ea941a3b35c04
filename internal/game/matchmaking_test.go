package game

import (
	"testing"

	"github.com/jonboulle/clockwork"
)

func newTestMatchmaker(bc *fakeBroadcaster, clock clockwork.Clock) (*Matchmaker, *Registry) {
	registry := NewRegistry()
	return NewMatchmaker(registry, franceProvider(), bc, clock), registry
}

func TestEnqueueAcknowledgesWaiting(t *testing.T) {
	bc := newFakeBroadcaster()
	m, registry := newTestMatchmaker(bc, clockwork.NewFakeClock())

	m.Enqueue(&fakeConn{id: "c1", name: "Alice", connected: true})

	if got := bc.all(EventPlayerWaiting); len(got) != 1 || got[0].player != "c1" {
		t.Errorf("player:waiting = %+v, want unicast to c1", got)
	}
	if m.Waiting() != 1 {
		t.Errorf("waiting = %d, want 1", m.Waiting())
	}
	if registry.Len() != 0 {
		t.Errorf("sessions = %d, want 0", registry.Len())
	}
}

func TestEnqueueIsIdempotent(t *testing.T) {
	bc := newFakeBroadcaster()
	m, _ := newTestMatchmaker(bc, clockwork.NewFakeClock())

	conn := &fakeConn{id: "c1", name: "Alice", connected: true}
	m.Enqueue(conn)
	m.Enqueue(conn)

	if m.Waiting() != 1 {
		t.Errorf("waiting = %d after duplicate enqueue, want 1", m.Waiting())
	}
}

func TestEnqueuePairsTwoOldest(t *testing.T) {
	bc := newFakeBroadcaster()
	clock := clockwork.NewFakeClock()
	m, registry := newTestMatchmaker(bc, clock)

	m.Enqueue(&fakeConn{id: "c1", name: "Alice", connected: true})
	m.Enqueue(&fakeConn{id: "c2", name: "Bob", connected: true})
	m.Enqueue(&fakeConn{id: "c3", name: "Carol", connected: true})

	if registry.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", registry.Len())
	}
	if m.Waiting() != 1 {
		t.Errorf("waiting = %d, want 1 (Carol left over)", m.Waiting())
	}

	matched := bc.all(EventPlayerMatched)
	if len(matched) != 1 {
		t.Fatalf("player:matched = %d events, want 1", len(matched))
	}
	gameID := matched[0].event.Data.(string)
	sess, ok := registry.Get(gameID)
	if !ok {
		t.Fatalf("matched game %s not in registry", gameID)
	}
	if !sess.HasPlayer("c1") || !sess.HasPlayer("c2") {
		t.Errorf("session missing paired players c1/c2")
	}
	if sess.HasPlayer("c3") {
		t.Errorf("session contains unpaired player c3")
	}

	// Round 1 starts after the match-start delay.
	if got := len(bc.all(EventGameStart)); got != 0 {
		t.Fatalf("round started before delay, starts = %d", got)
	}
	clock.Advance(matchStartDelay)
	start := bc.waitFor(t, EventGameStart)
	if got := start.event.Data.(StartPayload).CurrentRound; got != 1 {
		t.Errorf("currentRound = %d, want 1", got)
	}
}

func TestPairingRequeuesConnectedSurvivor(t *testing.T) {
	bc := newFakeBroadcaster()
	m, registry := newTestMatchmaker(bc, clockwork.NewFakeClock())

	dead := &fakeConn{id: "c1", name: "Alice", connected: true}
	m.Enqueue(dead)
	dead.connected = false

	survivor := &fakeConn{id: "c2", name: "Bob", connected: true}
	m.Enqueue(survivor)

	if registry.Len() != 0 {
		t.Fatalf("sessions = %d, want 0 (pairing aborted)", registry.Len())
	}
	if m.Waiting() != 1 {
		t.Fatalf("waiting = %d, want 1 (survivor requeued)", m.Waiting())
	}

	// The next arrival pairs with the requeued survivor.
	m.Enqueue(&fakeConn{id: "c3", name: "Carol", connected: true})
	if registry.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", registry.Len())
	}
	gameID := bc.all(EventPlayerMatched)[0].event.Data.(string)
	sess, _ := registry.Get(gameID)
	if !sess.HasPlayer("c2") || !sess.HasPlayer("c3") {
		t.Errorf("session missing survivor pairing c2/c3")
	}
}

func TestRemoveDropsWaitingConnection(t *testing.T) {
	bc := newFakeBroadcaster()
	m, _ := newTestMatchmaker(bc, clockwork.NewFakeClock())

	m.Enqueue(&fakeConn{id: "c1", name: "Alice", connected: true})
	m.Remove("c1")
	m.Remove("c1") // no-op when absent

	if m.Waiting() != 0 {
		t.Errorf("waiting = %d, want 0", m.Waiting())
	}
}
