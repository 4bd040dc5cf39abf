package match

import (
	"errors"
	"testing"
	"time"

	"github.com/backgammon-arena/server/pkg/wire"
	"github.com/jonboulle/clockwork"
)

func newReconnectEnv(t *testing.T, sess *Session) (*Reconnect, *fakeSender, *Store, *clockwork.FakeClock) {
	t.Helper()
	store := NewStore()
	if err := store.Create(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	sender := newFakeSender()
	clock := clockwork.NewFakeClock()
	rec := NewReconnect(store, sender, clock, 30*time.Second)
	return rec, sender, store, clock
}

// waitFor polls cond; the reaper fires on a timer goroutine, so tests
// cannot assert its effect synchronously after advancing the clock.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRejoinRestoresSeatAndState(t *testing.T) {
	sess := guestSession("m1")
	sess.LastGameState = map[string]any{"turn": 9}
	rec, sender, store, _ := newReconnectEnv(t, sess)

	if err := rec.Rejoin("c9", wire.Rejoin{MatchID: "m1", Slot: 1, UserID: "u1"}); err != nil {
		t.Fatalf("Rejoin: %v", err)
	}

	e := sender.last(t, "c9")
	if e.event != wire.EvtRejoined {
		t.Fatalf("event = %s, want %s", e.event, wire.EvtRejoined)
	}
	rj := e.payload.(wire.Rejoined)
	if rj.MatchID != "m1" || rj.Slot != 1 {
		t.Fatalf("payload = %+v", rj)
	}
	if gs, ok := rj.LastGameState.(map[string]any); !ok || gs["turn"] != 9 {
		t.Fatalf("LastGameState = %v", rj.LastGameState)
	}

	opp := sender.last(t, "c2")
	if opp.event != wire.EvtOpponentReconnected {
		t.Fatalf("opponent event = %s", opp.event)
	}

	var bound string
	store.With("m1", func(s *Session) { bound = s.Player1.ConnID })
	if bound != "c9" {
		t.Fatalf("seat bound to %s, want c9", bound)
	}
}

func TestRejoinUnknownMatch(t *testing.T) {
	rec, sender, _, _ := newReconnectEnv(t, guestSession("m1"))
	err := rec.Rejoin("c9", wire.Rejoin{MatchID: "ghost", Slot: 1})
	if !errors.Is(err, wire.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if sender.count() != 0 {
		t.Fatal("failed rejoin must not emit events")
	}
}

func TestRejoinInvalidSlot(t *testing.T) {
	rec, _, _, _ := newReconnectEnv(t, guestSession("m1"))
	if err := rec.Rejoin("c9", wire.Rejoin{MatchID: "m1", Slot: 3}); !errors.Is(err, wire.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRejoinUserMismatchRejected(t *testing.T) {
	rec, sender, store, _ := newReconnectEnv(t, newSession("m1"))
	err := rec.Rejoin("c9", wire.Rejoin{MatchID: "m1", Slot: 1, UserID: "intruder"})
	if !errors.Is(err, wire.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	var bound string
	store.With("m1", func(s *Session) { bound = s.Player1.ConnID })
	if bound != "c1" {
		t.Fatalf("seat rebound to %s on rejected rejoin", bound)
	}
	if sender.count() != 0 {
		t.Fatal("rejected rejoin must not emit events")
	}
}

func TestRejoinWithoutUserIDAllowed(t *testing.T) {
	// Guest seats carry a generated identity; the client does not send
	// one back, which must still pass.
	sess := newSession("m1")
	sess.Player1.UserID = "guest_1700000000000_abc"
	rec, _, _, _ := newReconnectEnv(t, sess)
	if err := rec.Rejoin("c9", wire.Rejoin{MatchID: "m1", Slot: 1}); err != nil {
		t.Fatalf("Rejoin: %v", err)
	}
}

func TestDisconnectNotifiesThenReaps(t *testing.T) {
	rec, sender, store, clock := newReconnectEnv(t, guestSession("m1"))

	rec.HandleDisconnect("c1")
	e := sender.last(t, "c2")
	if e.event != wire.EvtOpponentDisconnected {
		t.Fatalf("event = %s, want %s", e.event, wire.EvtOpponentDisconnected)
	}
	if n := e.payload.(wire.SeatNotice); n.MatchID != "m1" || n.Slot != 1 {
		t.Fatalf("notice = %+v", n)
	}
	if store.Len() != 1 {
		t.Fatal("session reaped before the grace period")
	}

	clock.Advance(31 * time.Second)
	waitFor(t, func() bool { return store.Len() == 0 })
}

func TestRejoinWithinGraceCancelsReaper(t *testing.T) {
	rec, _, store, clock := newReconnectEnv(t, guestSession("m1"))

	rec.HandleDisconnect("c1")
	clock.Advance(10 * time.Second)
	if err := rec.Rejoin("c9", wire.Rejoin{MatchID: "m1", Slot: 1}); err != nil {
		t.Fatalf("Rejoin: %v", err)
	}

	clock.Advance(60 * time.Second)
	time.Sleep(50 * time.Millisecond)
	if store.Len() != 1 {
		t.Fatal("session reaped despite rejoin within grace")
	}
}

func TestReaperSkipsReboundSeat(t *testing.T) {
	rec, _, store, clock := newReconnectEnv(t, guestSession("m1"))

	rec.HandleDisconnect("c1")
	// Rebind the seat without going through Rejoin, leaving the timer
	// armed. The reaper compares connection ids and must back off.
	store.With("m1", func(s *Session) { s.Player1.ConnID = "c9" })

	clock.Advance(31 * time.Second)
	time.Sleep(50 * time.Millisecond)
	if store.Len() != 1 {
		t.Fatal("reaper deleted a session whose seat was rebound")
	}
}

func TestDisconnectUnknownConnNoop(t *testing.T) {
	rec, sender, store, _ := newReconnectEnv(t, guestSession("m1"))
	rec.HandleDisconnect("stranger")
	if sender.count() != 0 || store.Len() != 1 {
		t.Fatal("disconnect of an unseated connection must not touch sessions")
	}
}

func TestDisconnectSkipsDeadOpponent(t *testing.T) {
	rec, sender, _, _ := newReconnectEnv(t, guestSession("m1"))
	sender.kill("c2")
	rec.HandleDisconnect("c1")
	if n := len(sender.eventsFor("c2")); n != 0 {
		t.Fatalf("dead opponent received %d events", n)
	}
}
