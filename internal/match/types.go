package match

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// PlayerRef identifies one seat of a session. ConnID is rebound on
// reconnect; UserID is fixed for the life of the session.
type PlayerRef struct {
	ConnID  string
	UserID  string
	IsGuest bool
}

// Session is the live state of one paired match. LastGameState is an
// opaque snapshot relayed by the clients; the server never validates
// it against game rules, it only hands it back on rejoin.
type Session struct {
	MatchID string
	Player1 PlayerRef
	Player2 PlayerRef

	LastGameState any

	Ranked  bool
	Rating1 int
	Rating2 int

	CreatedAt time.Time

	// teardown is the pending grace-period reaper, nil when none.
	teardown clockwork.Timer
	// settled guards rating settlement against duplicate game-over
	// events for the same match.
	settled bool
}

// Seat returns the player reference for slot 1 or 2, nil otherwise.
func (s *Session) Seat(slot int) *PlayerRef {
	switch slot {
	case 1:
		return &s.Player1
	case 2:
		return &s.Player2
	}
	return nil
}

// Opponent returns the seat opposite to slot, nil for an invalid slot.
func (s *Session) Opponent(slot int) *PlayerRef {
	switch slot {
	case 1:
		return &s.Player2
	case 2:
		return &s.Player1
	}
	return nil
}

// SlotOf reports which seat connID currently occupies, 0 if neither.
func (s *Session) SlotOf(connID string) int {
	if s.Player1.ConnID == connID {
		return 1
	}
	if s.Player2.ConnID == connID {
		return 2
	}
	return 0
}
