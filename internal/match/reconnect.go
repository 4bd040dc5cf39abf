package match

import (
	"time"

	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/pkg/wire"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Reconnect validates rejoin requests and runs the deferred teardown
// after a disconnect. Teardown is keyed by the connection id observed
// at disconnect time: a rejoin that rebinds the seat before the timer
// fires makes the reaper's check fail, so rejoin wins the race.
type Reconnect struct {
	store  *Store
	sender Sender
	clock  clockwork.Clock
	grace  time.Duration
}

func NewReconnect(store *Store, sender Sender, clock clockwork.Clock, grace time.Duration) *Reconnect {
	return &Reconnect{store: store, sender: sender, clock: clock, grace: grace}
}

// Rejoin rebinds the slot's connection to connID and replays the last
// relayed game state. A supplied userId that mismatches the recorded
// identity for the slot is rejected without touching the session.
func (r *Reconnect) Rejoin(connID string, req wire.Rejoin) error {
	var rejected error
	var state any
	var oppConn string
	found := r.store.With(req.MatchID, func(s *Session) {
		seat := s.Seat(req.Slot)
		if seat == nil {
			rejected = wire.ErrNotFound
			return
		}
		if seat.UserID != "" && req.UserID != "" && req.UserID != seat.UserID {
			rejected = wire.ErrUnauthorized
			return
		}
		seat.ConnID = connID
		if s.teardown != nil {
			s.teardown.Stop()
			s.teardown = nil
		}
		state = s.LastGameState
		if opp := s.Opponent(req.Slot); opp != nil {
			oppConn = opp.ConnID
		}
	})
	if !found {
		return wire.ErrNotFound
	}
	if rejected != nil {
		return rejected
	}

	r.sender.Send(connID, wire.EvtRejoined, wire.Rejoined{MatchID: req.MatchID, Slot: req.Slot, LastGameState: state})
	if oppConn != "" && r.sender.IsLive(oppConn) {
		r.sender.Send(oppConn, wire.EvtOpponentReconnected, wire.SeatNotice{MatchID: req.MatchID, Slot: req.Slot})
	}
	obslog.L().Info("match_rejoin",
		zap.String("match_id", req.MatchID),
		zap.Int("slot", req.Slot),
		zap.String("conn_id", connID),
	)
	return nil
}

// HandleDisconnect notifies opponents and arms the grace-period reaper
// for every session the connection occupied.
func (r *Reconnect) HandleDisconnect(connID string) {
	type notice struct {
		matchID string
		slot    int
		oppConn string
	}
	var affected []notice
	r.store.ForEachWithConn(connID, func(s *Session, slot int) {
		n := notice{matchID: s.MatchID, slot: slot}
		if opp := s.Opponent(slot); opp != nil {
			n.oppConn = opp.ConnID
		}
		matchID := s.MatchID
		s.teardown = r.clock.AfterFunc(r.grace, func() {
			r.reap(matchID, connID)
		})
		affected = append(affected, n)
	})

	for _, n := range affected {
		if n.oppConn != "" && r.sender.IsLive(n.oppConn) {
			r.sender.Send(n.oppConn, wire.EvtOpponentDisconnected, wire.SeatNotice{MatchID: n.matchID, Slot: n.slot})
		}
		obslog.L().Info("match_disconnect",
			zap.String("match_id", n.matchID),
			zap.Int("slot", n.slot),
			zap.String("conn_id", connID),
		)
	}
}

// reap deletes the session only if the seat still holds the connection
// id captured at disconnect time.
func (r *Reconnect) reap(matchID, connID string) {
	deleted := r.store.DeleteIf(matchID, func(s *Session) bool {
		return s.SlotOf(connID) != 0
	})
	if deleted {
		obslog.L().Info("match_reaped", zap.String("match_id", matchID), zap.String("conn_id", connID))
	}
}
