package match

import (
	"context"
	"encoding/json"

	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/internal/rating"
	"github.com/backgammon-arena/server/pkg/wire"
	"go.uber.org/zap"
)

// Sender delivers outbound events to a connection. Send reports
// whether the connection is currently live.
type Sender interface {
	Send(connID, event string, payload any) bool
	IsLive(connID string) bool
}

// Relay routes gameplay events between the two participants of a
// session. Payloads are forwarded opaquely; the only server-side
// mutation derived from gameplay content is the LastGameState
// snapshot. Events for an unknown match are dropped silently.
type Relay struct {
	store  *Store
	sender Sender
	settle *rating.Settlement
}

func NewRelay(store *Store, sender Sender, settle *rating.Settlement) *Relay {
	return &Relay{store: store, sender: sender, settle: settle}
}

// Dispatch handles one inbound gameplay event from connID.
func (r *Relay) Dispatch(connID, event string, data json.RawMessage) {
	payload := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			obslog.L().Warn("relay_bad_payload", zap.String("event", event), zap.String("conn_id", connID), zap.Error(err))
			return
		}
	}
	matchID, _ := payload["matchId"].(string)
	if matchID == "" {
		obslog.L().Warn("relay_missing_match_id", zap.String("event", event), zap.String("conn_id", connID))
		return
	}

	switch event {
	case wire.EvtGameOver:
		r.gameOver(matchID, payload)
	case wire.EvtDoubleResponse:
		r.doubleResponse(matchID, payload)
	case wire.EvtRematchRequest, wire.EvtRematchAccept, wire.EvtRematchDecline:
		r.rematch(event, matchID, payload)
	default:
		r.forward(event, matchID, payload)
	}
}

// forward covers the slot-keyed events that go to the opponent only:
// dice rolls, moves, state sync, turn end, double offers, the
// first-roll sequence, and chat.
func (r *Relay) forward(event, matchID string, payload map[string]any) {
	slot := intAt(payload, "slot")
	var oppConn string
	found := r.store.With(matchID, func(s *Session) {
		switch event {
		case wire.EvtMove, wire.EvtEndTurn:
			if gs, ok := payload["gameState"]; ok && gs != nil {
				s.LastGameState = gs
			}
		case wire.EvtStateSync:
			s.LastGameState = payload
		}
		if opp := s.Opponent(slot); opp != nil {
			oppConn = opp.ConnID
		}
	})
	if !found {
		obslog.L().Warn("relay_unknown_match", zap.String("event", event), zap.String("match_id", matchID))
		return
	}
	if oppConn == "" {
		obslog.L().Warn("relay_invalid_slot", zap.String("event", event), zap.String("match_id", matchID), zap.Int("slot", slot))
		return
	}

	outEvent := event
	var out any = payload
	switch event {
	case wire.EvtDiceRoll:
		outEvent = wire.EvtDiceRolled
	case wire.EvtEndTurn:
		// The opponent only needs to know whose turn it is now.
		outEvent = wire.EvtTurnChanged
		out = map[string]any{"matchId": matchID, "currentPlayer": payload["nextPlayer"]}
	case wire.EvtDoubleOffer:
		outEvent = wire.EvtDoubleOffered
		if offer, ok := payload["doubleOffer"].(map[string]any); ok {
			payload["to"] = offer["to"]
		}
	}
	r.sender.Send(oppConn, outEvent, out)
}

// doubleResponse forwards an accepted double to the opponent only; a
// declined double ends the game and is broadcast to both seats.
func (r *Relay) doubleResponse(matchID string, payload map[string]any) {
	slot := intAt(payload, "slot")
	accepted, _ := payload["accepted"].(bool)
	var oppConn, ownConn string
	found := r.store.With(matchID, func(s *Session) {
		if opp := s.Opponent(slot); opp != nil {
			oppConn = opp.ConnID
		}
		if seat := s.Seat(slot); seat != nil {
			ownConn = seat.ConnID
		}
	})
	if !found {
		obslog.L().Warn("relay_unknown_match", zap.String("event", wire.EvtDoubleResponse), zap.String("match_id", matchID))
		return
	}
	if oppConn == "" {
		obslog.L().Warn("relay_invalid_slot", zap.String("event", wire.EvtDoubleResponse), zap.String("match_id", matchID), zap.Int("slot", slot))
		return
	}
	if accepted {
		payload["doubleOffer"] = map[string]any{"from": otherSlot(slot), "to": slot}
		r.sender.Send(oppConn, wire.EvtDoubleResponse, payload)
		return
	}
	r.sender.Send(oppConn, wire.EvtDoubleResponse, payload)
	r.sender.Send(ownConn, wire.EvtDoubleResponse, payload)
}

// rematch routes the request/accept/decline negotiation between the
// two recorded participants using the from/to seat numbers.
func (r *Relay) rematch(event, matchID string, payload map[string]any) {
	from := intAt(payload, "from")
	to := intAt(payload, "to")
	var toConn, fromConn string
	found := r.store.With(matchID, func(s *Session) {
		if seat := s.Seat(to); seat != nil {
			toConn = seat.ConnID
		}
		if seat := s.Seat(from); seat != nil {
			fromConn = seat.ConnID
		}
	})
	if !found {
		obslog.L().Warn("relay_unknown_match", zap.String("event", event), zap.String("match_id", matchID))
		return
	}
	if toConn == "" || fromConn == "" {
		obslog.L().Warn("relay_invalid_slot", zap.String("event", event), zap.String("match_id", matchID), zap.Int("from", from), zap.Int("to", to))
		return
	}

	switch event {
	case wire.EvtRematchRequest:
		if !r.sender.IsLive(toConn) {
			// The opponent is gone; answer the requester right away
			// instead of leaving the request hanging.
			r.sender.Send(fromConn, wire.EvtRematchDecline, map[string]any{
				"matchId": matchID, "from": to, "to": from,
			})
			return
		}
		r.sender.Send(toConn, event, payload)
	case wire.EvtRematchAccept:
		r.sender.Send(toConn, event, payload)
		r.sender.Send(fromConn, event, payload)
	case wire.EvtRematchDecline:
		r.sender.Send(toConn, event, payload)
	}
}

// gameOver settles ratings (once per match, ranked non-guest pairs
// only) and broadcasts the outcome to both participants.
func (r *Relay) gameOver(matchID string, payload map[string]any) {
	gameOver, _ := payload["gameOver"].(map[string]any)
	winnerSlot := intAt(gameOver, "winner")

	var conn1, conn2 string
	var winnerDelta, loserDelta rating.Delta
	settleNow := false
	found := r.store.With(matchID, func(s *Session) {
		conn1, conn2 = s.Player1.ConnID, s.Player2.ConnID
		if !s.Ranked || s.Player1.IsGuest || s.Player2.IsGuest || s.settled {
			return
		}
		winner := s.Seat(winnerSlot)
		loser := s.Opponent(winnerSlot)
		if winner == nil || loser == nil {
			obslog.L().Warn("settle_invalid_winner", zap.String("match_id", matchID), zap.Int("winner", winnerSlot))
			return
		}
		s.settled = true
		settleNow = true
		wr, lr := s.Rating1, s.Rating2
		if winnerSlot == 2 {
			wr, lr = s.Rating2, s.Rating1
		}
		winnerDelta, loserDelta = r.settle.Compute(winner.UserID, wr, loser.UserID, lr)
	})
	if !found {
		obslog.L().Warn("relay_unknown_match", zap.String("event", wire.EvtGameOver), zap.String("match_id", matchID))
		return
	}

	var eloChanges any
	if settleNow {
		changes := map[string]rating.Delta{}
		if winnerSlot == 1 {
			changes["player1"], changes["player2"] = winnerDelta, loserDelta
		} else {
			changes["player1"], changes["player2"] = loserDelta, winnerDelta
		}
		eloChanges = changes
		go r.settle.Persist(context.Background(), matchID, winnerDelta, loserDelta)
		obslog.L().Info("match_settled",
			zap.String("match_id", matchID),
			zap.String("winner_id", winnerDelta.UserID),
			zap.Int("winner_change", winnerDelta.Change),
			zap.Int("loser_change", loserDelta.Change),
		)
	}

	out := map[string]any{"matchId": matchID, "gameOver": gameOver, "eloChanges": eloChanges}
	r.sender.Send(conn1, wire.EvtGameOver, out)
	r.sender.Send(conn2, wire.EvtGameOver, out)
}

func otherSlot(slot int) int {
	if slot == 1 {
		return 2
	}
	return 1
}

// intAt reads an integer field from a decoded JSON object, where
// numbers arrive as float64.
func intAt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
