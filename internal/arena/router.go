package arena

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/backgammon-arena/server/internal/match"
	"github.com/backgammon-arena/server/internal/matchmaking"
	"github.com/backgammon-arena/server/internal/msgcat"
	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/pkg/wire"
	"go.uber.org/zap"
)

// Router maps inbound wire events onto the matchmaking, relay and
// reconnection components. No inbound event may crash the process, so
// every dispatch runs behind a recover.
type Router struct {
	mm     *matchmaking.Manager
	relay  *match.Relay
	rec    *match.Reconnect
	sender match.Sender
	cat    *msgcat.Catalog
}

func NewRouter(mm *matchmaking.Manager, relay *match.Relay, rec *match.Reconnect, sender match.Sender, cat *msgcat.Catalog) *Router {
	return &Router{mm: mm, relay: relay, rec: rec, sender: sender, cat: cat}
}

// HandleEvent processes one inbound frame from connID.
func (r *Router) HandleEvent(connID string, env wire.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			obslog.L().Error("event_panic",
				zap.String("conn_id", connID),
				zap.String("event", env.Event),
				zap.Any("panic", rec),
			)
		}
	}()

	switch env.Event {
	case wire.EvtGuestJoin:
		r.mm.JoinGuest(connID)
	case wire.EvtGuestLeave:
		r.mm.LeaveGuest(connID)
	case wire.EvtRankedJoin:
		var req wire.RankedJoin
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				obslog.L().Warn("bad_payload", zap.String("event", env.Event), zap.String("conn_id", connID), zap.Error(err))
				return
			}
		}
		if err := r.mm.JoinRanked(connID, strings.TrimSpace(req.UserID), req.Rating); err != nil {
			r.sendError(connID, "", err)
		}
	case wire.EvtRankedLeave:
		r.mm.LeaveRanked(connID)
	case wire.EvtRejoin:
		var req wire.Rejoin
		if err := json.Unmarshal(env.Data, &req); err != nil {
			obslog.L().Warn("bad_payload", zap.String("event", env.Event), zap.String("conn_id", connID), zap.Error(err))
			return
		}
		if err := r.rec.Rejoin(connID, req); err != nil {
			r.sendError(connID, req.MatchID, errWithSlot{err: err, slot: req.Slot})
		}
	default:
		if strings.HasPrefix(env.Event, "match.") {
			r.relay.Dispatch(connID, env.Event, env.Data)
			return
		}
		obslog.L().Warn("unknown_event", zap.String("event", env.Event), zap.String("conn_id", connID))
	}
}

// HandleDisconnect clears queue entries and starts the reconnection
// grace handling for every session the connection occupied.
func (r *Router) HandleDisconnect(connID string) {
	r.mm.RemoveConn(connID)
	r.rec.HandleDisconnect(connID)
}

type errWithSlot struct {
	err  error
	slot int
}

func (e errWithSlot) Error() string { return e.err.Error() }
func (e errWithSlot) Unwrap() error { return e.err }

// sendError reports a failure to the originating connection via a
// match.error event with a human-readable message.
func (r *Router) sendError(connID, matchID string, err error) {
	data := map[string]any{"MatchID": matchID}
	var ews errWithSlot
	if errors.As(err, &ews) {
		data["Slot"] = ews.slot
	}

	var msg string
	switch {
	case errors.Is(err, wire.ErrValidationMissing):
		msg = r.cat.MustRender("queue.ranked.missing_user", data, "userId is required")
	case errors.Is(err, wire.ErrNotFound):
		msg = r.cat.MustRender("match.not_found", data, "match not found")
	case errors.Is(err, wire.ErrUnauthorized):
		msg = r.cat.MustRender("match.unauthorized", data, "identity mismatch")
	default:
		msg = err.Error()
	}
	r.sender.Send(connID, wire.EvtError, wire.Error{MatchID: matchID, Message: msg})
}
