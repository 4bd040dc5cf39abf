package rating

import (
	"context"
	"time"

	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/internal/profile"
	"go.uber.org/zap"
)

// Settlement computes rating deltas at ranked match end and delegates
// persistence to the profile store. A nil store disables persistence
// without disabling the in-memory computation.
type Settlement struct {
	store   profile.Store
	timeout time.Duration
}

func NewSettlement(store profile.Store) *Settlement {
	return &Settlement{store: store, timeout: 5 * time.Second}
}

// Compute derives both deltas from the rating snapshots taken at
// pairing time. Pure; safe to call under a session lock.
func (s *Settlement) Compute(winnerID string, winnerRating int, loserID string, loserRating int) (Delta, Delta) {
	wc := Change(winnerRating, loserRating, 1)
	lc := Change(loserRating, winnerRating, 0)
	return Delta{UserID: winnerID, OldRating: winnerRating, NewRating: winnerRating + wc, Change: wc},
		Delta{UserID: loserID, OldRating: loserRating, NewRating: loserRating + lc, Change: lc}
}

// Persist writes the settled ratings and win/loss counters back to the
// profile store. Failures are logged and retried once; the deltas have
// already been broadcast, so storage durability stays best-effort.
func (s *Settlement) Persist(ctx context.Context, matchID string, winner, loser Delta) {
	if s == nil || s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.persistOne(ctx, matchID, winner, true)
	s.persistOne(ctx, matchID, loser, false)
}

func (s *Settlement) persistOne(ctx context.Context, matchID string, d Delta, won bool) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		rec, err := s.store.Get(ctx, d.UserID)
		if err != nil {
			lastErr = err
			continue
		}
		rec.Rating = d.NewRating
		rec.GamesPlayed++
		if won {
			rec.Wins++
		} else {
			rec.Losses++
		}
		if err := s.store.Update(ctx, d.UserID, rec); err != nil {
			lastErr = err
			continue
		}
		s.verify(ctx, matchID, d)
		return
	}
	obslog.L().Error("settle_persist_error",
		zap.String("match_id", matchID),
		zap.String("user_id", d.UserID),
		zap.Int("new_rating", d.NewRating),
		zap.Error(lastErr),
	)
}

// verify re-reads the stored rating. Telemetry only; a mismatch is
// logged, never acted on.
func (s *Settlement) verify(ctx context.Context, matchID string, d Delta) {
	rec, err := s.store.Get(ctx, d.UserID)
	if err != nil {
		obslog.L().Warn("settle_verify_error", zap.String("match_id", matchID), zap.String("user_id", d.UserID), zap.Error(err))
		return
	}
	if rec.Rating != d.NewRating {
		obslog.L().Warn("settle_verify_mismatch",
			zap.String("match_id", matchID),
			zap.String("user_id", d.UserID),
			zap.Int("want", d.NewRating),
			zap.Int("got", rec.Rating),
		)
	}
}
