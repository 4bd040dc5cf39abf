package matchmaking

import (
	"sync"

	"github.com/backgammon-arena/server/internal/match"
	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/pkg/wire"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Manager owns both matchmaking queues. One mutex covers queue
// mutations and the session creation performed while pairing, so each
// join or leave is a single exclusive region.
type Manager struct {
	mu     sync.Mutex
	guest  []Entry
	ranked []Entry

	store  *match.Store
	sender Sender
	clock  clockwork.Clock
	opts   Options
}

func NewManager(store *match.Store, sender Sender, clock clockwork.Clock, opts Options) *Manager {
	if opts.Window <= 0 {
		opts.Window = 200
	}
	if opts.WideWindow <= 0 {
		opts.WideWindow = 400
	}
	return &Manager{store: store, sender: sender, clock: clock, opts: opts}
}

// JoinGuest enqueues the connection with a fresh guest identity and
// pairs the two earliest entries when possible.
func (m *Manager) JoinGuest(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removeByConn(&m.guest, connID)
	now := m.clock.Now()
	m.guest = append(m.guest, Entry{ConnID: connID, UserID: guestIdentity(now), JoinedAt: now})

	if len(m.guest) < 2 {
		m.sender.Send(connID, wire.EvtGuestQueued, wire.Queued{Position: len(m.guest)})
		obslog.L().Info("queue_guest_join", zap.String("conn_id", connID), zap.Int("queue_len", len(m.guest)))
		return
	}

	e1, e2 := m.guest[0], m.guest[1]
	m.guest = m.guest[2:]
	m.createSession(e1, e2, false)
}

// LeaveGuest removes the entry if present. Leaving twice is fine.
func (m *Manager) LeaveGuest(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeByConn(&m.guest, connID)
	m.sender.Send(connID, wire.EvtGuestLeft, nil)
}

// JoinRanked enqueues an identified player and searches the queue,
// greedy first-fit, for an opponent within the rating window. The
// window widens only once the searching entrant's own wait exceeds
// the threshold; a stale entry for the same connection or userId keeps
// its original join time, so a re-joining entrant can reach the wide
// window.
func (m *Manager) JoinRanked(connID, userID string, ratingOpt *int) error {
	if userID == "" {
		return wire.ErrValidationMissing
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	joinedAt := now
	for _, e := range m.ranked {
		if e.ConnID == connID || e.UserID == userID {
			if e.JoinedAt.Before(joinedAt) {
				joinedAt = e.JoinedAt
			}
		}
	}
	removeIf(&m.ranked, func(e Entry) bool { return e.ConnID == connID || e.UserID == userID })

	rating := DefaultRating
	if ratingOpt != nil {
		rating = *ratingOpt
	}
	entry := Entry{ConnID: connID, UserID: userID, Rating: rating, JoinedAt: joinedAt}
	m.ranked = append(m.ranked, entry)

	window := m.opts.Window
	if now.Sub(entry.JoinedAt) > m.opts.WidenAfter {
		window = m.opts.WideWindow
	}

	for i := 0; i < len(m.ranked)-1; i++ {
		cand := m.ranked[i]
		if diff := cand.Rating - entry.Rating; diff > window || -diff > window {
			continue
		}
		m.ranked = append(m.ranked[:i], m.ranked[i+1:]...)
		m.ranked = m.ranked[:len(m.ranked)-1] // the entry itself sits last

		// Seat 1 goes to the higher rating; on a tie the new entrant
		// takes it.
		p1, p2 := entry, cand
		if cand.Rating > entry.Rating {
			p1, p2 = cand, entry
		}
		m.createSession(p1, p2, true)
		return nil
	}

	m.sender.Send(connID, wire.EvtRankedQueued, wire.Queued{Position: len(m.ranked)})
	obslog.L().Info("queue_ranked_join",
		zap.String("conn_id", connID),
		zap.String("user_id", userID),
		zap.Int("rating", rating),
		zap.Int("window", window),
		zap.Int("queue_len", len(m.ranked)),
	)
	return nil
}

// LeaveRanked removes the entry by connection id. Idempotent.
func (m *Manager) LeaveRanked(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeByConn(&m.ranked, connID)
	m.sender.Send(connID, wire.EvtRankedLeft, nil)
}

// RemoveConn drops the connection from both queues without acks. The
// disconnect path uses this.
func (m *Manager) RemoveConn(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeByConn(&m.guest, connID)
	removeByConn(&m.ranked, connID)
}

// GuestQueueLen and RankedQueueLen expose queue sizes for tests and
// the health endpoint.
func (m *Manager) GuestQueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.guest)
}

func (m *Manager) RankedQueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ranked)
}

// createSession registers the paired session and notifies both
// players. Caller holds the manager mutex.
func (m *Manager) createSession(e1, e2 Entry, isRanked bool) {
	now := m.clock.Now()
	sess := &match.Session{
		MatchID:   newMatchID(now),
		Player1:   match.PlayerRef{ConnID: e1.ConnID, UserID: e1.UserID, IsGuest: !isRanked},
		Player2:   match.PlayerRef{ConnID: e2.ConnID, UserID: e2.UserID, IsGuest: !isRanked},
		Ranked:    isRanked,
		Rating1:   e1.Rating,
		Rating2:   e2.Rating,
		CreatedAt: now,
	}
	if err := m.store.Create(sess); err != nil {
		obslog.L().Error("match_create_error", zap.String("match_id", sess.MatchID), zap.Error(err))
		return
	}

	opp1 := wire.Opponent{UserID: e2.UserID, IsGuest: !isRanked}
	opp2 := wire.Opponent{UserID: e1.UserID, IsGuest: !isRanked}
	if isRanked {
		r2, r1 := e2.Rating, e1.Rating
		opp1.Rating = &r2
		opp2.Rating = &r1
	}
	m.sender.Send(e1.ConnID, wire.EvtMatchFound, wire.MatchFound{MatchID: sess.MatchID, PlayerNumber: 1, Opponent: opp1})
	m.sender.Send(e2.ConnID, wire.EvtMatchFound, wire.MatchFound{MatchID: sess.MatchID, PlayerNumber: 2, Opponent: opp2})
	obslog.L().Info("match_found",
		zap.String("match_id", sess.MatchID),
		zap.Bool("ranked", isRanked),
		zap.String("player1", e1.UserID),
		zap.String("player2", e2.UserID),
	)
}

func removeByConn(q *[]Entry, connID string) {
	removeIf(q, func(e Entry) bool { return e.ConnID == connID })
}

func removeIf(q *[]Entry, pred func(Entry) bool) {
	out := (*q)[:0]
	for _, e := range *q {
		if !pred(e) {
			out = append(out, e)
		}
	}
	*q = out
}
