package wire

import "encoding/json"

// Envelope is the frame read from a client connection. Data stays raw
// until the event handler decides how to decode it.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutEnvelope is the frame written to a client connection.
type OutEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// RankedJoin is the payload of queue.ranked.join.
type RankedJoin struct {
	UserID string `json:"userId"`
	Rating *int   `json:"rating,omitempty"`
}

// Rejoin is the payload of match.rejoin.
type Rejoin struct {
	MatchID string `json:"matchId"`
	Slot    int    `json:"slot"`
	UserID  string `json:"userId,omitempty"`
}

// Queued acknowledges a queue join that did not pair immediately.
type Queued struct {
	Position int `json:"position"`
}

// Opponent describes the other seat in a matchFound notification.
type Opponent struct {
	UserID  string `json:"userId"`
	IsGuest bool   `json:"isGuest"`
	Rating  *int   `json:"rating,omitempty"`
}

// MatchFound is the payload of queue.matchFound.
type MatchFound struct {
	MatchID      string   `json:"matchId"`
	PlayerNumber int      `json:"playerNumber"`
	Opponent     Opponent `json:"opponent"`
}

// Rejoined is sent back to a successfully rebound connection.
type Rejoined struct {
	MatchID       string `json:"matchId"`
	Slot          int    `json:"slot"`
	LastGameState any    `json:"lastGameState,omitempty"`
}

// SeatNotice tells one participant about the other seat's connection
// state change (opponentDisconnected / opponentReconnected).
type SeatNotice struct {
	MatchID string `json:"matchId"`
	Slot    int    `json:"slot"`
}

// Error is the payload of match.error.
type Error struct {
	MatchID string `json:"matchId,omitempty"`
	Message string `json:"message"`
}
