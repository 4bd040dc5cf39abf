package wire

// Inbound event names (client → server).
const (
	EvtGuestJoin   = "queue.guest.join"
	EvtGuestLeave  = "queue.guest.leave"
	EvtRankedJoin  = "queue.ranked.join"
	EvtRankedLeave = "queue.ranked.leave"

	EvtRejoin = "match.rejoin"

	EvtDiceRollStart     = "match.diceRollStart"
	EvtDiceRoll          = "match.diceRoll"
	EvtMove              = "match.move"
	EvtStateSync         = "match.stateSync"
	EvtEndTurn           = "match.endTurn"
	EvtDoubleOffer       = "match.doubleOffer"
	EvtDoubleResponse    = "match.doubleResponse"
	EvtFirstRollStart    = "match.firstRollStart"
	EvtFirstRoll         = "match.firstRoll"
	EvtFirstRollComplete = "match.firstRollComplete"
	EvtFirstRollTie      = "match.firstRollTie"
	EvtRematchRequest    = "match.rematchRequest"
	EvtRematchAccept     = "match.rematchAccept"
	EvtRematchDecline    = "match.rematchDecline"
	EvtGameOver          = "match.over"
	EvtChat              = "match.chat"
)

// Outbound event names (server → client). The renames
// (diceRoll→diceRolled, endTurn→turnChanged, doubleOffer→doubleOffered)
// are part of the wire contract and must not change.
const (
	EvtGuestQueued  = "queue.guest.queued"
	EvtGuestLeft    = "queue.guest.left"
	EvtRankedQueued = "queue.ranked.queued"
	EvtRankedLeft   = "queue.ranked.left"
	EvtMatchFound   = "queue.matchFound"

	EvtRejoined             = "match.rejoined"
	EvtOpponentReconnected  = "match.opponentReconnected"
	EvtOpponentDisconnected = "match.opponentDisconnected"

	EvtDiceRolled    = "match.diceRolled"
	EvtTurnChanged   = "match.turnChanged"
	EvtDoubleOffered = "match.doubleOffered"

	EvtError = "match.error"
)
