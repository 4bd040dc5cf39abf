package matchmaking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultRating is assumed for ranked entrants that do not supply one.
const DefaultRating = 1000

// Entry is one waiting player in a queue. Guests carry a generated,
// session-scoped identity instead of a real userId.
type Entry struct {
	ConnID   string
	UserID   string
	Rating   int
	JoinedAt time.Time
}

// Options tunes the ranked pairing window. The window widens once the
// searching entrant's own wait exceeds WidenAfter.
type Options struct {
	Window     int
	WideWindow int
	WidenAfter time.Duration
}

// Sender delivers queue notifications to a connection.
type Sender interface {
	Send(connID, event string, payload any) bool
}

func guestIdentity(now time.Time) string {
	return fmt.Sprintf("guest_%d_%s", now.UnixMilli(), shortID())
}

func newMatchID(now time.Time) string {
	return fmt.Sprintf("match_%d_%s", now.UnixMilli(), shortID())
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
