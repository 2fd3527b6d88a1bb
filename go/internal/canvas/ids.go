package canvas

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewActionID returns a stroke id unique across clients. The author prefix keeps ids
// readable in logs and the ULID keeps them roughly time ordered.
func NewActionID(userID string, t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano()+rand.Int63())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy).String()
	if userID == "" {
		userID = "unknown"
	}
	return fmt.Sprintf("%s-%s", userID, id)
}
