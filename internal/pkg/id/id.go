package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID string. Account and outbox records use ULIDs as
// partition keys: they are unique, and their lexicographic order is creation
// order, which the email GSI and the pending-notification sweep rely on to
// pick the newest record.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
