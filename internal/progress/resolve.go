package progress

import "time"

// Accepts decides whether an incoming write supersedes the existing record:
// last-write-wins on the client-asserted logical clock, compared as
// instants. A tie is accepted because a client retrying its own write must
// not see a conflict. Only a strictly earlier incoming clock is rejected.
func Accepts(existing *Record, incoming time.Time) bool {
	if existing == nil {
		return true
	}
	return !incoming.Before(existing.UpdatedAt)
}
