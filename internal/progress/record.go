// Package progress implements the sync core: payload validation,
// last-write-wins conflict resolution, and the Fetch/Submit operations over
// a key-value store. The snapshot itself is an opaque blob; this package
// never inspects its contents.
package progress

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the persisted record format version.
const SchemaVersion = 1

// Record is the persisted unit of sync state. UpdatedAt is the
// client-asserted logical clock; ServerUpdatedAt is assigned by the server
// at acceptance time and never by the client.
type Record struct {
	SchemaVersion   int             `json:"schemaVersion"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	ServerUpdatedAt time.Time       `json:"serverUpdatedAt"`
	Snapshot        json.RawMessage `json:"snapshot"`
}

// decodeRecord parses a stored blob. ok is false for anything structurally
// unusable: undecodable JSON, a schema version we don't know, or missing
// required fields. Callers treat such state as absent.
func decodeRecord(raw []byte) (*Record, bool) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if rec.SchemaVersion != SchemaVersion {
		return nil, false
	}
	if rec.UpdatedAt.IsZero() || len(rec.Snapshot) == 0 {
		return nil, false
	}
	return &rec, true
}
