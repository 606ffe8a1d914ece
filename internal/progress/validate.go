package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// MaxSnapshotBytes caps the serialized size of a submitted snapshot.
const MaxSnapshotBytes = 64 * 1024

var (
	ErrMalformedPayload = errors.New("malformed sync payload")
	ErrPayloadTooLarge  = errors.New("sync payload too large")
)

// Candidate is a validated submission: the client's logical clock plus the
// opaque snapshot it wants stored.
type Candidate struct {
	UpdatedAt time.Time
	Snapshot  json.RawMessage
}

// ParseCandidate validates an inbound submit body. Unknown top-level fields
// are ignored for forward compatibility; the two required fields are
// strictly type-checked. An oversized snapshot is a capacity concern rather
// than a correctness one and gets its own error so callers can signal it
// differently.
func ParseCandidate(body []byte) (Candidate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Candidate{}, ErrMalformedPayload
	}
	var payload struct {
		UpdatedAt string          `json:"updatedAt"`
		Snapshot  json.RawMessage `json:"snapshot"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return Candidate{}, ErrMalformedPayload
	}
	if payload.UpdatedAt == "" {
		return Candidate{}, ErrMalformedPayload
	}
	updatedAt, err := time.Parse(time.RFC3339, payload.UpdatedAt)
	if err != nil {
		return Candidate{}, ErrMalformedPayload
	}
	snapshot := bytes.TrimSpace(payload.Snapshot)
	if len(snapshot) == 0 || bytes.Equal(snapshot, []byte("null")) {
		return Candidate{}, ErrMalformedPayload
	}
	if snapshot[0] != '{' && snapshot[0] != '[' {
		return Candidate{}, ErrMalformedPayload
	}
	if len(snapshot) > MaxSnapshotBytes {
		return Candidate{}, ErrPayloadTooLarge
	}
	return Candidate{UpdatedAt: updatedAt, Snapshot: json.RawMessage(snapshot)}, nil
}
