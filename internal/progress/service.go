package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"statsync/server/internal/storage"
	"statsync/server/internal/synckey"
)

// DefaultRetention is how long an accepted record stays readable before the
// store expires it.
const DefaultRetention = 45 * 24 * time.Hour

var (
	ErrNotFound           = errors.New("no sync state for key")
	ErrBackendUnavailable = errors.New("sync backend unavailable")
)

// SubmitResult is the outcome of a Submit. A conflict is not an error:
// callers must branch on Accepted and, on rejection, hand Latest back to
// the client so it can reconcile locally.
type SubmitResult struct {
	Accepted bool
	Record   *Record // the newly stored record when accepted
	Latest   *Record // the prevailing record when rejected
}

// Service orchestrates key normalization, payload validation, conflict
// resolution and the sync store into the two sync operations. It is
// stateless per request; replicas need no coordination.
type Service struct {
	store     storage.Store
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewService wires a Service. A nil store marks the backend as
// unconfigured; both operations then report ErrBackendUnavailable instead
// of failing at boot, so a misconfigured deploy is loud but inspectable.
func NewService(store storage.Store, retention time.Duration, log *slog.Logger) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, retention: retention, now: time.Now, log: log}
}

// Fetch returns the stored record for rawKey. Absent, expired and
// structurally invalid stored state all report ErrNotFound.
func (s *Service) Fetch(ctx context.Context, rawKey string) (*Record, error) {
	key, err := synckey.Normalize(rawKey)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrBackendUnavailable
	}
	raw, ok, err := s.store.Get(ctx, synckey.StorageKey(key))
	if err != nil {
		s.log.Error("sync store read failed", "op", "fetch", "sync_key", key, "err", err)
		return nil, ErrBackendUnavailable
	}
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := decodeRecord(raw)
	if !ok {
		s.log.Warn("stored sync state undecodable", "sync_key", key)
		return nil, ErrNotFound
	}
	return rec, nil
}

// Submit validates the candidate, reads the existing record, and either
// stores the candidate (accepted) or returns the prevailing record
// (conflict). Validation failures short-circuit before any store access.
// The read and the conditional write are sequential, not atomic; with a
// single-secret key space concurrent submits are rare and the later store
// write wins.
func (s *Service) Submit(ctx context.Context, rawKey string, body []byte) (SubmitResult, error) {
	key, err := synckey.Normalize(rawKey)
	if err != nil {
		return SubmitResult{}, err
	}
	candidate, err := ParseCandidate(body)
	if err != nil {
		return SubmitResult{}, err
	}
	if s.store == nil {
		return SubmitResult{}, ErrBackendUnavailable
	}
	storageKey := synckey.StorageKey(key)
	raw, ok, err := s.store.Get(ctx, storageKey)
	if err != nil {
		s.log.Error("sync store read failed", "op", "submit", "sync_key", key, "err", err)
		return SubmitResult{}, ErrBackendUnavailable
	}
	var existing *Record
	if ok {
		// A corrupt stored blob counts as absent so a valid write can
		// repair it.
		existing, _ = decodeRecord(raw)
	}
	if !Accepts(existing, candidate.UpdatedAt) {
		return SubmitResult{Latest: existing}, nil
	}
	rec := &Record{
		SchemaVersion:   SchemaVersion,
		UpdatedAt:       candidate.UpdatedAt,
		ServerUpdatedAt: s.now().UTC(),
		Snapshot:        candidate.Snapshot,
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode sync record: %w", err)
	}
	if err := s.store.Put(ctx, storageKey, encoded, s.retention); err != nil {
		s.log.Error("sync store write failed", "op", "submit", "sync_key", key, "err", err)
		return SubmitResult{}, ErrBackendUnavailable
	}
	return SubmitResult{Accepted: true, Record: rec}, nil
}
