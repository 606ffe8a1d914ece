package progress

import (
	"testing"
	"time"
)

func TestAcceptsNoExisting(t *testing.T) {
	if !Accepts(nil, time.Now()) {
		t.Fatalf("first write should always be accepted")
	}
}

func TestAcceptsNewer(t *testing.T) {
	existing := &Record{UpdatedAt: time.Date(2026, 2, 20, 11, 0, 0, 0, time.UTC)}
	if !Accepts(existing, time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("newer clock should be accepted")
	}
}

func TestAcceptsTie(t *testing.T) {
	at := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	existing := &Record{UpdatedAt: at}
	if !Accepts(existing, at) {
		t.Fatalf("equal clock is a retry, not a conflict")
	}
}

func TestAcceptsTieAcrossZones(t *testing.T) {
	existing := &Record{UpdatedAt: time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)}
	// Same instant in another zone must still count as a tie.
	incoming := time.Date(2026, 2, 20, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	if !Accepts(existing, incoming) {
		t.Fatalf("comparison must be on instants, not representations")
	}
}

func TestRejectsOlder(t *testing.T) {
	existing := &Record{UpdatedAt: time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)}
	if Accepts(existing, time.Date(2026, 2, 20, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("strictly earlier clock must be rejected")
	}
}
