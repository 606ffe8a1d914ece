package securelog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newCapturedLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(WrapHandler(slog.NewTextHandler(buf, nil)))
}

func TestSyncKeyIsDigested(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf)
	logger.Info("sync request", "sync_key", "super-secret-key")

	out := buf.String()
	if strings.Contains(out, "super-secret-key") {
		t.Fatalf("raw sync key leaked into logs: %s", out)
	}
	if !strings.Contains(out, "sync_key=k:") {
		t.Fatalf("digest missing: %s", out)
	}
}

func TestDigestStableWithinProcess(t *testing.T) {
	first := KeyDigest("some-key")
	second := KeyDigest("some-key")
	if first != second {
		t.Fatalf("digest should be stable: %s vs %s", first, second)
	}
	if first == KeyDigest("other-key") {
		t.Fatalf("different keys should digest differently")
	}
	if KeyDigest("") != "" {
		t.Fatalf("empty value should stay empty")
	}
}

func TestSensitiveAttrsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf)
	logger.Info("request", "auth_token", "abc123", "password", "hunter2", "status", "ok")

	out := buf.String()
	if strings.Contains(out, "abc123") || strings.Contains(out, "hunter2") {
		t.Fatalf("sensitive values leaked: %s", out)
	}
	if !strings.Contains(out, redactedValue) {
		t.Fatalf("redaction marker missing: %s", out)
	}
	if !strings.Contains(out, "status=ok") {
		t.Fatalf("harmless attrs should pass through: %s", out)
	}
}

func TestWithAttrsSanitized(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf).With("sync_key", "super-secret-key")
	logger.Info("request")

	out := buf.String()
	if strings.Contains(out, "super-secret-key") {
		t.Fatalf("raw sync key leaked via WithAttrs: %s", out)
	}
}
