// Package securelog keeps sync-key material out of log output. The sync
// key is the only secret in the protocol, so a leaked log line is a leaked
// account; keys are replaced with a short salted digest that still lets
// operators correlate requests within one process lifetime.
package securelog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

// bootNonce salts key digests: stable within one process, useless for
// offline correlation across restarts.
var bootNonce = randomNonce()

var digestKeys = map[string]struct{}{
	"sync_key": {},
}

var sensitiveKeyParts = []string{"token", "secret", "password", "authorization", "auth"}

type Handler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(sanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		sanitized = append(sanitized, sanitizeAttr(attr))
	}
	return &Handler{next: h.next.WithAttrs(sanitized)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

func sanitizeAttr(attr slog.Attr) slog.Attr {
	lower := strings.ToLower(attr.Key)
	if _, ok := digestKeys[lower]; ok {
		return slog.String(attr.Key, KeyDigest(attr.Value.String()))
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return slog.String(attr.Key, redactedValue)
		}
	}
	return attr
}

// KeyDigest maps a sync key to a short salted digest usable for log
// correlation.
func KeyDigest(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(bootNonce + value))
	return "k:" + hex.EncodeToString(sum[:4])
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "statsync-static-nonce"
	}
	return hex.EncodeToString(buf)
}
