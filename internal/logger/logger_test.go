package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	l := Init("feedengine-test", slog.LevelInfo)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if id := TraceID(ctx); id != "" {
		t.Errorf("unset trace id: got %q, want empty", id)
	}

	ctx = WithTraceID(ctx, "NSEFO-1724567890000000000")
	if id := TraceID(ctx); id != "NSEFO-1724567890000000000" {
		t.Errorf("trace id: got %q", id)
	}
}

func TestPacketTraceID(t *testing.T) {
	recv := time.Date(2026, 8, 25, 10, 30, 0, 123456789, time.UTC)
	id := PacketTraceID("NSECM", recv)
	if !strings.HasPrefix(id, "NSECM-") {
		t.Errorf("prefix: got %q, want NSECM-...", id)
	}
	if !strings.HasSuffix(id, "123456789") {
		t.Errorf("nanos: got %q, want ...123456789 suffix", id)
	}
}

func TestTraceAttrs(t *testing.T) {
	ctx := context.Background()
	if attrs := TraceAttrs(ctx); attrs != nil {
		t.Errorf("unset trace id: got %v, want nil attrs", attrs)
	}

	ctx = WithTraceID(ctx, "BSECM-42")
	attrs := TraceAttrs(ctx)
	if len(attrs) != 1 {
		t.Fatalf("attrs: got %d, want 1", len(attrs))
	}
}
