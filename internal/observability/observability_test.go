package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"storefront-dashboard/internal/config"
)

func TestNewLoggerTo_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})
	logger.Info("hello", "rows", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if entry["msg"] != "hello" || entry["rows"] != 3.0 {
		t.Errorf("unexpected entry %v", entry)
	}

	buf.Reset()
	logger = NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "text"})
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestNewLoggerTo_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "warn", Format: "text"})
	logger.Info("dropped")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("level not applied: %q", buf.String())
	}
}

func TestRequestIDContext(t *testing.T) {
	if RequestIDFrom(context.Background()) != "" {
		t.Error("expected empty id on bare context")
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if RequestIDFrom(ctx) != "req-1" {
		t.Errorf("got %q", RequestIDFrom(ctx))
	}
}

func TestNewLoggerTo_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "verbose", Format: "TEXT"})
	logger.Debug("dropped")
	logger.Info("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "msg=kept") {
		t.Errorf("expected info level text output, got %q", buf.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	LoggerFrom(context.Background(), base).Info("bare")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("bare context should not add request_id: %q", buf.String())
	}

	buf.Reset()
	LoggerFrom(WithRequestID(context.Background(), "req-9"), base).Info("tagged")
	if !strings.Contains(buf.String(), "request_id=req-9") {
		t.Errorf("expected request_id in %q", buf.String())
	}
}

func TestSpan_ParentAndFinish(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "GET /api/report")
	_, child := StartSpan(ctx, "report.recompute")

	if child.TraceID != parent.TraceID || child.ParentID != parent.SpanID {
		t.Errorf("child not linked to parent: %+v", child)
	}
	if len(child.SpanID) != 16 {
		t.Errorf("unexpected span id %q", child.SpanID)
	}

	child.SetTag("granularity", "daily")
	child.SetError(errors.New("boom"))

	var buf bytes.Buffer
	child.Finish(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	out := buf.String()
	for _, want := range []string{"span finished", "operation=report.recompute", "tag.granularity=daily", "status=ERROR", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if child.Duration < 0 {
		t.Errorf("negative duration %v", child.Duration)
	}
}
