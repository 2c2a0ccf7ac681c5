package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"sales-import/internal/config"
)

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithImportID(ctx, "imp-1")
	ctx = WithFileName(ctx, "sales.csv")
	With(ctx, base).Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{"trace_id": "trace-1", "import_id": "imp-1", "file_name": "sales.csv", "message": "hello"} {
		if entry[key] != want {
			t.Errorf("%s: expected %q, got %v", key, want, entry[key])
		}
	}
}

func TestWith_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "info"}, false, &buf)

	With(context.Background(), base).Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if _, ok := entry["trace_id"]; ok {
		t.Error("expected no trace_id field")
	}
	if TraceID(context.Background()) != "" {
		t.Error("expected empty trace id")
	}
}
