package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

func TestZerologAdapter_Log(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     LogLevel
		msg       string
		attrs     []Attribute
		wantLevel string
		wantAttrs map[string]any
	}{
		{
			name:      "debug level with message only",
			level:     DebugLevel,
			msg:       "debug message",
			wantLevel: "debug",
		},
		{
			name:      "warn level with attribute",
			level:     WarnLevel,
			msg:       "search failed",
			attrs:     []Attribute{Attr("product_id", "p-1")},
			wantLevel: "warn",
			wantAttrs: map[string]any{"product_id": "p-1"},
		},
		{
			name:      "error level with numeric attribute",
			level:     ErrorLevel,
			msg:       "index failed",
			attrs:     []Attribute{Attr("documents", 3)},
			wantLevel: "error",
			wantAttrs: map[string]any{"documents": float64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))
			adapter.Log(context.Background(), tt.level, tt.msg, tt.attrs...)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", entry["level"], tt.wantLevel)
			}
			if entry["message"] != tt.msg {
				t.Errorf("message = %v, want %v", entry["message"], tt.msg)
			}
			for k, v := range tt.wantAttrs {
				if entry[k] != v {
					t.Errorf("attr %s = %v, want %v", k, entry[k], v)
				}
			}
		})
	}
}

func TestZerologAdapter_IsLevelEnabled(t *testing.T) {
	t.Parallel()

	adapter := NewZerologAdapter(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	ctx := context.Background()

	if adapter.IsLevelEnabled(ctx, InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !adapter.IsLevelEnabled(ctx, ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestLogger_AppendsRequestMetadata(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil))))

	ctx := reqctx.WithRequestID(reqctx.WithTraceID(context.Background(), "t-1"), "r-1")
	l.Info(ctx, "documents indexed", Attr("count", 2))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	if entry["trace_id"] != "t-1" || entry["request_id"] != "r-1" {
		t.Errorf("missing context ids in %v", entry)
	}
	if entry["count"] != float64(2) {
		t.Errorf("count = %v, want 2", entry["count"])
	}
}

func TestLogger_ErrFlattensTags(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(NewStandardAdapter(log.New(&buf, "", 0)))

	ctx := context.Background()
	err := reqctx.WrapErr(ctx, errors.New("timeout"), "query failed").Tag(slog.String("collection", "product_9"))
	l.Err(ctx, WarnLevel, "search degraded", err)

	out := buf.String()
	for _, want := range []string{"[warn] search degraded", "error=query failed: timeout", "collection=product_9"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogger_NilAndNop(t *testing.T) {
	t.Parallel()

	var l *Logger
	l.Info(context.Background(), "dropped")
	Nop().Error(context.Background(), "dropped")
}

func TestBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend string
		level   string
		wantErr bool
	}{
		{"zerolog", "debug", false},
		{"slog", "info", false},
		{"standard", "warn", false},
		{"", "", false},
		{"logrus", "info", true},
		{"zerolog", "verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.level, func(t *testing.T) {
			t.Parallel()
			l, err := Build(tt.backend, tt.level, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("Build() returned nil logger")
			}
		})
	}
}
