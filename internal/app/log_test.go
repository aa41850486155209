package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLedgerHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "land registered",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tland registered\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "snapshot skipped",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tsnapshot skipped\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "portion sold",
			attrs:   []slog.Attr{slog.Int64("portion_id", 3), slog.String("buyer", "0xab")},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tportion sold\tportion_id=3\tbuyer=0xab\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &ledgerHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLedgerHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &ledgerHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*ledgerHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "component=vault", "key=abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %s", got, want)
		}
	}
}

func TestLedgerHandler_Enabled(t *testing.T) {
	ctx := context.Background()

	all := &ledgerHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(ctx, level) {
			t.Errorf("Enabled(%v) = false without a level, want true", level)
		}
	}

	warn := &ledgerHandler{level: parseLevel("warn")}
	if warn.Enabled(ctx, slog.LevelInfo) {
		t.Error("Enabled(INFO) = true at WARN level")
	}
	if !warn.Enabled(ctx, slog.LevelError) {
		t.Error("Enabled(ERROR) = false at WARN level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"error": slog.LevelError,
		"":      slog.LevelDebug,
		"loud":  slog.LevelDebug,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LANDLEDGER_LOG_LEVEL", "")
	dir := t.TempDir()
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hello", "k", "v")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "landledger.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\thello\tk=v") {
		t.Errorf("log file = %q", data)
	}
	if console.String() != string(data) {
		t.Errorf("console = %q, want same line as file", console.String())
	}
}
