// internal/logger/logger_test.go
//
// Unit-tests for the file logger and the request-scope helpers.
//
// Run: go test ./internal/logger -v

package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesDailyFile(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	dir := t.TempDir()
	log, err := New(dir, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Infow("hello", "k", "v")
	_ = log.Sync()

	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"hello"`) {
		t.Fatalf("log line missing, got %s", raw)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(t.TempDir(), "loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	scoped := zap.New(core).Sugar().With("request_id", "r-1")

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx).Info("scoped")

	if logs.Len() != 1 {
		t.Fatalf("want 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["request_id"]; got != "r-1" {
		t.Fatalf("request_id = %v", got)
	}

	if FromContext(context.Background()) == nil {
		t.Fatal("fallback logger is nil")
	}
}
