package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "cli"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env)
			if err != nil {
				t.Fatalf("NewLogger(%q): %v", env, err)
			}
			if l == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("local", "error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must be disabled when level is error")
	}
	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestCLILogger_WarnLevel(t *testing.T) {
	l, err := NewLogger("cli")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("cli logger must not emit info")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger for bare context")
	}
	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected the stored logger back")
	}
}

func TestWithDefault(t *testing.T) {
	fallback := zap.NewExample()
	ctx := WithDefault(context.Background(), fallback)
	if FromContext(ctx) != fallback {
		t.Error("expected fallback on bare context")
	}

	stored := zap.NewExample()
	ctx = WithDefault(ContextWithLogger(context.Background(), stored), fallback)
	if FromContext(ctx) != stored {
		t.Error("expected the stored logger to win")
	}
}

func TestWithFields(t *testing.T) {
	bare := context.Background()
	if WithFields(bare, zap.String("k", "v")) != bare {
		t.Error("context without a logger must be returned unchanged")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(bare, zap.New(core))
	FromContext(WithFields(ctx, zap.Int64("product_id", 7))).Info("scoped")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["product_id"]; got != int64(7) {
		t.Errorf("product_id = %v, want 7", got)
	}
}
