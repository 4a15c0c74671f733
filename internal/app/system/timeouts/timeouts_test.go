package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/groupchat/internal/app/system/timeouts"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})
	got := timeouts.Current()
	want := timeouts.Config{
		Ping:   timeouts.DefaultPing,
		Short:  7 * time.Second,
		Medium: timeouts.DefaultMedium,
		Long:   timeouts.DefaultLong,
	}
	if got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}

	timeouts.Reset()
	if timeouts.Short() != timeouts.DefaultShort {
		t.Errorf("Short after Reset = %v", timeouts.Short())
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, log, "slow op")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "slow op" {
		t.Errorf("operation field = %v", op)
	}
}

func TestWithTimeout_QuietOnCancel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	_, cancel := timeouts.WithTimeout(context.Background(), time.Hour, zap.New(core), "fast op")
	cancel()

	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %d", logs.Len())
	}
}
