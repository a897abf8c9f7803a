package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/reel/id"
	"github.com/xraph/reel/plugin"
)

type recorder struct {
	name     string
	reserved []string
	failed   []error
	sawDL    bool
	err      error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnQuotaReserved(ctx context.Context, _ id.AccountID, key string) error {
	_, r.sawDL = ctx.Deadline()
	r.reserved = append(r.reserved, key)
	return r.err
}

func (r *recorder) OnAnalysisFailed(_ context.Context, _ id.AccountID, _ string, err error) error {
	r.failed = append(r.failed, err)
	return nil
}

type bare struct{}

func (bare) Name() string { return "bare" }

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterDuplicate(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 plugin, got %d", r.Count())
	}
}

func TestDispatch(t *testing.T) {
	r := quietRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(bare{}); err != nil {
		t.Fatal(err)
	}

	r.EmitQuotaReserved(context.Background(), id.NewAccountID(), "inference/a.mp4")
	boom := errors.New("boom")
	r.EmitAnalysisFailed(context.Background(), id.Nil, "inference/a.mp4", boom)

	if len(rec.reserved) != 1 || rec.reserved[0] != "inference/a.mp4" {
		t.Errorf("unexpected reserved calls %v", rec.reserved)
	}
	if !rec.sawDL {
		t.Error("hooks should run under a deadline")
	}
	if len(rec.failed) != 1 || !errors.Is(rec.failed[0], boom) {
		t.Errorf("unexpected failed calls %v", rec.failed)
	}
}

func TestDispatchSurvivesCanceledContext(t *testing.T) {
	r := quietRegistry().WithTimeout(time.Second)
	rec := &recorder{name: "rec", err: errors.New("hook error is swallowed")}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.EmitQuotaReserved(ctx, id.NewAccountID(), "k")

	if len(rec.reserved) != 1 {
		t.Errorf("expected hook to run, got %d calls", len(rec.reserved))
	}
}

func TestGetAndList(t *testing.T) {
	r := quietRegistry()
	_ = r.Register(bare{})

	if r.Get("bare") == nil {
		t.Error("expected plugin by name")
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unknown plugin")
	}
	if len(r.List()) != 1 {
		t.Errorf("expected 1 plugin in list")
	}
}
