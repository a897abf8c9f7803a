package wiring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/xraph/reel"
	"github.com/xraph/reel/internal/wiring"
	"github.com/xraph/reel/store/memory"
)

func TestOptionsEmpty(t *testing.T) {
	opts, err := wiring.Options(context.Background(), wiring.Settings{}, nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}

	r := reel.New(memory.New(), opts...)
	_, err = r.Analyze(context.Background(), "rk_x", "inference/a.mp4")
	if !errors.Is(err, reel.ErrInternal) {
		t.Errorf("Analyze without collaborators = %v, want ErrInternal", err)
	}
}

func TestOptionsRedisQuota(t *testing.T) {
	mr := miniredis.RunT(t)

	opts, err := wiring.Options(context.Background(), wiring.Settings{
		RedisURL:     "redis://" + mr.Addr(),
		RedisPrefix:  "test:quota:",
		InferenceURL: "http://127.0.0.1:1/invoke",
		HashSecret:   "s",
	}, nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}

	r := reel.New(memory.New(), opts...)
	ctx := context.Background()
	acct, _, err := r.ProvisionAccount(ctx, "acme", 4)
	if err != nil {
		t.Fatalf("ProvisionAccount: %v", err)
	}

	if !mr.Exists("test:quota:" + acct.ID.String()) {
		t.Errorf("quota record not written to redis; keys = %v", mr.Keys())
	}
	if err := r.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestOptionsRedisUnreachable(t *testing.T) {
	_, err := wiring.Options(context.Background(), wiring.Settings{RedisURL: "redis://127.0.0.1:1"}, nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
}
