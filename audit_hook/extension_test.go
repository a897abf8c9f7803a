package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/reel/account"
	audithook "github.com/xraph/reel/audit_hook"
	"github.com/xraph/reel/id"
)

type captured struct {
	events []*audithook.AuditEvent
}

func (c *captured) Record(_ context.Context, e *audithook.AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}

func TestExtensionRecordsEvents(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec)
	ctx := context.Background()
	acct := id.NewAccountID()

	k := &account.APIKey{ID: id.NewAPIKeyID(), AccountID: acct, Hash: "secret-hash", Hint: "rk_abc"}
	_ = ext.OnKeyIssued(ctx, k)
	_ = ext.OnQuotaExceeded(ctx, acct, "inference/a.mp4")
	_ = ext.OnAnalysisFailed(ctx, acct, "inference/a.mp4", errors.New("endpoint down"))
	_ = ext.OnAnalysisCompleted(ctx, acct, "inference/b.mp4", 2*time.Second)

	if len(rec.events) != 4 {
		t.Fatalf("events = %d, want 4", len(rec.events))
	}

	issued := rec.events[0]
	if issued.Action != audithook.ActionKeyIssued || issued.ResourceID != k.ID.String() {
		t.Errorf("issued event = %+v", issued)
	}
	for _, v := range issued.Metadata {
		if v == "secret-hash" {
			t.Error("key hash leaked into audit metadata")
		}
	}

	exceeded := rec.events[1]
	if exceeded.Outcome != audithook.OutcomeFailure || exceeded.Severity != audithook.SeverityWarning {
		t.Errorf("exceeded event = %+v", exceeded)
	}

	failed := rec.events[2]
	if failed.Reason != "endpoint down" {
		t.Errorf("failed reason = %q", failed.Reason)
	}

	if got := rec.events[3].Metadata["elapsed_ms"]; got != int64(2000) {
		t.Errorf("elapsed_ms = %v", got)
	}
}

func TestExtensionActionFilters(t *testing.T) {
	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"all", nil, 2},
		{"enabled", audithook.WithEnabledActions(audithook.ActionQuotaExceeded), 1},
		{"disabled", audithook.WithDisabledActions(audithook.ActionQuotaExceeded, audithook.ActionQuotaReserved), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captured{}
			var opts []audithook.Option
			if tt.opt != nil {
				opts = append(opts, tt.opt)
			}
			ext := audithook.New(rec, opts...)
			acct := id.NewAccountID()

			_ = ext.OnQuotaReserved(context.Background(), acct, "k")
			_ = ext.OnQuotaExceeded(context.Background(), acct, "k")

			if len(rec.events) != tt.want {
				t.Errorf("events = %d, want %d", len(rec.events), tt.want)
			}
		})
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	if err := ext.OnKeyRevoked(context.Background(), id.NewAPIKeyID()); err != nil {
		t.Fatalf("OnKeyRevoked = %v, want nil", err)
	}
}

func TestSlogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ext := audithook.New(audithook.NewSlogRecorder(logger))

	_ = ext.OnAssetMarkFailed(context.Background(), "inference/a.mp4", errors.New("timeout"))

	out := buf.String()
	for _, want := range []string{`"level":"ERROR"`, `"action":"asset.mark_failed"`, `"resource_id":"inference/a.mp4"`, `"reason":"timeout"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
