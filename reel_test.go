package reel_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/reel"
	"github.com/xraph/reel/account"
	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/inference"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/storage"
	storagemem "github.com/xraph/reel/storage/memory"
	"github.com/xraph/reel/store/memory"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

const sampleResult = `{"sentiment":"positive","score":0.91}`

type harness struct {
	engine  *reel.Reel
	store   *memory.Store
	objects *storagemem.Store
	calls   atomic.Int64
	locator atomic.Value
	fail    error
	events  *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := func() time.Time { return testNow }
	h := &harness{
		store:   memory.New(memory.WithClock(clock)),
		objects: storagemem.New("https://uploads.test"),
		events:  &recorder{},
	}

	invoker := inference.InvokerFunc(func(_ context.Context, locator string) (analysis.Result, error) {
		h.calls.Add(1)
		h.locator.Store(locator)
		if h.fail != nil {
			return nil, h.fail
		}
		return analysis.Result(sampleResult), nil
	})

	h.engine = reel.New(h.store,
		reel.WithVerifier(h.objects),
		reel.WithPresigner(h.objects),
		reel.WithInvoker(invoker),
		reel.WithBucket("videos"),
		reel.WithClock(clock),
		reel.WithHashSecret("test-secret"),
		reel.WithPlugin(h.events),
	)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = h.engine.Stop() })
	return h
}

// provision creates an account with limit and returns its ID and secret.
func (h *harness) provision(t *testing.T, limit int64) (id.AccountID, string) {
	t.Helper()
	a, secret, err := h.engine.ProvisionAccount(context.Background(), "acme", limit)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return a.ID, secret
}

// upload issues an upload and places an object of size bytes at its key.
// A negative size leaves storage empty.
func (h *harness) upload(t *testing.T, secret string, size int64) string {
	t.Helper()
	up, err := h.engine.IssueUpload(context.Background(), secret, ".mp4")
	if err != nil {
		t.Fatalf("issue upload: %v", err)
	}
	if size >= 0 {
		h.objects.Put(up.Key, size, "video/mp4")
	}
	return up.Key
}

func (h *harness) used(t *testing.T, accountID id.AccountID) int64 {
	t.Helper()
	q, err := h.engine.Quota(context.Background(), accountID)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	return q.Used
}

func TestAnalyzeSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 10)
	key := h.upload(t, secret, 5000)

	res, err := h.engine.Analyze(ctx, secret, key)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if string(res) != sampleResult {
		t.Errorf("result = %s, want %s", res, sampleResult)
	}
	if got, want := h.locator.Load(), "s3://videos/"+key; got != want {
		t.Errorf("locator = %v, want %v", got, want)
	}
	if got := h.used(t, acct); got != 1 {
		t.Errorf("used = %d, want 1", got)
	}

	a, err := h.store.GetAsset(ctx, key)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if !a.Analyzed || a.AnalyzedAt == nil {
		t.Errorf("asset not marked analyzed: %+v", a)
	}
	if h.events.count("completed") != 1 {
		t.Errorf("completed events = %d, want 1", h.events.count("completed"))
	}
}

func TestAnalyzeSecondCallConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 10)
	key := h.upload(t, secret, 5000)

	if _, err := h.engine.Analyze(ctx, secret, key); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}

	_, err := h.engine.Analyze(ctx, secret, key)
	if !errors.Is(err, reel.ErrAlreadyAnalyzed) {
		t.Fatalf("second Analyze = %v, want ErrAlreadyAnalyzed", err)
	}
	if reel.HTTPStatus(err) != 400 {
		t.Errorf("status = %d, want 400", reel.HTTPStatus(err))
	}
	if h.calls.Load() != 1 {
		t.Errorf("invoker calls = %d, want 1", h.calls.Load())
	}
	if got := h.used(t, acct); got != 1 {
		t.Errorf("used = %d, want 1", got)
	}
}

func TestAnalyzeOtherOwnerForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, ownerSecret := h.provision(t, 10)
	other, otherSecret := h.provision(t, 10)
	key := h.upload(t, ownerSecret, 5000)

	_, err := h.engine.Analyze(ctx, otherSecret, key)
	if !errors.Is(err, reel.ErrForbidden) {
		t.Fatalf("Analyze = %v, want ErrForbidden", err)
	}
	if reel.HTTPStatus(err) != 403 {
		t.Errorf("status = %d, want 403", reel.HTTPStatus(err))
	}
	if got := h.used(t, other); got != 0 {
		t.Errorf("used = %d, want 0", got)
	}
	if h.calls.Load() != 0 {
		t.Errorf("invoker called %d times", h.calls.Load())
	}
}

func TestAnalyzeSmallObjectInvalid(t *testing.T) {
	h := newHarness(t)
	acct, secret := h.provision(t, 10)
	key := h.upload(t, secret, 200)

	_, err := h.engine.Analyze(context.Background(), secret, key)
	if !errors.Is(err, reel.ErrAssetInvalid) {
		t.Fatalf("Analyze = %v, want ErrAssetInvalid", err)
	}
	if h.calls.Load() != 0 {
		t.Errorf("invoker called %d times", h.calls.Load())
	}
	// The unit stays charged.
	if got := h.used(t, acct); got != 1 {
		t.Errorf("used = %d, want 1", got)
	}
}

func TestAnalyzeZeroQuota(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 1)
	key := h.upload(t, secret, -1)

	// Drop the limit after the upload was issued.
	if err := h.engine.SetQuota(ctx, acct, 0); err != nil {
		t.Fatalf("SetQuota: %v", err)
	}

	_, err := h.engine.Analyze(ctx, secret, key)
	if !errors.Is(err, reel.ErrQuotaExceeded) {
		t.Fatalf("Analyze = %v, want ErrQuotaExceeded", err)
	}
	if reel.HTTPStatus(err) != 429 {
		t.Errorf("status = %d, want 429", reel.HTTPStatus(err))
	}
	if h.events.count("exceeded") != 1 {
		t.Errorf("exceeded events = %d, want 1", h.events.count("exceeded"))
	}
}

func TestAnalyzeGateOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 5)
	missingInStorage := h.upload(t, secret, -1)

	tests := []struct {
		name       string
		credential string
		key        string
		want       error
	}{
		{"empty credential and key", "", "", reel.ErrUnauthorized},
		{"unknown credential", "rk_nope", "", reel.ErrUnauthorized},
		{"empty key", secret, "", reel.ErrBadRequest},
		{"unknown key", secret, "inference/missing.mp4", reel.ErrNotFound},
		{"not in storage", secret, missingInStorage, reel.ErrAssetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Analyze(ctx, tt.credential, tt.key)
			if !errors.Is(err, tt.want) {
				t.Errorf("Analyze = %v, want %v", err, tt.want)
			}
		})
	}

	// Only the storage miss got past the quota gate.
	if got := h.used(t, acct); got != 1 {
		t.Errorf("used = %d, want 1", got)
	}
}

func TestAnalyzeRevokedKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 5)
	key := h.upload(t, secret, 5000)

	keys, err := h.engine.ListKeys(ctx, acct)
	if err != nil || len(keys) != 1 {
		t.Fatalf("ListKeys = %v, %v", keys, err)
	}
	if err := h.engine.RevokeKey(ctx, keys[0].ID); err != nil {
		t.Fatalf("RevokeKey: %v", err)
	}

	if _, err := h.engine.Analyze(ctx, secret, key); !errors.Is(err, reel.ErrUnauthorized) {
		t.Fatalf("Analyze = %v, want ErrUnauthorized", err)
	}

	_, fresh, err := h.engine.IssueKey(ctx, acct)
	if err != nil {
		t.Fatalf("IssueKey: %v", err)
	}
	if _, err := h.engine.Analyze(ctx, fresh, key); err != nil {
		t.Fatalf("Analyze with new key: %v", err)
	}
}

func TestAnalyzeInferenceFailureKeepsCharge(t *testing.T) {
	h := newHarness(t)
	h.fail = errors.New("endpoint unavailable")
	acct, secret := h.provision(t, 5)
	key := h.upload(t, secret, 5000)

	_, err := h.engine.Analyze(context.Background(), secret, key)
	if !errors.Is(err, reel.ErrInferenceFailure) {
		t.Fatalf("Analyze = %v, want ErrInferenceFailure", err)
	}
	if msg := reel.PublicMessage(err); strings.Contains(msg, "endpoint") {
		t.Errorf("public message leaks detail: %q", msg)
	}
	if got := h.used(t, acct); got != 1 {
		t.Errorf("used = %d, want 1", got)
	}

	a, _ := h.store.GetAsset(context.Background(), key)
	if a.Analyzed {
		t.Error("asset marked analyzed after failed inference")
	}
	if h.events.count("failed") != 1 {
		t.Errorf("failed events = %d, want 1", h.events.count("failed"))
	}
}

func TestAnalyzeStorageError(t *testing.T) {
	h := newHarness(t)
	_, secret := h.provision(t, 5)
	key := h.upload(t, secret, 5000)
	h.objects.FailHead(errors.New("access denied"))

	_, err := h.engine.Analyze(context.Background(), secret, key)
	if !errors.Is(err, reel.ErrAssetNotFound) {
		t.Fatalf("Analyze = %v, want ErrAssetNotFound", err)
	}
}

// markFailingStore rejects MarkAnalyzed.
type markFailingStore struct {
	*memory.Store
}

func (markFailingStore) MarkAnalyzed(context.Context, string) error {
	return errors.New("write timeout")
}

func TestAnalyzeMarkFailureStillReturnsResult(t *testing.T) {
	clock := func() time.Time { return testNow }
	base := memory.New(memory.WithClock(clock))
	objects := storagemem.New("https://uploads.test")
	events := &recorder{}

	engine := reel.New(markFailingStore{base},
		reel.WithVerifier(objects),
		reel.WithPresigner(objects),
		reel.WithInvoker(inference.InvokerFunc(func(context.Context, string) (analysis.Result, error) {
			return analysis.Result(sampleResult), nil
		})),
		reel.WithClock(clock),
		reel.WithPlugin(events),
	)
	ctx := context.Background()

	_, secret, err := engine.ProvisionAccount(ctx, "acme", 5)
	if err != nil {
		t.Fatal(err)
	}
	up, err := engine.IssueUpload(ctx, secret, "mov")
	if err != nil {
		t.Fatal(err)
	}
	objects.Put(up.Key, 4096, up.ContentType)

	res, err := engine.Analyze(ctx, secret, up.Key)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if string(res) != sampleResult {
		t.Errorf("result = %s", res)
	}
	if events.count("mark_failed") != 1 {
		t.Errorf("mark_failed events = %d, want 1", events.count("mark_failed"))
	}
}

// emptyVerifier reports neither an object nor an error.
type emptyVerifier struct{}

func (emptyVerifier) Head(context.Context, string) (*storage.Object, error) {
	return nil, nil
}

func TestAnalyzeNilObjectIsNotFound(t *testing.T) {
	objects := storagemem.New("https://uploads.test")
	var calls atomic.Int64
	engine := reel.New(memory.New(),
		reel.WithVerifier(emptyVerifier{}),
		reel.WithPresigner(objects),
		reel.WithInvoker(inference.InvokerFunc(func(context.Context, string) (analysis.Result, error) {
			calls.Add(1)
			return analysis.Result(sampleResult), nil
		})),
	)
	ctx := context.Background()

	_, secret, err := engine.ProvisionAccount(ctx, "acme", 5)
	if err != nil {
		t.Fatal(err)
	}
	up, err := engine.IssueUpload(ctx, secret, ".mp4")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Analyze(ctx, secret, up.Key); !errors.Is(err, reel.ErrAssetNotFound) {
		t.Fatalf("Analyze = %v, want ErrAssetNotFound", err)
	}
	if calls.Load() != 0 {
		t.Errorf("invoker called %d times", calls.Load())
	}
}

func TestAnalyzeNotConfigured(t *testing.T) {
	engine := reel.New(memory.New())
	_, err := engine.Analyze(context.Background(), "rk_x", "inference/a.mp4")
	if !errors.Is(err, reel.ErrInternal) {
		t.Fatalf("Analyze = %v, want ErrInternal", err)
	}
}

func TestAnalyzeConcurrentReservations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 3)

	keys := make([]string, 8)
	for i := range keys {
		keys[i] = h.upload(t, secret, 5000)
	}

	var (
		wg       sync.WaitGroup
		ok       atomic.Int64
		exceeded atomic.Int64
	)
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := h.engine.Analyze(ctx, secret, key)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, reel.ErrQuotaExceeded):
				exceeded.Add(1)
			default:
				t.Errorf("Analyze(%s): %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	if ok.Load() != 3 || exceeded.Load() != 5 {
		t.Errorf("ok=%d exceeded=%d, want 3 and 5", ok.Load(), exceeded.Load())
	}
	if got := h.used(t, acct); got != 3 {
		t.Errorf("used = %d, want 3", got)
	}
}

func TestIssueUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acct, secret := h.provision(t, 1)

	t.Run("valid", func(t *testing.T) {
		up, err := h.engine.IssueUpload(ctx, secret, ".MOV")
		if err != nil {
			t.Fatalf("IssueUpload: %v", err)
		}
		if !strings.HasPrefix(up.Key, asset.KeyPrefix) || !strings.HasSuffix(up.Key, ".mov") {
			t.Errorf("key = %q", up.Key)
		}
		if up.ContentType != "video/quicktime" {
			t.Errorf("content type = %q", up.ContentType)
		}
		a, err := h.store.GetAsset(ctx, up.Key)
		if err != nil {
			t.Fatalf("GetAsset: %v", err)
		}
		if a.Analyzed || a.AccountID.String() != acct.String() {
			t.Errorf("asset = %+v", a)
		}
	})

	t.Run("bad file type", func(t *testing.T) {
		_, err := h.engine.IssueUpload(ctx, secret, ".exe")
		if !errors.Is(err, reel.ErrBadRequest) {
			t.Fatalf("IssueUpload = %v, want ErrBadRequest", err)
		}
		if reel.PublicMessage(err) != "Invalid file type" {
			t.Errorf("message = %q", reel.PublicMessage(err))
		}
	})

	t.Run("unauthorized before file type", func(t *testing.T) {
		_, err := h.engine.IssueUpload(ctx, "", ".exe")
		if !errors.Is(err, reel.ErrUnauthorized) {
			t.Fatalf("IssueUpload = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("exhausted quota", func(t *testing.T) {
		key := h.upload(t, secret, 5000)
		if _, err := h.engine.Analyze(ctx, secret, key); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		_, err := h.engine.IssueUpload(ctx, secret, ".mp4")
		if !errors.Is(err, reel.ErrQuotaExceeded) {
			t.Fatalf("IssueUpload = %v, want ErrQuotaExceeded", err)
		}
	})
}

func TestProvisioning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.engine.ProvisionAccount(ctx, "", 5); !errors.Is(err, reel.ErrBadRequest) {
		t.Errorf("empty name = %v, want ErrBadRequest", err)
	}
	if _, _, err := h.engine.ProvisionAccount(ctx, "acme", -2); !errors.Is(err, reel.ErrBadRequest) {
		t.Errorf("limit -2 = %v, want ErrBadRequest", err)
	}

	acct, secret := h.provision(t, 5)
	if !strings.HasPrefix(secret, "rk_") {
		t.Errorf("secret = %q", secret)
	}
	if got, err := h.engine.Authenticate(ctx, secret); err != nil || got.String() != acct.String() {
		t.Errorf("Authenticate = %v, %v", got, err)
	}

	if err := h.engine.SetQuota(ctx, acct, 9); err != nil {
		t.Fatalf("SetQuota: %v", err)
	}
	q, err := h.engine.Quota(ctx, acct)
	if err != nil {
		t.Fatalf("Quota: %v", err)
	}
	if q.Limit != 9 || q.Used != 0 {
		t.Errorf("quota = %+v", q)
	}

	if _, err := h.engine.Quota(ctx, id.NewAccountID()); !errors.Is(err, reel.ErrNotFound) {
		t.Errorf("Quota(unknown) = %v, want ErrNotFound", err)
	}
	if _, _, err := h.engine.IssueKey(ctx, id.NewAccountID()); !errors.Is(err, reel.ErrNotFound) {
		t.Errorf("IssueKey(unknown) = %v, want ErrNotFound", err)
	}
	if h.events.count("provisioned") != 1 {
		t.Errorf("provisioned events = %d, want 1", h.events.count("provisioned"))
	}
}

// recorder counts hook invocations.
type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[event]++
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[event]
}

func (r *recorder) OnAccountProvisioned(context.Context, *account.Account, int64) error {
	r.add("provisioned")
	return nil
}

func (r *recorder) OnQuotaExceeded(context.Context, id.AccountID, string) error {
	r.add("exceeded")
	return nil
}

func (r *recorder) OnAnalysisCompleted(context.Context, id.AccountID, string, time.Duration) error {
	r.add("completed")
	return nil
}

func (r *recorder) OnAnalysisFailed(context.Context, id.AccountID, string, error) error {
	r.add("failed")
	return nil
}

func (r *recorder) OnAssetMarkFailed(context.Context, string, error) error {
	r.add("mark_failed")
	return nil
}

// trackingQuotas records lifecycle calls. Its map field makes the type
// incomparable.
type trackingQuotas struct {
	quota.Store
	seen map[string]bool
}

func (q trackingQuotas) Close() error {
	q.seen["close"] = true
	return nil
}

func (q trackingQuotas) Ping(context.Context) error {
	q.seen["ping"] = true
	return nil
}

func TestSeparateQuotaStoreLifecycle(t *testing.T) {
	q := trackingQuotas{Store: memory.New(), seen: map[string]bool{}}
	engine := reel.New(memory.New(), reel.WithQuotaStore(q))

	if err := engine.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !q.seen["ping"] || !q.seen["close"] {
		t.Errorf("quota backend lifecycle calls = %v", q.seen)
	}
}

// quotaFailingStore rejects SetQuota while fail is set.
type quotaFailingStore struct {
	*memory.Store
	fail *atomic.Bool
}

func (s quotaFailingStore) SetQuota(ctx context.Context, r *quota.Record) error {
	if s.fail.Load() {
		return errors.New("disk full")
	}
	return s.Store.SetQuota(ctx, r)
}

func TestProvisionAccountPartialFailure(t *testing.T) {
	fail := &atomic.Bool{}
	fail.Store(true)
	engine := reel.New(quotaFailingStore{Store: memory.New(), fail: fail},
		reel.WithPresigner(storagemem.New("https://uploads.test")),
	)
	ctx := context.Background()

	a, secret, err := engine.ProvisionAccount(ctx, "acme", 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if a == nil || secret != "" {
		t.Fatalf("ProvisionAccount = (%v, %q), want created account and no secret", a, secret)
	}
	if _, err := engine.Quota(ctx, a.ID); !errors.Is(err, reel.ErrNotFound) {
		t.Errorf("Quota = %v, want ErrNotFound", err)
	}

	fail.Store(false)
	if err := engine.SetQuota(ctx, a.ID, 3); err != nil {
		t.Fatalf("SetQuota: %v", err)
	}
	_, secret, err = engine.IssueKey(ctx, a.ID)
	if err != nil {
		t.Fatalf("IssueKey: %v", err)
	}
	if _, err := engine.IssueUpload(ctx, secret, ".mp4"); err != nil {
		t.Errorf("IssueUpload after completion: %v", err)
	}
}
