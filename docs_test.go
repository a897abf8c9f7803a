package reel_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/reel"
	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/inference"
	storagemem "github.com/xraph/reel/storage/memory"
	"github.com/xraph/reel/store/memory"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Memory backends for demo; use postgres and s3 in production
		store := memory.New()
		objects := storagemem.New("http://localhost:9000/videos")

		model := inference.InvokerFunc(func(_ context.Context, locator string) (analysis.Result, error) {
			return analysis.Parse([]byte(`{"video_path":"` + locator + `","sentiment":"neutral"}`))
		})

		r := reel.New(store,
			reel.WithLogger(slog.Default()),
			reel.WithVerifier(objects),
			reel.WithPresigner(objects),
			reel.WithInvoker(model),
			reel.WithBucket("videos"),
			reel.WithUploadTTL(10*time.Minute),
		)

		ctx := context.Background()
		if err := r.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer r.Stop()

		acct, secret, err := r.ProvisionAccount(ctx, "acme", 100)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("provisioned %s\n", acct.ID)

		up, err := r.IssueUpload(ctx, secret, ".mp4")
		if err != nil {
			t.Fatal(err)
		}

		// Simulate the client PUT
		objects.Put(up.Key, 2*reel.MinObjectSize, up.ContentType)

		result, err := r.Analyze(ctx, secret, up.Key)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("analysis: %s\n", result)

		q, err := r.Quota(ctx, acct.ID)
		if err != nil {
			t.Fatal(err)
		}
		if q.Used != 1 {
			t.Errorf("used = %d, want 1", q.Used)
		}
	})

	t.Run("ErrorMapping", func(t *testing.T) {
		err := reel.ErrQuotaExceeded
		_ = reel.HTTPStatus(err)    // 429
		_ = reel.PublicMessage(err) // "Monthly quota exceeded"
		if !reel.IsClientError(err) {
			t.Error("quota exceeded should be a client error")
		}
	})
}
