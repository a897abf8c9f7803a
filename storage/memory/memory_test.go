package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/reel/storage/memory"
)

func TestHead(t *testing.T) {
	ctx := context.Background()
	s := memory.New("http://localhost:9000/videos")

	obj, err := s.Head(ctx, "inference/a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if obj.Exists {
		t.Error("expected missing object")
	}

	s.Put("inference/a.mp4", 2048, "video/mp4")
	obj, err = s.Head(ctx, "inference/a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !obj.Exists || obj.SizeBytes != 2048 {
		t.Errorf("unexpected object %+v", obj)
	}

	boom := errors.New("boom")
	s.FailHead(boom)
	if _, err := s.Head(ctx, "inference/a.mp4"); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestPresignPut(t *testing.T) {
	s := memory.New("http://localhost:9000/videos")
	up, err := s.PresignPut(context.Background(), "inference/a.mp4", "video/mp4", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(up.URL, "http://localhost:9000/videos/inference/a.mp4?") {
		t.Errorf("unexpected url %q", up.URL)
	}
}
