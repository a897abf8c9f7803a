package storage_test

import (
	"testing"

	"github.com/xraph/reel/storage"
)

func TestLocator(t *testing.T) {
	got := storage.Locator("videos", "inference/a.mp4")
	if got != "s3://videos/inference/a.mp4" {
		t.Errorf("unexpected locator %q", got)
	}
}

func TestObjectComplete(t *testing.T) {
	tests := []struct {
		name string
		obj  *storage.Object
		want bool
	}{
		{"nil", nil, false},
		{"missing", &storage.Object{Exists: false, SizeBytes: 5000}, false},
		{"too small", &storage.Object{Exists: true, SizeBytes: 999}, false},
		{"boundary", &storage.Object{Exists: true, SizeBytes: storage.MinObjectSize}, true},
		{"large", &storage.Object{Exists: true, SizeBytes: 5 << 20}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}
