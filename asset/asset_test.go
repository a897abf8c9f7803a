package asset_test

import (
	"testing"

	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{".mp4", "video/mp4", true},
		{"mov", "video/quicktime", true},
		{".AVI", "video/x-msvideo", true},
		{".mkv", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := asset.ContentType(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ContentType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewKey(t *testing.T) {
	if got := asset.NewKey("abc", "mp4"); got != "inference/abc.mp4" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestOwnedBy(t *testing.T) {
	owner := id.NewAccountID()
	a := &asset.Asset{AccountID: owner}

	if !a.OwnedBy(owner) {
		t.Error("expected asset to be owned by its account")
	}
	if a.OwnedBy(id.NewAccountID()) {
		t.Error("expected asset not to be owned by another account")
	}
}
