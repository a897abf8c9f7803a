package httpinvoker_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/inference"
	"github.com/xraph/reel/inference/httpinvoker"
)

func TestInvoke(t *testing.T) {
	var got inference.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if tok := r.Header.Get("X-Api-Token"); tok != "secret" {
			t.Errorf("unexpected token %q", tok)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"utterances":[{"text":"hi"}]}`))
	}))
	defer srv.Close()

	inv := httpinvoker.New(srv.URL, httpinvoker.WithHeader("X-Api-Token", "secret"))
	res, err := inv.Invoke(context.Background(), "s3://videos/inference/a.mp4")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.VideoPath != "s3://videos/inference/a.mp4" {
		t.Errorf("unexpected video_path %q", got.VideoPath)
	}
	if string(res) != `{"utterances":[{"text":"hi"}]}` {
		t.Errorf("unexpected result %s", res)
	}
}

func TestInvokeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		is      error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model crashed", http.StatusInternalServerError)
			},
			is: httpinvoker.ErrStatus,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			is: analysis.ErrInvalidResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := httpinvoker.New(srv.URL).Invoke(context.Background(), "s3://b/k")
			if !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestInvokeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	inv := httpinvoker.New(srv.URL, httpinvoker.WithTimeout(50*time.Millisecond))
	if _, err := inv.Invoke(context.Background(), "s3://b/k"); err == nil {
		t.Fatal("expected timeout error")
	}
}
