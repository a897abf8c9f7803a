package sagemaker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/inference/sagemaker"
)

type fakeAPI struct {
	in   *sagemakerruntime.InvokeEndpointInput
	body []byte
	err  error
}

func (f *fakeAPI) InvokeEndpoint(_ context.Context, in *sagemakerruntime.InvokeEndpointInput, _ ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sagemakerruntime.InvokeEndpointOutput{Body: f.body}, nil
}

func TestInvoke(t *testing.T) {
	api := &fakeAPI{body: []byte(`{"utterances":[]}`)}
	inv := sagemaker.New(api, "sentiment-analysis-endpoint")

	res, err := inv.Invoke(context.Background(), "s3://videos/inference/a.mp4")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(res) != `{"utterances":[]}` {
		t.Errorf("unexpected result %s", res)
	}
	if aws.ToString(api.in.EndpointName) != "sentiment-analysis-endpoint" {
		t.Errorf("unexpected endpoint %q", aws.ToString(api.in.EndpointName))
	}
	if aws.ToString(api.in.ContentType) != "application/json" {
		t.Errorf("unexpected content type %q", aws.ToString(api.in.ContentType))
	}
	if string(api.in.Body) != `{"video_path":"s3://videos/inference/a.mp4"}` {
		t.Errorf("unexpected body %s", api.in.Body)
	}
}

func TestInvokeErrors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
		is   error
	}{
		{"endpoint error", &fakeAPI{err: errors.New("ModelError")}, nil},
		{"non-JSON body", &fakeAPI{body: []byte("<html>")}, analysis.ErrInvalidResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sagemaker.New(tt.api, "ep").Invoke(context.Background(), "s3://b/k")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}
