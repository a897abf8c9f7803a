// Package sagemaker invokes a SageMaker real-time endpoint.
package sagemaker

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/inference"
)

var _ inference.Invoker = (*Invoker)(nil)

const contentTypeJSON = "application/json"

// API is the subset of the SageMaker runtime client used here.
type API interface {
	InvokeEndpoint(ctx context.Context, in *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// Invoker calls a named endpoint.
type Invoker struct {
	api      API
	endpoint string
}

// New returns an Invoker for endpoint.
func New(api API, endpoint string) *Invoker {
	return &Invoker{api: api, endpoint: endpoint}
}

// NewFromRegion loads the default AWS credential chain for region.
func NewFromRegion(ctx context.Context, region, endpoint string) (*Invoker, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("sagemaker: load aws config: %w", err)
	}
	return New(sagemakerruntime.NewFromConfig(cfg), endpoint), nil
}

// Invoke implements inference.Invoker.
func (i *Invoker) Invoke(ctx context.Context, locator string) (analysis.Result, error) {
	body, err := inference.EncodeRequest(locator)
	if err != nil {
		return nil, fmt.Errorf("sagemaker: encode request: %w", err)
	}

	out, err := i.api.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(i.endpoint),
		ContentType:  aws.String(contentTypeJSON),
		Accept:       aws.String(contentTypeJSON),
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("sagemaker: invoke %s: %w", i.endpoint, err)
	}

	res, err := analysis.Parse(out.Body)
	if err != nil {
		return nil, fmt.Errorf("sagemaker: %s: %w", i.endpoint, err)
	}
	return res, nil
}
