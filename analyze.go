package reel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/inference"
	"github.com/xraph/reel/storage"
)

// Analyze runs sentiment inference on the uploaded video at key on behalf
// of the caller identified by credential.
//
// The checks run in a fixed order and the first failure is returned:
// credential, key presence, asset lookup, ownership, analyzed flag, quota
// reservation, storage verification, inference. Ownership and state are
// checked before quota is charged; quota is charged before storage is
// inspected. A charged unit is kept even if a later step fails.
//
// Marking the asset analyzed is best effort: if it fails the result is still
// returned and the failure is logged and reported to plugins.
func (r *Reel) Analyze(ctx context.Context, credential, key string) (result analysis.Result, err error) {
	ctx, span := r.tracer.Start(ctx, "reel.analyze")
	defer span.End()

	start := r.now()
	accountID := id.Nil

	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, PublicMessage(err))
		r.plugins.EmitAnalysisFailed(ctx, accountID, key, err)
	}()

	if r.verifier == nil || r.invoker == nil {
		return nil, internalError("analyze", inference.ErrNotConfigured)
	}

	accountID, err = r.authenticate(ctx, credential)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("reel.account_id", accountID.String()))

	if key == "" {
		return nil, ErrBadRequest
	}
	span.SetAttributes(attribute.String("reel.key", key))

	a, err := r.lookupAsset(ctx, key)
	if err != nil {
		return nil, err
	}
	if !a.OwnedBy(accountID) {
		return nil, ErrForbidden
	}
	if a.Analyzed {
		return nil, ErrAlreadyAnalyzed
	}

	if err := r.reserve(ctx, accountID, key); err != nil {
		return nil, err
	}

	if err := r.verify(ctx, key); err != nil {
		return nil, err
	}

	result, err = r.invoke(ctx, key)
	if err != nil {
		return nil, err
	}

	r.markAnalyzed(ctx, key)

	elapsed := r.now().Sub(start)
	r.logger.Info("analysis completed",
		"account_id", accountID.String(),
		"key", key,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	r.plugins.EmitAnalysisCompleted(ctx, accountID, key, elapsed)

	return result, nil
}

// Authenticate resolves credential to the owning account.
func (r *Reel) Authenticate(ctx context.Context, credential string) (id.AccountID, error) {
	return r.authenticate(ctx, credential)
}

func (r *Reel) authenticate(ctx context.Context, credential string) (id.AccountID, error) {
	ctx, span := r.tracer.Start(ctx, "reel.authenticate")
	defer span.End()

	if credential == "" {
		return id.Nil, ErrUnauthorized
	}

	k, err := r.store.GetAPIKeyByHash(ctx, r.hasher.Hash(credential))
	if err != nil {
		if errors.Is(err, account.ErrKeyNotFound) {
			return id.Nil, ErrUnauthorized
		}
		r.logger.Error("credential lookup failed", "error", err)
		return id.Nil, spanError(span, internalError("credential lookup", err))
	}
	return k.AccountID, nil
}

func (r *Reel) lookupAsset(ctx context.Context, key string) (*asset.Asset, error) {
	ctx, span := r.tracer.Start(ctx, "reel.asset.lookup")
	defer span.End()

	a, err := r.store.GetAsset(ctx, key)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("asset lookup failed", "key", key, "error", err)
		return nil, spanError(span, internalError("asset lookup", err))
	}
	return a, nil
}

func (r *Reel) reserve(ctx context.Context, accountID id.AccountID, key string) error {
	ctx, span := r.tracer.Start(ctx, "reel.quota.reserve")
	defer span.End()

	ok, err := r.quotas.Reserve(ctx, accountID, 1)
	if err != nil {
		r.logger.Error("quota reservation failed",
			"account_id", accountID.String(),
			"error", err,
		)
		return spanError(span, internalError("quota reserve", err))
	}
	if !ok {
		r.plugins.EmitQuotaExceeded(ctx, accountID, key)
		return ErrQuotaExceeded
	}

	r.plugins.EmitQuotaReserved(ctx, accountID, key)
	return nil
}

func (r *Reel) verify(ctx context.Context, key string) error {
	ctx, span := r.tracer.Start(ctx, "reel.storage.verify")
	defer span.End()

	obj, err := r.verifier.Head(ctx, key)
	if err != nil {
		r.logger.Warn("storage verification failed", "key", key, "error", err)
		return spanError(span, fmt.Errorf("%w: %w", ErrAssetNotFound, err))
	}
	if obj == nil || !obj.Exists {
		return ErrAssetNotFound
	}
	span.SetAttributes(attribute.Int64("reel.object.size", obj.SizeBytes))
	if !obj.Complete() {
		return ErrAssetInvalid
	}
	return nil
}

func (r *Reel) invoke(ctx context.Context, key string) (analysis.Result, error) {
	locator := storage.Locator(r.bucket, key)

	ctx, span := r.tracer.Start(ctx, "reel.inference.invoke",
		trace.WithAttributes(attribute.String("reel.locator", locator)),
	)
	defer span.End()

	res, err := r.invoker.Invoke(ctx, locator)
	if err != nil {
		r.logger.Error("inference failed", "locator", locator, "error", err)
		return nil, spanError(span, fmt.Errorf("%w: %w", ErrInferenceFailure, err))
	}
	return res, nil
}

func (r *Reel) markAnalyzed(ctx context.Context, key string) {
	ctx, span := r.tracer.Start(ctx, "reel.asset.mark_analyzed")
	defer span.End()

	if err := r.store.MarkAnalyzed(ctx, key); err != nil {
		_ = spanError(span, err)
		r.logger.Error("failed to mark asset analyzed", "key", key, "error", err)
		r.plugins.EmitAssetMarkFailed(ctx, key, err)
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
