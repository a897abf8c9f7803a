package reel

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/storage"
	"github.com/xraph/reel/types"
)

// IssueUpload registers a new asset for the caller and returns a presigned
// URL the client uploads the video to. Quota is checked but not charged;
// the charge happens in Analyze.
func (r *Reel) IssueUpload(ctx context.Context, credential, fileType string) (*storage.Upload, error) {
	ctx, span := r.tracer.Start(ctx, "reel.upload")
	defer span.End()

	if r.presigner == nil {
		return nil, spanError(span, internalError("issue upload", storage.ErrNotConfigured))
	}

	accountID, err := r.authenticate(ctx, credential)
	if err != nil {
		return nil, err
	}

	ext := asset.NormalizeExt(fileType)
	contentType, ok := asset.ContentType(ext)
	if !ok {
		return nil, ValidationError{Field: "fileType", Message: "Invalid file type"}
	}

	if err := r.checkQuota(ctx, accountID); err != nil {
		return nil, err
	}

	key := asset.NewKey(uuid.NewString(), ext)
	span.SetAttributes(attribute.String("reel.key", key))

	up, err := r.presigner.PresignPut(ctx, key, contentType, r.uploadTTL)
	if err != nil {
		r.logger.Error("presign failed", "key", key, "error", err)
		return nil, spanError(span, internalError("presign", err))
	}

	now := r.now()
	a := &asset.Asset{
		Entity:      types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:          id.NewAssetID(),
		Key:         key,
		AccountID:   accountID,
		ContentType: contentType,
	}
	if err := r.store.CreateAsset(ctx, a); err != nil {
		r.logger.Error("asset registration failed", "key", key, "error", err)
		return nil, spanError(span, internalError("create asset", err))
	}

	r.logger.Debug("upload issued", "account_id", accountID.String(), "key", key)
	r.plugins.EmitUploadIssued(ctx, a)

	return up, nil
}

// checkQuota rejects callers whose current period is already exhausted.
func (r *Reel) checkQuota(ctx context.Context, accountID id.AccountID) error {
	rec, err := r.quotas.GetQuota(ctx, accountID)
	if err != nil {
		if errors.Is(err, quota.ErrNoRecord) {
			r.logger.Error("account has no quota record", "account_id", accountID.String())
		} else {
			r.logger.Error("quota lookup failed", "account_id", accountID.String(), "error", err)
		}
		return internalError("quota lookup", err)
	}

	eff := rec.Effective(r.now())
	if eff.Exhausted() {
		r.plugins.EmitQuotaExceeded(ctx, accountID, "")
		return ErrQuotaExceeded
	}
	return nil
}
