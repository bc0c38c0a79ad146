package assets

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/storage"
)

// Promotion is an upload whose blob was copied to its permanent name and
// which still has to be recorded by Apply
type Promotion struct {
	Upload *Upload
	Blob   *storage.SavedBlob
}

// Promoter turns uploads into images
type Promoter struct {
	store *Store
	blobs storage.BlobStore
}

// NewPromoter creates a Promoter
func NewPromoter(store *Store, blobs storage.BlobStore) *Promoter {
	return &Promoter{store: store, blobs: blobs}
}

// Stage copies the blob of uploadID to destName. It runs before the
// transaction opens; pair it with Apply inside the transaction and Discard
// when the transaction fails.
func (p *Promoter) Stage(ctx context.Context, uploadID, destName string) (*Promotion, error) {
	upload, err := p.store.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	saved, err := p.blobs.SaveUpload(ctx, upload.BlobName, destName)
	if err != nil {
		return nil, fmt.Errorf("failed to save upload %s: %w", uploadID, err)
	}
	return &Promotion{Upload: upload, Blob: saved}, nil
}

// Apply replaces the upload row with an image row inside tx
func (pr *Promotion) Apply(ctx context.Context, tx sqlx.ExtContext) (*Image, error) {
	if err := DeleteUpload(ctx, tx, pr.Upload.ID); err != nil {
		return nil, err
	}
	return CreateImage(ctx, tx, pr.Blob.URL)
}

// Discard deletes the copied blobs of promotions whose transaction failed.
// Nil entries are skipped. Failures are logged, the orphan is harmless.
func (p *Promoter) Discard(ctx context.Context, promotions ...*Promotion) {
	logger := observability.FromContext(ctx)
	for _, pr := range promotions {
		if pr == nil {
			continue
		}
		if err := p.blobs.Delete(ctx, pr.Blob.Name); err != nil {
			logger.WithError(err).WithField("blob", pr.Blob.Name).Warn("failed to discard promoted blob")
		}
	}
}
