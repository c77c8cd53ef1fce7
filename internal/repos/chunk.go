package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/siftnotes/sift-backend/internal/logger"
	"github.com/siftnotes/sift-backend/internal/types"
)

type ChunkRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Chunk, error)
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID) (*types.Chunk, error)
	UpdateContent(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, content, category string) (int64, error)
	UpdateImportance(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, importance *string) (int64, error)
	SetPinned(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, pinned bool) (int64, error)
	SetStarred(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, starred bool) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID) (int64, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	repoLog := baseLog.With("repo", "ChunkRepo")
	return &chunkRepo{db: db, log: repoLog}
}

func (r *chunkRepo) CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return []*types.Chunk{}, nil
	}

	// Content can be long; keep insert batches small.
	const batchSize = 100

	if err := transaction.WithContext(ctx).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

// ListByOwner is the display ordering contract: pinned first, then newest
// first. Downstream consumers read "the pinned chunk" off the head of the
// list without a second query.
func (r *chunkRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Chunk
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("pinned DESC, created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByIDForOwner filters by owner as well as id so a chunk owned by someone
// else is indistinguishable from one that does not exist.
func (r *chunkRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID) (*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Chunk
	if err := transaction.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *chunkRepo) UpdateContent(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, content, category string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"content":  content,
			"category": category,
		})
	return res.RowsAffected, res.Error
}

func (r *chunkRepo) UpdateImportance(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, importance *string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"importance": importance,
		})
	return res.RowsAffected, res.Error
}

// SetPinned enforces the one-pin-per-owner invariant. Pinning clears every
// other pin of the same owner first, inside the caller's transaction. The
// clear-all UPDATE takes row locks on all of the owner's rows, so two racing
// pin transactions serialize on it and the second re-clears the first's pin.
func (r *chunkRepo) SetPinned(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, pinned bool) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pinned {
		if err := transaction.WithContext(ctx).
			Model(&types.Chunk{}).
			Where("owner_id = ? AND id <> ?", ownerID, id).
			Updates(map[string]interface{}{"pinned": false}).Error; err != nil {
			return 0, err
		}
	}
	res := transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]interface{}{"pinned": pinned})
	return res.RowsAffected, res.Error
}

func (r *chunkRepo) SetStarred(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID, starred bool) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]interface{}{"starred": starred})
	return res.RowsAffected, res.Error
}

func (r *chunkRepo) Delete(ctx context.Context, tx *gorm.DB, id, ownerID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&types.Chunk{})
	return res.RowsAffected, res.Error
}
