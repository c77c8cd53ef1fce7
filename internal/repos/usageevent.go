package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/siftnotes/sift-backend/internal/logger"
	"github.com/siftnotes/sift-backend/internal/types"
)

type UsageEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.UsageEvent) ([]*types.UsageEvent, error)
	MarkSent(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, sentAt time.Time) error
}

type usageEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageEventRepo(db *gorm.DB, baseLog *logger.Logger) UsageEventRepo {
	repoLog := baseLog.With("repo", "UsageEventRepo")
	return &usageEventRepo{db: db, log: repoLog}
}

func (r *usageEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.UsageEvent) ([]*types.UsageEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.UsageEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *usageEventRepo) MarkSent(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, sentAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.UsageEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"sent_at": sentAt}).Error
}
