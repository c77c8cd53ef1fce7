package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/siftnotes/sift-backend/internal/apierr"
	"github.com/siftnotes/sift-backend/internal/categories"
	"github.com/siftnotes/sift-backend/internal/logger"
	"github.com/siftnotes/sift-backend/internal/repos"
	"github.com/siftnotes/sift-backend/internal/requestdata"
	"github.com/siftnotes/sift-backend/internal/types"
)

// ChunkService owns the persisted chunk collection. Every operation is scoped
// to the authenticated owner from the request context; a chunk belonging to
// someone else looks exactly like one that does not exist.
type ChunkService interface {
	CreateBatch(ctx context.Context, proposals []ChunkProposal) ([]*types.Chunk, error)
	List(ctx context.Context) ([]*types.Chunk, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content, category string) (*types.Chunk, error)
	UpdateImportance(ctx context.Context, id uuid.UUID, importance *string) (*types.Chunk, error)
	SetPinned(ctx context.Context, id uuid.UUID, pinned bool) (*types.Chunk, error)
	SetStarred(ctx context.Context, id uuid.UUID, starred bool) (*types.Chunk, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportCSV(ctx context.Context) ([]byte, error)
}

type chunkService struct {
	db    *gorm.DB
	log   *logger.Logger
	repo  repos.ChunkRepo
	usage UsageService
}

func NewChunkService(db *gorm.DB, baseLog *logger.Logger, repo repos.ChunkRepo, usage UsageService) ChunkService {
	return &chunkService{
		db:    db,
		log:   baseLog.With("service", "ChunkService"),
		repo:  repo,
		usage: usage,
	}
}

func ownerFromContext(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized(fmt.Errorf("not authenticated"))
	}
	return rd.UserID, nil
}

// CreateBatch validates every proposal before touching the store and inserts
// all of them in one transaction. One bad proposal rejects the whole batch;
// silently dropping part of a brain dump is worse than making the user fix it.
func (s *chunkService) CreateBatch(ctx context.Context, proposals []ChunkProposal) ([]*types.Chunk, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return nil, apierr.InvalidInput(fmt.Errorf("chunks are required"))
	}

	now := time.Now().UTC()
	rows := make([]*types.Chunk, 0, len(proposals))
	for i, p := range proposals {
		content := strings.TrimSpace(p.Content)
		if content == "" {
			return nil, apierr.Validation(fmt.Errorf("chunk %d has empty content", i))
		}
		if !categories.IsValidKey(p.Category) {
			return nil, apierr.Validation(fmt.Errorf("chunk %d has unknown category %q", i, p.Category))
		}
		var intensity *string
		if p.EmotionalIntensity != nil {
			v := strings.TrimSpace(strings.ToLower(*p.EmotionalIntensity))
			if !types.IsValidIntensity(v) {
				return nil, apierr.Validation(fmt.Errorf("chunk %d has invalid emotional_intensity %q", i, v))
			}
			intensity = &v
		}
		rows = append(rows, &types.Chunk{
			ID:                 uuid.New(),
			OwnerID:            ownerID,
			Content:            content,
			Category:           p.Category,
			EmotionalIntensity: intensity,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, cErr := s.repo.CreateBatch(ctx, tx, rows)
		return cErr
	}); err != nil {
		s.log.Warn("chunk batch insert failed", "error", err, "count", len(rows))
		return nil, apierr.Persistence(err)
	}

	s.usage.RecordChunksStored(ownerID, rows)
	return rows, nil
}

func (s *chunkService) List(ctx context.Context) ([]*types.Chunk, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.repo.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	return chunks, nil
}

func (s *chunkService) UpdateContent(ctx context.Context, id uuid.UUID, content, category string) (*types.Chunk, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierr.Validation(fmt.Errorf("content is required"))
	}
	if !categories.IsValidKey(category) {
		return nil, apierr.Validation(fmt.Errorf("unknown category %q", category))
	}
	return s.mutate(ctx, id, ownerID, func(tx *gorm.DB) (int64, error) {
		return s.repo.UpdateContent(ctx, tx, id, ownerID, content, category)
	})
}

func (s *chunkService) UpdateImportance(ctx context.Context, id uuid.UUID, importance *string) (*types.Chunk, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	// Any tier to any other tier is allowed, including back to unranked; only
	// the vocabulary is fixed.
	if importance != nil && !types.IsValidImportance(*importance) {
		return nil, apierr.Validation(fmt.Errorf("invalid importance %q", *importance))
	}
	return s.mutate(ctx, id, ownerID, func(tx *gorm.DB) (int64, error) {
		return s.repo.UpdateImportance(ctx, tx, id, ownerID, importance)
	})
}

func (s *chunkService) SetPinned(ctx context.Context, id uuid.UUID, pinned bool) (*types.Chunk, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, ownerID, func(tx *gorm.DB) (int64, error) {
		return s.repo.SetPinned(ctx, tx, id, ownerID, pinned)
	})
}

func (s *chunkService) SetStarred(ctx context.Context, id uuid.UUID, starred bool) (*types.Chunk, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, ownerID, func(tx *gorm.DB) (int64, error) {
		return s.repo.SetStarred(ctx, tx, id, ownerID, starred)
	})
}

// mutate runs one owner-scoped update in a transaction, maps zero affected
// rows to not_found, and reloads the row so callers get fresh timestamps.
func (s *chunkService) mutate(ctx context.Context, id, ownerID uuid.UUID, op func(tx *gorm.DB) (int64, error)) (*types.Chunk, error) {
	var out *types.Chunk
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, opErr := op(tx)
		if opErr != nil {
			return opErr
		}
		if affected == 0 {
			return gorm.ErrRecordNotFound
		}
		chunk, getErr := s.repo.GetByIDForOwner(ctx, tx, id, ownerID)
		if getErr != nil {
			return getErr
		}
		out = chunk
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("chunk not found"))
		}
		return nil, apierr.Persistence(err)
	}
	return out, nil
}

func (s *chunkService) Delete(ctx context.Context, id uuid.UUID) error {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, nil, id, ownerID)
	if err != nil {
		return apierr.Persistence(err)
	}
	if affected == 0 {
		return apierr.NotFound(fmt.Errorf("chunk not found"))
	}
	return nil
}

// ExportCSV writes the owner's full chunk list in the list ordering. The csv
// writer quote-escapes embedded delimiters and newlines.
func (s *chunkService) ExportCSV(ctx context.Context) ([]byte, error) {
	chunks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "content", "category", "emotional_intensity", "importance", "pinned", "starred", "created_at", "updated_at"}); err != nil {
		return nil, apierr.Persistence(err)
	}
	for _, c := range chunks {
		intensity := ""
		if c.EmotionalIntensity != nil {
			intensity = *c.EmotionalIntensity
		}
		importance := ""
		if c.Importance != nil {
			importance = *c.Importance
		}
		record := []string{
			c.ID.String(),
			c.Content,
			c.Category,
			intensity,
			importance,
			strconv.FormatBool(c.Pinned),
			strconv.FormatBool(c.Starred),
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, apierr.Persistence(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apierr.Persistence(err)
	}
	return buf.Bytes(), nil
}
