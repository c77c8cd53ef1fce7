package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/siftnotes/sift-backend/internal/logger"
	"github.com/siftnotes/sift-backend/internal/repos"
	"github.com/siftnotes/sift-backend/internal/types"
)

const usageEventChunkStored = "chunk_stored"

// UsageService reports stored chunks to the external metering collaborator.
// It is best-effort: the chunk-creation path never waits on it and never
// fails because of it. Failures are logged only.
type UsageService interface {
	RecordChunksStored(ownerID uuid.UUID, chunks []*types.Chunk)
}

type usageEvent struct {
	EventID   string         `json:"event_id"`
	OwnerID   string         `json:"owner_id"`
	EventName string         `json:"event_name"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type usageService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.UsageEventRepo
	ingestURL string
	apiKey    string
	client    *http.Client
}

func NewUsageService(db *gorm.DB, baseLog *logger.Logger, repo repos.UsageEventRepo) UsageService {
	return &usageService{
		db:        db,
		log:       baseLog.With("service", "UsageService"),
		repo:      repo,
		ingestURL: os.Getenv("METERING_INGEST_URL"),
		apiKey:    os.Getenv("METERING_API_KEY"),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *usageService) RecordChunksStored(ownerID uuid.UUID, chunks []*types.Chunk) {
	if len(chunks) == 0 || ownerID == uuid.Nil {
		return
	}

	events := make([]usageEvent, 0, len(chunks))
	rows := make([]*types.UsageEvent, 0, len(chunks))
	now := time.Now().UTC()
	for _, c := range chunks {
		if c == nil {
			continue
		}
		meta := map[string]any{
			"chunk_id": c.ID.String(),
			"category": c.Category,
		}
		eventID := uuid.New()
		events = append(events, usageEvent{
			EventID:   eventID.String(),
			OwnerID:   ownerID.String(),
			EventName: usageEventChunkStored,
			Timestamp: now,
			Metadata:  meta,
		})
		metaJSON, _ := json.Marshal(meta)
		rows = append(rows, &types.UsageEvent{
			ID:        eventID,
			OwnerID:   ownerID,
			EventName: usageEventChunkStored,
			Metadata:  datatypes.JSON(metaJSON),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	go s.deliver(events, rows)
}

func (s *usageService) deliver(events []usageEvent, rows []*types.UsageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.repo.Create(ctx, nil, rows); err != nil {
		s.log.Warn("usage event audit insert failed", "error", err, "count", len(rows))
	}

	if s.ingestURL == "" {
		s.log.Debug("metering ingest not configured, skipping", "count", len(events))
		return
	}

	if err := s.ingest(ctx, events); err != nil {
		s.log.Warn("usage event ingest failed", "error", err, "count", len(events))
		return
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	if err := s.repo.MarkSent(ctx, nil, ids, time.Now().UTC()); err != nil {
		s.log.Warn("usage event mark-sent failed", "error", err)
	}
}

func (s *usageService) ingest(ctx context.Context, events []usageEvent) error {
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ingestURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("metering http %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
