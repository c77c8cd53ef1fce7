package services

import (
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/siftnotes/sift-backend/internal/apierr"
	"github.com/siftnotes/sift-backend/internal/repos"
	"github.com/siftnotes/sift-backend/internal/requestdata"
	"github.com/siftnotes/sift-backend/internal/types"
)

type recordingUsage struct {
	mu    sync.Mutex
	calls int
	last  []*types.Chunk
}

func (u *recordingUsage) RecordChunksStored(ownerID uuid.UUID, chunks []*types.Chunk) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.last = chunks
}

func newChunkService(t *testing.T) (ChunkService, *recordingUsage) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=10000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.Chunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := testLogger(t)
	usage := &recordingUsage{}
	return NewChunkService(db, log, repos.NewChunkRepo(db, log), usage), usage
}

func ownerContext(owner uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: owner})
}

func strPtr(s string) *string { return &s }

func TestCreateBatchPersistsAndLists(t *testing.T) {
	svc, usage := newChunkService(t)
	ctx := ownerContext(uuid.New())

	created, err := svc.CreateBatch(ctx, []ChunkProposal{
		{Content: "I feel grateful for my family today", Category: "gratitudes"},
		{Content: "I have a great idea for a new app", Category: "ideas"},
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d chunks, want 2", len(created))
	}

	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d chunks, want 2", len(listed))
	}
	for _, c := range listed {
		if c.Pinned || c.Starred || c.Importance != nil {
			t.Fatalf("new chunk must start unpinned, unstarred, unranked: %+v", c)
		}
	}

	if usage.calls != 1 || len(usage.last) != 2 {
		t.Fatalf("usage event not recorded: calls=%d last=%d", usage.calls, len(usage.last))
	}
}

func TestCreateBatchRejectsWholeBatch(t *testing.T) {
	svc, usage := newChunkService(t)
	ctx := ownerContext(uuid.New())

	cases := []struct {
		name      string
		proposals []ChunkProposal
		wantCode  string
	}{
		{
			name:      "empty_batch",
			proposals: nil,
			wantCode:  apierr.CodeInvalidInput,
		},
		{
			name: "unknown_category",
			proposals: []ChunkProposal{
				{Content: "fine", Category: "gratitudes"},
				{Content: "bad", Category: "daydreams"},
			},
			wantCode: apierr.CodeValidation,
		},
		{
			name: "blank_content",
			proposals: []ChunkProposal{
				{Content: "fine", Category: "ideas"},
				{Content: "   ", Category: "ideas"},
			},
			wantCode: apierr.CodeValidation,
		},
		{
			name: "bad_intensity",
			proposals: []ChunkProposal{
				{Content: "fine", Category: "worries", EmotionalIntensity: strPtr("extreme")},
			},
			wantCode: apierr.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBatch(ctx, tc.proposals)
			if !apierr.Is(err, tc.wantCode) {
				t.Fatalf("err = %v, want code %s", err, tc.wantCode)
			}
		})
	}

	// No partial writes and no usage events for rejected batches.
	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("store should be empty after rejected batches, has %d chunks", len(listed))
	}
	if usage.calls != 0 {
		t.Fatalf("usage recorded for rejected batch: calls=%d", usage.calls)
	}
}

func TestClassifyThenStoreFlow(t *testing.T) {
	svc, _ := newChunkService(t)
	ctx := ownerContext(uuid.New())

	stub := &stubCompletionClient{response: `[
		{"content": "I feel grateful for my family today", "category": "gratitudes"},
		{"content": "I have a great idea for a new app", "category": "ideas"}
	]`}
	classifier := NewClassifierService(testLogger(t), stub)

	proposals, err := classifier.Classify(ctx, "I feel grateful for my family today. I also have a great idea for a new app.", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if _, err := svc.CreateBatch(ctx, proposals); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d chunks, want 2", len(listed))
	}
	got := map[string]string{}
	for _, c := range listed {
		got[c.Category] = c.Content
	}
	if got["gratitudes"] != "I feel grateful for my family today" {
		t.Errorf("gratitudes chunk = %q", got["gratitudes"])
	}
	if got["ideas"] != "I have a great idea for a new app" {
		t.Errorf("ideas chunk = %q", got["ideas"])
	}
}

func TestCreateBatchStoresIntensity(t *testing.T) {
	svc, _ := newChunkService(t)
	ctx := ownerContext(uuid.New())

	if _, err := svc.CreateBatch(ctx, []ChunkProposal{
		{Content: "deadline is slipping", Category: "worries", EmotionalIntensity: strPtr("HIGH")},
	}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].EmotionalIntensity == nil {
		t.Fatal("intensity not persisted")
	}
	if *listed[0].EmotionalIntensity != types.IntensityHigh {
		t.Fatalf("intensity = %q, want %q", *listed[0].EmotionalIntensity, types.IntensityHigh)
	}
}

func TestUpdateImportanceValidation(t *testing.T) {
	svc, _ := newChunkService(t)
	ctx := ownerContext(uuid.New())

	created, err := svc.CreateBatch(ctx, []ChunkProposal{{Content: "rank me", Category: "tasks"}})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	id := created[0].ID

	if _, err := svc.UpdateImportance(ctx, id, strPtr("urgent")); !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("unknown tier: err = %v, want validation", err)
	}

	got, err := svc.UpdateImportance(ctx, id, strPtr(types.ImportanceTier2))
	if err != nil {
		t.Fatalf("UpdateImportance: %v", err)
	}
	if got.Importance == nil || *got.Importance != types.ImportanceTier2 {
		t.Fatalf("importance = %v, want tier 2", got.Importance)
	}

	got, err = svc.UpdateImportance(ctx, id, nil)
	if err != nil {
		t.Fatalf("UpdateImportance to unranked: %v", err)
	}
	if got.Importance != nil {
		t.Fatalf("importance = %q, want unranked", *got.Importance)
	}
}

func TestMutationsScopedToOwner(t *testing.T) {
	svc, _ := newChunkService(t)
	owner := uuid.New()
	ctx := ownerContext(owner)

	created, err := svc.CreateBatch(ctx, []ChunkProposal{{Content: "mine", Category: "ideas"}})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	id := created[0].ID
	strangerCtx := ownerContext(uuid.New())

	if _, err := svc.UpdateContent(strangerCtx, id, "stolen", "ideas"); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("cross-owner update: err = %v, want not_found", err)
	}
	if _, err := svc.SetPinned(strangerCtx, id, true); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("cross-owner pin: err = %v, want not_found", err)
	}
	if err := svc.Delete(strangerCtx, id); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("cross-owner delete: err = %v, want not_found", err)
	}

	// Owner still sees the original content.
	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].Content != "mine" {
		t.Fatalf("chunk mutated across owners: %+v", listed)
	}
}

func TestPinMovesBetweenChunks(t *testing.T) {
	svc, _ := newChunkService(t)
	ctx := ownerContext(uuid.New())

	created, err := svc.CreateBatch(ctx, []ChunkProposal{
		{Content: "first", Category: "ideas"},
		{Content: "second", Category: "ideas"},
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if _, err := svc.SetPinned(ctx, created[0].ID, true); err != nil {
		t.Fatalf("pin first: %v", err)
	}
	if _, err := svc.SetPinned(ctx, created[1].ID, true); err != nil {
		t.Fatalf("pin second: %v", err)
	}

	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	pinned := 0
	for _, c := range listed {
		if c.Pinned {
			pinned++
			if c.ID != created[1].ID {
				t.Fatal("wrong chunk holds the pin")
			}
		}
	}
	if pinned != 1 {
		t.Fatalf("%d chunks pinned, want exactly 1", pinned)
	}
	if !listed[0].Pinned {
		t.Fatal("pinned chunk must lead the list")
	}
}

func TestDeleteThenNotFound(t *testing.T) {
	svc, _ := newChunkService(t)
	ctx := ownerContext(uuid.New())

	created, err := svc.CreateBatch(ctx, []ChunkProposal{{Content: "gone soon", Category: "worries"}})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	id := created[0].ID

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, id); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("second delete: err = %v, want not_found", err)
	}
	if _, err := svc.SetStarred(ctx, id, true); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("star after delete: err = %v, want not_found", err)
	}
}

func TestRequiresAuthenticatedOwner(t *testing.T) {
	svc, _ := newChunkService(t)

	if _, err := svc.List(context.Background()); !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("List without owner: err = %v, want unauthorized", err)
	}
	if _, err := svc.CreateBatch(context.Background(), []ChunkProposal{{Content: "x", Category: "ideas"}}); !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("CreateBatch without owner: err = %v, want unauthorized", err)
	}
}

func TestExportCSVEscapesContent(t *testing.T) {
	svc, _ := newChunkService(t)
	ctx := ownerContext(uuid.New())

	tricky := "a \"quoted\" note, with commas\nand a second line"
	created, err := svc.CreateBatch(ctx, []ChunkProposal{
		{Content: tricky, Category: "reflections", EmotionalIntensity: strPtr("low")},
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if _, err := svc.SetStarred(ctx, created[0].ID, true); err != nil {
		t.Fatalf("SetStarred: %v", err)
	}

	out, err := svc.ExportCSV(ctx)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header plus one row", len(records))
	}
	header := strings.Join(records[0], ",")
	if header != "id,content,category,emotional_intensity,importance,pinned,starred,created_at,updated_at" {
		t.Fatalf("unexpected header %q", header)
	}
	row := records[1]
	if row[0] != created[0].ID.String() {
		t.Error("id column mismatch")
	}
	if row[1] != tricky {
		t.Fatalf("content not preserved through csv: %q", row[1])
	}
	if row[2] != "reflections" || row[3] != "low" || row[4] != "" {
		t.Fatalf("category/intensity/importance columns wrong: %v", row[:5])
	}
	if row[5] != "false" || row[6] != "true" {
		t.Fatalf("pinned/starred columns wrong: %v", row[5:7])
	}
}
