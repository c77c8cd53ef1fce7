package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/siftnotes/sift-backend/internal/apierr"
	"github.com/siftnotes/sift-backend/internal/http/response"
	"github.com/siftnotes/sift-backend/internal/logger"
	"github.com/siftnotes/sift-backend/internal/ranking"
	"github.com/siftnotes/sift-backend/internal/services"
	"github.com/siftnotes/sift-backend/internal/types"
)

type ChunkHandler struct {
	log        *logger.Logger
	chunks     services.ChunkService
	classifier services.ClassifierService
}

func NewChunkHandler(log *logger.Logger, chunks services.ChunkService, classifier services.ClassifierService) *ChunkHandler {
	return &ChunkHandler{
		log:        log.With("handler", "ChunkHandler"),
		chunks:     chunks,
		classifier: classifier,
	}
}

func chunkID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return uuid.Nil, false
	}
	return id, true
}

type classifyRequest struct {
	Text               string  `json:"text"`
	EmotionalIntensity *string `json:"emotional_intensity,omitempty"`
}

func (r classifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
		validation.Field(&r.EmotionalIntensity,
			validation.In(types.IntensityLow, types.IntensityMedium, types.IntensityHigh)),
	)
}

// POST /api/chunks/classify
// Purely advisory: nothing is persisted until the user confirms the
// proposals via Create.
func (h *ChunkHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	proposals, err := h.classifier.Classify(c.Request.Context(), req.Text, req.EmotionalIntensity)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if proposals == nil {
		proposals = []services.ChunkProposal{}
	}
	response.RespondOK(c, gin.H{"chunks": proposals})
}

type createChunksRequest struct {
	Chunks []services.ChunkProposal `json:"chunks"`
}

func (r createChunksRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Chunks, validation.Required),
	)
}

// POST /api/chunks
func (h *ChunkHandler) Create(c *gin.Context) {
	var req createChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	created, err := h.chunks.CreateBatch(c.Request.Context(), req.Chunks)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "chunks": created})
}

// GET /api/chunks
// Optional ?category= narrows the tier partitions; the flat list is always
// returned in the pinned-first ordering.
func (h *ChunkHandler) List(c *gin.Context) {
	chunks, err := h.chunks.List(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if chunks == nil {
		chunks = []*types.Chunk{}
	}
	response.RespondOK(c, gin.H{
		"chunks":     chunks,
		"partitions": ranking.Partition(chunks, c.Query("category")),
	})
}

type updateContentRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (r updateContentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Category, validation.Required),
	)
}

// PUT /api/chunks/:id
func (h *ChunkHandler) UpdateContent(c *gin.Context) {
	id, ok := chunkID(c)
	if !ok {
		return
	}
	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	chunk, err := h.chunks.UpdateContent(c.Request.Context(), id, req.Content, req.Category)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chunk": chunk})
}

type updateImportanceRequest struct {
	Importance *string `json:"importance"`
}

func (r updateImportanceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Importance,
			validation.In(types.ImportanceTier1, types.ImportanceTier2, types.ImportanceTier3, types.ImportanceDeprioritized)),
	)
}

// PATCH /api/chunks/:id/importance
func (h *ChunkHandler) UpdateImportance(c *gin.Context) {
	id, ok := chunkID(c)
	if !ok {
		return
	}
	var req updateImportanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	chunk, err := h.chunks.UpdateImportance(c.Request.Context(), id, req.Importance)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chunk": chunk})
}

type setPinnedRequest struct {
	Pinned *bool `json:"pinned"`
}

func (r setPinnedRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Pinned, validation.NotNil),
	)
}

// PATCH /api/chunks/:id/pin
func (h *ChunkHandler) SetPinned(c *gin.Context) {
	id, ok := chunkID(c)
	if !ok {
		return
	}
	var req setPinnedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	chunk, err := h.chunks.SetPinned(c.Request.Context(), id, *req.Pinned)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chunk": chunk})
}

type setStarredRequest struct {
	Starred *bool `json:"starred"`
}

func (r setStarredRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Starred, validation.NotNil),
	)
}

// PATCH /api/chunks/:id/star
func (h *ChunkHandler) SetStarred(c *gin.Context) {
	id, ok := chunkID(c)
	if !ok {
		return
	}
	var req setStarredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	chunk, err := h.chunks.SetStarred(c.Request.Context(), id, *req.Starred)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chunk": chunk})
}

// DELETE /api/chunks/:id
func (h *ChunkHandler) Delete(c *gin.Context) {
	id, ok := chunkID(c)
	if !ok {
		return
	}
	if err := h.chunks.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}

// GET /api/chunks/export
func (h *ChunkHandler) Export(c *gin.Context) {
	data, err := h.chunks.ExportCSV(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="chunks.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
