package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/siftnotes/sift-backend/internal/categories"
	"github.com/siftnotes/sift-backend/internal/http/response"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	response.RespondOK(c, gin.H{"categories": categories.List()})
}
