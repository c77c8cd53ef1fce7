package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siftnotes/sift-backend/internal/apierr"
	"github.com/siftnotes/sift-backend/internal/categories"
	"github.com/siftnotes/sift-backend/internal/logger"
)

const classifierSystemPrompt = "You split personal brain-dump text into distinct thoughts and label each one with a category. You respond with JSON only."

// ChunkProposal is an unconfirmed chunk produced by classification. Nothing
// is persisted until the user reviews and submits proposals to the chunk
// service.
type ChunkProposal struct {
	Content            string  `json:"content"`
	Category           string  `json:"category"`
	EmotionalIntensity *string `json:"emotional_intensity,omitempty"`
}

type ClassifierService interface {
	Classify(ctx context.Context, text string, intensity *string) ([]ChunkProposal, error)
}

type classifierService struct {
	log    *logger.Logger
	client CompletionClient
}

func NewClassifierService(log *logger.Logger, client CompletionClient) ClassifierService {
	return &classifierService{
		log:    log.With("service", "ClassifierService"),
		client: client,
	}
}

// Classify turns raw text into ordered (content, category) proposals. The
// model output is untrusted structured text: it is parsed or rejected here,
// and every category is checked against the registry before any proposal is
// considered confirmable. An empty result is valid.
func (s *classifierService) Classify(ctx context.Context, text string, intensity *string) ([]ChunkProposal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apierr.InvalidInput(fmt.Errorf("text is required"))
	}

	prompt := categories.BuildClassificationPrompt(trimmed)

	raw, err := s.client.Complete(ctx, classifierSystemPrompt, prompt, 0.2)
	if err != nil {
		s.log.Warn("classification call failed", "error", err)
		return nil, apierr.ClassifierUnavailable(fmt.Errorf("classification call failed: %w", err))
	}

	proposals, err := parseClassifierOutput(raw)
	if err != nil {
		s.log.Warn("classifier output rejected", "error", err)
		return nil, apierr.ClassifierMalformed(err)
	}

	if intensity != nil {
		for i := range proposals {
			v := *intensity
			proposals[i].EmotionalIntensity = &v
		}
	}
	return proposals, nil
}

func parseClassifierOutput(raw string) ([]ChunkProposal, error) {
	cleaned := stripCodeFence(raw)

	var items []struct {
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("classifier output is not a JSON array of chunks: %w", err)
	}

	proposals := make([]ChunkProposal, 0, len(items))
	for i, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			return nil, fmt.Errorf("chunk %d has empty content", i)
		}
		category := strings.TrimSpace(item.Category)
		if !categories.IsValidKey(category) {
			return nil, fmt.Errorf("chunk %d has unknown category %q", i, category)
		}
		proposals = append(proposals, ChunkProposal{Content: content, Category: category})
	}
	return proposals, nil
}

// Models sometimes wrap JSON in a markdown fence despite the instructions.
func stripCodeFence(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}
