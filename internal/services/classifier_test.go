package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siftnotes/sift-backend/internal/apierr"
	"github.com/siftnotes/sift-backend/internal/logger"
)

type stubCompletionClient struct {
	response string
	err      error

	lastSystem string
	lastUser   string
	lastTemp   float64
}

func (s *stubCompletionClient) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	s.lastSystem = system
	s.lastUser = user
	s.lastTemp = temperature
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func TestClassifySplitsText(t *testing.T) {
	stub := &stubCompletionClient{
		response: `[{"content":"I feel grateful for my family today.","category":"gratitudes"},{"content":"I also have a great idea for a new app.","category":"ideas"}]`,
	}
	svc := NewClassifierService(testLogger(t), stub)

	proposals, err := svc.Classify(context.Background(), "I feel grateful for my family today. I also have a great idea for a new app.", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("got %d proposals, want 2", len(proposals))
	}
	if proposals[0].Category != "gratitudes" || proposals[1].Category != "ideas" {
		t.Fatalf("categories wrong: %+v", proposals)
	}
	if proposals[0].Content != "I feel grateful for my family today." {
		t.Fatalf("content wrong: %q", proposals[0].Content)
	}
	if stub.lastTemp != 0.2 {
		t.Errorf("temperature = %v, want 0.2", stub.lastTemp)
	}
	if !strings.Contains(stub.lastUser, "gratitudes") {
		t.Error("prompt did not include registry categories")
	}
}

func TestClassifyStripsCodeFence(t *testing.T) {
	stub := &stubCompletionClient{
		response: "```json\n[{\"content\":\"buy milk\",\"category\":\"tasks\"}]\n```",
	}
	svc := NewClassifierService(testLogger(t), stub)

	proposals, err := svc.Classify(context.Background(), "buy milk", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(proposals) != 1 || proposals[0].Category != "tasks" {
		t.Fatalf("unexpected proposals: %+v", proposals)
	}
}

func TestClassifyEmptyResultIsValid(t *testing.T) {
	stub := &stubCompletionClient{response: "[]"}
	svc := NewClassifierService(testLogger(t), stub)

	proposals, err := svc.Classify(context.Background(), "hmmm", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("expected zero proposals, got %d", len(proposals))
	}
}

func TestClassifyPropagatesIntensity(t *testing.T) {
	stub := &stubCompletionClient{
		response: `[{"content":"a","category":"ideas"},{"content":"b","category":"tasks"}]`,
	}
	svc := NewClassifierService(testLogger(t), stub)

	intensity := "high"
	proposals, err := svc.Classify(context.Background(), "a. b.", &intensity)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for i, p := range proposals {
		if p.EmotionalIntensity == nil || *p.EmotionalIntensity != "high" {
			t.Fatalf("proposal %d missing intensity: %+v", i, p)
		}
	}
}

func TestClassifyFailures(t *testing.T) {
	cases := []struct {
		name     string
		stub     *stubCompletionClient
		text     string
		wantCode string
	}{
		{
			name:     "empty_text",
			stub:     &stubCompletionClient{response: "[]"},
			text:     "   ",
			wantCode: apierr.CodeInvalidInput,
		},
		{
			name:     "call_failed",
			stub:     &stubCompletionClient{err: errors.New("connection refused")},
			text:     "some text",
			wantCode: apierr.CodeClassifierDown,
		},
		{
			name:     "not_json",
			stub:     &stubCompletionClient{response: "Sure! Here are your chunks:"},
			text:     "some text",
			wantCode: apierr.CodeClassifierMalformed,
		},
		{
			name:     "unknown_category",
			stub:     &stubCompletionClient{response: `[{"content":"x","category":"not_a_real_category"}]`},
			text:     "some text",
			wantCode: apierr.CodeClassifierMalformed,
		},
		{
			name:     "empty_chunk_content",
			stub:     &stubCompletionClient{response: `[{"content":"  ","category":"ideas"}]`},
			text:     "some text",
			wantCode: apierr.CodeClassifierMalformed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewClassifierService(testLogger(t), tc.stub)
			_, err := svc.Classify(context.Background(), tc.text, nil)
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !apierr.Is(err, tc.wantCode) {
				t.Fatalf("error code = %v, want %s", err, tc.wantCode)
			}
		})
	}
}
