package notes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sereno-care/practice-platform/internal/llm"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

type scriptedLLM struct {
	responses map[string]string
	err       error
	requests  []llm.Request
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	for key, text := range s.responses {
		if strings.Contains(req.Messages[0].Content, "Section: "+key) {
			return llm.Response{Text: text}, nil
		}
	}
	return llm.Response{Text: "generic"}, nil
}

func TestGenerateSectionsOnePerPrompt(t *testing.T) {
	client := &scriptedLLM{responses: map[string]string{
		"subjective": "Client reported improved sleep.",
		"plan":       "Continue weekly sessions.",
	}}
	gen := NewGenerator(client, "model-id", 800, logging.Default())

	tpl := DefaultTemplate("org-1")
	sections, err := gen.GenerateSections(context.Background(), "Therapist: how was your week? Client: better.", tpl)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(sections) != len(tpl.Sections) {
		t.Fatalf("expected %d sections, got %d", len(tpl.Sections), len(sections))
	}
	if sections[0].Name != "subjective" || sections[0].Content != "Client reported improved sleep." {
		t.Errorf("unexpected first section: %+v", sections[0])
	}
	if len(client.requests) != len(tpl.Sections) {
		t.Errorf("expected one completion per section, got %d", len(client.requests))
	}
	for _, req := range client.requests {
		if req.Model != "model-id" || req.MaxTokens != 800 {
			t.Errorf("request config not applied: %+v", req)
		}
	}
}

func TestGenerateSectionsEmptyTranscript(t *testing.T) {
	gen := NewGenerator(&scriptedLLM{}, "model-id", 800, logging.Default())

	if _, err := gen.GenerateSections(context.Background(), "   ", DefaultTemplate("org-1")); err == nil {
		t.Error("expected error for empty transcript")
	}
}

func TestGenerateSectionsPropagatesClientError(t *testing.T) {
	boom := errors.New("model unavailable")
	gen := NewGenerator(&scriptedLLM{err: boom}, "model-id", 800, logging.Default())

	_, err := gen.GenerateSections(context.Background(), "transcript", DefaultTemplate("org-1"))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped client error, got %v", err)
	}
}
