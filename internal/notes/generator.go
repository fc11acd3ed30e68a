package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sereno-care/practice-platform/internal/llm"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// Generator drafts note sections from a session transcript, one
// completion per template section.
type Generator struct {
	client    llm.Client
	modelID   string
	maxTokens int32
	logger    *logging.Logger
}

func NewGenerator(client llm.Client, modelID string, maxTokens int32, logger *logging.Logger) *Generator {
	if client == nil {
		panic("notes: llm client required")
	}
	return &Generator{
		client:    client,
		modelID:   modelID,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

const generatorSystemPrompt = "You are a clinical documentation assistant for a mental health practice. " +
	"Write in clear, professional prose. Use only information present in the transcript. " +
	"Never invent diagnoses, medications, or events."

// GenerateSections produces one section per template prompt. An empty
// transcript is an error; a section the model leaves blank is kept with
// empty content so the clinician sees the gap.
func (g *Generator) GenerateSections(ctx context.Context, transcript string, tpl Template) ([]Section, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("notes: transcript is empty")
	}
	if len(tpl.Sections) == 0 {
		return nil, errors.New("notes: template has no sections")
	}

	sections := make([]Section, 0, len(tpl.Sections))
	for _, sp := range tpl.Sections {
		prompt := fmt.Sprintf("Section: %s\nInstruction: %s\n\nSession transcript:\n%s", sp.Name, sp.Prompt, transcript)
		resp, err := g.client.Complete(ctx, llm.Request{
			Model:       g.modelID,
			System:      []string{generatorSystemPrompt},
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			MaxTokens:   g.maxTokens,
			Temperature: 0.2,
		})
		if err != nil {
			return nil, fmt.Errorf("notes: generate %s: %w", sp.Name, err)
		}
		if g.logger != nil {
			g.logger.Debug("note section generated",
				"section", sp.Name,
				"tokens", resp.Usage.TotalTokens,
			)
		}
		sections = append(sections, Section{Name: sp.Name, Content: resp.Text})
	}
	return sections, nil
}
