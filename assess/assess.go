// Package assess runs the model-facing triage pipeline: refresh stale
// tool results, compose them into bounded context, and ask the LLM for
// an assessment.
package assess

import (
	"context"
	"fmt"
	"time"

	"github.com/triagekit/probekit/llm"
	"github.com/triagekit/probekit/logging"
	"github.com/triagekit/probekit/orchestrator"
)

// DefaultContextChars bounds the composed tool context handed to the model.
const DefaultContextChars = 24000

const systemPrompt = `You are a software triage assistant. You receive the latest output of diagnostic command-line tools run against a developer's project, followed by a question. Ground every statement in the tool output; say so plainly when the output does not answer the question.`

// Config configures an Assessor.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Provider     llm.Provider
	Logger       *logging.Logger

	// ContextChars overrides the composed-context budget.
	ContextChars int

	// MaxTokens caps the model response. Zero uses the provider default.
	MaxTokens int
}

// Assessor produces model assessments from cached tool results.
type Assessor struct {
	orch         *orchestrator.Orchestrator
	provider     llm.Provider
	log          *logging.Logger
	contextChars int
	maxTokens    int
}

// Assessment is the outcome of one triage question.
type Assessment struct {
	Summary      string    `json:"summary"`
	Context      string    `json:"context"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// New creates an assessor.
func New(cfg Config) *Assessor {
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = DefaultContextChars
	}
	return &Assessor{
		orch:         cfg.Orchestrator,
		provider:     cfg.Provider,
		log:          cfg.Logger.WithComponent("assess"),
		contextChars: cfg.ContextChars,
		maxTokens:    cfg.MaxTokens,
	}
}

// Assess refreshes stale auto-run tools, composes their results, and
// asks the model the given question against that context.
func (a *Assessor) Assess(ctx context.Context, question string) (*Assessment, error) {
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	a.orch.EnsureFresh(ctx)

	toolContext := a.orch.Compose(a.contextChars)

	prompt := question
	if toolContext != "" {
		prompt = "Tool results:\n\n" + toolContext + "\n\nQuestion: " + question
	}

	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("assessment request failed: %w", err)
	}

	a.log.Info("assessment_complete", map[string]interface{}{
		"model":         resp.Model,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
		"context_chars": len(toolContext),
	})

	return &Assessment{
		Summary:      resp.Content,
		Context:      toolContext,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		GeneratedAt:  time.Now(),
	}, nil
}
