package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/praxisworks/conductor/internal/escalate"
)

// APIInvoker calls the Anthropic Messages API directly.
type APIInvoker struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// APIConfig configures an APIInvoker.
type APIConfig struct {
	// Model is the model identifier; a default is used when empty.
	Model string
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
	// MaxTokens bounds each response; defaults to 8192.
	MaxTokens int64
}

// NewAPIInvoker creates an API-backed invoker.
func NewAPIInvoker(cfg APIConfig) (*APIInvoker, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &APIInvoker{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

var _ Invoker = (*APIInvoker)(nil)

// Invoke sends one message round-trip and collects the text blocks.
// API failures surface as transient so the retry path handles them.
func (a *APIInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutFor(req))
	defer cancel()

	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, escalate.Transient(fmt.Errorf("%s call: %w", req.Role, ctx.Err()))
		}
		return nil, escalate.Transient(fmt.Errorf("%s call: %w", req.Role, err))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}
	return &Result{
		Role:     req.Role,
		Output:   sb.String(),
		Duration: time.Since(start),
	}, nil
}
