package llms

import (
	"context"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/llm"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// Adapter adapts a provider client from the llm package to the generic LLM interface.
type Adapter struct {
	client llm.LLM
}

// NewAdapter creates a new adapter.
func NewAdapter(client llm.LLM) *Adapter {
	return &Adapter{client: client}
}

// Complete forwards to the provider and guarantees a CompletionFailure kind on error.
func (a *Adapter) Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error) {
	answer, err := a.client.Complete(ctx, systemPrompt, question, contextText)
	if err != nil {
		return "", ragerr.Ensure(ragerr.ErrCompletion, "complete", err)
	}
	return answer, nil
}

// compile-time check to ensure Adapter implements the LLM interface
var _ interfaces.LLM = (*Adapter)(nil)
