package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	olla "github.com/ollama/ollama/api"

	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
	opts   Options
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//	opts: 生成参数。
//	hc: 出站 HTTP 客户端。
//
// 返回值:
//
//	*Ollama: 新创建的 Ollama 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(model, baseURL string, opts Options, hc *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model, opts: opts}, nil
}

// Complete 使用 Ollama 的 chat 接口以非流式方式生成回复。
func (o *Ollama) Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error) {
	stream := false
	req := &olla.ChatRequest{
		Model: o.model,
		Messages: []olla.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: UserMessage(question, contextText)},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": o.opts.Temperature,
			"num_predict": o.opts.MaxTokens,
		},
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp olla.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		e := ragerr.New(ragerr.ErrCompletion, "ollama chat", err)
		var statusErr olla.StatusError
		if errors.As(err, &statusErr) {
			e.StatusCode = statusErr.StatusCode
		}
		return "", e
	}
	if sb.Len() == 0 {
		return "", ragerr.New(ragerr.ErrCompletion, "ollama chat", ragerr.ErrNoContent)
	}
	return sb.String(), nil
}
