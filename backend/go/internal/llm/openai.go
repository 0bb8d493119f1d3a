package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/pkg/httpclient"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// OpenAI 是一个用于 OpenAI 兼容聊天补全接口 (默认 OpenRouter) 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
	opts   Options
}

// NewOpenAI 创建一个新的 OpenAI 兼容客户端。
// HTTP-Referer 和 X-Title 请求头通过 RoundTripper 附加到每个请求上。
func NewOpenAI(cfg config.OpenRouterConfig, opts Options, hc *http.Client) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openrouter model is required")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	withHeaders := *hc
	withHeaders.Transport = &httpclient.HeaderTransport{
		Base: hc.Transport,
		Headers: map[string]string{
			"HTTP-Referer": cfg.Referer,
			"X-Title":      cfg.Title,
		},
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &withHeaders

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		opts:   opts,
	}, nil
}

// Complete 使用聊天补全接口生成回复。
func (o *OpenAI) Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error) {
	temperature := o.opts.Temperature
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserMessage(question, contextText)},
		},
		MaxTokens:   o.opts.MaxTokens,
		Temperature: &temperature,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		e := ragerr.New(ragerr.ErrCompletion, "chat completion", err)
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr):
			e.StatusCode = apiErr.HTTPStatusCode
		case errors.As(err, &reqErr):
			e.StatusCode = reqErr.HTTPStatusCode
		}
		return "", e
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ragerr.New(ragerr.ErrCompletion, "chat completion", ragerr.ErrNoContent)
	}
	return resp.Choices[0].Message.Content, nil
}
