package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client *genai.Client
	model  string
	opts   Options
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
//	opts: 生成参数。
//
// 返回值:
//
//	*Gemini: 新创建的 Gemini 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGemini(ctx context.Context, model, apiKey string, opts Options) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model, opts: opts}, nil
}

// Complete 向 Gemini API 发送一次请求, 系统提示词作为 SystemInstruction。
// 每次调用使用独立的模型实例, 不保留会话历史。
func (g *Gemini) Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.opts.Temperature)
	if g.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.opts.MaxTokens))
	}
	if systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(UserMessage(question, contextText)))
	if err != nil {
		e := ragerr.New(ragerr.ErrCompletion, "gemini generate", err)
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			e.StatusCode = apiErr.Code
		}
		return "", e
	}

	text := responseText(resp)
	if text == "" {
		return "", ragerr.New(ragerr.ErrCompletion, "gemini generate", ragerr.ErrNoContent)
	}
	return text, nil
}

// Close 释放底层 GenAI 客户端。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// responseText 拼接第一个候选回复中的所有文本片段。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
