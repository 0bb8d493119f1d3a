package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/pkg/httpclient"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 一次调用对应一次非流式的聊天补全, 失败时返回带 ragerr.ErrCompletion 类别的错误。
type LLM interface {
	// Complete 发送 [system, user] 两条消息并返回第一条候选回复的文本。
	//
	// 参数:
	//   ctx: 上下文，用于控制请求的生命周期。
	//   systemPrompt: 系统提示词。
	//   question: 用户的问题。
	//   contextText: 检索得到的上下文, 可以为空。
	//
	// 返回值:
	//   string: 模型的回复。
	//   error: 上游非 2xx 或回复为空时返回 CompletionFailure。
	Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error)
}

// Options 是所有提供商共享的生成参数。
type Options struct {
	Temperature float32
	MaxTokens   int
}

// UserMessage 组装发送给模型的用户消息。
func UserMessage(question, contextText string) string {
	return "Context:\n" + contextText + "\n\nQuestion: " + question
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig, cb config.CircuitBreakerConfig) (LLM, error) {
	opts := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	switch cfg.Provider {
	case "openrouter":
		hc := httpclient.NewClient("openrouter", cb)
		return NewOpenAI(cfg.OpenRouter, opts, hc.StandardClient())
	case "gemini":
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey, opts)
	case "ollama":
		hc := httpclient.NewClient("ollama-chat", cb)
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.Host, opts, hc.StandardClient())
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Close 释放 c 持有的底层客户端; 没有需要释放的资源时返回 nil。
func Close(c LLM) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
