package embedding

import (
	"context"
	"fmt"
	"io"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/pkg/httpclient"
)

// NewEmdModel 根据配置中的提供商创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	ctx: 上下文，部分提供商 (gemini) 在创建客户端时需要。
//	cfg: Embedding 配置。
//	cb: 出站 HTTP 调用的熔断器配置。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig, cb config.CircuitBreakerConfig) (Embedding, error) {
	switch ModelType(cfg.Provider) {
	case HuggingFace:
		hc := httpclient.NewClient("huggingface", cb)
		return NewHuggingFaceModel(cfg.HuggingFace.APIKey, cfg.HuggingFace.Model, cfg.HuggingFace.BaseURL, hc)
	case OpenAI:
		hc := httpclient.NewClient("openai-embeddings", cb)
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, hc.StandardClient())
	case Ollama:
		hc := httpclient.NewClient("ollama", cb)
		return NewOllamaModel(cfg.Ollama.Model, cfg.Ollama.Host, hc.StandardClient())
	case Google:
		return NewGoogleModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider) // 如果提供商不支持，返回错误。
	}
}

// Close 释放 e 持有的底层客户端 (例如 gemini 的 GenAI 客户端); 没有需要释放的资源时返回 nil。
func Close(e Embedding) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
