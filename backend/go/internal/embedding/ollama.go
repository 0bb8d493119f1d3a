package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	ollama "github.com/ollama/ollama/api"

	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// OllamaModel 是一个用于 Ollama API 的 Embedding 模型客户端。
type OllamaModel struct {
	client *ollama.Client // Ollama 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOllamaModel 创建一个新的 OllamaModel 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//	hc: 出站 HTTP 客户端。
//
// 返回值:
//
//	*OllamaModel: 新创建的 OllamaModel 客户端实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllamaModel(model, baseURL string, hc *http.Client) (*OllamaModel, error) {
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
	return &OllamaModel{client: ollama.NewClient(parsedURL, hc), model: model}, nil
}

// Embed 为单个文本生成嵌入向量。
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.embed(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 使用 Ollama 的批量嵌入功能为一批文本生成嵌入向量。
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return m.embed(ctx, texts, len(texts))
}

func (m *OllamaModel) embed(ctx context.Context, input interface{}, want int) ([][]float32, error) {
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{
		Model: m.model,
		Input: input,
	})
	if err != nil {
		e := ragerr.New(ragerr.ErrEmbedding, "ollama embed", err)
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			e.StatusCode = statusErr.StatusCode
		}
		return nil, e
	}
	if len(resp.Embeddings) != want {
		return nil, ragerr.New(ragerr.ErrEmbedding, "ollama embed",
			fmt.Errorf("expected %d embeddings, got %d", want, len(resp.Embeddings)))
	}
	return resp.Embeddings, nil
}
