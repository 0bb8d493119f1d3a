package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// OpenAIModel 是一个用于 OpenAI (或任意 OpenAI 兼容服务) 的 Embedding 模型客户端。
type OpenAIModel struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAIModel 创建一个新的 OpenAIModel 客户端。
//
// 参数:
//
//	apiKey: OpenAI 的 API 密钥。
//	modelName: 要使用的模型名称。
//	baseURL: 服务地址, 为空时使用官方地址。
//	hc: 出站 HTTP 客户端。
//
// 返回值:
//
//	*OpenAIModel: 新创建的 OpenAIModel 客户端实例。
//	error: 如果创建客户端失败，则返回错误。
func NewOpenAIModel(apiKey, modelName, baseURL string, hc *http.Client) (*OpenAIModel, error) {
	// 使用 API 密钥创建默认配置。
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: modelName}, nil
}

// Embed 使用 OpenAI API 为单个文本生成嵌入向量。
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 使用 OpenAI API 为一批文本生成嵌入向量。
// 返回结果按响应中的 index 字段对齐到输入下标。
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}
	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, wrapOpenAIError("openai embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, ragerr.New(ragerr.ErrEmbedding, "openai embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	embeddings := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		embeddings[idx] = d.Embedding
	}
	return embeddings, nil
}

// wrapOpenAIError 保留上游返回的 HTTP 状态码。
func wrapOpenAIError(op string, err error) error {
	e := ragerr.New(ragerr.ErrEmbedding, op, err)
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		e.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		e.StatusCode = reqErr.HTTPStatusCode
	}
	return e
}
