package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// GoogleModel 是一个用于 Google GenAI Embedding API 的客户端。
type GoogleModel struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// NewGoogleModel 创建并返回一个新的 GoogleModel 客户端实例。
//
// 参数:
//
//	ctx: 上下文。
//	apiKey: Google GenAI 的 API 密钥。
//	modelName: 要使用的 Embedding 模型名称。
//
// 返回值:
//
//	*GoogleModel: 新创建的 GoogleModel 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGoogleModel(ctx context.Context, apiKey string, modelName string) (*GoogleModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("无法创建 GenAI 客户端: %w", err)
	}
	return &GoogleModel{
		client: client,
		model:  client.EmbeddingModel(modelName),
	}, nil
}

// Embed 为单个文本生成嵌入向量。
func (m *GoogleModel) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, wrapGoogleError("gemini embed", err)
	}
	if res.Embedding == nil {
		return nil, ragerr.New(ragerr.ErrEmbedding, "gemini embed", fmt.Errorf("no embedding returned"))
	}
	return res.Embedding.Values, nil
}

// EmbedBatch 为一批文本生成嵌入向量。
func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, wrapGoogleError("gemini embed batch", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, ragerr.New(ragerr.ErrEmbedding, "gemini embed batch",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings)))
	}

	embeddings := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		embeddings = append(embeddings, emb.Values)
	}
	return embeddings, nil
}

// Close 释放底层 GenAI 客户端。
func (m *GoogleModel) Close() error {
	return m.client.Close()
}

func wrapGoogleError(op string, err error) error {
	e := ragerr.New(ragerr.ErrEmbedding, op, err)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		e.StatusCode = apiErr.Code
	}
	return e
}
