package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jakebgo/library-mvp/backend/go/pkg/httpclient"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRequests 限制批量生成时同时在途的请求数。
const maxConcurrentRequests = 8

// HuggingFaceModel 是一个用于 Hugging Face Inference API (feature-extraction) 的 Embedding 模型客户端。
type HuggingFaceModel struct {
	client  *httpclient.Client // 带熔断的 HTTP 客户端实例。
	model   string             // 要使用的模型名称。
	apiKey  string             // Hugging Face API 密钥。
	baseURL string             // Hugging Face Inference API 的基准 URL。
}

// NewHuggingFaceModel 创建一个新的 HuggingFaceModel 客户端。
//
// 参数:
//
//	apiKey: Hugging Face 的 API 密钥。
//	modelName: 要使用的模型名称, 例如 "BAAI/bge-small-en-v1.5"。
//	baseURL: Inference API 的基准 URL。如果为空，则默认为 "https://api-inference.huggingface.co"。
//	client: 出站 HTTP 客户端。
//
// 返回值:
//
//	*HuggingFaceModel: 新创建的 HuggingFaceModel 客户端实例。
//	error: 如果创建客户端失败，则返回错误。
func NewHuggingFaceModel(apiKey, modelName, baseURL string, client *httpclient.Client) (*HuggingFaceModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("huggingface model name is required")
	}
	// 如果 baseURL 为空，则使用默认地址。
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	return &HuggingFaceModel{
		client:  client,
		model:   modelName,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Embed 使用 Hugging Face Inference API 为单个文本生成嵌入向量。
//
// 参数:
//
//	ctx: 上下文，用于控制操作的生命周期。
//	text: 要生成嵌入向量的文本。
//
// 返回值:
//
//	[]float32: 生成的嵌入向量。
//	error: 非 2xx 响应或网络错误时返回带状态码和响应体的 EmbeddingFailure。
func (m *HuggingFaceModel) Embed(ctx context.Context, text string) ([]float32, error) {
	// 准备请求载荷。
	payload := map[string]interface{}{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true}, // 等待模型加载。
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbedding, "huggingface embed", fmt.Errorf("failed to marshal request payload: %w", err))
	}

	url := m.baseURL + "/pipeline/feature-extraction/" + m.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbedding, "huggingface embed", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbedding, "huggingface embed", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbedding, "huggingface embed", fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ragerr.FromStatus(ragerr.ErrEmbedding, "huggingface embed", resp.StatusCode, body)
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ragerr.New(ragerr.ErrEmbedding, "huggingface embed", fmt.Errorf("failed to decode response: %w", err))
	}
	return NormalizeVector(raw), nil
}

// EmbedBatch 为每个文本并发发起一次请求，并按下标顺序组合结果。
// 任意一个请求失败都会取消其余请求并返回该错误。
//
// 参数:
//
//	ctx: 上下文，用于控制操作的生命周期。
//	texts: 要生成嵌入向量的文本切片。
//
// 返回值:
//
//	[][]float32: 与 texts 下标对齐的嵌入向量切片。
//	error: 如果任意文本生成失败，则返回错误。
func (m *HuggingFaceModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := m.Embed(gctx, text)
			if err != nil {
				return err
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// NormalizeVector 把 feature-extraction 的响应转换为一维向量:
// 单个数字变为单元素向量; 数组中的非数字元素记为 0;
// 只有一行的二维数组会被展开; 其他形状返回 [0]。
func NormalizeVector(raw interface{}) []float32 {
	switch v := raw.(type) {
	case float64:
		return []float32{float32(v)}
	case []interface{}:
		if len(v) == 1 {
			if row, ok := v[0].([]interface{}); ok {
				return NormalizeVector(row)
			}
		}
		out := make([]float32, len(v))
		for i, x := range v {
			if f, ok := x.(float64); ok {
				out[i] = float32(f)
			}
		}
		return out
	default:
		return []float32{0}
	}
}
