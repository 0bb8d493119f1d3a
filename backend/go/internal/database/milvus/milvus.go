package milvus

import (
	"context"
	"fmt"
	"log"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
)

// 书籍摘要集合的固定字段。
const (
	FieldID         = "id"
	FieldEmbedding  = "embedding"
	FieldBookID     = "book_id"
	FieldTitle      = "title"
	FieldAuthor     = "author"
	FieldChunkIndex = "chunk_index"
	FieldText       = "text"

	idMaxLength     = 128
	bookIDMaxLength = 64
	nameMaxLength   = 1024
)

// Connect 创建一个新的 Milvus 客户端。调用方负责在退出时 Close。
//
// 参数:
//
//	ctx: 上下文，用于控制连接的超时。
//	cfg: Milvus 连接配置。
//
// 返回值:
//
//	client.Client: Milvus 客户端实例。
//	error: 如果连接失败，则返回错误。
func Connect(ctx context.Context, cfg *config.MilvusConfig) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	log.Println("✅ 成功连接到 Milvus!")
	return c, nil
}

// HealthCheck 检查 Milvus 连接的健康状况。
func HealthCheck(ctx context.Context, c client.Client) error {
	if c == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// BookSchema 构建书籍摘要集合的 Schema。
//
// 参数:
//
//	cfg: 集合 Schema 配置。
//	dim: 向量维度。
//
// 返回值:
//
//	*entity.Schema: 集合 Schema。
func BookSchema(cfg config.SchemaConfig, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(cfg.CollectionName).
		WithDescription(cfg.Description).
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(idMaxLength)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim))).
		WithField(entity.NewField().WithName(FieldBookID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(bookIDMaxLength)).
		WithField(entity.NewField().WithName(FieldTitle).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(nameMaxLength)).
		WithField(entity.NewField().WithName(FieldAuthor).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(nameMaxLength)).
		WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(cfg.TextMaxLength)))
}

// EnsureCollection 确保 Milvus 集合存在、已建索引并已加载。可以重复调用。
//
// 参数:
//
//	ctx: 上下文。
//	c: Milvus 客户端。
//	cfg: 集合 Schema 配置。
//	dim: 向量维度。
//
// 返回值:
//
//	error: 任意一步失败时返回错误。
func EnsureCollection(ctx context.Context, c client.Client, cfg config.SchemaConfig, dim int) error {
	collName := cfg.CollectionName
	exists, err := c.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		if err := c.CreateCollection(ctx, BookSchema(cfg, dim), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := BuildIndex(cfg.Index)
		if err != nil {
			return err
		}
		if err := c.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
		}
		log.Printf("✅ 已创建集合 '%s' (dim=%d)", collName, dim)
	}

	if err := c.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// BuildIndex 是一个辅助函数，用于从配置构建索引实体。
func BuildIndex(indexCfg config.IndexConfig) (entity.Index, error) {
	metricType := entity.MetricType(indexCfg.MetricType)

	switch indexCfg.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "HNSW":
		return entity.NewIndexHNSW(metricType, intParam(indexCfg.Params, "M", 8), intParam(indexCfg.Params, "efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "AUTOINDEX", "":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", indexCfg.IndexType)
	}
}

// SearchParam 返回与索引类型匹配的搜索参数。
func SearchParam(indexCfg config.IndexConfig) (entity.SearchParam, error) {
	switch indexCfg.IndexType {
	case "IVF_FLAT", "IVF_SQ8":
		return entity.NewIndexIvfFlatSearchParam(intParam(indexCfg.Params, "nprobe", 16))
	case "HNSW":
		return entity.NewIndexHNSWSearchParam(intParam(indexCfg.Params, "ef", 64))
	case "AUTOINDEX", "":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", indexCfg.IndexType)
	}
}

// intParam 从 YAML 解析出的参数表中读取整数参数。
func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
