package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// IndexConfig 定义了 Milvus 集合中向量索引的配置。
type IndexConfig struct {
	IndexType  string                 `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW", "AUTOINDEX")
	MetricType string                 `yaml:"metricType"` // 相似度度量类型, 固定使用 "COSINE"
	Params     map[string]interface{} `yaml:"params"`     // 索引参数 (例如: {"nlist": 128})
}

// SchemaConfig 定义了 Milvus 集合的 Schema 配置。
// 字段布局是固定的 (id, embedding, book_id, title, author, chunk_index, text), 这里只配置名称和索引。
type SchemaConfig struct {
	CollectionName string      `yaml:"collectionName"` // 集合名称
	Description    string      `yaml:"description"`    // 集合描述
	TextMaxLength  int         `yaml:"textMaxLength"`  // text 字段的最大长度
	Index          IndexConfig `yaml:"index"`          // 索引配置
}

// MilvusConfig 定义了 Milvus 数据库的连接和 Schema 配置。
type MilvusConfig struct {
	Address  string       `yaml:"address"`  // Milvus 服务地址
	Username string       `yaml:"username"` // 用户名 (可选)
	Password string       `yaml:"password"` // 密码 (可选)
	Schema   SchemaConfig `yaml:"schema"`   // Milvus 集合 Schema 配置
}

// PineconeConfig 定义了托管向量服务 (Pinecone 数据面 REST API) 的配置。
type PineconeConfig struct {
	Host      string `yaml:"host"`      // 索引的数据面地址, 例如 "https://library-xxxx.svc.pinecone.io"
	APIKey    string `yaml:"apiKey"`    // API 密钥, 通过 Api-Key 请求头发送
	Namespace string `yaml:"namespace"` // 命名空间, 默认为空字符串
}

// QdrantConfig 定义了 Qdrant 向量数据库的连接配置。
type QdrantConfig struct {
	Host       string `yaml:"host"`       // Qdrant gRPC 主机
	Port       int    `yaml:"port"`       // Qdrant gRPC 端口 (默认 6334)
	APIKey     string `yaml:"apiKey"`     // API 密钥 (可选)
	UseTLS     bool   `yaml:"useTLS"`     // 是否使用 TLS
	Collection string `yaml:"collection"` // 集合名称
}

// ChromemConfig 定义了嵌入式向量库 chromem-go 的配置。
type ChromemConfig struct {
	Collection string `yaml:"collection"` // 集合名称
	Path       string `yaml:"path"`       // 持久化目录, 为空时仅在内存中
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MinIOConfig 定义了 MinIO (或任意 S3 兼容服务) 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 存放书籍摘要的存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
	Region    string `yaml:"region"`    // 区域, 设置后跳过存储桶位置查询
}

// DatabaseConfigs 包含所有存储后端的配置。
type DatabaseConfigs struct {
	Milvus   MilvusConfig   `yaml:"milvus"`   // Milvus 数据库配置
	Pinecone PineconeConfig `yaml:"pinecone"` // Pinecone 托管向量服务配置
	Qdrant   QdrantConfig   `yaml:"qdrant"`   // Qdrant 数据库配置
	Chromem  ChromemConfig  `yaml:"chromem"`  // chromem-go 嵌入式向量库配置
	Redis    RedisConfig    `yaml:"redis"`    // Redis 数据库配置
	MySQL    MySQLConfig    `yaml:"mysql"`    // MySQL 数据库配置
	MinIO    MinIOConfig    `yaml:"minio"`    // MinIO 对象存储配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址, 例如 ":8080"
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 优雅关闭的超时时间, 例如 "5s"
	MaxUploadBytes  int64  `yaml:"maxUploadBytes"`  // 上传文件的最大字节数
}

// AuthConfig 用于配置认证相关设置。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // 托管认证服务签发 JWT 所用的 HS256 密钥
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// LibraryConfig 定义了检索流水线的参数。
type LibraryConfig struct {
	VectorStore   string `yaml:"vectorStore"`   // 向量存储后端: "milvus", "pinecone", "qdrant", "chromem"
	ChunkSize     int    `yaml:"chunkSize"`     // 每个文本块的最大字节数
	TopK          int    `yaml:"topK"`          // 每次检索返回的最大结果数
	StoragePrefix string `yaml:"storagePrefix"` // 对象存储中的路径前缀, 默认 "summaries"
	QueryCache    int    `yaml:"queryCache"`    // 问题向量缓存的条目数, 0 表示关闭
	QueryCacheTTL string `yaml:"queryCacheTTL"` // 问题向量缓存的存活时间, 例如 "10m"
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider    string           `yaml:"provider"`    // LLM提供商: "openrouter", "gemini" 或 "ollama"
	Temperature float32          `yaml:"temperature"` // 采样温度
	MaxTokens   int              `yaml:"maxTokens"`   // 最大生成 token 数
	OpenRouter  OpenRouterConfig `yaml:"openrouter"`  // OpenRouter (OpenAI 兼容) 配置
	Gemini      GeminiConfig     `yaml:"gemini"`      // Gemini 模型配置
	Ollama      OllamaConfig     `yaml:"ollama"`      // Ollama 配置
}

// OpenRouterConfig 包含了 OpenAI 兼容的聊天补全服务的配置。
type OpenRouterConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // 服务地址, 默认 "https://openrouter.ai/api/v1"
	Model   string `yaml:"model"`   // 模型名称, 默认 "google/gemini-pro"
	Referer string `yaml:"referer"` // HTTP-Referer 请求头
	Title   string `yaml:"title"`   // X-Title 请求头
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider    string            `yaml:"provider"`    // Embedding提供商: "huggingface", "openai", "ollama", "gemini"
	Dimension   int               `yaml:"dimension"`   // 向量维度
	HuggingFace HuggingFaceConfig `yaml:"huggingface"` // Hugging Face 推理 API 配置
	OpenAI      OpenAIConfig      `yaml:"openai"`      // OpenAI 兼容 embeddings 配置
	Ollama      OllamaConfig      `yaml:"ollama"`      // Ollama 配置
	Gemini      GeminiConfig      `yaml:"gemini"`      // Gemini 模型配置
}

// HuggingFaceConfig 包含了 Hugging Face feature-extraction 接口的配置。
type HuggingFaceConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // 服务地址, 默认 "https://api-inference.huggingface.co"
	Model   string `yaml:"model"`   // 模型名称, 默认 "BAAI/bge-small-en-v1.5"
}

// OpenAIConfig 包含了 OpenAI 兼容 embeddings 接口的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // 服务地址 (可选)
	Model   string `yaml:"model"`   // 模型名称
}

// OllamaConfig 包含了 Ollama 服务的配置。
type OllamaConfig struct {
	Host  string `yaml:"host"`  // Ollama 服务地址, 例如 "http://localhost:11434"
	Model string `yaml:"model"` // 模型名称
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了聊天接口按用户限流的配置。
type RateLimiterConfig struct {
	Backend string `yaml:"backend"` // 支持: "memory" (单实例), "redis" (多实例共享)
	Limit   int    `yaml:"limit"`
	Window  string `yaml:"window"` // 例如: "1m", "60s"
}

// CircuitBreakerConfig 定义了出站 HTTP 调用的熔断器配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"` // 连续失败多少次后熔断
	SuccessThreshold uint32 `yaml:"successThreshold"` // 半开状态下允许通过的请求数
	Timeout          string `yaml:"timeout"`          // 熔断后多久进入半开状态, 例如: "30s"
	RequestTimeout   string `yaml:"requestTimeout"`   // 单次请求的超时时间, 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	Library    LibraryConfig    `yaml:"library"`    // 检索流水线配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置部分
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 文件中的 ${VAR} 引用会在解析前用环境变量展开，随后填充默认值并校验。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容，展开环境变量，填充默认值并校验。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 为未设置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "library-service"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "5s"
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}

	if c.Library.VectorStore == "" {
		c.Library.VectorStore = "milvus"
	}
	if c.Library.ChunkSize <= 0 {
		c.Library.ChunkSize = 1000
	}
	if c.Library.TopK <= 0 {
		c.Library.TopK = 5
	}
	if c.Library.StoragePrefix == "" {
		c.Library.StoragePrefix = "summaries"
	}
	if c.Library.QueryCacheTTL == "" {
		c.Library.QueryCacheTTL = "10m"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "huggingface"
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = 384
	}
	if c.Embedding.HuggingFace.BaseURL == "" {
		c.Embedding.HuggingFace.BaseURL = "https://api-inference.huggingface.co"
	}
	if c.Embedding.HuggingFace.Model == "" {
		c.Embedding.HuggingFace.Model = "BAAI/bge-small-en-v1.5"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openrouter"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 300
	}
	if c.LLM.OpenRouter.BaseURL == "" {
		c.LLM.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.OpenRouter.Model == "" {
		c.LLM.OpenRouter.Model = "google/gemini-pro"
	}
	if c.LLM.OpenRouter.Title == "" {
		c.LLM.OpenRouter.Title = "Library MVP"
	}

	if c.Databases.Milvus.Schema.CollectionName == "" {
		c.Databases.Milvus.Schema.CollectionName = "book_summaries"
	}
	if c.Databases.Milvus.Schema.TextMaxLength <= 0 {
		c.Databases.Milvus.Schema.TextMaxLength = 65535
	}
	if c.Databases.Milvus.Schema.Index.IndexType == "" {
		c.Databases.Milvus.Schema.Index.IndexType = "AUTOINDEX"
	}
	if c.Databases.Milvus.Schema.Index.MetricType == "" {
		c.Databases.Milvus.Schema.Index.MetricType = "COSINE"
	}
	if c.Databases.Qdrant.Port == 0 {
		c.Databases.Qdrant.Port = 6334
	}
	if c.Databases.Qdrant.Collection == "" {
		c.Databases.Qdrant.Collection = "book_summaries"
	}
	if c.Databases.Chromem.Collection == "" {
		c.Databases.Chromem.Collection = "book_summaries"
	}
	if c.Databases.MinIO.Bucket == "" {
		c.Databases.MinIO.Bucket = "books"
	}
	if c.Databases.MinIO.Region == "" {
		c.Databases.MinIO.Region = "us-east-1"
	}

	rl := &c.Middleware.RateLimiter
	if rl.Backend == "" {
		rl.Backend = "memory"
	}
	if rl.Limit <= 0 {
		rl.Limit = 5
	}
	if rl.Window == "" {
		rl.Window = "60s"
	}

	cb := &c.Middleware.CircuitBreaker
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold == 0 {
		cb.SuccessThreshold = 1
	}
	if cb.Timeout == "" {
		cb.Timeout = "30s"
	}
	if cb.RequestTimeout == "" {
		cb.RequestTimeout = "30s"
	}
}

// Validate 检查配置中的枚举值和时长格式。
func (c *AppConfig) Validate() error {
	switch c.Library.VectorStore {
	case "milvus", "pinecone", "qdrant", "chromem":
	default:
		return fmt.Errorf("不支持的向量存储后端: %s", c.Library.VectorStore)
	}
	switch c.Embedding.Provider {
	case "huggingface", "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("不支持的 Embedding 提供商: %s", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "openrouter", "gemini", "ollama":
	default:
		return fmt.Errorf("不支持的 LLM 提供商: %s", c.LLM.Provider)
	}
	switch c.Middleware.RateLimiter.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("不支持的限流后端: %s", c.Middleware.RateLimiter.Backend)
	}
	if c.Library.VectorStore == "pinecone" && c.Databases.Pinecone.Host == "" {
		return fmt.Errorf("使用 pinecone 时必须配置 databases.pinecone.host")
	}
	for name, v := range map[string]string{
		"server.shutdownTimeout":                   c.Server.ShutdownTimeout,
		"library.queryCacheTTL":                    c.Library.QueryCacheTTL,
		"middleware.rateLimiter.window":            c.Middleware.RateLimiter.Window,
		"middleware.circuitBreaker.timeout":        c.Middleware.CircuitBreaker.Timeout,
		"middleware.circuitBreaker.requestTimeout": c.Middleware.CircuitBreaker.RequestTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("配置项 %s 不是合法的时长: %w", name, err)
		}
	}
	return nil
}

// Duration 解析一个已校验过的时长字符串, 解析失败时返回 fallback。
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
