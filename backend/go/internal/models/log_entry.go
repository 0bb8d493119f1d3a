package models

// RequestInfo 存储了关于一次 HTTP 请求的上下文信息, 由请求日志中间件填充。
type RequestInfo struct {
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	Status     int    `json:"status,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Kind       string `json:"kind,omitempty"`        // 错误类别, 例如 "embedding failure"
	StatusCode int    `json:"status_code,omitempty"` // 上游返回的 HTTP 状态码
	Stage      string `json:"stage,omitempty"`       // 发生错误的处理阶段, 例如 "delete_vectors"
}
