package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readyTimeout 是单个依赖检查的超时时间。
const readyTimeout = 2 * time.Second

// Check 是一个命名的依赖健康检查。
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// WithChecks 设置 /readyz 使用的依赖检查。
func (h *Handler) WithChecks(checks ...Check) *Handler {
	h.checks = append(h.checks, checks...)
	return h
}

// Ready 依次检查所有依赖, 任何一个失败都返回 503。
func (h *Handler) Ready(c *gin.Context) {
	failed := map[string]string{}
	for _, chk := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		err := chk.Fn(ctx)
		cancel()
		if err != nil {
			failed[chk.Name] = err.Error()
			h.logger(c).WithErr("readiness_"+chk.Name, err).Warn("Dependency not ready")
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
