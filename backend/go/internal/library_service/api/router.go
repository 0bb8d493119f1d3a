package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakebgo/library-mvp/backend/go/pkg/httpmiddleware"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ratelimiter"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
// limiter 只作用于聊天接口, 以用户 ID 为键。
func SetupRouter(h *Handler, jwtSecret string, limiter ratelimiter.RateLimiter, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpmiddleware.RequestID(), httpmiddleware.Logger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", h.Ready)

	// 使用 v1 版本对 API 进行分组, 全部需要认证
	apiV1 := r.Group("/api/v1")
	apiV1.Use(AuthMiddleware(jwtSecret))
	{
		books := apiV1.Group("/books")
		{
			books.GET("", h.ListBooks)
			books.POST("", h.UploadBook)
			books.DELETE("/:id", h.DeleteBook)
		}

		apiV1.POST("/chat", httpmiddleware.RateLimit(limiter, httpmiddleware.UserKey, log), h.Chat)
	}

	return r
}
