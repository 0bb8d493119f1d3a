package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/service"
	"github.com/jakebgo/library-mvp/backend/go/internal/models"
	"github.com/jakebgo/library-mvp/backend/go/pkg/httpmiddleware"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// LibraryService 是 Handler 依赖的业务接口, 由 *service.Service 实现。
type LibraryService interface {
	UploadBook(ctx context.Context, req service.UploadRequest) (*models.Book, error)
	ListBooks(ctx context.Context) ([]*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	Chat(ctx context.Context, req service.ChatRequest) (string, error)
}

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service        LibraryService
	log            *logger.Logger
	maxUploadBytes int64
	checks         []Check
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s LibraryService, log *logger.Logger, maxUploadBytes int64) *Handler {
	return &Handler{service: s, log: log, maxUploadBytes: maxUploadBytes}
}

// --- Books ---

// UploadBook 处理 multipart 上传: file, title, author。
func (h *Handler) UploadBook(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "File is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "File, title, and author are required"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read uploaded file"})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read uploaded file"})
		return
	}

	book, err := h.service.UploadBook(c.Request.Context(), service.UploadRequest{
		Title:    c.PostForm("title"),
		Author:   c.PostForm("author"),
		FileName: fileHeader.Filename,
		Content:  content,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "File, title, and author are required"})
			return
		}
		h.logger(c).WithErr("upload_book", err).Error("Error uploading book")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload book"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"book": book})
}

// ListBooks 返回全部书籍, 按创建时间倒序。
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.service.ListBooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch books"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// DeleteBook 删除一本书及其向量和文件。
func (h *Handler) DeleteBook(c *gin.Context) {
	err := h.service.DeleteBook(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Book not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete book"})
	}
}

// --- Chat ---

// ChatRequest 定义了聊天请求的 JSON 结构。
type ChatRequest struct {
	Message        string `json:"message"`
	BookID         string `json:"bookId"`
	IsLibraryQuery bool   `json:"isLibraryQuery"`
}

// Chat 处理针对整个书库、单本书或通用问题的提问。
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Message is required"})
		return
	}

	answer, err := h.service.Chat(c.Request.Context(), service.ChatRequest{
		Message:        req.Message,
		BookID:         req.BookID,
		IsLibraryQuery: req.IsLibraryQuery,
	})
	if err != nil {
		status, message := chatError(err)
		if status >= http.StatusInternalServerError {
			h.logger(c).WithErr("chat", err).Error("Error in chat API")
		}
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// chatError 把业务错误映射为状态码和面向用户的消息, 细节只写日志。
func chatError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Message is required"
	case errors.Is(err, service.ErrLibraryLookup):
		return http.StatusInternalServerError, "Failed to fetch library information"
	case errors.Is(err, service.ErrBookLookup):
		return http.StatusInternalServerError, "Failed to fetch book information"
	case errors.Is(err, ragerr.ErrNoContent):
		return http.StatusInternalServerError, "Invalid response from AI model"
	case errors.Is(err, ragerr.ErrCompletion):
		return http.StatusInternalServerError, "Failed to get response from AI model"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) logger(c *gin.Context) *logger.Logger {
	return httpmiddleware.LoggerFrom(c, h.log)
}
