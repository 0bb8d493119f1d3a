// Package service implements the library's use cases: uploading, listing and
// deleting book summaries, and answering questions about them.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"regexp"
	"strings"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/dal"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/pipeline"
	"github.com/jakebgo/library-mvp/backend/go/internal/models"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
)

var (
	// ErrInvalidInput marks a request the caller must fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = dal.ErrBookNotFound
	// ErrBookLookup is returned when a single-book question names a book
	// that cannot be loaded.
	ErrBookLookup = errors.New("failed to fetch book information")
	// ErrLibraryLookup is returned when the book list for a library question cannot be loaded.
	ErrLibraryLookup = errors.New("failed to fetch library information")
)

// FileStore keeps the raw uploaded files.
type FileStore interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Remove(ctx context.Context, path string) error
}

// BookRepository persists Book rows.
type BookRepository interface {
	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context) ([]*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
}

// UploadRequest is a new book summary.
type UploadRequest struct {
	Title    string
	Author   string
	FileName string
	Content  []byte
}

// ChatRequest is a question, scoped to the whole library, one book, or neither.
type ChatRequest struct {
	Message        string
	BookID         string
	IsLibraryQuery bool
}

// Service wires the stores and pipelines together.
type Service struct {
	log           *logger.Logger
	books         BookRepository
	files         FileStore
	vectors       interfaces.VectorStore
	indexer       *pipeline.IndexingPipeline
	retriever     *pipeline.RetrievalPipeline
	qa            *pipeline.QAPipeline
	storagePrefix string
	suffix        func() string
}

// New creates a Service. storagePrefix is the object path prefix for uploads.
func New(
	log *logger.Logger,
	books BookRepository,
	files FileStore,
	vectors interfaces.VectorStore,
	indexer *pipeline.IndexingPipeline,
	retriever *pipeline.RetrievalPipeline,
	qa *pipeline.QAPipeline,
	storagePrefix string,
) *Service {
	return &Service{
		log:           log,
		books:         books,
		files:         files,
		vectors:       vectors,
		indexer:       indexer,
		retriever:     retriever,
		qa:            qa,
		storagePrefix: storagePrefix,
		suffix:        randomSuffix,
	}
}

// UploadBook stores the file, records the book and indexes its text. Any
// failure undoes the earlier steps so no book is left without its vectors.
func (s *Service) UploadBook(ctx context.Context, req UploadRequest) (*models.Book, error) {
	title, author := strings.TrimSpace(req.Title), strings.TrimSpace(req.Author)
	if title == "" || author == "" || len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: file, title and author are required", ErrInvalidInput)
	}

	filePath := s.filePath(title, req.FileName)
	log := s.log.WithPayload(map[string]interface{}{"title": title, "file_path": filePath})

	// 1. Upload the raw file
	if err := s.files.Put(ctx, filePath, req.Content, "text/plain"); err != nil {
		log.WithErr("store_file", err).Error("Storage upload error")
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	// 2. Save the book record
	book := &models.Book{Title: title, Author: author, FilePath: filePath}
	if err := s.books.CreateBook(ctx, book); err != nil {
		log.WithErr("insert_book", err).Error("Database insert error")
		s.removeFile(ctx, log, filePath)
		return nil, fmt.Errorf("failed to save book metadata: %w", err)
	}

	// 3. Chunk, embed and upsert
	if _, err := s.indexer.Run(ctx, book, string(req.Content)); err != nil {
		log.WithErr("index_book", err).Error("Indexing failed, rolling back upload")
		s.compensate(ctx, log, book)
		return nil, fmt.Errorf("failed to process book text: %w", err)
	}

	log.Info(fmt.Sprintf("Uploaded book %s", book.ID))
	return book, nil
}

// compensate removes whatever a failed upload left behind. It runs on a
// context that survives cancellation of the request.
func (s *Service) compensate(ctx context.Context, log *logger.Logger, book *models.Book) {
	ctx = context.WithoutCancel(ctx)
	if err := s.vectors.DeleteByBook(ctx, book.ID); err != nil {
		log.WithErr("rollback_vectors", err).Warn("Failed to remove partial vectors")
	}
	if err := s.books.DeleteBook(ctx, book.ID); err != nil {
		log.WithErr("rollback_book", err).Warn("Failed to remove book record")
	}
	s.removeFile(ctx, log, book.FilePath)
}

func (s *Service) removeFile(ctx context.Context, log *logger.Logger, filePath string) {
	if err := s.files.Remove(context.WithoutCancel(ctx), filePath); err != nil {
		log.WithErr("rollback_file", err).Warn("Failed to remove stored file")
	}
}

// ListBooks returns every book, newest first.
func (s *Service) ListBooks(ctx context.Context) ([]*models.Book, error) {
	books, err := s.books.ListBooks(ctx)
	if err != nil {
		s.log.WithErr("list_books", err).Error("Error fetching books")
		return nil, err
	}
	return books, nil
}

// DeleteBook removes a book's vectors, file and record in that order. Vector
// and file failures are logged and do not stop the deletion; only a missing
// book or a failed record delete is reported.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	log := s.log.WithPayload(map[string]interface{}{"book_id": id})

	// 1. Vectors
	if err := s.vectors.DeleteByBook(ctx, id); err != nil {
		log.WithErr("delete_vectors", err).Error("Error deleting vectors")
	}

	// 2. Look up the book
	book, err := s.books.GetBook(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrBookNotFound) {
			log.WithErr("get_book", err).Error("Error fetching book")
		}
		return err
	}

	// 3. File
	if err := s.files.Remove(ctx, book.FilePath); err != nil {
		log.WithErr("delete_file", err).Error("Error deleting file from storage")
	}

	// 4. Record
	if err := s.books.DeleteBook(ctx, id); err != nil {
		log.WithErr("delete_book", err).Error("Error deleting book from database")
		return fmt.Errorf("failed to delete book: %w", err)
	}

	log.Info("Deleted book")
	return nil
}

// Chat answers a question. Library questions draw on every existing book,
// book questions on one book, and anything else goes to the model with no
// system prompt and no context.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	var systemPrompt, contextText string
	switch {
	case req.IsLibraryQuery:
		books, err := s.books.ListBooks(ctx)
		if err != nil {
			s.log.WithErr("list_books", err).Error("Error fetching books")
			return "", fmt.Errorf("%w: %v", ErrLibraryLookup, err)
		}
		if len(books) == 0 {
			return pipeline.NoBooksResponse, nil
		}

		valid := make(map[string]bool, len(books))
		for _, b := range books {
			valid[b.ID] = true
		}
		systemPrompt = pipeline.LibrarySystemPrompt(books)
		contextText, err = s.retriever.Retrieve(ctx, req.Message, pipeline.Scope{AllBooks: true, ValidBookIDs: valid})
		if err != nil {
			return "", err
		}

	case req.BookID != "":
		book, err := s.books.GetBook(ctx, req.BookID)
		if err != nil {
			s.log.WithErr("get_book", err).Error("Error fetching book")
			return "", fmt.Errorf("%w: %v", ErrBookLookup, err)
		}
		systemPrompt = pipeline.BookSystemPrompt(book)
		contextText, err = s.retriever.Retrieve(ctx, req.Message, pipeline.Scope{BookID: book.ID})
		if err != nil {
			return "", err
		}
	}

	return s.qa.Run(ctx, systemPrompt, req.Message, contextText)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeFileName lowercases name and reduces it to [a-z0-9] runs joined by single dashes.
func SanitizeFileName(name string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func (s *Service) filePath(title, fileName string) string {
	safe := SanitizeFileName(title)
	if safe == "" {
		safe = "book"
	}
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "txt"
	}
	return path.Join(s.storagePrefix, fmt.Sprintf("%s-%s.%s", safe, s.suffix(), ext))
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
