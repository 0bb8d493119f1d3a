package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/dal"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/pipeline"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/splitters"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/storages/vectorstore"
	"github.com/jakebgo/library-mvp/backend/go/internal/models"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	rmErr   error
}

func (m *memFiles) Put(ctx context.Context, path string, content []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[path] = content
	return nil
}

func (m *memFiles) Remove(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rmErr != nil {
		return m.rmErr
	}
	delete(m.objects, path)
	return nil
}

// topicEmbedder puts texts about spice and whales on different axes.
type topicEmbedder struct{ err error }

func (e *topicEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := []float32{0.01, 0.01, 0.01}
		if strings.Contains(t, "spice") {
			v[0] = 1
		}
		if strings.Contains(t, "whale") {
			v[1] = 1
		}
		out[i] = v
	}
	return out, nil
}

type recordingLLM struct {
	system, question, context string
	err                       error
}

func (l *recordingLLM) Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error) {
	l.system, l.question, l.context = systemPrompt, question, contextText
	if l.err != nil {
		return "", l.err
	}
	return "answer", nil
}

// failingStore wraps a store and fails selected operations.
type failingStore struct {
	interfaces.VectorStore
	upsertErr, deleteErr error
}

func (f *failingStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorStore.Upsert(ctx, records)
}

func (f *failingStore) DeleteByBook(ctx context.Context, bookID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorStore.DeleteByBook(ctx, bookID)
}

type fixture struct {
	svc   *Service
	files *memFiles
	books *dal.BookDAL
	store *failingStore
	emb   *topicEmbedder
	llm   *recordingLLM
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Book{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	chromem, err := vectorstore.NewChromemStore(config.ChromemConfig{Collection: "books"}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, chromem.Initialize(context.Background()))

	f := &fixture{
		files: &memFiles{objects: map[string][]byte{}},
		books: dal.NewBookDAL(db),
		store: &failingStore{VectorStore: chromem},
		emb:   &topicEmbedder{},
		llm:   &recordingLLM{},
	}
	log := logger.Nop()
	f.svc = New(log, f.books, f.files, f.store,
		pipeline.NewIndexingPipeline(splitters.NewSentenceSplitter(0), f.emb, f.store, log),
		pipeline.NewRetrievalPipeline(f.emb, f.store, 5, log),
		pipeline.NewQAPipeline(f.llm, log),
		"summaries",
	)
	f.svc.suffix = func() string { return "ab12" }
	return f
}

func (f *fixture) upload(t *testing.T, title, author, text string) *models.Book {
	book, err := f.svc.UploadBook(context.Background(), UploadRequest{
		Title: title, Author: author, FileName: "summary.txt", Content: []byte(text),
	})
	require.NoError(t, err)
	return book
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Dune", "dune"},
		{"The Lord of the Rings!", "the-lord-of-the-rings"},
		{"  --Hello,   World--  ", "hello-world"},
		{"Café Society", "caf-society"},
		{"???", ""},
		{"Catch-22 (50th Anniversary)", "catch-22-50th-anniversary"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFileName(tt.in), tt.in)
	}
}

func TestRandomSuffix(t *testing.T) {
	s := randomSuffix()
	assert.Len(t, s, 4)
	for _, r := range s {
		assert.Contains(t, suffixAlphabet, string(r))
	}
}

func TestUploadBook(t *testing.T) {
	f := newFixture(t)

	book := f.upload(t, "Dune", "Frank Herbert", "The spice must flow. Fear is the mind-killer.")
	assert.Equal(t, "summaries/dune-ab12.txt", book.FilePath)
	assert.Contains(t, f.files.objects, "summaries/dune-ab12.txt")

	stored, err := f.books.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", stored.Author)

	results, err := f.store.Query(context.Background(), []float32{1, 0, 0}, 5, &schema.Filter{BookIDs: []string{book.ID}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, schema.RecordID(book.ID, 0), results[0].ID)
}

func TestUploadBook_KeepsExtension(t *testing.T) {
	f := newFixture(t)
	book, err := f.svc.UploadBook(context.Background(), UploadRequest{
		Title: "Moby Dick", Author: "Herman Melville", FileName: "moby.md", Content: []byte("Call me Ishmael."),
	})
	require.NoError(t, err)
	assert.Equal(t, "summaries/moby-dick-ab12.md", book.FilePath)
}

func TestUploadBook_MissingFields(t *testing.T) {
	f := newFixture(t)
	for _, req := range []UploadRequest{
		{Author: "a", Content: []byte("x.")},
		{Title: "t", Content: []byte("x.")},
		{Title: "t", Author: "a"},
	} {
		_, err := f.svc.UploadBook(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Empty(t, f.files.objects)
}

func TestUploadBook_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.files.putErr = errors.New("bucket gone")

	_, err := f.svc.UploadBook(context.Background(), UploadRequest{Title: "Dune", Author: "FH", Content: []byte("Spice.")})
	require.Error(t, err)

	books, err := f.books.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestUploadBook_IndexingFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.emb.err = ragerr.New(ragerr.ErrEmbedding, "embed", errors.New("model loading"))

	_, err := f.svc.UploadBook(context.Background(), UploadRequest{Title: "Dune", Author: "FH", Content: []byte("The spice must flow.")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ragerr.ErrEmbedding)

	books, err := f.books.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books, "no book row survives a failed upload")
	assert.Empty(t, f.files.objects)
}

func TestUploadBook_UpsertFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.upsertErr = ragerr.New(ragerr.ErrStoreWrite, "upsert", nil)

	_, err := f.svc.UploadBook(context.Background(), UploadRequest{Title: "Dune", Author: "FH", Content: []byte("The spice must flow.")})
	assert.ErrorIs(t, err, ragerr.ErrStoreWrite)

	books, _ := f.books.ListBooks(context.Background())
	assert.Empty(t, books)
	assert.Empty(t, f.files.objects)
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.upload(t, "Dune", "Frank Herbert", "The spice must flow.")

	require.NoError(t, f.svc.DeleteBook(ctx, book.ID))

	_, err := f.books.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, dal.ErrBookNotFound)
	assert.Empty(t, f.files.objects)
	results, err := f.store.Query(ctx, []float32{1, 0, 0}, 5, &schema.Filter{BookIDs: []string{book.ID}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteBook_NotFound(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.DeleteBook(context.Background(), "missing"), ErrBookNotFound)
}

func TestDeleteBook_VectorAndFileFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.upload(t, "Dune", "Frank Herbert", "The spice must flow.")

	f.store.deleteErr = ragerr.New(ragerr.ErrStoreDelete, "delete", nil)
	f.files.rmErr = errors.New("storage down")

	require.NoError(t, f.svc.DeleteBook(ctx, book.ID))
	_, err := f.books.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, dal.ErrBookNotFound)
}

func TestListBooks(t *testing.T) {
	f := newFixture(t)
	books, err := f.svc.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)

	f.upload(t, "Dune", "Frank Herbert", "The spice must flow.")
	books, err = f.svc.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestChat_RequiresMessage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChat_LibraryWithoutBooks(t *testing.T) {
	f := newFixture(t)
	answer, err := f.svc.Chat(context.Background(), ChatRequest{Message: "hi", IsLibraryQuery: true})
	require.NoError(t, err)
	assert.Equal(t, pipeline.NoBooksResponse, answer)
	assert.Empty(t, f.llm.question, "the model is not called")
}

func TestChat_LibraryScope(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "Dune", "Frank Herbert", "The spice must flow.")
	f.upload(t, "Moby Dick", "Herman Melville", "The whale is white.")

	answer, err := f.svc.Chat(context.Background(), ChatRequest{Message: "whale?", IsLibraryQuery: true})
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
	assert.Contains(t, f.llm.system, "- Dune by Frank Herbert")
	assert.Contains(t, f.llm.system, "- Moby Dick by Herman Melville")
	assert.Contains(t, f.llm.context, "From \"Moby Dick\": The whale is white.")
	assert.Equal(t, "whale?", f.llm.question)
}

func TestChat_SingleBookScopeNeverLeaks(t *testing.T) {
	f := newFixture(t)
	dune := f.upload(t, "Dune", "Frank Herbert", "The spice must flow.")
	f.upload(t, "Moby Dick", "Herman Melville", "The whale is white.")

	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "whale?", BookID: dune.ID})
	require.NoError(t, err)
	assert.Contains(t, f.llm.system, `the book "Dune" by Frank Herbert`)
	assert.Equal(t, "The spice must flow.", f.llm.context)
}

func TestChat_UnknownBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "q", BookID: "missing"})
	assert.ErrorIs(t, err, ErrBookLookup)
}

func TestChat_NoScope(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", f.llm.question)
	assert.Empty(t, f.llm.system, "no system prompt without a scope")
	assert.Empty(t, f.llm.context)
}

func TestChat_CompletionFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.err = ragerr.New(ragerr.ErrCompletion, "complete", nil)
	_, err := f.svc.Chat(context.Background(), ChatRequest{Message: "hello"})
	assert.ErrorIs(t, err, ragerr.ErrCompletion)
}
