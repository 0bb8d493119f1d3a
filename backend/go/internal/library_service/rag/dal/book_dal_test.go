package dal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jakebgo/library-mvp/backend/go/internal/models"
)

func newTestDAL(t *testing.T) *BookDAL {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Book{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewBookDAL(db)
}

func TestBookDAL_CreateAssignsID(t *testing.T) {
	dal := newTestDAL(t)
	ctx := context.Background()

	book := &models.Book{Title: "Dune", Author: "Frank Herbert", FilePath: "summaries/dune-ab12.txt"}
	require.NoError(t, dal.CreateBook(ctx, book))
	assert.Len(t, book.ID, 36)
	assert.False(t, book.CreatedAt.IsZero())

	got, err := dal.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "summaries/dune-ab12.txt", got.FilePath)
}

func TestBookDAL_GetMissing(t *testing.T) {
	dal := newTestDAL(t)
	_, err := dal.GetBook(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrBookNotFound))
}

func TestBookDAL_ListNewestFirst(t *testing.T) {
	dal := newTestDAL(t)
	ctx := context.Background()

	empty, err := dal.ListBooks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, dal.CreateBook(ctx, &models.Book{
			Title: title, Author: "a", FilePath: "p", CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	books, err := dal.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "third", books[0].Title)
	assert.Equal(t, "first", books[2].Title)
}

func TestBookDAL_Delete(t *testing.T) {
	dal := newTestDAL(t)
	ctx := context.Background()

	book := &models.Book{Title: "Dune", Author: "Frank Herbert", FilePath: "p"}
	require.NoError(t, dal.CreateBook(ctx, book))
	require.NoError(t, dal.DeleteBook(ctx, book.ID))

	_, err := dal.GetBook(ctx, book.ID)
	assert.True(t, errors.Is(err, ErrBookNotFound))
	assert.True(t, errors.Is(dal.DeleteBook(ctx, book.ID), ErrBookNotFound))
}
