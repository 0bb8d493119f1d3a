package dal

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jakebgo/library-mvp/backend/go/internal/models"
)

// ErrBookNotFound is returned when no book has the requested ID.
var ErrBookNotFound = errors.New("book not found")

// BookDAL provides data access methods for books.
type BookDAL struct {
	db *gorm.DB
}

// NewBookDAL creates a new BookDAL.
func NewBookDAL(db *gorm.DB) *BookDAL {
	return &BookDAL{db: db}
}

// CreateBook inserts a book. The ID is generated if empty.
func (dal *BookDAL) CreateBook(ctx context.Context, book *models.Book) error {
	return dal.db.WithContext(ctx).Create(book).Error
}

// GetBook fetches a single book by ID.
func (dal *BookDAL) GetBook(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	result := dal.db.WithContext(ctx).Where("id = ?", id).First(&book)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &book, nil
}

// ListBooks returns every book, newest first.
func (dal *BookDAL) ListBooks(ctx context.Context) ([]*models.Book, error) {
	books := []*models.Book{}
	result := dal.db.WithContext(ctx).Order("created_at DESC").Find(&books)
	if result.Error != nil {
		return nil, result.Error
	}
	return books, nil
}

// DeleteBook removes a book row.
func (dal *BookDAL) DeleteBook(ctx context.Context, id string) error {
	result := dal.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Book{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}
