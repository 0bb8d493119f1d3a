package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// book mirrors the JSON the service returns for a book.
type book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// apiClient talks to the /api/v1 endpoints.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (c *apiClient) listBooks(ctx context.Context) ([]book, error) {
	var out struct {
		Books []book `json:"books"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/books", nil, "", &out)
	return out.Books, err
}

func (c *apiClient) uploadBook(ctx context.Context, fileName string, content []byte, title, author string) (*book, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", title); err != nil {
		return nil, err
	}
	if err := mw.WriteField("author", author); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out struct {
		Book *book `json:"book"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/books", &body, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return out.Book, nil
}

func (c *apiClient) deleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/books/"+id, nil, "", nil)
}

type chatPayload struct {
	Message        string `json:"message"`
	BookID         string `json:"bookId,omitempty"`
	IsLibraryQuery bool   `json:"isLibraryQuery"`
}

func (c *apiClient) chat(ctx context.Context, p chatPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	err = c.do(ctx, http.MethodPost, "/api/v1/chat", bytes.NewReader(b), "application/json", &out)
	return out.Response, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
