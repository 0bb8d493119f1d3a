package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/httpclient"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

const (
	pineconeAPIVersion      = "2024-07"
	pineconeUpsertBatchSize = 100
	pineconeListPageSize    = 100
)

// PineconeStore implements VectorStore on a managed Pinecone index through
// its data-plane REST API.
type PineconeStore struct {
	log       *logger.Logger
	client    *httpclient.Client
	host      string
	apiKey    string
	namespace string
}

// NewPineconeStore creates a store for the index served at cfg.Host.
func NewPineconeStore(cfg config.PineconeConfig, hc *httpclient.Client, log *logger.Logger) (*PineconeStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone host is required")
	}
	host := strings.TrimRight(cfg.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &PineconeStore{log: log, client: hc, host: host, apiKey: cfg.APIKey, namespace: cfg.Namespace}, nil
}

type pineconeVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace"`
}

type pineconeQueryRequest struct {
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
	Namespace       string                 `json:"namespace"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float32                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

type pineconeListResponse struct {
	Vectors []struct {
		ID string `json:"id"`
	} `json:"vectors"`
	Pagination *struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

type pineconeDeleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace"`
}

// Initialize checks connectivity with describe_index_stats. The index itself
// is provisioned outside the application.
func (s *PineconeStore) Initialize(ctx context.Context) error {
	if _, err := s.do(ctx, http.MethodGet, "/describe_index_stats", nil, ragerr.ErrStoreInit, "pinecone initialize"); err != nil {
		return err
	}
	return nil
}

// Upsert writes records in batches sized for the request limits of the API.
func (s *PineconeStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	for start := 0; start < len(records); start += pineconeUpsertBatchSize {
		end := min(start+pineconeUpsertBatchSize, len(records))
		req := pineconeUpsertRequest{Vectors: make([]pineconeVector, 0, end-start), Namespace: s.namespace}
		for _, r := range records[start:end] {
			req.Vectors = append(req.Vectors, pineconeVector{ID: r.ID, Values: r.Embedding, Metadata: r.Metadata.Map()})
		}
		if _, err := s.do(ctx, http.MethodPost, "/vectors/upsert", req, ragerr.ErrStoreWrite, "pinecone upsert"); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the topK nearest records, restricted by bookId when a filter is given.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int, filter *schema.Filter) ([]schema.QueryResult, error) {
	req := pineconeQueryRequest{Vector: vector, TopK: topK, IncludeMetadata: true, Namespace: s.namespace}
	if !filter.Empty() {
		req.Filter = map[string]interface{}{
			schema.MetadataKeyBookID: map[string]interface{}{"$in": filter.BookIDs},
		}
	}

	body, err := s.do(ctx, http.MethodPost, "/query", req, ragerr.ErrStoreQuery, "pinecone query")
	if err != nil {
		return nil, err
	}
	var resp pineconeQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ragerr.New(ragerr.ErrStoreQuery, "pinecone query", fmt.Errorf("decode response: %w", err))
	}

	results := make([]schema.QueryResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		md := schema.MetadataFromMap(m.Metadata)
		results = append(results, schema.QueryResult{ID: m.ID, Text: md.Text, Metadata: md, Score: m.Score})
	}
	return results, nil
}

// DeleteByBook lists every record ID with the book's prefix, then deletes
// them by ID. IDs that merely share the prefix with another book's ID are skipped.
func (s *PineconeStore) DeleteByBook(ctx context.Context, bookID string) error {
	var ids []string
	token := ""
	for {
		q := url.Values{}
		q.Set("prefix", schema.RecordIDPrefix(bookID))
		q.Set("namespace", s.namespace)
		q.Set("limit", fmt.Sprint(pineconeListPageSize))
		if token != "" {
			q.Set("paginationToken", token)
		}
		body, err := s.do(ctx, http.MethodGet, "/vectors/list?"+q.Encode(), nil, ragerr.ErrStoreDelete, "pinecone list")
		if err != nil {
			return err
		}
		var page pineconeListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return ragerr.New(ragerr.ErrStoreDelete, "pinecone list", fmt.Errorf("decode response: %w", err))
		}
		for _, v := range page.Vectors {
			if schema.BelongsTo(v.ID, bookID) {
				ids = append(ids, v.ID)
			}
		}
		if page.Pagination == nil || page.Pagination.Next == "" || page.Pagination.Next == token {
			break
		}
		token = page.Pagination.Next
	}

	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		req := pineconeDeleteRequest{IDs: ids[start:end], Namespace: s.namespace}
		if _, err := s.do(ctx, http.MethodPost, "/vectors/delete", req, ragerr.ErrStoreDelete, "pinecone delete"); err != nil {
			return err
		}
	}
	s.log.Debug(fmt.Sprintf("Deleted %d Pinecone records for book %s", len(ids), bookID))
	return nil
}

// do sends one request and returns the body of a 2xx response. Any other
// outcome is reported as a failure of the given kind.
func (s *PineconeStore) do(ctx context.Context, method, path string, payload interface{}, kind error, op string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, ragerr.New(kind, op, fmt.Errorf("marshal request: %w", err))
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.host+path, reqBody)
	if err != nil {
		return nil, ragerr.New(kind, op, err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ragerr.New(kind, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ragerr.New(kind, op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ragerr.FromStatus(kind, op, resp.StatusCode, body)
	}
	return body, nil
}

// compile-time check to ensure PineconeStore implements the VectorStore interface
var _ interfaces.VectorStore = (*PineconeStore)(nil)
