package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// payloadKeyRecordID keeps the human-readable record ID next to the UUID
// point ID that Qdrant requires.
const payloadKeyRecordID = "recordId"

// qdrantPoints is the subset of *qdrant.Client used by QdrantStore.
type qdrantPoints interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
}

// QdrantStore implements VectorStore on a self-hosted Qdrant over gRPC.
type QdrantStore struct {
	log        *logger.Logger
	client     qdrantPoints
	collection string
	dim        int
}

// NewQdrantClient dials Qdrant's gRPC port.
func NewQdrantClient(cfg config.QdrantConfig) (*qdrant.Client, error) {
	qc := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}
	if !cfg.UseTLS {
		qc.GrpcOptions = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return client, nil
}

// NewQdrantStore wraps an existing client. dim is the collection's vector size.
func NewQdrantStore(client qdrantPoints, collection string, dim int, log *logger.Logger) *QdrantStore {
	return &QdrantStore{log: log, client: client, collection: collection, dim: dim}
}

// PointID maps a record ID onto the UUID space Qdrant accepts. The mapping
// is deterministic so re-uploads overwrite the same point.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// Initialize creates the collection and its bookId payload index when absent.
func (s *QdrantStore) Initialize(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return ragerr.New(ragerr.ErrStoreInit, "qdrant initialize", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return ragerr.New(ragerr.ErrStoreInit, "qdrant create collection", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      schema.MetadataKeyBookID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return ragerr.New(ragerr.ErrStoreInit, "qdrant create payload index", err)
	}
	s.log.Info(fmt.Sprintf("Created Qdrant collection %s", s.collection))
	return nil
}

// Upsert writes all records in one request and waits for it to be applied.
func (s *QdrantStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) != s.dim {
			return ragerr.New(ragerr.ErrStoreWrite, "qdrant upsert",
				fmt.Errorf("record %s has dimension %d, want %d", r.ID, len(r.Embedding), s.dim))
		}
		payload := qdrantPayload(r.Metadata)
		payload[payloadKeyRecordID] = stringValue(r.ID)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return ragerr.New(ragerr.ErrStoreWrite, "qdrant upsert", err)
	}
	return nil
}

// Query returns the topK nearest points, restricted by bookId when a filter is given.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int, filter *schema.Filter) ([]schema.QueryResult, error) {
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if !filter.Empty() {
		req.Filter = &qdrant.Filter{Must: []*qdrant.Condition{bookIDCondition(filter.BookIDs...)}}
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrStoreQuery, "qdrant query", err)
	}

	results := make([]schema.QueryResult, 0, len(points))
	for _, p := range points {
		raw := payloadMap(p.Payload)
		md := schema.MetadataFromMap(raw)
		id, _ := raw[payloadKeyRecordID].(string)
		if id == "" {
			id = p.GetId().GetUuid()
		}
		results = append(results, schema.QueryResult{ID: id, Text: md.Text, Metadata: md, Score: p.Score})
	}
	return results, nil
}

// DeleteByBook removes every point whose bookId payload equals bookID.
func (s *QdrantStore) DeleteByBook(ctx context.Context, bookID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{Must: []*qdrant.Condition{bookIDCondition(bookID)}},
			},
		},
	})
	if err != nil {
		return ragerr.New(ragerr.ErrStoreDelete, "qdrant delete", err)
	}
	return nil
}

func bookIDCondition(bookIDs ...string) *qdrant.Condition {
	match := &qdrant.Match{MatchValue: &qdrant.Match_Keywords{
		Keywords: &qdrant.RepeatedStrings{Strings: bookIDs},
	}}
	if len(bookIDs) == 1 {
		match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: bookIDs[0]}}
	}
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: schema.MetadataKeyBookID, Match: match},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func qdrantPayload(md schema.Metadata) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		schema.MetadataKeyBookID:     stringValue(md.BookID),
		schema.MetadataKeyTitle:      stringValue(md.Title),
		schema.MetadataKeyAuthor:     stringValue(md.Author),
		schema.MetadataKeyChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(md.ChunkIndex)}},
		schema.MetadataKeyText:       stringValue(md.Text),
	}
}

func payloadMap(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = val.BoolValue
		}
	}
	return out
}

var _ interfaces.VectorStore = (*QdrantStore)(nil)
