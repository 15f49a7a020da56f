package vector

import (
	"context"
	"fmt"
	"strings"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// QdrantStore is a Store backed by a Qdrant collection over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
}

// NewQdrantStore connects to Qdrant at host:port and binds the store to
// the given collection.
func NewQdrantStore(host string, port int, collection string) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}

	log.Debug().Str("addr", addr).Str("collection", collection).Msg("connected to qdrant")
	return &QdrantStore{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if absent.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dims int) error {
	resp, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, col := range resp.GetCollections() {
		if col.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dims),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}

	log.Info().Str("collection", s.collection).Int("dims", dims).Msg("created collection")
	return nil
}

// Search runs a filtered similarity search. Multi-company filtering happens
// client-side since the filter grammar has no convenient OR over a single
// key; everything single-valued is pushed down to the server.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, userID string, filters models.QueryFilters, limit int) ([]models.RetrievedChunk, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required for search")
	}

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		Filter:         buildFilter(userID, filters),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", s.collection, err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		chunk := models.RetrievedChunk{
			Score:    float64(point.GetScore()),
			Metadata: payloadToMap(point.GetPayload()),
		}
		if content, ok := chunk.Metadata["content"].(string); ok {
			chunk.Content = content
			delete(chunk.Metadata, "content")
		}
		chunks = append(chunks, chunk)
	}

	if len(filters.Companies) > 0 {
		chunks = filterByCompanies(chunks, filters.Companies)
	}
	return chunks, nil
}

// Upsert writes points to the collection, waiting for the operation to be
// applied.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrantclient.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: mapToPayload(p.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Points:         qdrantPoints,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// DeleteDocument removes every chunk of a document belonging to the user.
func (s *QdrantStore) DeleteDocument(ctx context.Context, userID, documentID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required for delete")
	}

	filter := &qdrantclient.Filter{
		Must: []*qdrantclient.Condition{
			keywordCondition("user_id", userID),
			keywordCondition("document_id", documentID),
		},
	}
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// Close terminates the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

// buildFilter translates metadata filters into server-side must conditions.
// The user id predicate is always present. A single company is pushed down;
// a company list is left for client-side filtering.
func buildFilter(userID string, f models.QueryFilters) *qdrantclient.Filter {
	conditions := []*qdrantclient.Condition{
		keywordCondition("user_id", userID),
	}

	if f.YearRange != nil {
		conditions = append(conditions, rangeCondition("fiscal_year", f.YearRange.Min, f.YearRange.Max))
	} else if f.Year != 0 {
		conditions = append(conditions, integerCondition("fiscal_year", int64(f.Year)))
	}

	if f.Company != "" && len(f.Companies) == 0 {
		conditions = append(conditions, keywordCondition("company", strings.ToLower(f.Company)))
	}
	if f.DocumentType != "" {
		conditions = append(conditions, keywordCondition("document_type", f.DocumentType))
	}
	if f.DocumentCategory != "" {
		conditions = append(conditions, keywordCondition("document_category", f.DocumentCategory))
	}
	if f.FiscalQuarter != 0 {
		conditions = append(conditions, integerCondition("fiscal_quarter", int64(f.FiscalQuarter)))
	}
	if f.Sector != "" && len(f.Sectors) == 0 {
		conditions = append(conditions, keywordCondition("company_sector", f.Sector))
	}
	if f.Industry != "" {
		conditions = append(conditions, keywordCondition("company_industry", f.Industry))
	}
	if f.PeriodType != "" {
		conditions = append(conditions, keywordCondition("period_type", f.PeriodType))
	}
	if f.ReportingStandard != "" {
		conditions = append(conditions, keywordCondition("reporting_standard", f.ReportingStandard))
	}
	if f.Country != "" {
		conditions = append(conditions, keywordCondition("company_country", f.Country))
	}
	if f.Exchange != "" {
		conditions = append(conditions, keywordCondition("company_exchange", f.Exchange))
	}
	if f.ChunkType != "" {
		conditions = append(conditions, keywordCondition("chunk_type", f.ChunkType))
	}
	if f.HasFinancialStatements != nil {
		conditions = append(conditions, boolCondition("has_financial_statements", *f.HasFinancialStatements))
	}
	if f.HasMDA != nil {
		conditions = append(conditions, boolCondition("has_mda", *f.HasMDA))
	}
	if f.HasRiskFactors != nil {
		conditions = append(conditions, boolCondition("has_risk_factors", *f.HasRiskFactors))
	}
	if f.HasTable != nil {
		conditions = append(conditions, boolCondition("has_table", *f.HasTable))
	}

	return &qdrantclient.Filter{Must: conditions}
}

func keywordCondition(key, value string) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key:   key,
				Match: &qdrantclient.Match{MatchValue: &qdrantclient.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func integerCondition(key string, value int64) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key:   key,
				Match: &qdrantclient.Match{MatchValue: &qdrantclient.Match_Integer{Integer: value}},
			},
		},
	}
}

func boolCondition(key string, value bool) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key:   key,
				Match: &qdrantclient.Match{MatchValue: &qdrantclient.Match_Boolean{Boolean: value}},
			},
		},
	}
}

func rangeCondition(key string, min, max int) *qdrantclient.Condition {
	gte := float64(min)
	lte := float64(max)
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key:   key,
				Range: &qdrantclient.Range{Gte: &gte, Lte: &lte},
			},
		},
	}
}

func filterByCompanies(chunks []models.RetrievedChunk, companies []string) []models.RetrievedChunk {
	allowed := make(map[string]bool, len(companies))
	for _, c := range companies {
		allowed[strings.ToLower(c)] = true
	}

	filtered := chunks[:0]
	for _, chunk := range chunks {
		if allowed[chunk.Company()] {
			filtered = append(filtered, chunk)
		}
	}
	return filtered
}

func payloadToMap(payload map[string]*qdrantclient.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(v *qdrantclient.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrantclient.Value_StringValue:
		return kind.StringValue
	case *qdrantclient.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrantclient.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrantclient.Value_BoolValue:
		return kind.BoolValue
	case *qdrantclient.Value_ListValue:
		items := kind.ListValue.GetValues()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = valueToAny(item)
		}
		return list
	case *qdrantclient.Value_StructValue:
		return payloadToMap(kind.StructValue.GetFields())
	default:
		return nil
	}
}

func mapToPayload(m map[string]any) map[string]*qdrantclient.Value {
	out := make(map[string]*qdrantclient.Value, len(m))
	for key, value := range m {
		out[key] = anyToValue(value)
	}
	return out
}

func anyToValue(v any) *qdrantclient.Value {
	switch val := v.(type) {
	case string:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: val}}
	case int:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_BoolValue{BoolValue: val}}
	case []string:
		items := make([]*qdrantclient.Value, len(val))
		for i, s := range val {
			items[i] = anyToValue(s)
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{
			ListValue: &qdrantclient.ListValue{Values: items},
		}}
	case []any:
		items := make([]*qdrantclient.Value, len(val))
		for i, item := range val {
			items[i] = anyToValue(item)
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{
			ListValue: &qdrantclient.ListValue{Values: items},
		}}
	default:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_NullValue{NullValue: qdrantclient.NullValue_NULL_VALUE}}
	}
}
