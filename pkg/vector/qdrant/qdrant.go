// Package qdrant implements vector.Driver against a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/papercomputeco/crmchat/pkg/vector"
)

const (
	// DefaultCollection is the collection the index is rebuilt into.
	DefaultCollection = "crmchat_documents"

	payloadDocID       = "doc_id"
	payloadFingerprint = "fingerprint"
)

// idNamespace scopes the deterministic point IDs derived from document IDs.
var idNamespace = uuid.MustParse("5b0c1a8e-8a43-4a36-9f5e-0c6f1d3c2e71")

// Config holds the Qdrant connection settings.
type Config struct {
	// Target is the gRPC address, e.g. "localhost:6334".
	Target string

	// Collection defaults to DefaultCollection.
	Collection string

	// Dimensions is the embedding length the collection is created with.
	Dimensions uint
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dims        int
	logger      *slog.Logger
}

// NewDriver connects to Qdrant and recreates the collection so the index
// starts empty on every build.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, errors.New("qdrant target is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("dimensions cannot be 0")
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}

	conn, err := grpc.NewClient(c.Target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &Driver{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  c.Collection,
		dims:        int(c.Dimensions),
		logger:      logger,
	}

	if err := d.recreate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("qdrant collection ready",
		"target", c.Target,
		"collection", c.Collection,
		"dimensions", c.Dimensions,
	)
	return d, nil
}

func (d *Driver) recreate(ctx context.Context) error {
	exists, err := d.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: d.collection})
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	if exists.GetResult().GetExists() {
		if _, err := d.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: d.collection}); err != nil {
			return fmt.Errorf("dropping collection %s: %w", d.collection, err)
		}
	}

	_, err = d.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{
				Size:     uint64(d.dims),
				Distance: pb.Distance_Cosine,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", d.collection, err)
	}
	return nil
}

// pointID maps a document ID onto the UUID point IDs Qdrant accepts.
func pointID(docID string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{
		Uuid: uuid.NewSHA1(idNamespace, []byte(docID)).String(),
	}}
}

func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(docs))
	for i, doc := range docs {
		if len(doc.Embedding) != d.dims {
			return fmt.Errorf("%w: document %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), d.dims)
		}
		points[i] = &pb.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: doc.Embedding}}},
			Payload: map[string]*pb.Value{
				payloadDocID:       {Kind: &pb.Value_StringValue{StringValue: doc.ID}},
				payloadFingerprint: {Kind: &pb.Value_StringValue{StringValue: doc.Fingerprint}},
			},
		}
	}

	wait := true
	_, err := d.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))
	return nil
}

func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(embedding) != d.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), d.dims)
	}

	resp, err := d.points.Search(ctx, &pb.SearchPoints{
		CollectionName: d.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("searching qdrant: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:          pt.GetPayload()[payloadDocID].GetStringValue(),
				Fingerprint: pt.GetPayload()[payloadFingerprint].GetStringValue(),
			},
			Score: pt.GetScore(),
		})
	}
	return results, nil
}

func (d *Driver) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := d.points.Count(ctx, &pb.CountPoints{
		CollectionName: d.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (d *Driver) Close() error {
	return d.conn.Close()
}

var _ vector.Driver = (*Driver)(nil)
