// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/crmchat/pkg/retry"
	"github.com/papercomputeco/crmchat/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for document embeddings.
	DefaultCollectionName = "crmchat"

	basePath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	dims           int
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding length every document must have.
	Dimensions uint

	// Connect bounds the retries while Chroma is still starting up.
	// Zero value uses retry.DefaultPolicy.
	Connect retry.Policy
}

// statusError is a non-2xx response from Chroma.
type statusError struct {
	op     string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chroma %s: status %d: %s", e.op, e.status, e.body)
}

func (e *statusError) HTTPStatus() int { return e.status }

// NewDriver creates a new Chroma vector driver. The collection is dropped and
// recreated with cosine distance so every build starts from an empty index.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("dimensions cannot be 0")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	policy := c.Connect
	if policy == (retry.Policy{}) {
		policy = retry.DefaultPolicy()
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		dims:           int(c.Dimensions),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	collectionID, err := retry.Do(context.Background(), policy, d.recreateCollection)
	if err != nil {
		return nil, fmt.Errorf("%w: recreating collection %q: %w", vector.ErrConnection, collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

func (d *Driver) recreateCollection(ctx context.Context) (string, error) {
	err := d.do(ctx, http.MethodDelete, basePath+"/"+d.collectionName, nil, nil)
	if err != nil {
		if se, ok := err.(*statusError); !ok || (se.status != http.StatusNotFound && se.status != http.StatusBadRequest) {
			return "", err
		}
	}

	var collection chromaCollection
	err = d.do(ctx, http.MethodPost, basePath, chromaCreateRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &collection)
	if err != nil {
		return "", err
	}
	return collection.ID, nil
}

// do sends a JSON request to Chroma and decodes the response into out when
// out is non-nil.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", path, err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &statusError{op: method + " " + path, status: resp.StatusCode, body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return basePath + "/" + d.collectionID + "/" + op
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
	}
	for i, doc := range docs {
		if len(doc.Embedding) != d.dims {
			return fmt.Errorf("%w: document %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), d.dims)
		}
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = map[string]any{"fingerprint": doc.Fingerprint}
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("added documents to chroma", "count", len(docs))
	return nil
}

// Query finds the topK most similar documents. Chroma reports cosine
// distance, so the score is 1 - distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(embedding) != d.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), d.dims)
	}

	var resp chromaQueryResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	// only one query embedding is sent, so only the first group matters
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]vector.QueryResult, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		result := vector.QueryResult{Document: vector.Document{ID: id}}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			result.Fingerprint = fingerprintOf(resp.Metadatas[0][i])
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			result.Score = 1 - resp.Distances[0][i]
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

// Count returns the number of documents in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.do(ctx, http.MethodGet, d.collectionPath("count"), nil, &n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

func fingerprintOf(meta map[string]any) string {
	fp, _ := meta["fingerprint"].(string)
	return fp
}

var _ vector.Driver = (*Driver)(nil)
