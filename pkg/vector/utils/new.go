package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/crmchat/pkg/vector"
	"github.com/papercomputeco/crmchat/pkg/vector/chroma"
	"github.com/papercomputeco/crmchat/pkg/vector/inmemory"
	"github.com/papercomputeco/crmchat/pkg/vector/qdrant"
	"github.com/papercomputeco/crmchat/pkg/vector/sqlitevec"
)

// Supported index providers.
const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
	ProviderQdrant = "qdrant"
	ProviderChroma = "chroma"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the server address for qdrant and chroma, and the
	// database path for sqlite (empty means in-memory).
	TargetURL string

	Logger *slog.Logger
}

// NewVectorDriver creates an empty index sized for dims-length embeddings.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts, dims int) (vector.Driver, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch o.ProviderType {
	case "", ProviderMemory:
		return inmemory.NewDriver(dims), nil
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: uint(dims),
		}, logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:     o.TargetURL,
			Dimensions: uint(dims),
		}, logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:        o.TargetURL,
			Dimensions: uint(dims),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
