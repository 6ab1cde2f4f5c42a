// Package embedcacheutils builds the configured cache store.
package embedcacheutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/crmchat/pkg/embedcache"
	"github.com/papercomputeco/crmchat/pkg/embedcache/postgres"
)

type NewStoreOpts struct {
	ProviderType string
	Path         string
	PostgresDSN  string
	Name         string
}

func NewStore(ctx context.Context, o *NewStoreOpts) (embedcache.Store, error) {
	switch o.ProviderType {
	case "", "file":
		return embedcache.NewFileStore(o.Path), nil
	case "postgres":
		return postgres.NewStore(ctx, o.PostgresDSN, o.Name)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", o.ProviderType)
	}
}
