// Package memoryutils is the memory utility package
package memoryutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
	"github.com/papercomputeco/engram/pkg/memory/postgres"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

type NewDriverOpts struct {
	ProviderType string
	Target       string
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (memory.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "libsql":
		return sqlite.NewDriver(ctx, sqlite.Config{
			Target: o.Target,
		})
	case "postgres":
		return postgres.NewDriver(ctx, postgres.Config{
			Target: o.Target,
		})
	case "inmemory", "memory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
