package storageutils

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/turntable/pkg/storage"
	"github.com/papercomputeco/turntable/pkg/storage/inmemory"
	"github.com/papercomputeco/turntable/pkg/storage/postgres"
	"github.com/papercomputeco/turntable/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	// Driver is one of "inmemory", "sqlite" or "postgres".
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	switch o.Driver {
	case "", "inmemory":
		return inmemory.NewDriver(), nil
	case "sqlite":
		if o.SQLitePath == "" {
			return nil, errors.New("sqlite storage requires a database path")
		}
		return sqlite.NewDriver(ctx, o.SQLitePath)
	case "postgres":
		if o.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a connection string")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", o.Driver)
	}
}
