package settings

import (
	"context"
	"fmt"
)

// Open returns the store selected by driver: "memory", "sqlite" or
// "postgres". dsn is ignored for memory.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("settings: unknown driver %q", driver)
	}
}
