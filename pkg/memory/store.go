package memory

import (
	"fmt"
	"strings"
)

// OpenStore builds the durable backing selected by configuration. Anonymous
// sessions should construct NewInMemoryStore directly instead.
func OpenStore(driver, sqlitePath, postgresDSN string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return NewSQLiteStore(sqlitePath)
	case "postgres":
		if strings.TrimSpace(postgresDSN) == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		return NewPostgresStore(postgresDSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q: supported drivers are sqlite, postgres", driver)
	}
}
