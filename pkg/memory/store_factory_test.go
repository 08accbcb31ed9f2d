package memory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenStore_DriverSelection(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr string
	}{
		{name: "sqlite", driver: "sqlite"},
		{name: "empty defaults to sqlite", driver: ""},
		{name: "case insensitive", driver: "SQLite"},
		{name: "postgres without dsn", driver: "postgres", wantErr: "postgres_dsn is required"},
		{name: "unknown driver", driver: "mongodb", wantErr: "unsupported storage driver"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "haven.db")
			store, err := OpenStore(tc.driver, path, "")
			if tc.wantErr != "" {
				assert.Error(t, err)
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}
}
