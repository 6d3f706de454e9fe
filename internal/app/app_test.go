package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfil/internal/dbstore"
)

// The default config opens a local sqlite database, so the driver must be
// registered by the packages the binary links, not by a test import.
func TestDefaultSQLiteDriverRegistered(t *testing.T) {
	ctx := context.Background()

	s, err := dbstore.Open("sqlite", filepath.Join(t.TempDir(), "ops.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Bootstrap(ctx))

	records, err := s.ReadAllRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}
