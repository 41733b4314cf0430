package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"
	"github.com/username/tidyguru/backend/src/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestCache() *cache.Cache {
	return cache.New(time.Hour, CacheCleanupInterval)
}

type fakeWhopClient struct {
	memberships map[string]*WhopMembership
	calls       int
}

func (f *fakeWhopClient) GetMembership(ctx context.Context, membershipID string) (*WhopMembership, error) {
	f.calls++
	m, ok := f.memberships[membershipID]
	if !ok {
		return nil, fmt.Errorf("whop API returned status 404 for membership %s", membershipID)
	}
	return m, nil
}
