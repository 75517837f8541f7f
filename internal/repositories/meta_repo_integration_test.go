//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/loginhistory/internal/models"
)

func TestSettingsAndUserMetaRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tdb := setupTestDatabase(t)
	settings := NewSettingsRepository(tdb.db)
	meta := NewUserMetaRepository(tdb.db)
	ctx := context.Background()

	t.Run("retention policy seeded", func(t *testing.T) {
		policy, err := settings.GetRetentionPolicy(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultDeleteAfterDays, policy.DeleteAfterDays)
	})

	t.Run("retention policy round trip", func(t *testing.T) {
		require.NoError(t, settings.SaveRetentionPolicy(ctx, models.RetentionPolicy{DeleteAfterDays: 30}))
		policy, err := settings.GetRetentionPolicy(ctx)
		require.NoError(t, err)
		assert.Equal(t, 30, policy.DeleteAfterDays)
	})

	t.Run("last login", func(t *testing.T) {
		tdb.cleanupTables(t)
		require.NoError(t, meta.SetLastLogin(ctx, "1", 1700000000))
		require.NoError(t, meta.SetLastLogin(ctx, "1", 1700000500))

		logins, err := meta.GetLastLogins(ctx, []string{"1", "2"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"1": 1700000500}, logins)
	})

	t.Run("per page preference", func(t *testing.T) {
		tdb.cleanupTables(t)

		perPage, err := meta.GetPerPage(ctx, "7")
		require.NoError(t, err)
		assert.Nil(t, perPage)

		require.NoError(t, meta.SetPerPage(ctx, "7", 50))
		require.NoError(t, meta.SetLastLogin(ctx, "7", 1700000000))

		stored, err := meta.GetMeta(ctx, "7")
		require.NoError(t, err)
		require.NotNil(t, stored.PerPage)
		require.NotNil(t, stored.LastLogin)
		assert.Equal(t, 50, *stored.PerPage)
		assert.Equal(t, int64(1700000000), *stored.LastLogin)
	})
}
