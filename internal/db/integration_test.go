package db

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tubepost/internal/config"
	"tubepost/internal/types"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	var (
		container *postgres.PostgresContainer
		err       error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Skipf("skipping integration test, docker unavailable: %v", r)
			}
		}()
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("tubepost"),
			postgres.WithUsername("tubepost"),
			postgres.WithPassword("tubepost"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
	}()
	if err != nil {
		t.Skipf("skipping integration test, postgres container failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestUserRepository_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, config.DatabaseConfig{URL: config.SecretString(dsn), MaxConns: 4})
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool, slog.Default()))
	require.NoError(t, PoolProbe{Pool: pool}.Check(ctx))

	users := NewUserRepository(pool)
	settings := NewSettingsRepository(pool)

	t.Run("daily counters and credits", func(t *testing.T) {
		require.NoError(t, users.ResetDay(ctx, "free-1", "2026-03-04"))
		u, err := users.Get(ctx, "free-1")
		require.NoError(t, err)
		assert.Equal(t, types.PlanFree, u.Plan)
		assert.Equal(t, types.DefaultFreeCredits, u.Credits)

		for i := 1; i <= 3; i++ {
			daily, credits, err := users.CommitUsage(ctx, "free-1", "2026-03-04")
			require.NoError(t, err)
			assert.Equal(t, i, daily)
			assert.Equal(t, types.DefaultFreeCredits-i, credits)
		}

		// A new day restarts the count at the first commit.
		daily, _, err := users.CommitUsage(ctx, "free-1", "2026-03-05")
		require.NoError(t, err)
		assert.Equal(t, 1, daily)

		u, err = users.Get(ctx, "free-1")
		require.NoError(t, err)
		assert.Equal(t, types.UsageHistory{"2026-03-04": 3, "2026-03-05": 1}, u.UsageHistory)
		assert.Equal(t, "2026-03-05", u.LastUsageDate)

		require.NoError(t, users.ResetDay(ctx, "free-1", "2026-03-06"))
		u, err = users.Get(ctx, "free-1")
		require.NoError(t, err)
		assert.Equal(t, 0, u.DailyCount)
	})

	t.Run("pro never consumes credits", func(t *testing.T) {
		require.NoError(t, users.ResetDay(ctx, "pro-1", "2026-03-04"))
		require.NoError(t, users.UpgradePlan(ctx, "pro-1", types.PlanPro, types.UnlimitedCredits))

		_, credits, err := users.CommitUsage(ctx, "pro-1", "2026-03-04")
		require.NoError(t, err)
		assert.Equal(t, types.UnlimitedCredits, credits)
	})

	t.Run("credits clamp at zero", func(t *testing.T) {
		require.NoError(t, users.ResetDay(ctx, "broke-1", "2026-03-04"))
		for i := 0; i < types.DefaultFreeCredits+2; i++ {
			_, credits, err := users.CommitUsage(ctx, "broke-1", "2026-03-04")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, credits, 0)
		}
	})

	t.Run("connection lifecycle", func(t *testing.T) {
		ch := &types.ChannelInfo{Title: "Chan", Thumbnail: "https://t"}
		require.NoError(t, users.SaveConnection(ctx, "conn-1", []byte("sealed-1"), ch))
		require.NoError(t, users.UpdateCredential(ctx, "conn-1", []byte("sealed-2")))

		u, err := users.Get(ctx, "conn-1")
		require.NoError(t, err)
		assert.True(t, u.YouTubeConnected)
		assert.Equal(t, []byte("sealed-2"), u.SealedCredential)
		assert.Equal(t, ch, u.YouTubeChannel)

		require.NoError(t, users.Disconnect(ctx, "conn-1"))
		u, err = users.Get(ctx, "conn-1")
		require.NoError(t, err)
		assert.False(t, u.YouTubeConnected)
		assert.Nil(t, u.SealedCredential)
		assert.Nil(t, u.YouTubeChannel)
	})

	t.Run("profile and listing", func(t *testing.T) {
		require.NoError(t, users.UpsertProfile(ctx, "prof-1", types.Profile{Email: "a@b.c", Name: "Ana"}))
		require.NoError(t, users.UpsertProfile(ctx, "prof-1", types.Profile{CPF: "123"}))
		u, err := users.Get(ctx, "prof-1")
		require.NoError(t, err)
		assert.Equal(t, types.Profile{Email: "a@b.c", Name: "Ana", CPF: "123"}, u.Profile)

		list, err := users.List(ctx, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(list), 4)
	})

	t.Run("unknown user upgrade", func(t *testing.T) {
		err := users.UpgradePlan(ctx, "nobody", types.PlanPro, types.UnlimitedCredits)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
	})

	t.Run("price setting", func(t *testing.T) {
		got, err := settings.GetPriceMinor(ctx, 1290)
		require.NoError(t, err)
		assert.Equal(t, int64(1290), got)

		require.NoError(t, settings.SetPriceMinor(ctx, 2490))
		got, err = settings.GetPriceMinor(ctx, 1290)
		require.NoError(t, err)
		assert.Equal(t, int64(2490), got)
	})
}
