package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tubepost/internal/types"
)

// userRowFn fills scan destinations in userColumns order.
func userRowFn(plan string, credits, daily int, date, history, channel string, sealed []byte) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = "uid-1"
		*dest[1].(*string) = plan
		*dest[2].(*int) = credits
		*dest[3].(*int) = daily
		*dest[4].(*string) = date
		if history != "" {
			*dest[5].(*[]byte) = []byte(history)
		}
		*dest[6].(*[]byte) = sealed
		*dest[7].(*bool) = sealed != nil
		if channel != "" {
			*dest[8].(*[]byte) = []byte(channel)
		}
		*dest[9].(*string) = "ana@example.com"
		*dest[10].(*string) = "Ana"
		*dest[11].(*string) = ""
		*dest[12].(*string) = ""
		*dest[13].(*time.Time) = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		*dest[14].(*time.Time) = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		return nil
	}
}

func TestUserRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes jsonb columns", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		row := &mockRow{scanFn: userRowFn("free", 7, 3, "2026-03-04",
			`{"2026-03-04":3}`, `{"title":"Chan","thumbnail":"https://t"}`, []byte{1, 2, 3})}
		db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"uid-1"}).Return(row)

		u, err := repo.Get(ctx, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, types.PlanFree, u.Plan)
		assert.Equal(t, 7, u.Credits)
		assert.Equal(t, 3, u.DailyCount)
		assert.Equal(t, "2026-03-04", u.LastUsageDate)
		assert.Equal(t, types.UsageHistory{"2026-03-04": 3}, u.UsageHistory)
		require.NotNil(t, u.YouTubeChannel)
		assert.Equal(t, "Chan", u.YouTubeChannel.Title)
		assert.True(t, u.YouTubeConnected)
		assert.Equal(t, []byte{1, 2, 3}, u.SealedCredential)
		assert.Equal(t, "ana@example.com", u.Profile.Email)
	})

	t.Run("null jsonb yields empty history and no channel", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		row := &mockRow{scanFn: userRowFn("pro", types.UnlimitedCredits, 0, "", "", "", nil)}
		db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"uid-1"}).Return(row)

		u, err := repo.Get(ctx, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, types.PlanPro, u.Plan)
		assert.NotNil(t, u.UsageHistory)
		assert.Empty(t, u.UsageHistory)
		assert.Nil(t, u.YouTubeChannel)
		assert.False(t, u.YouTubeConnected)
	})

	t.Run("missing row", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"ghost"}).
			Return(&mockRow{scanErr: pgx.ErrNoRows})

		_, err := repo.Get(ctx, "ghost")
		assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
	})

	t.Run("driver error", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"uid-1"}).
			Return(&mockRow{scanErr: errors.New("conn reset")})

		_, err := repo.Get(ctx, "uid-1")
		assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
	})
}

func TestUserRepository_ResetDay(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "ON CONFLICT (id) DO UPDATE") &&
			strings.Contains(sql, "IS DISTINCT FROM")
	}), []any{"uid-1", types.DefaultFreeCredits, "2026-03-05"}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.ResetDay(ctx, "uid-1", "2026-03-05"))
	db.AssertExpectations(t)
}

func TestUserRepository_CommitUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("single statement returns new counters", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		row := &mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*int) = 4
			*dest[1].(*int) = 6
			return nil
		}}
		db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
			return strings.HasPrefix(strings.TrimSpace(sql), "UPDATE users") &&
				strings.Contains(sql, "GREATEST(credits - 1, 0)") &&
				strings.Contains(sql, "RETURNING daily_count, credits")
		}), []any{"uid-1", "2026-03-05", "2026-03-05"}).Return(row)

		daily, credits, err := repo.CommitUsage(ctx, "uid-1", "2026-03-05")
		require.NoError(t, err)
		assert.Equal(t, 4, daily)
		assert.Equal(t, 6, credits)
		db.AssertNumberOfCalls(t, "QueryRow", 1)
	})

	t.Run("unknown user", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		db.On("QueryRow", ctx, mock.Anything, mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

		_, _, err := repo.CommitUsage(ctx, "ghost", "2026-03-05")
		assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
	})
}

func TestUserRepository_SaveConnection(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{"uid-1", types.DefaultFreeCredits, []byte("sealed"), []byte(`{"title":"Chan","thumbnail":"t"}`)}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.SaveConnection(ctx, "uid-1", []byte("sealed"), &types.ChannelInfo{Title: "Chan", Thumbnail: "t"})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestUserRepository_SaveConnection_NilChannel(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{"uid-1", types.DefaultFreeCredits, []byte("sealed"), []byte(nil)}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.SaveConnection(ctx, "uid-1", []byte("sealed"), nil))
	db.AssertExpectations(t)
}

func TestUserRepository_UpgradePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"uid-1", "pro", types.UnlimitedCredits}).
			Return(pgconn.NewCommandTag("UPDATE 1"), nil)

		require.NoError(t, repo.UpgradePlan(ctx, "uid-1", types.PlanPro, types.UnlimitedCredits))
	})

	t.Run("no rows", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewUserRepository(db)
		db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 0"), nil)

		err := repo.UpgradePlan(ctx, "ghost", types.PlanPro, types.UnlimitedCredits)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
	})
}

func TestUserRepository_UpdateCredential_NoRows(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.UpdateCredential(ctx, "ghost", []byte("x"))
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
}

func TestUserRepository_Disconnect(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "youtube_credentials = NULL")
	}), []any{"uid-1"}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, repo.Disconnect(ctx, "uid-1"))
	db.AssertExpectations(t)
}

func TestUserRepository_UpsertProfile_DBError(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("boom"))

	err := repo.UpsertProfile(ctx, "uid-1", types.Profile{Name: "Ana"})
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}

func TestUserRepository_List_QueryError(t *testing.T) {
	ctx := context.Background()
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{50}).Return(nil, errors.New("boom"))

	_, err := repo.List(ctx, 50)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}
