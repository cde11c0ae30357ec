package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"tubepost/internal/types"
)

// UserRepository provides data access for the users table. It is the only
// component that reads or writes user records.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns defines the columns selected for user queries, in scanUser order.
const userColumns = `id, plan, credits, daily_count,
	COALESCE(to_char(last_usage_date, 'YYYY-MM-DD'), ''),
	usage_history, youtube_credentials, youtube_connected, youtube_channel,
	email, name, cpf, phone, created_at, updated_at`

// scanUser scans a single user row. JSONB columns are read as raw bytes and
// decoded through the types' Scanner implementations.
func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u       types.User
		plan    string
		history []byte
		channel []byte
	)
	err := row.Scan(
		&u.ID,
		&plan,
		&u.Credits,
		&u.DailyCount,
		&u.LastUsageDate,
		&history,
		&u.SealedCredential,
		&u.YouTubeConnected,
		&channel,
		&u.Profile.Email,
		&u.Profile.Name,
		&u.Profile.CPF,
		&u.Profile.Phone,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Plan = types.Plan(plan)
	if err := u.UsageHistory.Scan(nilIfEmpty(history)); err != nil {
		return nil, err
	}
	if len(channel) > 0 {
		var ch types.ChannelInfo
		if err := ch.Scan(channel); err != nil {
			return nil, err
		}
		u.YouTubeChannel = &ch
	}
	return &u, nil
}

func nilIfEmpty(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Get returns the user record, or not_found_user when none exists.
func (r *UserRepository) Get(ctx context.Context, id string) (*types.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// ResetDay creates the default record when absent and otherwise zeroes the
// daily counter if the stored usage date differs from today.
func (r *UserRepository) ResetDay(ctx context.Context, id, today string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, plan, credits, daily_count, last_usage_date)
		VALUES ($1, 'free', $2, 0, $3::date)
		ON CONFLICT (id) DO UPDATE
		SET daily_count = 0,
		    last_usage_date = EXCLUDED.last_usage_date,
		    updated_at = now()
		WHERE users.last_usage_date IS DISTINCT FROM EXCLUDED.last_usage_date`,
		id, types.DefaultFreeCredits, today,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to reset daily usage", err)
	}
	return nil
}

// commitUsageSQL records one successful action in a single statement: the
// daily counter (restarting at 1 on a new day), the per-day history and, for
// free plans only, one credit clamped at zero.
const commitUsageSQL = `
	UPDATE users SET
		daily_count = CASE
			WHEN last_usage_date IS DISTINCT FROM $2::date THEN 1
			ELSE daily_count + 1
		END,
		last_usage_date = $2::date,
		usage_history = jsonb_set(
			COALESCE(usage_history, '{}'::jsonb),
			ARRAY[$3::text],
			to_jsonb(COALESCE((usage_history ->> $3::text)::int, 0) + 1)
		),
		credits = CASE WHEN plan = 'free' THEN GREATEST(credits - 1, 0) ELSE credits END,
		updated_at = now()
	WHERE id = $1
	RETURNING daily_count, credits`

// CommitUsage applies the post-success counter update and returns the new
// daily count and credit balance.
func (r *UserRepository) CommitUsage(ctx context.Context, id, today string) (dailyCount, credits int, err error) {
	err = r.db.QueryRow(ctx, commitUsageSQL, id, today, today).Scan(&dailyCount, &credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return 0, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to commit usage", err)
	}
	return dailyCount, credits, nil
}

// SaveConnection stores a freshly sealed credential and the channel display
// data, creating the user record when needed.
func (r *UserRepository) SaveConnection(ctx context.Context, id string, sealed []byte, channel *types.ChannelInfo) error {
	var channelJSON []byte
	if channel != nil {
		var err error
		if channelJSON, err = json.Marshal(channel); err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode channel info", err)
		}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, plan, credits, youtube_credentials, youtube_connected, youtube_channel)
		VALUES ($1, 'free', $2, $3, TRUE, $4::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET youtube_credentials = EXCLUDED.youtube_credentials,
		    youtube_connected = TRUE,
		    youtube_channel = EXCLUDED.youtube_channel,
		    updated_at = now()`,
		id, types.DefaultFreeCredits, sealed, channelJSON,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save youtube connection", err)
	}
	return nil
}

// UpdateCredential replaces the sealed credential after a token refresh.
func (r *UserRepository) UpdateCredential(ctx context.Context, id string, sealed []byte) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET youtube_credentials = $2, updated_at = now() WHERE id = $1`,
		id, sealed,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update credential", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// Disconnect clears the stored credential and channel. Missing users are a
// no-op.
func (r *UserRepository) Disconnect(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET youtube_credentials = NULL, youtube_connected = FALSE,
		    youtube_channel = NULL, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to disconnect youtube", err)
	}
	return nil
}

// UpgradePlan sets the plan and credit balance of an existing user.
func (r *UserRepository) UpgradePlan(ctx context.Context, id string, plan types.Plan, credits int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET plan = $2, credits = $3, updated_at = now() WHERE id = $1`,
		id, string(plan), credits,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upgrade plan", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// UpsertProfile writes the billing profile. Empty fields keep their stored
// value.
func (r *UserRepository) UpsertProfile(ctx context.Context, id string, p types.Profile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, plan, credits, email, name, cpf, phone)
		VALUES ($1, 'free', $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    name  = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		    cpf   = COALESCE(NULLIF(EXCLUDED.cpf, ''), users.cpf),
		    phone = COALESCE(NULLIF(EXCLUDED.phone, ''), users.phone),
		    updated_at = now()`,
		id, types.DefaultFreeCredits, p.Email, p.Name, p.CPF, p.Phone,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save profile", err)
	}
	return nil
}

// List returns up to limit users, newest first.
func (r *UserRepository) List(ctx context.Context, limit int) ([]*types.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list users", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate users", err)
	}
	return users, nil
}
