package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"agora.events/internal/identity"
)

// UserCache implements identity.Cache on PostgreSQL. The user record is
// stored as an opaque JSON blob keyed by token, with foreign_id as the
// de-duplication key.
type UserCache struct {
	db *sql.DB
}

var _ identity.Cache = (*UserCache)(nil)

// NewUserCache wraps an open database handle.
func NewUserCache(db *sql.DB) *UserCache {
	return &UserCache{db: db}
}

func (c *UserCache) FindByToken(ctx context.Context, token string) (*identity.CachedIdentity, error) {
	row := c.db.QueryRowContext(ctx,
		`select token, foreign_id, user_data, cached_at from user_cache where token = $1`, token)

	var (
		entry    identity.CachedIdentity
		userData []byte
		cachedAt time.Time
	)
	err := row.Scan(&entry.Token, &entry.ForeignID, &userData, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entry.CachedAt = cachedAt
	entry.User = &identity.UserRecord{}
	if err := json.Unmarshal(userData, entry.User); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *UserCache) ReplaceByForeignID(ctx context.Context, foreignID int64, entry *identity.CachedIdentity) error {
	userData, err := json.Marshal(entry.User)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`delete from user_cache where foreign_id = $1`, foreignID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into user_cache(token, foreign_id, user_data, cached_at)
		values ($1,$2,$3,$4)
		on conflict (token) do update
		set foreign_id = excluded.foreign_id,
		    user_data = excluded.user_data,
		    cached_at = excluded.cached_at
	`, entry.Token, foreignID, userData, entry.CachedAt.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}
