package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	messaging "marketchat/internal/pkg/messaging/application/domain"
)

// PgUserDirectory reads user display data and writes presence transitions.
type PgUserDirectory struct {
	pool *pgxpool.Pool
}

func NewPgUserDirectory(pool *pgxpool.Pool) *PgUserDirectory {
	return &PgUserDirectory{pool: pool}
}

func (d *PgUserDirectory) GetUser(ctx context.Context, id string) (*messaging.User, error) {
	if d == nil || d.pool == nil {
		return nil, errors.New("PgUserDirectory: nil pool")
	}
	var u messaging.User
	var status string
	err := d.pool.QueryRow(ctx, `
		SELECT id, username, COALESCE(avatar, ''), status, last_active
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Avatar, &status, &u.LastActive)
	if err == pgx.ErrNoRows {
		return nil, messaging.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Status = messaging.PresenceStatus(status)
	return &u, nil
}

func (d *PgUserDirectory) GetUsers(ctx context.Context, ids []string) ([]messaging.User, error) {
	if d == nil || d.pool == nil {
		return nil, errors.New("PgUserDirectory: nil pool")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := d.pool.Query(ctx, `
		SELECT id, username, COALESCE(avatar, ''), status, last_active
		FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []messaging.User
	for rows.Next() {
		var u messaging.User
		var status string
		if err := rows.Scan(&u.ID, &u.Username, &u.Avatar, &status, &u.LastActive); err != nil {
			return nil, err
		}
		u.Status = messaging.PresenceStatus(status)
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func (d *PgUserDirectory) SetStatus(ctx context.Context, id string, status messaging.PresenceStatus, lastActive time.Time) error {
	if d == nil || d.pool == nil {
		return errors.New("PgUserDirectory: nil pool")
	}
	ct, err := d.pool.Exec(ctx, `
		UPDATE users SET status = $2, last_active = $3 WHERE id = $1
	`, id, string(status), lastActive)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return messaging.ErrUserNotFound
	}
	return nil
}
