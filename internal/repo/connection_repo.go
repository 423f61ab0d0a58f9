package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type ConnectionRepo struct {
	db *sql.DB
}

func NewConnectionRepo(db *sql.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

var connectionFields = []string{
	"id", "user_id", "provider", "access_token", "refresh_token",
	"expires_at", "provider_email", "ctime", "mtime",
}

func (r *ConnectionRepo) Upsert(ctx context.Context, conn *model.Connection) error {
	existing, err := r.Get(ctx, conn.UserID, conn.Provider)
	if err == appErr.ErrNotFound {
		return r.insert(ctx, conn)
	}
	if err != nil {
		return err
	}
	conn.ID = existing.ID
	return r.update(ctx, conn)
}

func (r *ConnectionRepo) insert(ctx context.Context, conn *model.Connection) error {
	data := map[string]interface{}{
		"id":             conn.ID,
		"user_id":        conn.UserID,
		"provider":       conn.Provider,
		"access_token":   conn.AccessToken,
		"refresh_token":  conn.RefreshToken,
		"expires_at":     conn.ExpiresAt,
		"provider_email": conn.ProviderEmail,
		"ctime":          conn.Ctime,
		"mtime":          conn.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("connections", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ConnectionRepo) update(ctx context.Context, conn *model.Connection) error {
	where := map[string]interface{}{"user_id": conn.UserID, "provider": conn.Provider}
	update := map[string]interface{}{
		"access_token":   conn.AccessToken,
		"refresh_token":  conn.RefreshToken,
		"expires_at":     conn.ExpiresAt,
		"provider_email": conn.ProviderEmail,
		"mtime":          conn.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("connections", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ConnectionRepo) Get(ctx context.Context, userID, provider string) (*model.Connection, error) {
	where := map[string]interface{}{"user_id": userID, "provider": provider}
	sqlStr, args, err := builder.BuildSelect("connections", where, connectionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanConnection(rows)
}

func (r *ConnectionRepo) ListByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "provider asc"}
	return r.list(ctx, where)
}

// ListExpiring returns connections whose expiry is before the given
// unix-millisecond stamp. Used by the background refresh job.
func (r *ConnectionRepo) ListExpiring(ctx context.Context, before int64) ([]model.Connection, error) {
	where := map[string]interface{}{"expires_at <": before}
	return r.list(ctx, where)
}

func (r *ConnectionRepo) list(ctx context.Context, where map[string]interface{}) ([]model.Connection, error) {
	sqlStr, args, err := builder.BuildSelect("connections", where, connectionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *conn)
	}
	return out, rows.Err()
}

func (r *ConnectionRepo) Delete(ctx context.Context, userID, provider string) error {
	where := map[string]interface{}{"user_id": userID, "provider": provider}
	sqlStr, args, err := builder.BuildDelete("connections", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanConnection(rows *sql.Rows) (*model.Connection, error) {
	var conn model.Connection
	if err := rows.Scan(&conn.ID, &conn.UserID, &conn.Provider, &conn.AccessToken,
		&conn.RefreshToken, &conn.ExpiresAt, &conn.ProviderEmail, &conn.Ctime, &conn.Mtime); err != nil {
		return nil, err
	}
	return &conn, nil
}
