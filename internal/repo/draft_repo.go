package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type DraftRepo struct {
	db *sql.DB
}

func NewDraftRepo(db *sql.DB) *DraftRepo {
	return &DraftRepo{db: db}
}

var draftFields = []string{
	"id", "user_id", "subject", "body", "recipients", "status",
	"generated", "meeting_id", "ctime", "mtime",
}

func (r *DraftRepo) Create(ctx context.Context, draft *model.EmailDraft) error {
	generated := 0
	if draft.Generated {
		generated = 1
	}
	data := map[string]interface{}{
		"id":         draft.ID,
		"user_id":    draft.UserID,
		"subject":    draft.Subject,
		"body":       draft.Body,
		"recipients": strings.Join(draft.Recipients, ","),
		"status":     draft.Status,
		"generated":  generated,
		"meeting_id": draft.MeetingID,
		"ctime":      draft.Ctime,
		"mtime":      draft.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("email_drafts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DraftRepo) Get(ctx context.Context, userID, draftID string) (*model.EmailDraft, error) {
	where := map[string]interface{}{"id": draftID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("email_drafts", where, draftFields)
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
	return scanDraft(rows)
}

func (r *DraftRepo) ListByUser(ctx context.Context, userID, status string) ([]model.EmailDraft, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "mtime desc"}
	if status != "" {
		where["status"] = status
	}
	sqlStr, args, err := builder.BuildSelect("email_drafts", where, draftFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.EmailDraft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *draft)
	}
	return out, rows.Err()
}

func (r *DraftRepo) Update(ctx context.Context, draft *model.EmailDraft) error {
	where := map[string]interface{}{"id": draft.ID, "user_id": draft.UserID}
	update := map[string]interface{}{
		"subject":    draft.Subject,
		"body":       draft.Body,
		"recipients": strings.Join(draft.Recipients, ","),
		"status":     draft.Status,
		"mtime":      draft.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("email_drafts", where, update)
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

func (r *DraftRepo) Delete(ctx context.Context, userID, draftID string) error {
	where := map[string]interface{}{"id": draftID, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("email_drafts", where)
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

// DeleteStale removes drafts in the given status untouched since the
// cutoff. Used by the cleanup job.
func (r *DraftRepo) DeleteStale(ctx context.Context, status string, before int64) (int64, error) {
	where := map[string]interface{}{"status": status, "mtime <": before}
	sqlStr, args, err := builder.BuildDelete("email_drafts", where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanDraft(rows *sql.Rows) (*model.EmailDraft, error) {
	var draft model.EmailDraft
	var recipients string
	var generated int
	if err := rows.Scan(&draft.ID, &draft.UserID, &draft.Subject, &draft.Body,
		&recipients, &draft.Status, &generated, &draft.MeetingID, &draft.Ctime, &draft.Mtime); err != nil {
		return nil, err
	}
	if recipients != "" {
		draft.Recipients = strings.Split(recipients, ",")
	}
	draft.Generated = generated != 0
	return &draft, nil
}
