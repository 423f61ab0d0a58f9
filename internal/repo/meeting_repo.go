package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type MeetingRepo struct {
	db *sql.DB
}

func NewMeetingRepo(db *sql.DB) *MeetingRepo {
	return &MeetingRepo{db: db}
}

var meetingFields = []string{
	"id", "user_id", "provider", "external_id", "topic", "start_time",
	"duration_minutes", "status", "join_url", "ctime", "mtime",
}

func (r *MeetingRepo) Upsert(ctx context.Context, meeting *model.Meeting) error {
	existing, err := r.GetByExternalID(ctx, meeting.UserID, meeting.Provider, meeting.ExternalID)
	if err == appErr.ErrNotFound {
		return r.insert(ctx, meeting)
	}
	if err != nil {
		return err
	}
	meeting.ID = existing.ID
	meeting.Ctime = existing.Ctime
	where := map[string]interface{}{"id": existing.ID}
	update := map[string]interface{}{
		"topic":            meeting.Topic,
		"start_time":       meeting.StartTime,
		"duration_minutes": meeting.DurationMinutes,
		"status":           meeting.Status,
		"join_url":         meeting.JoinURL,
		"mtime":            meeting.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("meetings", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MeetingRepo) insert(ctx context.Context, meeting *model.Meeting) error {
	data := map[string]interface{}{
		"id":               meeting.ID,
		"user_id":          meeting.UserID,
		"provider":         meeting.Provider,
		"external_id":      meeting.ExternalID,
		"topic":            meeting.Topic,
		"start_time":       meeting.StartTime,
		"duration_minutes": meeting.DurationMinutes,
		"status":           meeting.Status,
		"join_url":         meeting.JoinURL,
		"ctime":            meeting.Ctime,
		"mtime":            meeting.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("meetings", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil && dbutil.IsConflict(err) {
		return appErr.ErrConflict
	}
	return err
}

func (r *MeetingRepo) GetByID(ctx context.Context, userID, meetingID string) (*model.Meeting, error) {
	return r.getOne(ctx, map[string]interface{}{"id": meetingID, "user_id": userID})
}

func (r *MeetingRepo) GetByExternalID(ctx context.Context, userID, provider, externalID string) (*model.Meeting, error) {
	return r.getOne(ctx, map[string]interface{}{
		"user_id":     userID,
		"provider":    provider,
		"external_id": externalID,
	})
}

func (r *MeetingRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Meeting, error) {
	sqlStr, args, err := builder.BuildSelect("meetings", where, meetingFields)
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
	return scanMeeting(rows)
}

func (r *MeetingRepo) ListByUser(ctx context.Context, userID, provider string) ([]model.Meeting, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "start_time desc"}
	if provider != "" {
		where["provider"] = provider
	}
	sqlStr, args, err := builder.BuildSelect("meetings", where, meetingFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *meeting)
	}
	return out, rows.Err()
}

func (r *MeetingRepo) UpdateStatus(ctx context.Context, userID, meetingID, status string, mtime int64) error {
	where := map[string]interface{}{"id": meetingID, "user_id": userID}
	update := map[string]interface{}{"status": status, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("meetings", where, update)
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

func scanMeeting(rows *sql.Rows) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := rows.Scan(&meeting.ID, &meeting.UserID, &meeting.Provider, &meeting.ExternalID,
		&meeting.Topic, &meeting.StartTime, &meeting.DurationMinutes, &meeting.Status,
		&meeting.JoinURL, &meeting.Ctime, &meeting.Mtime); err != nil {
		return nil, err
	}
	return &meeting, nil
}
