package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

var transcriptFields = []string{"id", "meeting_id", "user_id", "file_key", "language", "word_count", "ctime"}

func (r *TranscriptRepo) Upsert(ctx context.Context, transcript *model.Transcript) error {
	existing, err := r.GetByMeeting(ctx, transcript.UserID, transcript.MeetingID)
	if err == appErr.ErrNotFound {
		data := map[string]interface{}{
			"id":         transcript.ID,
			"meeting_id": transcript.MeetingID,
			"user_id":    transcript.UserID,
			"file_key":   transcript.FileKey,
			"language":   transcript.Language,
			"word_count": transcript.WordCount,
			"ctime":      transcript.Ctime,
		}
		sqlStr, args, buildErr := builder.BuildInsert("transcripts", []map[string]interface{}{data})
		if buildErr != nil {
			return buildErr
		}
		sqlStr, args = dbutil.Finalize(sqlStr, args)
		_, execErr := r.db.ExecContext(ctx, sqlStr, args...)
		return execErr
	}
	if err != nil {
		return err
	}
	transcript.ID = existing.ID
	where := map[string]interface{}{"id": existing.ID}
	update := map[string]interface{}{
		"file_key":   transcript.FileKey,
		"language":   transcript.Language,
		"word_count": transcript.WordCount,
	}
	sqlStr, args, err := builder.BuildUpdate("transcripts", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *TranscriptRepo) GetByMeeting(ctx context.Context, userID, meetingID string) (*model.Transcript, error) {
	where := map[string]interface{}{"user_id": userID, "meeting_id": meetingID}
	sqlStr, args, err := builder.BuildSelect("transcripts", where, transcriptFields)
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
	var transcript model.Transcript
	if err := rows.Scan(&transcript.ID, &transcript.MeetingID, &transcript.UserID,
		&transcript.FileKey, &transcript.Language, &transcript.WordCount, &transcript.Ctime); err != nil {
		return nil, err
	}
	return &transcript, nil
}
