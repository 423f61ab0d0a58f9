package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type CardRepo struct {
	db *sql.DB
}

func NewCardRepo(db *sql.DB) *CardRepo {
	return &CardRepo{db: db}
}

var cardFields = []string{"id", "deck_id", "user_id", "front", "back", "box", "review_count", "ctime", "mtime"}

func (r *CardRepo) Create(ctx context.Context, card *model.Card) error {
	data := map[string]interface{}{
		"id":           card.ID,
		"deck_id":      card.DeckID,
		"user_id":      card.UserID,
		"front":        card.Front,
		"back":         card.Back,
		"box":          card.Box,
		"review_count": card.ReviewCount,
		"ctime":        card.Ctime,
		"mtime":        card.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("cards", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *CardRepo) Get(ctx context.Context, userID, cardID string) (*model.Card, error) {
	where := map[string]interface{}{"id": cardID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("cards", where, cardFields)
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
	return scanCard(rows)
}

func (r *CardRepo) ListByDeck(ctx context.Context, userID, deckID string) ([]model.Card, error) {
	where := map[string]interface{}{"deck_id": deckID, "user_id": userID, "_orderby": "box asc, mtime asc"}
	sqlStr, args, err := builder.BuildSelect("cards", where, cardFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	return out, rows.Err()
}

func (r *CardRepo) Update(ctx context.Context, card *model.Card) error {
	where := map[string]interface{}{"id": card.ID, "user_id": card.UserID}
	update := map[string]interface{}{
		"front":        card.Front,
		"back":         card.Back,
		"box":          card.Box,
		"review_count": card.ReviewCount,
		"mtime":        card.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("cards", where, update)
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

func (r *CardRepo) Delete(ctx context.Context, userID, cardID string) error {
	where := map[string]interface{}{"id": cardID, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("cards", where)
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

func scanCard(rows *sql.Rows) (*model.Card, error) {
	var card model.Card
	if err := rows.Scan(&card.ID, &card.DeckID, &card.UserID, &card.Front, &card.Back,
		&card.Box, &card.ReviewCount, &card.Ctime, &card.Mtime); err != nil {
		return nil, err
	}
	return &card, nil
}
