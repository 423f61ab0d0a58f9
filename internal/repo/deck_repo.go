package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type DeckRepo struct {
	db *sql.DB
}

func NewDeckRepo(db *sql.DB) *DeckRepo {
	return &DeckRepo{db: db}
}

var deckFields = []string{"id", "user_id", "name", "ctime", "mtime"}

func (r *DeckRepo) Create(ctx context.Context, deck *model.Deck) error {
	data := map[string]interface{}{
		"id":      deck.ID,
		"user_id": deck.UserID,
		"name":    deck.Name,
		"ctime":   deck.Ctime,
		"mtime":   deck.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("decks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DeckRepo) Get(ctx context.Context, userID, deckID string) (*model.Deck, error) {
	where := map[string]interface{}{"id": deckID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("decks", where, deckFields)
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
	var deck model.Deck
	if err := rows.Scan(&deck.ID, &deck.UserID, &deck.Name, &deck.Ctime, &deck.Mtime); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (r *DeckRepo) ListByUser(ctx context.Context, userID string) ([]model.Deck, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("decks", where, deckFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Deck
	for rows.Next() {
		var deck model.Deck
		if err := rows.Scan(&deck.ID, &deck.UserID, &deck.Name, &deck.Ctime, &deck.Mtime); err != nil {
			return nil, err
		}
		out = append(out, deck)
	}
	return out, rows.Err()
}

func (r *DeckRepo) Delete(ctx context.Context, userID, deckID string) error {
	where := map[string]interface{}{"id": deckID, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("decks", where)
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
	cardWhere := map[string]interface{}{"deck_id": deckID, "user_id": userID}
	sqlStr, args, err = builder.BuildDelete("cards", cardWhere)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
