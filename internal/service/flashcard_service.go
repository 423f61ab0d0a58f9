package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flowcraft-app/flowcraft/internal/model"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/timeutil"
	"github.com/flowcraft-app/flowcraft/internal/repo"
)

const maxBox = 5

// FlashcardService keeps decks of cards on a Leitner schedule. A
// correct review promotes the card one box, a wrong one sends it back
// to box 1.
type FlashcardService struct {
	decks *repo.DeckRepo
	cards *repo.CardRepo
}

func NewFlashcardService(decks *repo.DeckRepo, cards *repo.CardRepo) *FlashcardService {
	return &FlashcardService{decks: decks, cards: cards}
}

func (s *FlashcardService) CreateDeck(ctx context.Context, userID, name string) (*model.Deck, error) {
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	deck := &model.Deck{
		ID:     newID(),
		UserID: userID,
		Name:   name,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.decks.Create(ctx, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

func (s *FlashcardService) ListDecks(ctx context.Context, userID string) ([]model.Deck, error) {
	return s.decks.ListByUser(ctx, userID)
}

func (s *FlashcardService) DeleteDeck(ctx context.Context, userID, deckID string) error {
	return s.decks.Delete(ctx, userID, deckID)
}

func (s *FlashcardService) AddCard(ctx context.Context, userID, deckID, front, back string) (*model.Card, error) {
	if front == "" {
		return nil, appErr.ErrInvalid
	}
	if _, err := s.decks.Get(ctx, userID, deckID); err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	card := &model.Card{
		ID:     newID(),
		DeckID: deckID,
		UserID: userID,
		Front:  front,
		Back:   back,
		Box:    1,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// GenerateFromMeeting seeds a deck with recall cards about one
// meeting. Card text comes from fixed templates over the meeting row.
func (s *FlashcardService) GenerateFromMeeting(ctx context.Context, userID, deckID string, meeting *model.Meeting) ([]model.Card, error) {
	if meeting == nil {
		return nil, appErr.ErrInvalid
	}
	if _, err := s.decks.Get(ctx, userID, deckID); err != nil {
		return nil, err
	}
	day := time.Unix(meeting.StartTime, 0).Format("Jan 2, 2006")
	seeds := []struct {
		front string
		back  string
	}{
		{fmt.Sprintf("What was the topic of the meeting on %s?", day), meeting.Topic},
		{fmt.Sprintf("How long was %q scheduled for?", meeting.Topic), fmt.Sprintf("%d minutes", meeting.DurationMinutes)},
		{fmt.Sprintf("Which platform hosted %q?", meeting.Topic), meeting.Provider},
	}
	now := timeutil.NowUnix()
	out := make([]model.Card, 0, len(seeds))
	for _, seed := range seeds {
		card := &model.Card{
			ID:     newID(),
			DeckID: deckID,
			UserID: userID,
			Front:  seed.front,
			Back:   seed.back,
			Box:    1,
			Ctime:  now,
			Mtime:  now,
		}
		if err := s.cards.Create(ctx, card); err != nil {
			return nil, err
		}
		out = append(out, *card)
	}
	return out, nil
}

func (s *FlashcardService) ListCards(ctx context.Context, userID, deckID string) ([]model.Card, error) {
	if _, err := s.decks.Get(ctx, userID, deckID); err != nil {
		return nil, err
	}
	return s.cards.ListByDeck(ctx, userID, deckID)
}

// Review records one answer and moves the card to its next box.
func (s *FlashcardService) Review(ctx context.Context, userID, cardID string, correct bool) (*model.Card, error) {
	card, err := s.cards.Get(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	card.Box = nextBox(card.Box, correct)
	card.ReviewCount++
	card.Mtime = timeutil.NowUnix()
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *FlashcardService) DeleteCard(ctx context.Context, userID, cardID string) error {
	return s.cards.Delete(ctx, userID, cardID)
}

func nextBox(box int, correct bool) int {
	if !correct {
		return 1
	}
	if box < 1 {
		box = 1
	}
	if box >= maxBox {
		return maxBox
	}
	return box + 1
}
