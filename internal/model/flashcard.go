package model

type Deck struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}

// Card.Box is the Leitner box, 1..5. A correct review moves the card
// one box up, a wrong one sends it back to box 1.
type Card struct {
	ID          string `json:"id"`
	DeckID      string `json:"deck_id"`
	UserID      string `json:"user_id"`
	Front       string `json:"front"`
	Back        string `json:"back"`
	Box         int    `json:"box"`
	ReviewCount int    `json:"review_count"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}
