package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flowcraft-app/flowcraft/internal/pkg/errcode"
	"github.com/flowcraft-app/flowcraft/internal/pkg/response"
	"github.com/flowcraft-app/flowcraft/internal/service"
)

type FlashcardHandler struct {
	flashcards *service.FlashcardService
	meetings   *service.MeetingService
}

func NewFlashcardHandler(flashcards *service.FlashcardService, meetings *service.MeetingService) *FlashcardHandler {
	return &FlashcardHandler{flashcards: flashcards, meetings: meetings}
}

type deckRequest struct {
	Name string `json:"name"`
}

func (h *FlashcardHandler) CreateDeck(c *gin.Context) {
	var req deckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	deck, err := h.flashcards.CreateDeck(c.Request.Context(), getUserID(c), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, deck)
}

func (h *FlashcardHandler) ListDecks(c *gin.Context) {
	decks, err := h.flashcards.ListDecks(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"decks": decks})
}

func (h *FlashcardHandler) DeleteDeck(c *gin.Context) {
	if err := h.flashcards.DeleteDeck(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type cardRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (h *FlashcardHandler) AddCard(c *gin.Context) {
	var req cardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	card, err := h.flashcards.AddCard(c.Request.Context(), getUserID(c), c.Param("id"), req.Front, req.Back)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, card)
}

func (h *FlashcardHandler) ListCards(c *gin.Context) {
	cards, err := h.flashcards.ListCards(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"cards": cards})
}

type generateCardsRequest struct {
	MeetingID string `json:"meeting_id"`
}

// GenerateCards fills a deck with templated recall cards for a meeting.
func (h *FlashcardHandler) GenerateCards(c *gin.Context) {
	var req generateCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" {
		response.Error(c, errcode.ErrInvalid, "meeting_id is required")
		return
	}
	userID := getUserID(c)
	meeting, err := h.meetings.Get(c.Request.Context(), userID, req.MeetingID)
	if err != nil {
		handleError(c, err)
		return
	}
	cards, err := h.flashcards.GenerateFromMeeting(c.Request.Context(), userID, c.Param("id"), meeting)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"cards": cards})
}

type reviewRequest struct {
	Correct bool `json:"correct"`
}

func (h *FlashcardHandler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	card, err := h.flashcards.Review(c.Request.Context(), getUserID(c), c.Param("id"), req.Correct)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, card)
}

func (h *FlashcardHandler) DeleteCard(c *gin.Context) {
	if err := h.flashcards.DeleteCard(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
