package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/errcode"
	"github.com/flowcraft-app/flowcraft/internal/pkg/response"
	"github.com/flowcraft-app/flowcraft/internal/service"
)

type DraftHandler struct {
	drafts   *service.DraftService
	meetings *service.MeetingService
}

func NewDraftHandler(drafts *service.DraftService, meetings *service.MeetingService) *DraftHandler {
	return &DraftHandler{drafts: drafts, meetings: meetings}
}

type draftRequest struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
	MeetingID  string   `json:"meeting_id"`
	Generated  bool     `json:"generated"`
}

func (h *DraftHandler) Create(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	draft, err := h.drafts.Create(c.Request.Context(), getUserID(c),
		req.Subject, req.Body, req.Recipients, req.MeetingID, req.Generated)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

type generateDraftRequest struct {
	MeetingID  string   `json:"meeting_id"`
	Recipients []string `json:"recipients"`
}

// Generate creates a templated follow-up draft, optionally tied to a
// stored meeting.
func (h *DraftHandler) Generate(c *gin.Context) {
	var req generateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	userID := getUserID(c)
	var meeting *model.Meeting
	if req.MeetingID != "" {
		found, err := h.meetings.Get(c.Request.Context(), userID, req.MeetingID)
		if err != nil {
			handleError(c, err)
			return
		}
		meeting = found
	}
	draft, err := h.drafts.Generate(c.Request.Context(), userID, meeting, req.Recipients)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := h.drafts.List(c.Request.Context(), getUserID(c), c.Query("status"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"drafts": drafts})
}

func (h *DraftHandler) Get(c *gin.Context) {
	draft, err := h.drafts.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Update(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	draft, err := h.drafts.Edit(c.Request.Context(), getUserID(c), c.Param("id"),
		req.Subject, req.Body, req.Recipients)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Submit(c *gin.Context) {
	draft, err := h.drafts.Submit(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Approve(c *gin.Context) {
	draft, err := h.drafts.Approve(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Reject(c *gin.Context) {
	draft, err := h.drafts.Reject(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Send(c *gin.Context) {
	draft, err := h.drafts.Send(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, draft)
}

func (h *DraftHandler) Delete(c *gin.Context) {
	if err := h.drafts.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
