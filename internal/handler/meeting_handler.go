package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowcraft-app/flowcraft/internal/filestore"
	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/monitor"
	"github.com/flowcraft-app/flowcraft/internal/pkg/errcode"
	"github.com/flowcraft-app/flowcraft/internal/pkg/response"
	"github.com/flowcraft-app/flowcraft/internal/service"
)

type MeetingHandler struct {
	meetings *service.MeetingService
	monitor  *monitor.Monitor
	files    filestore.Store
}

func NewMeetingHandler(meetings *service.MeetingService, mon *monitor.Monitor, files filestore.Store) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, monitor: mon, files: files}
}

func (h *MeetingHandler) List(c *gin.Context) {
	providerName := strings.ToLower(c.Query("provider"))
	if providerName == "" {
		response.Error(c, errcode.ErrInvalid, "provider query is required")
		return
	}
	meetings, err := h.meetings.List(c.Request.Context(), getUserID(c), providerName)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"meetings": meetings})
}

func (h *MeetingHandler) Get(c *gin.Context) {
	meeting, err := h.meetings.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, meeting)
}

func (h *MeetingHandler) Refresh(c *gin.Context) {
	meeting, err := h.meetings.Refresh(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, meeting)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *MeetingHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.meetings.UpdateStatus(c.Request.Context(), getUserID(c), c.Param("id"), req.Status); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// StartMonitor begins background participant polling for a meeting.
func (h *MeetingHandler) StartMonitor(c *gin.Context) {
	userID := getUserID(c)
	meeting, err := h.meetings.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	h.monitor.Start(userID, meeting.ID, meeting.Provider, meeting.ExternalID)
	response.Success(c, gin.H{"monitoring": true})
}

func (h *MeetingHandler) StopMonitor(c *gin.Context) {
	h.monitor.Stop(getUserID(c), c.Param("id"))
	response.Success(c, gin.H{"monitoring": false})
}

// Participants serves the monitor's latest snapshot without waiting
// for the next poll.
func (h *MeetingHandler) Participants(c *gin.Context) {
	userID := getUserID(c)
	snapshot, ok := h.monitor.Latest(userID, c.Param("id"))
	if !ok {
		response.Error(c, errcode.ErrNotFound, "meeting is not monitored")
		return
	}
	participants := make([]model.Participant, 0, len(snapshot.Participants))
	for _, p := range snapshot.Participants {
		participants = append(participants, model.Participant{
			ID:       p.ID,
			Name:     p.Name,
			Email:    p.Email,
			JoinedAt: p.JoinedAt,
		})
	}
	response.Success(c, gin.H{
		"participants": participants,
		"polled_at":    snapshot.PolledAt,
		"polls":        snapshot.Polls,
		"last_error":   snapshot.LastErr,
		"active":       h.monitor.Active(userID, c.Param("id")),
	})
}

// PullTranscript fetches the provider transcript and stores it.
func (h *MeetingHandler) PullTranscript(c *gin.Context) {
	transcript, err := h.meetings.PullTranscript(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, transcript)
}

func (h *MeetingHandler) GetTranscript(c *gin.Context) {
	transcript, err := h.meetings.GetTranscript(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, transcript)
}

// TranscriptContent streams the stored transcript text.
func (h *MeetingHandler) TranscriptContent(c *gin.Context) {
	transcript, err := h.meetings.GetTranscript(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	file, err := h.files.Open(c.Request.Context(), transcript.FileKey)
	if err != nil {
		response.Error(c, errcode.ErrNotFound, "transcript file missing")
		return
	}
	defer file.Close()
	c.Header("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.Copy(c.Writer, file)
}
