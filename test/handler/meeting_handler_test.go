package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/errcode"
)

func listMeetings(t *testing.T, router http.Handler, token, providerName string) []model.Meeting {
	t.Helper()
	resp, envelope := doJSON(t, router, http.MethodGet, "/api/v1/meetings?provider="+providerName, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)
	var data struct {
		Meetings []model.Meeting `json:"meetings"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	return data.Meetings
}

func meetingByExternalID(t *testing.T, meetings []model.Meeting, externalID string) model.Meeting {
	t.Helper()
	for _, m := range meetings {
		if m.ExternalID == externalID {
			return m
		}
	}
	t.Fatalf("meeting %s not found", externalID)
	return model.Meeting{}
}

func TestMeetingListAndStatus(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	token := registerUser(t, router, uniqueEmail("meet"))

	// list without a connection is rejected
	resp, envelope := doJSON(t, router, http.MethodGet, "/api/v1/meetings?provider=google-meet", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrNotConnected), envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/meetings", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrInvalid), envelope.Code)

	connectProvider(t, router, token, "google-meet")

	meetings := listMeetings(t, router, token, "google-meet")
	require.Len(t, meetings, 3)
	retro := meetingByExternalID(t, meetings, "demo-retro")
	require.Equal(t, model.MeetingEnded, retro.Status)

	// a second list reuses the synced rows, same ids
	again := listMeetings(t, router, token, "google-meet")
	require.Equal(t, retro.ID, meetingByExternalID(t, again, "demo-retro").ID)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/meetings/"+retro.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched model.Meeting
	require.NoError(t, json.Unmarshal(envelope.Data, &fetched))
	require.Equal(t, "Retrospective", fetched.Topic)

	resp, envelope = doJSON(t, router, http.MethodPut, "/api/v1/meetings/"+retro.ID+"/status", token, map[string]string{
		"status": model.MeetingStarted,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodPut, "/api/v1/meetings/"+retro.ID+"/status", token, map[string]string{
		"status": "paused",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrInvalid), envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/meetings/missing", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrNotFound), envelope.Code)
}

func TestMeetingTranscriptFlow(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	token := registerUser(t, router, uniqueEmail("transcript"))
	connectProvider(t, router, token, "google-meet")
	meetings := listMeetings(t, router, token, "google-meet")
	retro := meetingByExternalID(t, meetings, "demo-retro")
	standup := meetingByExternalID(t, meetings, "demo-standup")

	// nothing recorded for a running meeting yet
	resp, envelope := doJSON(t, router, http.MethodPost, "/api/v1/meetings/"+standup.ID+"/transcript", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrTranscriptNotReady), envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodPost, "/api/v1/meetings/"+retro.ID+"/transcript", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)
	var transcript model.Transcript
	require.NoError(t, json.Unmarshal(envelope.Data, &transcript))
	require.Equal(t, retro.ID, transcript.MeetingID)
	require.Equal(t, "en", transcript.Language)
	require.NotZero(t, transcript.WordCount)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/meetings/"+retro.ID+"/transcript", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(envelope.Data, &transcript))
	require.NotEmpty(t, transcript.FileKey)

	resp, _ = doJSON(t, router, http.MethodGet, "/api/v1/meetings/"+retro.ID+"/transcript/content", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, resp.Body.String(), "WEBVTT")
}

func TestMeetingMonitorFlow(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	token := registerUser(t, router, uniqueEmail("monitor"))
	connectProvider(t, router, token, "google-meet")
	meetings := listMeetings(t, router, token, "google-meet")
	standup := meetingByExternalID(t, meetings, "demo-standup")

	// not monitored yet
	resp, envelope := doJSON(t, router, http.MethodGet, "/api/v1/meetings/"+standup.ID+"/participants", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrNotFound), envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodPost, "/api/v1/meetings/"+standup.ID+"/monitor", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)

	// a repeated start replaces the running session instead of stacking
	resp, envelope = doJSON(t, router, http.MethodPost, "/api/v1/meetings/"+standup.ID+"/monitor", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)

	var snapshot struct {
		Participants []model.Participant `json:"participants"`
		Polls        int64               `json:"polls"`
		Active       bool                `json:"active"`
	}
	require.Eventually(t, func() bool {
		resp, envelope := doJSON(t, router, http.MethodGet, "/api/v1/meetings/"+standup.ID+"/participants", token, nil)
		if resp.Code != http.StatusOK || envelope.Code != 0 {
			return false
		}
		if err := json.Unmarshal(envelope.Data, &snapshot); err != nil {
			return false
		}
		return snapshot.Polls > 0 && len(snapshot.Participants) > 0
	}, 2*time.Second, 20*time.Millisecond)
	require.True(t, snapshot.Active)
	for _, p := range snapshot.Participants {
		require.NotEmpty(t, p.Name)
		require.NotZero(t, p.JoinedAt)
	}

	resp, envelope = doJSON(t, router, http.MethodDelete, "/api/v1/meetings/"+standup.ID+"/monitor", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/meetings/"+standup.ID+"/participants", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrNotFound), envelope.Code)
}
