package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

func newZoomForTest(t *testing.T, tokenURL, apiBase string) Provider {
	t.Helper()
	p, err := New("zoom", Args{
		Config: Config{
			ClientID:      "client-id",
			ClientSecret:  "client-secret",
			RedirectURL:   "http://localhost/callback",
			Scopes:        []string{"meeting:read"},
			AuthEndpoint:  tokenURL,
			TokenEndpoint: tokenURL,
			APIBase:       apiBase,
		},
		Client: &http.Client{Timeout: 5 * time.Second},
	})
	require.NoError(t, err)
	return p
}

func TestZoomExchangeSendsBasicAuth(t *testing.T) {
	var sawBasicAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, sawBasicAuth = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	p := newZoomForTest(t, srv.URL, srv.URL)
	before := time.Now().UnixMilli()
	token, err := p.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	require.True(t, sawBasicAuth)
	require.Equal(t, "at-1", token.AccessToken)
	require.Equal(t, "rt-1", token.RefreshToken)

	after := time.Now().UnixMilli()
	require.GreaterOrEqual(t, token.ExpiresAt, before+3599*1000)
	require.LessOrEqual(t, token.ExpiresAt, after+3601*1000)
}

func TestZoomExchangeRejectsEmptyCode(t *testing.T) {
	p := newZoomForTest(t, "http://localhost:1", "http://localhost:1")
	_, err := p.Exchange(context.Background(), "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestZoomRefreshRotatesToken(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		require.Equal(t, "rt-old", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-new","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	p := newZoomForTest(t, srv.URL, srv.URL)
	token, err := p.Refresh(context.Background(), "rt-old")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, "at-2", token.AccessToken)
	require.Equal(t, "rt-new", token.RefreshToken)
}

func TestZoomRefreshInvalidGrantIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	p := newZoomForTest(t, srv.URL, srv.URL)
	_, err := p.Refresh(context.Background(), "rt-revoked")
	require.ErrorIs(t, err, appErr.ErrUpstreamAuth)
}

func TestZoomRefreshEmptyToken(t *testing.T) {
	p := newZoomForTest(t, "http://localhost:1", "http://localhost:1")
	_, err := p.Refresh(context.Background(), "")
	require.ErrorIs(t, err, appErr.ErrUpstreamAuth)
}

func TestZoomAuthURLRequiresClientConfig(t *testing.T) {
	p, err := New("zoom", Args{})
	require.NoError(t, err)
	_, err = p.AuthURL("state-1")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestZoomAPIErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/me":
			w.WriteHeader(http.StatusUnauthorized)
		case "/meetings/m-1/recordings":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"recording_files":[{"file_type":"MP4","download_url":"x"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newZoomForTest(t, srv.URL, srv.URL)
	_, err := p.FetchProfile(context.Background(), "at")
	require.ErrorIs(t, err, appErr.ErrUpstreamAuth)

	source, ok := p.(MeetingSource)
	require.True(t, ok)
	_, err = source.DownloadTranscript(context.Background(), "at", "m-1")
	require.ErrorIs(t, err, appErr.ErrTranscriptNotReady)

	_, err = source.GetMeeting(context.Background(), "at", "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestZoomListMeetings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meetings":[{"id":123,"topic":"standup","start_time":"2026-09-01T10:00:00Z","duration":30,"status":"started","join_url":"https://zoom.us/j/123"}]}`))
	}))
	defer srv.Close()

	p := newZoomForTest(t, srv.URL, srv.URL)
	source := p.(MeetingSource)
	meetings, err := source.ListMeetings(context.Background(), "at")
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	require.Equal(t, "123", meetings[0].ExternalID)
	require.Equal(t, "started", meetings[0].Status)
	require.Equal(t, 30, meetings[0].DurationMinutes)
	require.NotZero(t, meetings[0].StartTime)
}
