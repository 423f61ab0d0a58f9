package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	zoomAuthURL  = "https://zoom.us/oauth/authorize"
	zoomTokenURL = "https://zoom.us/oauth/token"
	zoomAPIBase  = "https://api.zoom.us/v2"
)

// zoomProvider talks to the Zoom v2 API. The token endpoint expects
// HTTP basic client authentication, which x/oauth2 sends with
// AuthStyleInHeader.
type zoomProvider struct {
	*oauthConn
}

func newZoomProvider(args interface{}) (Provider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	client := apiClient(cfg.Client)
	return &zoomProvider{oauthConn: &oauthConn{
		name: "zoom",
		oc: &oauth2.Config{
			ClientID:     cfg.Config.ClientID,
			ClientSecret: cfg.Config.ClientSecret,
			RedirectURL:  cfg.Config.RedirectURL,
			Scopes:       cfg.Config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   pick(cfg.Config.AuthEndpoint, zoomAuthURL),
				TokenURL:  pick(cfg.Config.TokenEndpoint, zoomTokenURL),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client: client,
		api:    pick(cfg.Config.APIBase, zoomAPIBase),
	}}, nil
}

type zoomUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (z *zoomProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var user zoomUser
	if err := z.doJSON(ctx, accessToken, "GET", z.api+"/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &Profile{
		Provider:       z.name,
		ProviderUserID: user.ID,
		Email:          user.Email,
		DisplayName:    user.DisplayName,
	}, nil
}

type zoomMeeting struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Status    string `json:"status"`
	JoinURL   string `json:"join_url"`
}

type zoomMeetingList struct {
	Meetings []zoomMeeting `json:"meetings"`
}

func (z *zoomProvider) ListMeetings(ctx context.Context, accessToken string) ([]MeetingInfo, error) {
	var list zoomMeetingList
	if err := z.doJSON(ctx, accessToken, "GET", z.api+"/users/me/meetings", nil, &list); err != nil {
		return nil, err
	}
	out := make([]MeetingInfo, 0, len(list.Meetings))
	for _, m := range list.Meetings {
		out = append(out, zoomMeetingInfo(m))
	}
	return out, nil
}

func (z *zoomProvider) GetMeeting(ctx context.Context, accessToken, meetingID string) (*MeetingInfo, error) {
	var m zoomMeeting
	if err := z.doJSON(ctx, accessToken, "GET", z.api+"/meetings/"+meetingID, nil, &m); err != nil {
		return nil, err
	}
	info := zoomMeetingInfo(m)
	return &info, nil
}

func zoomMeetingInfo(m zoomMeeting) MeetingInfo {
	status := "waiting"
	switch m.Status {
	case "started":
		status = "started"
	case "finished", "ended":
		status = "ended"
	}
	var start int64
	if ts, err := time.Parse(time.RFC3339, m.StartTime); err == nil {
		start = ts.Unix()
	}
	return MeetingInfo{
		ExternalID:      fmt.Sprint(m.ID),
		Topic:           m.Topic,
		StartTime:       start,
		DurationMinutes: m.Duration,
		Status:          status,
		JoinURL:         m.JoinURL,
	}
}

type zoomParticipantList struct {
	Participants []struct {
		ID       string `json:"id"`
		UserName string `json:"user_name"`
		Email    string `json:"email"`
		JoinTime string `json:"join_time"`
	} `json:"participants"`
}

func (z *zoomProvider) ListParticipants(ctx context.Context, accessToken, meetingID string) ([]Participant, error) {
	var list zoomParticipantList
	url := z.api + "/metrics/meetings/" + meetingID + "/participants"
	if err := z.doJSON(ctx, accessToken, "GET", url, nil, &list); err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(list.Participants))
	for _, p := range list.Participants {
		var joined int64
		if ts, err := time.Parse(time.RFC3339, p.JoinTime); err == nil {
			joined = ts.Unix()
		}
		out = append(out, Participant{
			ID:       p.ID,
			Name:     p.UserName,
			Email:    p.Email,
			JoinedAt: joined,
		})
	}
	return out, nil
}

type zoomRecordingList struct {
	RecordingFiles []struct {
		FileType    string `json:"file_type"`
		DownloadURL string `json:"download_url"`
	} `json:"recording_files"`
}

func (z *zoomProvider) DownloadTranscript(ctx context.Context, accessToken, meetingID string) (*TranscriptFile, error) {
	var recordings zoomRecordingList
	url := z.api + "/meetings/" + meetingID + "/recordings"
	if err := z.doJSON(ctx, accessToken, "GET", url, nil, &recordings); err != nil {
		return nil, err
	}
	for _, file := range recordings.RecordingFiles {
		if !strings.EqualFold(file.FileType, "TRANSCRIPT") {
			continue
		}
		content, err := z.download(ctx, accessToken, file.DownloadURL)
		if err != nil {
			return nil, err
		}
		return &TranscriptFile{
			Name:    meetingID + ".vtt",
			Content: content,
		}, nil
	}
	return nil, errTranscriptNotReady(z.name)
}

func init() {
	Register("zoom", newZoomProvider)
}
