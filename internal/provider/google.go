package provider

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleCalendarAPI = "https://www.googleapis.com/calendar/v3"
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// googleMeetProvider reads Meet meetings off the primary Google
// calendar: an event with a hangout link is a meeting. Live transcript
// download is not part of the Calendar API, so transcripts always
// report not-ready here.
type googleMeetProvider struct {
	*oauthConn
	userinfo string
}

func newGoogleMeetProvider(args interface{}) (Provider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	client := apiClient(cfg.Client)
	api := pick(cfg.Config.APIBase, googleCalendarAPI)
	userinfo := googleUserinfoURL
	if cfg.Config.APIBase != "" {
		userinfo = cfg.Config.APIBase + "/userinfo"
	}
	return &googleMeetProvider{
		oauthConn: &oauthConn{
			name: "google-meet",
			oc: &oauth2.Config{
				ClientID:     cfg.Config.ClientID,
				ClientSecret: cfg.Config.ClientSecret,
				RedirectURL:  cfg.Config.RedirectURL,
				Scopes:       cfg.Config.Scopes,
				Endpoint: oauth2.Endpoint{
					AuthURL:  pick(cfg.Config.AuthEndpoint, googleAuthURL),
					TokenURL: pick(cfg.Config.TokenEndpoint, googleTokenURL),
				},
			},
			client:   client,
			api:      api,
			authOpts: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce},
		},
		userinfo: userinfo,
	}, nil
}

type googleUserinfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *googleMeetProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var user googleUserinfo
	if err := g.doJSON(ctx, accessToken, "GET", g.userinfo, nil, &user); err != nil {
		return nil, err
	}
	return &Profile{
		Provider:       g.name,
		ProviderUserID: user.Sub,
		Email:          user.Email,
		DisplayName:    user.Name,
	}, nil
}

type googleEvent struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	HangoutLink string `json:"hangoutLink"`
	Status      string `json:"status"`
	Start       struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
	Attendees []struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"attendees"`
}

type googleEventList struct {
	Items []googleEvent `json:"items"`
}

func (g *googleMeetProvider) ListMeetings(ctx context.Context, accessToken string) ([]MeetingInfo, error) {
	params := url.Values{}
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("timeMin", time.Now().Add(-24*time.Hour).Format(time.RFC3339))
	params.Set("maxResults", "50")
	var list googleEventList
	endpoint := g.api + "/calendars/primary/events?" + params.Encode()
	if err := g.doJSON(ctx, accessToken, "GET", endpoint, nil, &list); err != nil {
		return nil, err
	}
	out := make([]MeetingInfo, 0, len(list.Items))
	for _, event := range list.Items {
		if event.HangoutLink == "" {
			continue
		}
		out = append(out, googleEventInfo(event))
	}
	return out, nil
}

func (g *googleMeetProvider) GetMeeting(ctx context.Context, accessToken, meetingID string) (*MeetingInfo, error) {
	var event googleEvent
	endpoint := g.api + "/calendars/primary/events/" + url.PathEscape(meetingID)
	if err := g.doJSON(ctx, accessToken, "GET", endpoint, nil, &event); err != nil {
		return nil, err
	}
	info := googleEventInfo(event)
	return &info, nil
}

func googleEventInfo(event googleEvent) MeetingInfo {
	var start, end int64
	if ts, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
		start = ts.Unix()
	}
	if ts, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
		end = ts.Unix()
	}
	duration := 0
	if end > start {
		duration = int((end - start) / 60)
	}
	now := time.Now().Unix()
	status := "waiting"
	switch {
	case end > 0 && now >= end:
		status = "ended"
	case start > 0 && now >= start:
		status = "started"
	}
	return MeetingInfo{
		ExternalID:      event.ID,
		Topic:           event.Summary,
		StartTime:       start,
		DurationMinutes: duration,
		Status:          status,
		JoinURL:         event.HangoutLink,
	}
}

func (g *googleMeetProvider) ListParticipants(ctx context.Context, accessToken, meetingID string) ([]Participant, error) {
	var event googleEvent
	endpoint := g.api + "/calendars/primary/events/" + url.PathEscape(meetingID)
	if err := g.doJSON(ctx, accessToken, "GET", endpoint, nil, &event); err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(event.Attendees))
	for _, a := range event.Attendees {
		name := a.DisplayName
		if name == "" {
			name = a.Email
		}
		out = append(out, Participant{ID: a.Email, Name: name, Email: a.Email})
	}
	return out, nil
}

func (g *googleMeetProvider) DownloadTranscript(ctx context.Context, accessToken, meetingID string) (*TranscriptFile, error) {
	return nil, errTranscriptNotReady(g.name)
}

func init() {
	Register("google-meet", newGoogleMeetProvider)
}
