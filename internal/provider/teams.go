package provider

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	teamsAuthURL  = "https://login.microsoftonline.com/common/oauth2/v2.0/authorize"
	teamsTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	graphAPIBase  = "https://graph.microsoft.com/v1.0"
)

// teamsProvider reads online meetings from Microsoft Graph.
type teamsProvider struct {
	*oauthConn
}

func newTeamsProvider(args interface{}) (Provider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	client := apiClient(cfg.Client)
	return &teamsProvider{oauthConn: &oauthConn{
		name: "microsoft-teams",
		oc: &oauth2.Config{
			ClientID:     cfg.Config.ClientID,
			ClientSecret: cfg.Config.ClientSecret,
			RedirectURL:  cfg.Config.RedirectURL,
			Scopes:       cfg.Config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  pick(cfg.Config.AuthEndpoint, teamsAuthURL),
				TokenURL: pick(cfg.Config.TokenEndpoint, teamsTokenURL),
			},
		},
		client: client,
		api:    pick(cfg.Config.APIBase, graphAPIBase),
	}}, nil
}

type graphUser struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

func (t *teamsProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var user graphUser
	if err := t.doJSON(ctx, accessToken, "GET", t.api+"/me", nil, &user); err != nil {
		return nil, err
	}
	email := user.Mail
	if email == "" {
		email = user.UserPrincipalName
	}
	return &Profile{
		Provider:       t.name,
		ProviderUserID: user.ID,
		Email:          email,
		DisplayName:    user.DisplayName,
	}, nil
}

type graphOnlineMeeting struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
	JoinWebURL    string `json:"joinWebUrl"`
}

type graphMeetingList struct {
	Value []graphOnlineMeeting `json:"value"`
}

func (t *teamsProvider) ListMeetings(ctx context.Context, accessToken string) ([]MeetingInfo, error) {
	var list graphMeetingList
	if err := t.doJSON(ctx, accessToken, "GET", t.api+"/me/onlineMeetings", nil, &list); err != nil {
		return nil, err
	}
	out := make([]MeetingInfo, 0, len(list.Value))
	for _, m := range list.Value {
		out = append(out, graphMeetingInfo(m))
	}
	return out, nil
}

func (t *teamsProvider) GetMeeting(ctx context.Context, accessToken, meetingID string) (*MeetingInfo, error) {
	var m graphOnlineMeeting
	endpoint := t.api + "/me/onlineMeetings/" + url.PathEscape(meetingID)
	if err := t.doJSON(ctx, accessToken, "GET", endpoint, nil, &m); err != nil {
		return nil, err
	}
	info := graphMeetingInfo(m)
	return &info, nil
}

func graphMeetingInfo(m graphOnlineMeeting) MeetingInfo {
	var start, end int64
	if ts, err := time.Parse(time.RFC3339, m.StartDateTime); err == nil {
		start = ts.Unix()
	}
	if ts, err := time.Parse(time.RFC3339, m.EndDateTime); err == nil {
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
		ExternalID:      m.ID,
		Topic:           m.Subject,
		StartTime:       start,
		DurationMinutes: duration,
		Status:          status,
		JoinURL:         m.JoinWebURL,
	}
}

type graphAttendanceReportList struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
}

type graphAttendanceRecordList struct {
	Value []struct {
		EmailAddress string `json:"emailAddress"`
		Identity     struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"identity"`
		AttendanceIntervals []struct {
			JoinDateTime string `json:"joinDateTime"`
		} `json:"attendanceIntervals"`
	} `json:"value"`
}

func (t *teamsProvider) ListParticipants(ctx context.Context, accessToken, meetingID string) ([]Participant, error) {
	var reports graphAttendanceReportList
	base := t.api + "/me/onlineMeetings/" + url.PathEscape(meetingID)
	if err := t.doJSON(ctx, accessToken, "GET", base+"/attendanceReports", nil, &reports); err != nil {
		return nil, err
	}
	if len(reports.Value) == 0 {
		return []Participant{}, nil
	}
	var records graphAttendanceRecordList
	endpoint := base + "/attendanceReports/" + url.PathEscape(reports.Value[0].ID) + "/attendanceRecords"
	if err := t.doJSON(ctx, accessToken, "GET", endpoint, nil, &records); err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(records.Value))
	for _, record := range records.Value {
		var joined int64
		if len(record.AttendanceIntervals) > 0 {
			if ts, err := time.Parse(time.RFC3339, record.AttendanceIntervals[0].JoinDateTime); err == nil {
				joined = ts.Unix()
			}
		}
		out = append(out, Participant{
			ID:       record.Identity.ID,
			Name:     record.Identity.DisplayName,
			Email:    record.EmailAddress,
			JoinedAt: joined,
		})
	}
	return out, nil
}

type graphTranscriptList struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
}

func (t *teamsProvider) DownloadTranscript(ctx context.Context, accessToken, meetingID string) (*TranscriptFile, error) {
	var list graphTranscriptList
	base := t.api + "/me/onlineMeetings/" + url.PathEscape(meetingID)
	if err := t.doJSON(ctx, accessToken, "GET", base+"/transcripts", nil, &list); err != nil {
		return nil, err
	}
	if len(list.Value) == 0 {
		return nil, errTranscriptNotReady(t.name)
	}
	endpoint := base + "/transcripts/" + url.PathEscape(list.Value[0].ID) + "/content?$format=text/vtt"
	content, err := t.download(ctx, accessToken, endpoint)
	if err != nil {
		return nil, err
	}
	return &TranscriptFile{
		Name:    meetingID + ".vtt",
		Content: content,
	}, nil
}

func init() {
	Register("microsoft-teams", newTeamsProvider)
}
