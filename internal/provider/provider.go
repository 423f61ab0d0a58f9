package provider

import (
	"context"
	"fmt"
	"strings"
)

// Token is a provider credential as returned by code exchange or
// refresh. ExpiresAt is unix milliseconds.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	DisplayName    string
}

type MeetingInfo struct {
	ExternalID      string
	Topic           string
	StartTime       int64
	DurationMinutes int
	Status          string
	JoinURL         string
}

type Participant struct {
	ID       string
	Name     string
	Email    string
	JoinedAt int64
}

type TranscriptFile struct {
	Name     string
	Language string
	Content  []byte
}

type Guild struct {
	ID   string
	Name string
}

// Provider is the capability every connected platform implements:
// building the authorize URL, trading a code for tokens, refreshing
// and identifying the account behind a token.
type Provider interface {
	Name() string
	AuthURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*Token, error)
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// MeetingSource is implemented by providers that expose meetings.
type MeetingSource interface {
	ListMeetings(ctx context.Context, accessToken string) ([]MeetingInfo, error)
	GetMeeting(ctx context.Context, accessToken, meetingID string) (*MeetingInfo, error)
	ListParticipants(ctx context.Context, accessToken, meetingID string) ([]Participant, error)
	DownloadTranscript(ctx context.Context, accessToken, meetingID string) (*TranscriptFile, error)
}

// MailSource is implemented by providers that can send mail. The raw
// argument is a base64url-encoded RFC 2822 message.
type MailSource interface {
	SendMail(ctx context.Context, accessToken, raw string) error
}

// CommunitySource is implemented by providers with a server/guild list.
type CommunitySource interface {
	ListGuilds(ctx context.Context, accessToken string) ([]Guild, error)
}

type Factory func(args interface{}) (Provider, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return factory(args)
}
