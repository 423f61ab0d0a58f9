// Package demo provides canned-data providers for running the service
// without real OAuth applications. They satisfy the same interfaces as
// the real providers but never open a network connection; the wiring
// installs them when demo_mode is set.
package demo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/provider"
)

type Provider struct {
	name string
}

func New(name string) *Provider {
	return &Provider{name: name}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) AuthURL(state string) (string, error) {
	return "/demo/authorize?provider=" + p.name + "&state=" + state, nil
}

func (p *Provider) Exchange(ctx context.Context, code string) (*provider.Token, error) {
	if code == "" {
		return nil, appErr.ErrInvalid
	}
	return &provider.Token{
		AccessToken:  "demo-" + randomHex(8),
		RefreshToken: "demo-refresh-" + randomHex(8),
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}, nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*provider.Token, error) {
	if refreshToken == "" {
		return nil, appErr.ErrUpstreamAuth
	}
	return &provider.Token{
		AccessToken:  "demo-" + randomHex(8),
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}, nil
}

func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*provider.Profile, error) {
	return &provider.Profile{
		Provider:       p.name,
		ProviderUserID: "demo-user",
		Email:          "demo@" + p.name + ".example.com",
		DisplayName:    "Demo User",
	}, nil
}

func (p *Provider) ListMeetings(ctx context.Context, accessToken string) ([]provider.MeetingInfo, error) {
	now := time.Now()
	return []provider.MeetingInfo{
		{
			ExternalID:      "demo-standup",
			Topic:           "Daily Standup",
			StartTime:       now.Add(-15 * time.Minute).Unix(),
			DurationMinutes: 30,
			Status:          "started",
			JoinURL:         "https://meet.example.com/demo-standup",
		},
		{
			ExternalID:      "demo-review",
			Topic:           "Sprint Review",
			StartTime:       now.Add(2 * time.Hour).Unix(),
			DurationMinutes: 60,
			Status:          "waiting",
			JoinURL:         "https://meet.example.com/demo-review",
		},
		{
			ExternalID:      "demo-retro",
			Topic:           "Retrospective",
			StartTime:       now.Add(-26 * time.Hour).Unix(),
			DurationMinutes: 45,
			Status:          "ended",
			JoinURL:         "https://meet.example.com/demo-retro",
		},
	}, nil
}

func (p *Provider) GetMeeting(ctx context.Context, accessToken, meetingID string) (*provider.MeetingInfo, error) {
	meetings, _ := p.ListMeetings(ctx, accessToken)
	for _, m := range meetings {
		if m.ExternalID == meetingID {
			return &m, nil
		}
	}
	return nil, appErr.ErrNotFound
}

// ListParticipants fabricates join timestamps spread over the last few
// minutes so a polling client sees plausible live data.
func (p *Provider) ListParticipants(ctx context.Context, accessToken, meetingID string) ([]provider.Participant, error) {
	now := time.Now()
	names := []string{"Ada Park", "Remy Chen", "Sam Okafor", "Lee Tanaka"}
	out := make([]provider.Participant, 0, len(names))
	for i, name := range names {
		out = append(out, provider.Participant{
			ID:       fmt.Sprintf("demo-p%d", i+1),
			Name:     name,
			Email:    fmt.Sprintf("p%d@example.com", i+1),
			JoinedAt: now.Add(-time.Duration(i+1) * time.Minute).Unix(),
		})
	}
	return out, nil
}

func (p *Provider) DownloadTranscript(ctx context.Context, accessToken, meetingID string) (*provider.TranscriptFile, error) {
	if meetingID != "demo-retro" {
		return nil, fmt.Errorf("%s: %w", p.name, appErr.ErrTranscriptNotReady)
	}
	content := "WEBVTT\n\n00:00:01.000 --> 00:00:04.000\nAda: Let's start with what went well.\n\n" +
		"00:00:05.000 --> 00:00:09.000\nRemy: Shipping the connector ahead of schedule.\n\n" +
		"00:00:10.000 --> 00:00:14.000\nSam: Action item: tighten the review checklist.\n"
	return &provider.TranscriptFile{
		Name:     meetingID + ".vtt",
		Language: "en",
		Content:  []byte(content),
	}, nil
}

func (p *Provider) SendMail(ctx context.Context, accessToken, raw string) error {
	if raw == "" {
		return appErr.ErrInvalid
	}
	return nil
}

func (p *Provider) ListGuilds(ctx context.Context, accessToken string) ([]provider.Guild, error) {
	return []provider.Guild{
		{ID: "demo-guild-1", Name: "Study Group"},
		{ID: "demo-guild-2", Name: "Project FlowCraft"},
	}, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
