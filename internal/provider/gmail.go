package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

const gmailAPIBase = "https://gmail.googleapis.com/gmail/v1"

// gmailProvider shares Google's OAuth endpoints with google-meet but
// carries mail scopes and talks to the Gmail API.
type gmailProvider struct {
	*oauthConn
}

func newGmailProvider(args interface{}) (Provider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	client := apiClient(cfg.Client)
	return &gmailProvider{oauthConn: &oauthConn{
		name: "gmail",
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
		api:      pick(cfg.Config.APIBase, gmailAPIBase),
		authOpts: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce},
	}}, nil
}

type gmailProfile struct {
	EmailAddress string `json:"emailAddress"`
}

func (g *gmailProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile gmailProfile
	if err := g.doJSON(ctx, accessToken, "GET", g.api+"/users/me/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &Profile{
		Provider:       g.name,
		ProviderUserID: profile.EmailAddress,
		Email:          profile.EmailAddress,
	}, nil
}

func (g *gmailProvider) SendMail(ctx context.Context, accessToken, raw string) error {
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}
	endpoint := g.api + "/users/me/messages/send"
	return g.doJSON(ctx, accessToken, "POST", endpoint, bytes.NewReader(payload), nil)
}

func init() {
	Register("gmail", newGmailProvider)
}
