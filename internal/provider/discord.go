package provider

import (
	"context"

	"golang.org/x/oauth2"
)

const (
	discordAuthURL  = "https://discord.com/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
	discordAPIBase  = "https://discord.com/api/v10"
)

type discordProvider struct {
	*oauthConn
}

func newDiscordProvider(args interface{}) (Provider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	client := apiClient(cfg.Client)
	return &discordProvider{oauthConn: &oauthConn{
		name: "discord",
		oc: &oauth2.Config{
			ClientID:     cfg.Config.ClientID,
			ClientSecret: cfg.Config.ClientSecret,
			RedirectURL:  cfg.Config.RedirectURL,
			Scopes:       cfg.Config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  pick(cfg.Config.AuthEndpoint, discordAuthURL),
				TokenURL: pick(cfg.Config.TokenEndpoint, discordTokenURL),
			},
		},
		client: client,
		api:    pick(cfg.Config.APIBase, discordAPIBase),
	}}, nil
}

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (d *discordProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var user discordUser
	if err := d.doJSON(ctx, accessToken, "GET", d.api+"/users/@me", nil, &user); err != nil {
		return nil, err
	}
	return &Profile{
		Provider:       d.name,
		ProviderUserID: user.ID,
		Email:          user.Email,
		DisplayName:    user.Username,
	}, nil
}

type discordGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (d *discordProvider) ListGuilds(ctx context.Context, accessToken string) ([]Guild, error) {
	var guilds []discordGuild
	if err := d.doJSON(ctx, accessToken, "GET", d.api+"/users/@me/guilds", nil, &guilds); err != nil {
		return nil, err
	}
	out := make([]Guild, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, Guild{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

func init() {
	Register("discord", newDiscordProvider)
}
