package provider

import (
	"net/http"
	"strings"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint overrides, used by tests and self-hosted deployments.
	// Empty values fall back to the provider's public endpoints.
	AuthEndpoint  string
	TokenEndpoint string
	APIBase       string
}

type Args struct {
	Config Config
	Client *http.Client
}

func decodeArgs(args interface{}) (Args, error) {
	if args == nil {
		return Args{}, nil
	}
	if cfg, ok := args.(Args); ok {
		cfg.Config.ClientID = strings.TrimSpace(cfg.Config.ClientID)
		cfg.Config.ClientSecret = strings.TrimSpace(cfg.Config.ClientSecret)
		cfg.Config.RedirectURL = strings.TrimSpace(cfg.Config.RedirectURL)
		return cfg, nil
	}
	return Args{}, nil
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
