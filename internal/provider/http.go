package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

// oauthConn carries the pieces every provider implementation shares:
// the oauth2 config for exchange/refresh and an HTTP client for API
// calls. Expiry on returned tokens keeps millisecond precision.
type oauthConn struct {
	name     string
	oc       *oauth2.Config
	client   *http.Client
	api      string
	authOpts []oauth2.AuthCodeOption
}

func (o *oauthConn) Name() string {
	return o.name
}

func (o *oauthConn) AuthURL(state string) (string, error) {
	if o.oc.ClientID == "" || o.oc.RedirectURL == "" {
		return "", appErr.ErrInvalid
	}
	return o.oc.AuthCodeURL(state, o.authOpts...), nil
}

func (o *oauthConn) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, appErr.ErrInvalid
	}
	if o.oc.ClientID == "" || o.oc.ClientSecret == "" || o.oc.RedirectURL == "" {
		return nil, appErr.ErrInvalid
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	tok, err := o.oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", o.name, err)
	}
	return fromOAuth2Token(tok), nil
}

func (o *oauthConn) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, appErr.ErrUpstreamAuth
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	src := o.oc.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			return nil, fmt.Errorf("%s refresh rejected: %v: %w", o.name, err, appErr.ErrUpstreamAuth)
		}
		return nil, fmt.Errorf("%s refresh: %w", o.name, err)
	}
	return fromOAuth2Token(tok), nil
}

func fromOAuth2Token(tok *oauth2.Token) *Token {
	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresAt = tok.Expiry.UnixMilli()
	} else {
		out.ExpiresAt = time.Now().Add(time.Hour).UnixMilli()
	}
	return out
}

func isPermanentRefreshError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid_grant", "invalid_client", "unauthorized_client", "revoked"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// doJSON performs one bearer-authenticated call. Non-2xx responses map
// to sentinel errors so callers can branch: 401 drives the single
// refresh-and-retry, 404 is the deliberate not-found case.
func (o *oauthConn) doJSON(ctx context.Context, accessToken, method, rawURL string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", o.name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := o.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (o *oauthConn) download(ctx context.Context, accessToken, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s download: %w", o.name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := o.checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (o *oauthConn) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %s: %w", o.name, resp.Status, appErr.ErrUpstreamAuth)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", o.name, resp.Status, appErr.ErrNotFound)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s: %s: %w", o.name, resp.Status, strings.TrimSpace(string(body)), appErr.ErrUpstream)
	}
	return nil
}

func errTranscriptNotReady(name string) error {
	return fmt.Errorf("%s: %w", name, appErr.ErrTranscriptNotReady)
}

func apiClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 10 * time.Second}
}
