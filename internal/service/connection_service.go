package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/model"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/timeutil"
	"github.com/flowcraft-app/flowcraft/internal/provider"
)

// ConnectionStore is the persistence surface the connection service
// needs. *repo.ConnectionRepo satisfies it.
type ConnectionStore interface {
	Upsert(ctx context.Context, conn *model.Connection) error
	Get(ctx context.Context, userID, providerName string) (*model.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]model.Connection, error)
	ListExpiring(ctx context.Context, before int64) ([]model.Connection, error)
	Delete(ctx context.Context, userID, providerName string) error
}

// ConnectionService owns the credential lifecycle for every provider:
// authorize-URL handout, code exchange, refresh and the authorized
// request wrapper other services call through.
type ConnectionService struct {
	store     ConnectionStore
	providers map[string]provider.Provider
}

func NewConnectionService(store ConnectionStore, providers map[string]provider.Provider) *ConnectionService {
	return &ConnectionService{store: store, providers: providers}
}

// Provider returns the named provider so callers can assert optional
// capabilities like provider.MeetingSource.
func (s *ConnectionService) Provider(name string) (provider.Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return p, nil
}

func (s *ConnectionService) AuthURL(providerName, state string) (string, error) {
	p, err := s.Provider(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthURL(state)
}

// CompleteAuth trades the callback code for tokens, resolves the
// account behind them and stores the connection. An existing row for
// the same (user, provider) pair is overwritten.
func (s *ConnectionService) CompleteAuth(ctx context.Context, userID, providerName, code string) (*model.Connection, error) {
	p, err := s.Provider(providerName)
	if err != nil {
		return nil, err
	}
	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	email := ""
	if profile, err := p.FetchProfile(ctx, token.AccessToken); err == nil {
		email = profile.Email
	} else {
		logutil.GetLogger(ctx).Warn("fetch provider profile failed",
			zap.String("provider", providerName), zap.Error(err))
	}
	now := timeutil.NowUnix()
	conn := &model.Connection{
		ID:            newID(),
		UserID:        userID,
		Provider:      providerName,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		ExpiresAt:     token.ExpiresAt,
		ProviderEmail: email,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.store.Upsert(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *ConnectionService) Disconnect(ctx context.Context, userID, providerName string) error {
	if _, err := s.Provider(providerName); err != nil {
		return err
	}
	return s.store.Delete(ctx, userID, providerName)
}

func (s *ConnectionService) IsConnected(ctx context.Context, userID, providerName string) (bool, error) {
	_, err := s.store.Get(ctx, userID, providerName)
	if err == appErr.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ConnectionService) List(ctx context.Context, userID string) ([]model.Connection, error) {
	return s.store.ListByUser(ctx, userID)
}

// RefreshIfNeeded refreshes the stored credential when it has expired.
// A credential that is still valid is returned untouched with no
// network call. Expired credentials get exactly one refresh attempt;
// on failure the stored row is left unchanged and the error is
// returned.
func (s *ConnectionService) RefreshIfNeeded(ctx context.Context, userID, providerName string) (*model.Connection, bool, error) {
	conn, err := s.store.Get(ctx, userID, providerName)
	if err == appErr.ErrNotFound {
		return nil, false, appErr.ErrNotConnected
	}
	if err != nil {
		return nil, false, err
	}
	if timeutil.NowMillis() < conn.ExpiresAt {
		return conn, false, nil
	}
	refreshed, err := s.refresh(ctx, conn)
	if err != nil {
		return nil, false, err
	}
	return refreshed, true, nil
}

func (s *ConnectionService) refresh(ctx context.Context, conn *model.Connection) (*model.Connection, error) {
	if conn.RefreshToken == "" {
		return nil, appErr.ErrUpstreamAuth
	}
	p, err := s.Provider(conn.Provider)
	if err != nil {
		return nil, err
	}
	token, err := p.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return nil, err
	}
	updated := *conn
	updated.AccessToken = token.AccessToken
	updated.ExpiresAt = token.ExpiresAt
	// providers that rotate refresh tokens return a new one; keep the
	// old one when they do not
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	updated.Mtime = timeutil.NowUnix()
	if err := s.store.Upsert(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Authorized runs fn with a valid access token. When fn reports the
// upstream rejected the token it forces one refresh and retries fn
// once; a second rejection is returned as is.
func (s *ConnectionService) Authorized(ctx context.Context, userID, providerName string, fn func(accessToken string) error) error {
	conn, _, err := s.RefreshIfNeeded(ctx, userID, providerName)
	if err != nil {
		return err
	}
	if err := fn(conn.AccessToken); !appErr.IsUpstreamAuth(err) {
		return err
	}
	refreshed, err := s.refresh(ctx, conn)
	if err != nil {
		return appErr.ErrUpstreamAuth
	}
	return fn(refreshed.AccessToken)
}

// ListGuilds fetches the server/guild list from a community provider
// through the authorized wrapper.
func (s *ConnectionService) ListGuilds(ctx context.Context, userID, providerName string) ([]provider.Guild, error) {
	p, err := s.Provider(providerName)
	if err != nil {
		return nil, err
	}
	source, ok := p.(provider.CommunitySource)
	if !ok {
		return nil, appErr.ErrInvalid
	}
	var guilds []provider.Guild
	err = s.Authorized(ctx, userID, providerName, func(accessToken string) error {
		var fetchErr error
		guilds, fetchErr = source.ListGuilds(ctx, accessToken)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return guilds, nil
}

// RefreshExpiring refreshes every connection that expires within the
// ahead window. Failures are logged and skipped so one broken
// credential cannot stall the rest.
func (s *ConnectionService) RefreshExpiring(ctx context.Context, ahead time.Duration) (int, int) {
	before := timeutil.NowMillis() + ahead.Milliseconds()
	conns, err := s.store.ListExpiring(ctx, before)
	if err != nil {
		logutil.GetLogger(ctx).Error("list expiring connections failed", zap.Error(err))
		return 0, 0
	}
	refreshed, failed := 0, 0
	for i := range conns {
		if _, err := s.refresh(ctx, &conns[i]); err != nil {
			failed++
			logutil.GetLogger(ctx).Warn("background refresh failed",
				zap.String("user_id", conns[i].UserID),
				zap.String("provider", conns[i].Provider),
				zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, failed
}
