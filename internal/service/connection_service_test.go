package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcraft-app/flowcraft/internal/model"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/timeutil"
	"github.com/flowcraft-app/flowcraft/internal/provider"
)

type fakeConnectionStore struct {
	items map[string]*model.Connection
}

func newFakeConnectionStore() *fakeConnectionStore {
	return &fakeConnectionStore{items: make(map[string]*model.Connection)}
}

func (s *fakeConnectionStore) key(userID, providerName string) string {
	return userID + "/" + providerName
}

func (s *fakeConnectionStore) Upsert(ctx context.Context, conn *model.Connection) error {
	copied := *conn
	s.items[s.key(conn.UserID, conn.Provider)] = &copied
	return nil
}

func (s *fakeConnectionStore) Get(ctx context.Context, userID, providerName string) (*model.Connection, error) {
	conn, ok := s.items[s.key(userID, providerName)]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	copied := *conn
	return &copied, nil
}

func (s *fakeConnectionStore) ListByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	var out []model.Connection
	for _, conn := range s.items {
		if conn.UserID == userID {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (s *fakeConnectionStore) ListExpiring(ctx context.Context, before int64) ([]model.Connection, error) {
	var out []model.Connection
	for _, conn := range s.items {
		if conn.ExpiresAt < before {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (s *fakeConnectionStore) Delete(ctx context.Context, userID, providerName string) error {
	key := s.key(userID, providerName)
	if _, ok := s.items[key]; !ok {
		return appErr.ErrNotFound
	}
	delete(s.items, key)
	return nil
}

type fakeProvider struct {
	name         string
	refreshCalls int
	refreshErr   error
	refreshToken *provider.Token
	exchangeTok  *provider.Token
	profile      *provider.Profile
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthURL(state string) (string, error) {
	return "https://auth.example.com/authorize?state=" + state, nil
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*provider.Token, error) {
	if code == "" {
		return nil, appErr.ErrInvalid
	}
	return p.exchangeTok, nil
}

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*provider.Token, error) {
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.refreshToken, nil
}

func (p *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (*provider.Profile, error) {
	if p.profile == nil {
		return nil, appErr.ErrUpstream
	}
	return p.profile, nil
}

func seedConnection(t *testing.T, store *fakeConnectionStore, expiresAt int64) *model.Connection {
	t.Helper()
	conn := &model.Connection{
		ID:           "conn-1",
		UserID:       "user-1",
		Provider:     "zoom",
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    expiresAt,
		Ctime:        timeutil.NowUnix(),
		Mtime:        timeutil.NowUnix(),
	}
	require.NoError(t, store.Upsert(context.Background(), conn))
	return conn
}

func TestRefreshIfNeededValidTokenSkipsNetwork(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{name: "zoom"}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()+time.Hour.Milliseconds())

	conn, refreshed, err := svc.RefreshIfNeeded(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.False(t, refreshed)
	require.Equal(t, "at-old", conn.AccessToken)
	require.Zero(t, fake.refreshCalls)
}

func TestRefreshIfNeededExpiredRefreshesOnce(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{
		name: "zoom",
		refreshToken: &provider.Token{
			AccessToken:  "at-new",
			RefreshToken: "rt-new",
			ExpiresAt:    timeutil.NowMillis() + time.Hour.Milliseconds(),
		},
	}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()-1000)

	conn, refreshed, err := svc.RefreshIfNeeded(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.True(t, refreshed)
	require.Equal(t, 1, fake.refreshCalls)
	require.Equal(t, "at-new", conn.AccessToken)
	require.Equal(t, "rt-new", conn.RefreshToken)

	stored, err := store.Get(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.Equal(t, "at-new", stored.AccessToken)
}

func TestRefreshKeepsOldRefreshTokenWhenNotRotated(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{
		name: "zoom",
		refreshToken: &provider.Token{
			AccessToken: "at-new",
			ExpiresAt:   timeutil.NowMillis() + time.Hour.Milliseconds(),
		},
	}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()-1000)

	conn, _, err := svc.RefreshIfNeeded(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.Equal(t, "rt-old", conn.RefreshToken)
}

func TestRefreshFailureLeavesStoredRowUnchanged(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{name: "zoom", refreshErr: errors.New("token endpoint down")}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()-1000)

	_, _, err := svc.RefreshIfNeeded(context.Background(), "user-1", "zoom")
	require.Error(t, err)
	require.Equal(t, 1, fake.refreshCalls)

	stored, err := store.Get(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.Equal(t, "at-old", stored.AccessToken)
	require.Equal(t, "rt-old", stored.RefreshToken)
}

func TestRefreshIfNeededNotConnected(t *testing.T) {
	store := newFakeConnectionStore()
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": &fakeProvider{name: "zoom"}})

	_, _, err := svc.RefreshIfNeeded(context.Background(), "user-1", "zoom")
	require.ErrorIs(t, err, appErr.ErrNotConnected)
}

func TestAuthorizedRetriesOnceAfterUpstreamRejection(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{
		name: "zoom",
		refreshToken: &provider.Token{
			AccessToken: "at-new",
			ExpiresAt:   timeutil.NowMillis() + time.Hour.Milliseconds(),
		},
	}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()+time.Hour.Milliseconds())

	var tokens []string
	err := svc.Authorized(context.Background(), "user-1", "zoom", func(accessToken string) error {
		tokens = append(tokens, accessToken)
		if accessToken == "at-old" {
			return appErr.ErrUpstreamAuth
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"at-old", "at-new"}, tokens)
	require.Equal(t, 1, fake.refreshCalls)
}

func TestAuthorizedSecondRejectionIsFinal(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{
		name: "zoom",
		refreshToken: &provider.Token{
			AccessToken: "at-new",
			ExpiresAt:   timeutil.NowMillis() + time.Hour.Milliseconds(),
		},
	}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()+time.Hour.Milliseconds())

	calls := 0
	err := svc.Authorized(context.Background(), "user-1", "zoom", func(accessToken string) error {
		calls++
		return appErr.ErrUpstreamAuth
	})
	require.ErrorIs(t, err, appErr.ErrUpstreamAuth)
	require.Equal(t, 2, calls)
	require.Equal(t, 1, fake.refreshCalls)
}

func TestAuthorizedRefreshFailureReportsUpstreamAuth(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{name: "zoom", refreshErr: errors.New("boom")}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})
	seedConnection(t, store, timeutil.NowMillis()+time.Hour.Milliseconds())

	calls := 0
	err := svc.Authorized(context.Background(), "user-1", "zoom", func(accessToken string) error {
		calls++
		return appErr.ErrUpstreamAuth
	})
	require.ErrorIs(t, err, appErr.ErrUpstreamAuth)
	require.Equal(t, 1, calls)
}

func TestDisconnectRemovesConnection(t *testing.T) {
	store := newFakeConnectionStore()
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": &fakeProvider{name: "zoom"}})
	seedConnection(t, store, timeutil.NowMillis()+time.Hour.Milliseconds())

	connected, err := svc.IsConnected(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.True(t, connected)

	require.NoError(t, svc.Disconnect(context.Background(), "user-1", "zoom"))

	connected, err = svc.IsConnected(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.False(t, connected)
}

func TestCompleteAuthStoresTokens(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeProvider{
		name: "zoom",
		exchangeTok: &provider.Token{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresAt:    timeutil.NowMillis() + time.Hour.Milliseconds(),
		},
		profile: &provider.Profile{Provider: "zoom", Email: "person@example.com"},
	}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": fake})

	conn, err := svc.CompleteAuth(context.Background(), "user-1", "zoom", "auth-code")
	require.NoError(t, err)
	require.Equal(t, "person@example.com", conn.ProviderEmail)

	stored, err := store.Get(context.Background(), "user-1", "zoom")
	require.NoError(t, err)
	require.Equal(t, "at-1", stored.AccessToken)
	require.Equal(t, "rt-1", stored.RefreshToken)
}

type fakeCommunityProvider struct {
	fakeProvider
	guilds     []provider.Guild
	guildCalls int
}

func (p *fakeCommunityProvider) ListGuilds(ctx context.Context, accessToken string) ([]provider.Guild, error) {
	p.guildCalls++
	return p.guilds, nil
}

func TestListGuildsThroughAuthorized(t *testing.T) {
	store := newFakeConnectionStore()
	fake := &fakeCommunityProvider{
		fakeProvider: fakeProvider{name: "discord"},
		guilds: []provider.Guild{
			{ID: "g-1", Name: "Study Group"},
			{ID: "g-2", Name: "Book Club"},
		},
	}
	svc := NewConnectionService(store, map[string]provider.Provider{"discord": fake})
	require.NoError(t, store.Upsert(context.Background(), &model.Connection{
		ID: "c1", UserID: "user-1", Provider: "discord",
		AccessToken: "at", RefreshToken: "rt",
		ExpiresAt: timeutil.NowMillis() + time.Hour.Milliseconds(),
	}))

	guilds, err := svc.ListGuilds(context.Background(), "user-1", "discord")
	require.NoError(t, err)
	require.Equal(t, 1, fake.guildCalls)
	require.Len(t, guilds, 2)
	require.Equal(t, "Study Group", guilds[0].Name)

	// without a connection the lookup fails before reaching the provider
	_, err = svc.ListGuilds(context.Background(), "user-2", "discord")
	require.ErrorIs(t, err, appErr.ErrNotConnected)
	require.Equal(t, 1, fake.guildCalls)
}

func TestListGuildsRejectsNonCommunityProvider(t *testing.T) {
	store := newFakeConnectionStore()
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": &fakeProvider{name: "zoom"}})
	seedConnection(t, store, timeutil.NowMillis()+time.Hour.Milliseconds())

	_, err := svc.ListGuilds(context.Background(), "user-1", "zoom")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestRefreshExpiringSkipsFailures(t *testing.T) {
	store := newFakeConnectionStore()
	good := &fakeProvider{
		name: "zoom",
		refreshToken: &provider.Token{
			AccessToken: "at-new",
			ExpiresAt:   timeutil.NowMillis() + time.Hour.Milliseconds(),
		},
	}
	bad := &fakeProvider{name: "gmail", refreshErr: errors.New("revoked")}
	svc := NewConnectionService(store, map[string]provider.Provider{"zoom": good, "gmail": bad})

	now := timeutil.NowMillis()
	require.NoError(t, store.Upsert(context.Background(), &model.Connection{
		ID: "c1", UserID: "user-1", Provider: "zoom",
		AccessToken: "a", RefreshToken: "r", ExpiresAt: now + 60*1000,
	}))
	require.NoError(t, store.Upsert(context.Background(), &model.Connection{
		ID: "c2", UserID: "user-1", Provider: "gmail",
		AccessToken: "a", RefreshToken: "r", ExpiresAt: now + 60*1000,
	}))

	refreshed, failed := svc.RefreshExpiring(context.Background(), 20*time.Minute)
	require.Equal(t, 1, refreshed)
	require.Equal(t, 1, failed)
	require.Equal(t, 1, good.refreshCalls)
	require.Equal(t, 1, bad.refreshCalls)
}
