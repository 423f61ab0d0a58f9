package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowcraft-app/flowcraft/internal/pkg/response"
	"github.com/flowcraft-app/flowcraft/internal/service"
)

// ConnectionHandler drives the provider connect flow: authorize-URL
// handout, the browser callback and connection management.
type ConnectionHandler struct {
	conns       *service.ConnectionService
	stateStore  *connectStateStore
	frontendURL string
}

func NewConnectionHandler(conns *service.ConnectionService, frontendURL string) *ConnectionHandler {
	return &ConnectionHandler{
		conns:       conns,
		stateStore:  newConnectStateStore(),
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

func (h *ConnectionHandler) List(c *gin.Context) {
	conns, err := h.conns.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]gin.H, 0, len(conns))
	for _, conn := range conns {
		items = append(items, gin.H{
			"provider":       conn.Provider,
			"provider_email": conn.ProviderEmail,
			"expires_at":     conn.ExpiresAt,
			"connected_at":   conn.Ctime,
		})
	}
	response.Success(c, gin.H{"connections": items})
}

func (h *ConnectionHandler) Status(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	connected, err := h.conns.IsConnected(c.Request.Context(), getUserID(c), provider)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"provider": provider, "connected": connected})
}

// Guilds lists the servers behind a community provider connection.
func (h *ConnectionHandler) Guilds(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	guilds, err := h.conns.ListGuilds(c.Request.Context(), getUserID(c), provider)
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]gin.H, 0, len(guilds))
	for _, guild := range guilds {
		items = append(items, gin.H{"id": guild.ID, "name": guild.Name})
	}
	response.Success(c, gin.H{"guilds": items})
}

// Connect hands out the provider authorize URL bound to a one-time
// state so the callback can be tied back to this user.
func (h *ConnectionHandler) Connect(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	state := h.stateStore.Create(provider, getUserID(c))
	authURL, err := h.conns.AuthURL(provider, state)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": authURL})
}

// Callback is hit by the provider redirect. It has no JWT; the user
// comes from the consumed state.
func (h *ConnectionHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	provider := strings.ToLower(c.Param("provider"))
	if code == "" || state == "" {
		h.redirectResult(c, provider, "invalid")
		return
	}
	stored, ok := h.stateStore.Consume(state)
	if !ok || stored.Provider != provider {
		h.redirectResult(c, provider, "invalid")
		return
	}
	if _, err := h.conns.CompleteAuth(c.Request.Context(), stored.UserID, provider, code); err != nil {
		h.redirectResult(c, provider, "failed")
		return
	}
	h.redirectResult(c, provider, "connected")
}

func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	if err := h.conns.Disconnect(c.Request.Context(), getUserID(c), provider); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ConnectionHandler) redirectResult(c *gin.Context, provider, status string) {
	params := url.Values{}
	params.Set("provider", provider)
	params.Set("status", status)
	c.Redirect(http.StatusFound, h.frontendURL+"/settings/connections?"+params.Encode())
}

type connectState struct {
	Provider  string
	UserID    string
	ExpiresAt time.Time
}

type connectStateStore struct {
	mu    sync.Mutex
	items map[string]connectState
}

func newConnectStateStore() *connectStateStore {
	return &connectStateStore{items: make(map[string]connectState)}
}

func (s *connectStateStore) Create(provider, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	state := randomState()
	s.items[state] = connectState{
		Provider:  provider,
		UserID:    userID,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	return state
}

func (s *connectStateStore) Consume(state string) (connectState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	item, ok := s.items[state]
	if !ok {
		return connectState{}, false
	}
	delete(s.items, state)
	if time.Now().After(item.ExpiresAt) {
		return connectState{}, false
	}
	return item, true
}

func (s *connectStateStore) cleanupLocked() {
	if len(s.items) == 0 {
		return
	}
	now := time.Now()
	for key, item := range s.items {
		if now.After(item.ExpiresAt) {
			delete(s.items, key)
		}
	}
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
