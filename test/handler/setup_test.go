package handler_test

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/flowcraft-app/flowcraft/internal/config"
	"github.com/flowcraft-app/flowcraft/internal/demo"
	"github.com/flowcraft-app/flowcraft/internal/filestore"
	"github.com/flowcraft-app/flowcraft/internal/handler"
	"github.com/flowcraft-app/flowcraft/internal/middleware"
	"github.com/flowcraft-app/flowcraft/internal/monitor"
	"github.com/flowcraft-app/flowcraft/internal/provider"
	"github.com/flowcraft-app/flowcraft/internal/repo"
	"github.com/flowcraft-app/flowcraft/internal/service"
	"github.com/flowcraft-app/flowcraft/test/testutil"
)

var demoProviderNames = []string{"zoom", "google-meet", "gmail", "discord", "microsoft-teams"}

func setupRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanupDB := testutil.OpenTestDB(t)
	userRepo := repo.NewUserRepo(db)
	connectionRepo := repo.NewConnectionRepo(db)
	meetingRepo := repo.NewMeetingRepo(db)
	transcriptRepo := repo.NewTranscriptRepo(db)
	draftRepo := repo.NewDraftRepo(db)
	taskRepo := repo.NewTaskRepo(db)
	deckRepo := repo.NewDeckRepo(db)
	cardRepo := repo.NewCardRepo(db)

	providers := make(map[string]provider.Provider)
	for _, name := range demoProviderNames {
		providers[name] = demo.New(name)
	}

	tmpDir, err := os.MkdirTemp("", "flowcraft-files-*")
	require.NoError(t, err)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": tmpDir},
	})
	require.NoError(t, err)

	jwtSecret := []byte("test-secret")
	authService := service.NewAuthService(userRepo, jwtSecret, time.Hour)
	connectionService := service.NewConnectionService(connectionRepo, providers)
	meetingService := service.NewMeetingService(connectionService, meetingRepo, transcriptRepo, store)
	draftService := service.NewDraftService(draftRepo, connectionService, "gmail")
	taskService := service.NewTaskService(taskRepo)
	flashcardService := service.NewFlashcardService(deckRepo, cardRepo)
	meetingMonitor := monitor.New(meetingService, 50*time.Millisecond)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService),
		Connections: handler.NewConnectionHandler(connectionService, "http://localhost:3000"),
		Meetings:    handler.NewMeetingHandler(meetingService, meetingMonitor, store),
		Drafts:      handler.NewDraftHandler(draftService, meetingService),
		Tasks:       handler.NewTaskHandler(taskService),
		Flashcards:  handler.NewFlashcardHandler(flashcardService, meetingService),
		Files:       handler.NewFileHandler(store),
		JWTSecret:   jwtSecret,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, func() {
		meetingMonitor.StopAll()
		cleanupDB()
		_ = os.RemoveAll(tmpDir)
	}
}

type apiEnvelope struct {
	Code uint32          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var envelope apiEnvelope
	if resp.Body.Len() > 0 {
		_ = json.Unmarshal(resp.Body.Bytes(), &envelope)
	}
	return resp, envelope
}

// connectProvider walks the full connect flow: fetch the authorize URL,
// pull the state out of it and replay the provider callback.
func connectProvider(t *testing.T, router http.Handler, token, providerName string) {
	t.Helper()
	resp, envelope := doJSON(t, router, http.MethodPost, "/api/v1/connections/"+providerName, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)
	var data struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	state := stateFromAuthURL(t, data.URL)

	callback := "/api/v1/connections/" + providerName + "/callback?code=demo-code&state=" + state
	resp, _ = doJSON(t, router, http.MethodGet, callback, "", nil)
	require.Equal(t, http.StatusFound, resp.Code)
	require.Contains(t, resp.Header().Get("Location"), "status=connected")
}

// uniqueEmail keeps repeated runs against the same test database from
// tripping the duplicate-email check.
func uniqueEmail(prefix string) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf) + "@example.com"
}

func stateFromAuthURL(t *testing.T, rawURL string) string {
	t.Helper()
	authURL, err := url.Parse(rawURL)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func registerUser(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	resp, envelope := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}
