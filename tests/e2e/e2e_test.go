package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/07Akashh/DriveBackend/internal/middleware"
	"github.com/07Akashh/DriveBackend/internal/modules/auth"
	"github.com/07Akashh/DriveBackend/internal/modules/media"
	"github.com/07Akashh/DriveBackend/internal/modules/upload"
	jwtsvc "github.com/07Akashh/DriveBackend/internal/pkg/jwt"
	"github.com/07Akashh/DriveBackend/internal/repository"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

type testSuite struct {
	server *httptest.Server
	store  *storage.MemoryStorage
}

type apiResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *errorDetail           `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func setupSuite(t *testing.T) *testSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, repository.AutoMigrate(db))

	store := storage.NewMemoryStorage()

	userRepo := repository.NewUserRepository(db)
	mediaRepo := media.NewRepository(db)

	jwtService := jwtsvc.New("test_secret_key_32_characters_min", 24*time.Hour)

	authHandler := auth.NewHandler(auth.NewService(userRepo, jwtService))
	mediaHandler := media.NewHandler(media.NewService(mediaRepo, store))

	registry := upload.NewRegistry()
	reconciler := upload.NewReconciler(mediaRepo, userRepo)
	socketHandler := upload.NewSocketHandler(registry, store, userRepo, reconciler)

	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	authHandler.RegisterPublicRoutes(v1)

	protected := v1.Group("/")
	protected.Use(middleware.RequireAuth(jwtService))
	optional := v1.Group("/")
	optional.Use(middleware.OptionalAuth(jwtService))

	authHandler.RegisterProtectedRoutes(protected)
	mediaHandler.RegisterRoutes(protected, optional)
	socketHandler.RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testSuite{server: server, store: store}
}

func (s *testSuite) request(t *testing.T, method, path, token string, body any) *apiResponse {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

func (s *testSuite) registerUser(t *testing.T, name, email string) (token string, userID int64) {
	t.Helper()

	resp := s.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "drive123",
	})
	require.True(t, resp.Success, "registration failed: %+v", resp.Error)

	token = resp.Data["token"].(string)
	user := resp.Data["user"].(map[string]interface{})
	return token, int64(user["id"].(float64))
}

func (s *testSuite) dialUpload(t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws/upload"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *upload.ServerMessage {
	t.Helper()
	var msg upload.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

// uploadFile drives a full start/chunk/end exchange and returns the
// completion event.
func (s *testSuite) uploadFile(t *testing.T, userID int64, filename, mimeType string, content []byte) *upload.ServerMessage {
	t.Helper()
	conn := s.dialUpload(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event":    "upload:start",
		"filename": filename,
		"size":     len(content),
		"mimeType": mimeType,
		"userId":   userID,
	}))
	ack := readEvent(t, conn)
	require.Equal(t, "upload:acknowledged", ack.Event, "got %+v", ack)
	require.NotEmpty(t, ack.FileKey)

	half := len(content) / 2
	for i, chunk := range [][]byte{content[:half], content[half:]} {
		require.NoError(t, conn.WriteJSON(map[string]any{
			"event":      "upload:chunk",
			"chunk":      base64.StdEncoding.EncodeToString(chunk),
			"chunkIndex": i,
		}))
		received := readEvent(t, conn)
		require.Equal(t, "upload:chunk-received", received.Event)
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "upload:end"}))
	complete := readEvent(t, conn)
	require.Equal(t, "upload:complete", complete.Event, "got %+v", complete)
	return complete
}

func TestUploadListShareFlow(t *testing.T) {
	s := setupSuite(t)

	aliceToken, aliceID := s.registerUser(t, "Alice", "alice@example.com")
	bobToken, _ := s.registerUser(t, "Bob", "bob@example.com")

	content := []byte("the quick brown fox jumps over the lazy dog")
	complete := s.uploadFile(t, aliceID, "fox.txt", "text/plain", content)

	assert.Equal(t, int64(len(content)), complete.Size)
	assert.NotEmpty(t, complete.FileID)

	// Bytes actually reached the object store.
	assert.Equal(t, 1, s.store.Len())

	// The upload shows up in the owner's listing.
	list := s.request(t, http.MethodGet, "/api/v1/media", aliceToken, nil)
	require.True(t, list.Success)
	assert.Equal(t, float64(1), list.Data["total"])

	// Quota reflects the provider-reported size.
	me := s.request(t, http.MethodGet, "/api/v1/users/me", aliceToken, nil)
	require.True(t, me.Success)
	user := me.Data["user"].(map[string]interface{})
	assert.Equal(t, float64(len(content)), user["storage_used"])

	// Bob cannot see the file until Alice shares it.
	denied := s.request(t, http.MethodGet, "/api/v1/media/"+complete.FileID+"/details", bobToken, nil)
	require.False(t, denied.Success)
	assert.Equal(t, "ACCESS_DENIED", denied.Error.Code)

	shared := s.request(t, http.MethodPost, "/api/v1/media/"+complete.FileID+"/share/users", aliceToken, map[string]any{
		"emails":     []string{"bob@example.com"},
		"permission": "download",
	})
	require.True(t, shared.Success)

	details := s.request(t, http.MethodGet, "/api/v1/media/"+complete.FileID+"/details", bobToken, nil)
	require.True(t, details.Success)
	assert.Equal(t, "shared", details.Data["accessType"])

	withMe := s.request(t, http.MethodGet, "/api/v1/media/shared/with-me", bobToken, nil)
	require.True(t, withMe.Success)
	assert.Equal(t, float64(1), withMe.Data["total"])
}

func TestTrashLifecycle(t *testing.T) {
	s := setupSuite(t)

	token, userID := s.registerUser(t, "Alice", "alice@example.com")
	complete := s.uploadFile(t, userID, "report.pdf", "application/pdf", []byte("pdf-bytes-here"))

	deleted := s.request(t, http.MethodDelete, "/api/v1/media/"+complete.FileID, token, nil)
	require.True(t, deleted.Success)

	list := s.request(t, http.MethodGet, "/api/v1/media", token, nil)
	assert.Equal(t, float64(0), list.Data["total"])

	trash := s.request(t, http.MethodGet, "/api/v1/media/trashed", token, nil)
	assert.Equal(t, float64(1), trash.Data["total"])

	restored := s.request(t, http.MethodPut, "/api/v1/media/"+complete.FileID+"/restore", token, nil)
	require.True(t, restored.Success)

	list = s.request(t, http.MethodGet, "/api/v1/media", token, nil)
	assert.Equal(t, float64(1), list.Data["total"])

	// Permanent delete needs the file back in the trash first.
	s.request(t, http.MethodDelete, "/api/v1/media/"+complete.FileID, token, nil)
	purged := s.request(t, http.MethodDelete, "/api/v1/media/"+complete.FileID+"/permanent", token, nil)
	require.True(t, purged.Success)

	assert.Equal(t, 0, s.store.Len())
	trash = s.request(t, http.MethodGet, "/api/v1/media/trashed", token, nil)
	assert.Equal(t, float64(0), trash.Data["total"])
}

func TestUploadRejectedWhenQuotaExceeded(t *testing.T) {
	s := setupSuite(t)

	_, userID := s.registerUser(t, "Alice", "alice@example.com")
	conn := s.dialUpload(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event":    "upload:start",
		"filename": "huge.bin",
		"size":     int64(20) << 30, // past the 15 GiB default
		"mimeType": "application/octet-stream",
		"userId":   userID,
	}))

	event := readEvent(t, conn)
	assert.Equal(t, "upload:error", event.Event)
	assert.Equal(t, "Insufficient storage space", event.Error)
	assert.Equal(t, 0, s.store.Len())
}

func TestUploadRejectedForUnknownUser(t *testing.T) {
	s := setupSuite(t)
	conn := s.dialUpload(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event":    "upload:start",
		"filename": "file.txt",
		"size":     10,
		"mimeType": "text/plain",
		"userId":   9999,
	}))

	event := readEvent(t, conn)
	assert.Equal(t, "upload:error", event.Event)
	assert.Equal(t, "User not found", event.Error)
}

func TestLoginAfterRegistration(t *testing.T) {
	s := setupSuite(t)
	s.registerUser(t, "Alice", "alice@example.com")

	login := s.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "drive123",
	})
	require.True(t, login.Success)
	assert.NotEmpty(t, login.Data["token"])

	bad := s.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.False(t, bad.Success)
	assert.Equal(t, "INVALID_CREDENTIALS", bad.Error.Code)
}
