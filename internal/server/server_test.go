package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"feedql/internal/config"
	"feedql/internal/database"
	"feedql/internal/models"
	"feedql/internal/notifications"
	"feedql/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      "server-test-secret-with-enough-bytes",
		JWTIssuer:      "feedql",
		TokenTTL:       time.Hour,
		BcryptCost:     4,
		AllowedOrigins: "*",
		DBDriver:       "sqlite",
		ImageDir:       filepath.Join(t.TempDir(), "images"),
		MaxUploadBytes: 1 << 20,
		ServiceName:    "feedql-test",
	}
}

func newTestServer(t *testing.T, rdb *redis.Client) *Server {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	s, err := NewServerWithDeps(testConfig(t), db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.broadcaster.Wait()
		s.images.Wait()
	})
	return s
}

func signupAndLogin(t *testing.T, s *Server, email string) string {
	t.Helper()
	ctx := context.Background()
	_, err := s.userSvc.Signup(ctx, service.SignupInput{Email: email, Name: "Tester", Password: "secret123"})
	require.NoError(t, err)
	authData, err := s.userSvc.Login(ctx, email, "secret123")
	require.NoError(t, err)
	return authData.Token
}

func uploadRequest(t *testing.T, token, filename, contentType string, body []byte, oldPath string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if oldPath != "" {
		require.NoError(t, w.WriteField("oldPath", oldPath))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, "/post-image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out), string(raw))
}

func TestLivenessCheck(t *testing.T) {
	s := newTestServer(t, nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Run("without redis", func(t *testing.T) {
		s := newTestServer(t, nil)
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		decode(t, resp, &body)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "healthy", body.Checks["database"])
		assert.Equal(t, "disabled", body.Checks["redis"])
	})

	t.Run("redis up then down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = rdb.Close() })
		s := newTestServer(t, rdb)

		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		mr.Close()
		resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body struct {
			Checks map[string]string `json:"checks"`
		}
		decode(t, resp, &body)
		assert.Equal(t, "unhealthy", body.Checks["redis"])
	})
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s, "uploader@example.com")
	png := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("anonymous", func(t *testing.T) {
		resp, err := s.App().Test(uploadRequest(t, "", "a.png", "image/png", png, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body models.ErrorResponse
		decode(t, resp, &body)
		assert.Equal(t, "Not authenticated!", body.Message)
	})

	t.Run("no file", func(t *testing.T) {
		resp, err := s.App().Test(uploadRequest(t, token, "", "", nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body UploadResponse
		decode(t, resp, &body)
		assert.Equal(t, "No file provided!", body.Message)
		assert.Empty(t, body.FilePath)
	})

	t.Run("disallowed type", func(t *testing.T) {
		resp, err := s.App().Test(uploadRequest(t, token, "notes.txt", "text/plain", []byte("hi"), ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body UploadResponse
		decode(t, resp, &body)
		assert.Equal(t, "No file provided!", body.Message)
	})

	t.Run("stored and served", func(t *testing.T) {
		resp, err := s.App().Test(uploadRequest(t, token, "cat.png", "image/png", png, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body UploadResponse
		decode(t, resp, &body)
		assert.Equal(t, "File stored.", body.Message)
		require.True(t, strings.HasPrefix(body.FilePath, "images/"), body.FilePath)
		assert.True(t, strings.HasSuffix(body.FilePath, "-cat.png"), body.FilePath)

		resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/"+body.FilePath, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		served, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, png, served)
	})

	t.Run("old path is removed even without a new file", func(t *testing.T) {
		old := filepath.Join(s.images.Dir(), "old.png")
		require.NoError(t, os.WriteFile(old, png, 0o644))

		resp, err := s.App().Test(uploadRequest(t, token, "", "", nil, "images/old.png"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		s.images.Wait()
		_, err = os.Stat(old)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

// listen serves the app on a loopback port and returns its address.
func listen(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := s.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func dialFeed(t *testing.T, s *Server, addr, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	before := s.hub.Count()
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return s.hub.Count() > before }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) notifications.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg notifications.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func graphqlCall(t *testing.T, addr, token, query string, variables map[string]interface{}) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data map[string]interface{} `json:"data"`
	}
	decode(t, resp, &out)
	return out.Data
}

func TestFeedReceivesPostLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	token := signupAndLogin(t, s, "author@example.com")
	addr := listen(t, s)

	anonymous := dialFeed(t, s, addr, "")
	member := dialFeed(t, s, addr, token)

	created := graphqlCall(t, addr, token, `mutation($in: PostInputData!) {
		createPost(postInput: $in) { _id title creator { name } }
	}`, map[string]interface{}{"in": map[string]interface{}{
		"title": "First post", "content": "Hello there", "imageUrl": "images/first.png",
	}})
	post := created["createPost"].(map[string]interface{})
	postID := post["_id"].(string)

	for _, conn := range []*websocket.Conn{anonymous, member} {
		msg := readMessage(t, conn)
		assert.Equal(t, "posts", msg.Type)
		assert.Equal(t, models.ActionCreate, msg.Action)
		body := msg.Post.(map[string]interface{})
		assert.Equal(t, postID, body["_id"])
		assert.Equal(t, "First post", body["title"])
	}

	graphqlCall(t, addr, token, `mutation($id: ID!) { deletePost(id: $id) }`,
		map[string]interface{}{"id": postID})

	msg := readMessage(t, member)
	assert.Equal(t, models.ActionDelete, msg.Action)
	assert.Equal(t, postID, msg.Post)
}

func TestShutdownClosesSubscribers(t *testing.T) {
	s := newTestServer(t, nil)
	s.StartWiring()
	addr := listen(t, s)
	conn := dialFeed(t, s, addr, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, 0, s.hub.Count())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	_, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(raw), "feedql_websocket_connections")
	assert.Contains(t, string(raw), "feedql_http_requests_total")
}
