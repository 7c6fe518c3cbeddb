package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPageSize = 3

type testServer struct {
	*Server
	db *gorm.DB
	mr *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		JWTSecret:            "test-secret-used-only-in-tests",
		Port:                 "0",
		AllowedOrigins:       "*",
		Env:                  "test",
		PageSize:             testPageSize,
		UploadDir:            t.TempDir(),
		ImageMaxUploadSizeMB: 5,
	}

	return &testServer{
		Server: NewServerWithDeps(cfg, db, cache.NewWithClient(client)),
		db:     db,
		mr:     mr,
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// signup registers an account through the API and returns its token.
func (ts *testServer) signup(t *testing.T, username string) string {
	t.Helper()

	resp := ts.request(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": "passw0rd123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var auth authResponse
	decodeBody(t, resp, &auth)
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

// seedPost inserts a post directly, bypassing the handlers, so listing tests
// control publication dates.
func (ts *testServer) seedPost(t *testing.T, username, text string, pubDate time.Time) *models.Post {
	t.Helper()

	var author models.User
	require.NoError(t, ts.db.Where("username = ?", username).First(&author).Error)

	post := &models.Post{Text: text, AuthorID: author.ID, PubDate: pubDate}
	require.NoError(t, ts.db.Create(post).Error)
	return post
}

func (ts *testServer) seedGroup(t *testing.T, title, slug string) *models.Group {
	t.Helper()
	group := &models.Group{Title: title, Slug: slug, Description: title + " talk"}
	require.NoError(t, ts.db.Create(group).Error)
	return group
}
