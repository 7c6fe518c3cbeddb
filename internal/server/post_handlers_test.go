package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHomePosts(t *testing.T, ts *testServer, n int) {
	t.Helper()
	ts.signup(t, "author")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		ts.seedPost(t, "author", fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
	}
}

func TestIndexNewestFirstAndPaginated(t *testing.T) {
	ts := newTestServer(t)
	seedHomePosts(t, ts, 7) // testPageSize is 3, so 3 pages

	resp := ts.request(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page postPage
	decodeBody(t, resp, &page)
	require.Len(t, page.Posts, testPageSize)
	assert.Equal(t, "post 7", page.Posts[0].Text)
	assert.Equal(t, "post 5", page.Posts[2].Text)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(7), page.TotalItems)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrevious)
}

func TestIndexPageClamping(t *testing.T) {
	ts := newTestServer(t)
	seedHomePosts(t, ts, 7)

	// Beyond the last page lands on the last page.
	resp := ts.request(t, http.MethodGet, "/?page=999", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page postPage
	decodeBody(t, resp, &page)
	assert.Equal(t, 3, page.Page)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "post 1", page.Posts[0].Text)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)

	// Anything non-numeric means the first page.
	resp = ts.request(t, http.MethodGet, "/?page=banana", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, "post 7", page.Posts[0].Text)
}

func TestIndexEmptyIsPageOneOfOne(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.request(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page postPage
	decodeBody(t, resp, &page)
	assert.Empty(t, page.Posts)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrevious)
}

func TestIndexServesStaleCacheUntilTTL(t *testing.T) {
	ts := newTestServer(t)
	seedHomePosts(t, ts, 1)

	resp := ts.request(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page postPage
	decodeBody(t, resp, &page)
	require.Len(t, page.Posts, 1)

	// A new post does not invalidate the cached page.
	ts.seedPost(t, "author", "fresh", time.Now())

	resp = ts.request(t, http.MethodGet, "/", "", nil)
	decodeBody(t, resp, &page)
	assert.Len(t, page.Posts, 1, "home page must stay cached inside the TTL window")

	// After the TTL the new post shows up.
	ts.mr.FastForward(cache.HomeTTL + time.Second)
	resp = ts.request(t, http.MethodGet, "/", "", nil)
	decodeBody(t, resp, &page)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, "fresh", page.Posts[0].Text)
}

func TestCreatePostRedirectsHome(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "writer")

	resp := ts.request(t, http.MethodPost, "/new", token, map[string]string{"text": "my first post"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var post models.Post
	require.NoError(t, ts.db.First(&post).Error)
	assert.Equal(t, "my first post", post.Text)
}

func TestCreatePostWithGroup(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "writer")
	group := ts.seedGroup(t, "Go", "go")

	resp := ts.request(t, http.MethodPost, "/new", token, map[string]string{
		"text":  "grouped post",
		"group": "go",
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var post models.Post
	require.NoError(t, ts.db.First(&post).Error)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
}

func TestCreatePostEmptyText(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "writer")

	resp := ts.request(t, http.MethodPost, "/new", token, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	ts.db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestPostDetailWithComments(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "author")
	post := ts.seedPost(t, "author", "discussed", time.Now())

	var author models.User
	require.NoError(t, ts.db.Where("username = ?", "author").First(&author).Error)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"older", "newer"} {
		require.NoError(t, ts.db.Create(&models.Comment{
			PostID:   post.ID,
			AuthorID: author.ID,
			Text:     text,
			Created:  base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	resp := ts.request(t, http.MethodGet, fmt.Sprintf("/author/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Post        models.Post      `json:"post"`
		Comments    []models.Comment `json:"comments"`
		AuthorPosts int64            `json:"author_posts"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "discussed", body.Post.Text)
	assert.Equal(t, 2, body.Post.CommentsCount)
	assert.Equal(t, int64(1), body.AuthorPosts)
	require.Len(t, body.Comments, 2)
	assert.Equal(t, "newer", body.Comments[0].Text)
}

func TestPostDetailWrongAuthor(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "author")
	ts.signup(t, "other")
	post := ts.seedPost(t, "author", "mine", time.Now())

	resp := ts.request(t, http.MethodGet, fmt.Sprintf("/other/%d", post.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditPostByAuthor(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "author")
	post := ts.seedPost(t, "author", "original", time.Now())

	resp := ts.request(t, http.MethodPost, fmt.Sprintf("/author/%d/edit", post.ID), token,
		map[string]string{"text": "edited"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/author/%d", post.ID), resp.Header.Get("Location"))

	var got models.Post
	require.NoError(t, ts.db.First(&got, post.ID).Error)
	assert.Equal(t, "edited", got.Text)

	var count int64
	ts.db.Model(&models.Post{}).Count(&count)
	assert.Equal(t, int64(1), count, "edit must not create a new post")
}

func TestEditPostByNonAuthorRedirectsUnchanged(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "author")
	intruderToken := ts.signup(t, "intruder")
	post := ts.seedPost(t, "author", "original", time.Now())

	resp := ts.request(t, http.MethodPost, fmt.Sprintf("/author/%d/edit", post.ID), intruderToken,
		map[string]string{"text": "hacked"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/author/%d", post.ID), resp.Header.Get("Location"))

	var got models.Post
	require.NoError(t, ts.db.First(&got, post.ID).Error)
	assert.Equal(t, "original", got.Text)
}

func TestEditFormReturnsPostForAuthor(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "author")
	post := ts.seedPost(t, "author", "editable", time.Now())

	resp := ts.request(t, http.MethodGet, fmt.Sprintf("/author/%d/edit", post.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Post
	decodeBody(t, resp, &got)
	assert.Equal(t, "editable", got.Text)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if imageData != nil {
		fw, err := w.CreateFormFile("image", "pic.png")
		require.NoError(t, err)
		_, err = fw.Write(imageData)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (ts *testServer) multipartRequest(t *testing.T, path, token string, fields map[string]string, imageData []byte) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, imageData)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func mediaEntries(t *testing.T, ts *testServer) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(ts.cfg.UploadDir, "posts"))
	require.NoError(t, err)
	return entries
}

func TestCreatePostStoresImage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "author")

	resp := ts.multipartRequest(t, "/new", token, map[string]string{"text": "with picture"}, testPNG(t))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var got models.Post
	require.NoError(t, ts.db.Where("text = ?", "with picture").First(&got).Error)
	require.NotEmpty(t, got.Image)
	_, err := os.Stat(filepath.Join(ts.cfg.UploadDir, got.Image))
	assert.NoError(t, err, "stored image must exist under the media root")
}

func TestRejectedCreateDiscardsUploadedImage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "author")

	resp := ts.multipartRequest(t, "/new", token, map[string]string{"text": "   "}, testPNG(t))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, mediaEntries(t, ts), "rejected create must not leave files behind")
}

func TestNonAuthorEditDiscardsUploadedImage(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "author")
	intruderToken := ts.signup(t, "intruder")
	post := ts.seedPost(t, "author", "mine", time.Now())

	resp := ts.multipartRequest(t, fmt.Sprintf("/author/%d/edit", post.ID), intruderToken,
		map[string]string{"text": "hijack"}, testPNG(t))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	assert.Empty(t, mediaEntries(t, ts))

	var got models.Post
	require.NoError(t, ts.db.First(&got, post.ID).Error)
	assert.Equal(t, "mine", got.Text)
}
