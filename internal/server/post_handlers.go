package server

import (
	"encoding/json"
	"fmt"
	"io"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index serves the home page listing, newest posts first. Whole pages are
// cached as rendered JSON for a short window; writers are not awaited, a
// new post may take up to the TTL to appear here.
// @Summary Home page post listing
// @Tags posts
// @Produce json
// @Param page query int false "page number"
// @Success 200 {object} postPage
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := pageParam(c)

	if body, ok := s.cache.GetBytes(ctx, cache.HomeKey(page)); ok {
		observability.HomeCacheHits.Inc()
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
	observability.HomeCacheMisses.Inc()

	total, err := s.posts.CountAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	meta, offset := buildPagination(page, s.cfg.PageSize, total)
	posts, err := s.posts.ListAll(ctx, offset, s.cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}

	payload := postPage{Posts: posts, pagination: meta}
	body, err := json.Marshal(payload)
	if err != nil {
		return respondError(c, models.NewInternalError("failed to render page", err))
	}
	s.cache.SetBytes(ctx, cache.HomeKey(page), body, cache.HomeTTL)

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func (s *Server) postInputFromRequest(c *fiber.Ctx) (service.PostInput, error) {
	input := service.PostInput{
		Text:  c.FormValue("text"),
		Group: c.FormValue("group"),
	}

	if input.Text == "" && len(c.Body()) > 0 && c.Is("json") {
		var body struct {
			Text  string `json:"text"`
			Group string `json:"group"`
		}
		if err := c.BodyParser(&body); err != nil {
			return input, models.NewValidationError("invalid request body", err)
		}
		input.Text = body.Text
		input.Group = body.Group
	}

	file, err := c.FormFile("image")
	if err != nil || file == nil {
		return input, nil
	}
	f, err := file.Open()
	if err != nil {
		return input, models.NewValidationError("unreadable image upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return input, models.NewValidationError("unreadable image upload", err)
	}
	path, err := s.imageService.Store(data)
	if err != nil {
		return input, err
	}
	input.Image = path
	return input, nil
}

// CreatePost publishes a new post for the authenticated user and redirects
// to the home page.
// @Summary Create a post
// @Tags posts
// @Security BearerAuth
// @Accept mpfd
// @Param text formData string true "post text"
// @Param group formData string false "group slug"
// @Param image formData file false "image attachment"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Router /new [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()

	input, err := s.postInputFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := s.postService.Create(ctx, userID(c), input); err != nil {
		// Do not leave the upload orphaned under the media root.
		s.imageService.Remove(input.Image)
		return respondError(c, err)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// PostDetail serves one post with its comments, newest first.
// @Summary Post detail
// @Tags posts
// @Produce json
// @Param username path string true "author username"
// @Param postID path int true "post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/{postID} [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := parseID(c, "postID")
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.Get(ctx, c.Params("username"), postID)
	if err != nil {
		return respondError(c, err)
	}
	comments, err := s.commentService.ListForPost(ctx, post.ID)
	if err != nil {
		return respondError(c, err)
	}
	authorPosts, err := s.posts.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"post":         post,
		"comments":     comments,
		"author_posts": authorPosts,
	})
}

// EditPostForm returns the post fields for pre-filling an edit form. Only
// the author gets it; anyone else is sent to the post view.
// @Summary Fetch a post for editing
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param username path string true "author username"
// @Param postID path int true "post ID"
// @Success 200 {object} models.Post
// @Router /{username}/{postID}/edit [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	ctx := c.UserContext()

	username := c.Params("username")
	postID, err := parseID(c, "postID")
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.Get(ctx, username, postID)
	if err != nil {
		return respondError(c, err)
	}
	if post.AuthorID != userID(c) {
		return c.Redirect(fmt.Sprintf("/%s/%d", username, postID), fiber.StatusFound)
	}
	return c.JSON(post)
}

// EditPost applies an edit to the author's own post and redirects to the
// post view. A non-author is redirected there without changing anything.
// @Summary Edit a post
// @Tags posts
// @Security BearerAuth
// @Accept mpfd
// @Param username path string true "author username"
// @Param postID path int true "post ID"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Router /{username}/{postID}/edit [post]
func (s *Server) EditPost(c *fiber.Ctx) error {
	ctx := c.UserContext()

	username := c.Params("username")
	postID, err := parseID(c, "postID")
	if err != nil {
		return respondError(c, err)
	}

	input, err := s.postInputFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := s.postService.Update(ctx, userID(c), username, postID, input); err != nil {
		s.imageService.Remove(input.Image)
		if err == service.ErrNotAuthor {
			return c.Redirect(fmt.Sprintf("/%s/%d", username, postID), fiber.StatusFound)
		}
		return respondError(c, err)
	}
	return c.Redirect(fmt.Sprintf("/%s/%d", username, postID), fiber.StatusFound)
}
