package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// FollowIndex serves the personal feed: posts by every followed author,
// newest first.
// @Summary Feed of followed authors
// @Tags follows
// @Security BearerAuth
// @Produce json
// @Param page query int false "page number"
// @Success 200 {object} postPage
// @Router /follow [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewerID := userID(c)

	page := pageParam(c)
	total, err := s.posts.CountByFollower(ctx, viewerID)
	if err != nil {
		return respondError(c, err)
	}
	meta, offset := buildPagination(page, s.cfg.PageSize, total)
	posts, err := s.posts.ListByFollower(ctx, viewerID, offset, s.cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(postPage{Posts: posts, pagination: meta})
}

// Follow subscribes the viewer to an author and redirects to the author's
// profile. Already following, or following yourself, changes nothing.
// @Summary Follow an author
// @Tags follows
// @Security BearerAuth
// @Param username path string true "author username"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/follow [get]
func (s *Server) Follow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Follow(c.UserContext(), userID(c), username); err != nil {
		return respondError(c, err)
	}
	return c.Redirect(fmt.Sprintf("/%s", username), fiber.StatusFound)
}

// Unfollow removes the subscription and redirects to the author's profile.
// Unfollowing someone never followed is an error.
// @Summary Unfollow an author
// @Tags follows
// @Security BearerAuth
// @Param username path string true "author username"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/unfollow [get]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Unfollow(c.UserContext(), userID(c), username); err != nil {
		return respondError(c, err)
	}
	return c.Redirect(fmt.Sprintf("/%s", username), fiber.StatusFound)
}
