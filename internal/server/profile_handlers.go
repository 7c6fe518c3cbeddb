package server

import (
	"github.com/gofiber/fiber/v2"
)

// Profile serves an author's page: the account, their posts newest first,
// and whether the viewer follows them.
// @Summary Author profile
// @Tags profiles
// @Produce json
// @Param username path string true "author username"
// @Param page query int false "page number"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /{username} [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	author, err := s.users.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}

	page := pageParam(c)
	total, err := s.posts.CountByAuthor(ctx, author.ID)
	if err != nil {
		return respondError(c, err)
	}
	meta, offset := buildPagination(page, s.cfg.PageSize, total)
	posts, err := s.posts.ListByAuthor(ctx, author.ID, offset, s.cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}

	following := false
	if viewerID := s.optionalUserID(c); viewerID != 0 && viewerID != author.ID {
		following, err = s.followService.IsFollowing(ctx, viewerID, author.ID)
		if err != nil {
			return respondError(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"author":      author,
		"posts_count": total,
		"following":   following,
		"page":        postPage{Posts: posts, pagination: meta},
	})
}
