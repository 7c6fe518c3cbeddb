package server

import (
	"github.com/gofiber/fiber/v2"

	"yatube/internal/models"
)

type groupPage struct {
	Groups []models.Group `json:"groups"`
	pagination
}

// GroupList serves all groups ordered by title.
// @Summary List groups
// @Tags groups
// @Produce json
// @Param page query int false "page number"
// @Success 200 {object} groupPage
// @Router /groups [get]
func (s *Server) GroupList(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := pageParam(c)

	total, err := s.groups.Count(ctx)
	if err != nil {
		return respondError(c, err)
	}
	meta, offset := buildPagination(page, s.cfg.PageSize, total)
	groups, err := s.groups.List(ctx, offset, s.cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groupPage{Groups: groups, pagination: meta})
}

// GroupPosts serves one group and its posts, newest first.
// @Summary Group page
// @Tags groups
// @Produce json
// @Param slug path string true "group slug"
// @Param page query int false "page number"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug} [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()

	group, err := s.groups.GetBySlug(ctx, c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}

	page := pageParam(c)
	total, err := s.posts.CountByGroup(ctx, group.ID)
	if err != nil {
		return respondError(c, err)
	}
	meta, offset := buildPagination(page, s.cfg.PageSize, total)
	posts, err := s.posts.ListByGroup(ctx, group.ID, offset, s.cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"group": group,
		"page":  postPage{Posts: posts, pagination: meta},
	})
}
