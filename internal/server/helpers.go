package server

import (
	"errors"
	"strconv"

	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// pagination is the page metadata attached to every listing response.
type pagination struct {
	Page        int   `json:"page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// postPage is a page of posts with its metadata.
type postPage struct {
	Posts []models.Post `json:"posts"`
	pagination
}

// pageParam reads ?page, treating anything non-numeric or below one as the
// first page. Out-of-range values are clamped later, once the total is known.
func pageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// buildPagination clamps the requested page against the total and returns
// the page metadata plus the query offset. A page beyond the end lands on
// the last page; an empty listing is page one of one.
func buildPagination(page, pageSize int, total int64) (pagination, int) {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	offset := (page - 1) * pageSize
	return pagination{
		Page:        page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, offset
}

// parseID reads a positive integer route parameter.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError("post not found", err)
	}
	return uint(id), nil
}

// userID returns the authenticated user's ID from the request context.
func userID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// respondError maps the application error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "NOT_FOUND":
			return models.RespondWithError(c, fiber.StatusNotFound, err)
		case "VALIDATION_ERROR":
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		case "UNAUTHORIZED":
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}
