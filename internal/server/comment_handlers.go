package server

import (
	"fmt"

	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AddComment attaches a comment to a post and redirects back to the post
// view.
// @Summary Comment on a post
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Param username path string true "author username"
// @Param postID path int true "post ID"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /{username}/{postID}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	ctx := c.UserContext()

	username := c.Params("username")
	postID, err := parseID(c, "postID")
	if err != nil {
		return respondError(c, err)
	}

	text := c.FormValue("text")
	if text == "" && len(c.Body()) > 0 && c.Is("json") {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil {
			return respondError(c, models.NewValidationError("invalid request body", err))
		}
		text = body.Text
	}

	if _, err := s.commentService.Add(ctx, userID(c), username, postID, text); err != nil {
		return respondError(c, err)
	}
	return c.Redirect(fmt.Sprintf("/%s/%d", username, postID), fiber.StatusFound)
}
