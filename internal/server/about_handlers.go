package server

import "github.com/gofiber/fiber/v2"

// AboutAuthor serves the static author page.
// @Summary About the author
// @Tags about
// @Produce json
// @Success 200 {object} map[string]string
// @Router /about/author [get]
func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title": "About the author",
		"body":  "Yatube is a small social network for publishing personal diaries.",
	})
}

// AboutTech serves the static technology page.
// @Summary About the technology
// @Tags about
// @Produce json
// @Success 200 {object} map[string]string
// @Router /about/tech [get]
func (s *Server) AboutTech(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title": "Technologies",
		"body":  "Built with Go, Fiber, GORM, PostgreSQL and Redis.",
	})
}
