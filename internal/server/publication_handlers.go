package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/publications
// @Summary Publication feed
// @Description Newest first. With author_id, only that author's publications; otherwise everyone but the caller.
// @Tags publications
// @Produce json
// @Param author_id query int false "Author ID"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} service.FeedItem
// @Router /publications [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	out, err := s.publications.Feed(c.UserContext(), s.viewerID(c), uint(c.QueryInt("author_id", 0)), page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// GetPublicationsByCity handles GET /api/publications/by-city
// @Summary Publications for a city
// @Tags publications
// @Produce json
// @Param city query string true "City"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} service.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Router /publications/by-city [get]
func (s *Server) GetPublicationsByCity(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	out, err := s.publications.ByCity(c.UserContext(), c.Query("city"), s.viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// GetPublication handles GET /api/publications/:id
// @Summary Get a publication
// @Tags publications
// @Produce json
// @Param id path int true "Publication ID"
// @Success 200 {object} service.PublicationDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /publications/{id} [get]
func (s *Server) GetPublication(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	out, err := s.publications.Detail(c.UserContext(), id, s.viewerID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// ClonePublication handles POST /api/publications/:id/clone
// @Summary Clone a publication's plan
// @Tags publications
// @Produce json
// @Param id path int true "Publication ID"
// @Success 201 {object} service.CloneResult
// @Failure 404 {object} models.ErrorResponse
// @Router /publications/{id}/clone [post]
// @Security BearerAuth
func (s *Server) ClonePublication(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.publications.ClonePublication(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
