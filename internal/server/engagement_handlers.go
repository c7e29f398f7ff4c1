package server

import (
	"strings"

	"wanderplan/internal/models"
	"wanderplan/internal/service"

	"github.com/gofiber/fiber/v2"
)

type textRequest struct {
	Text string `json:"text"`
}

// target parses :id into an engagement target of the given kind.
func (s *Server) target(c *fiber.Ctx, kind models.TargetKind) (service.Target, bool) {
	id, err := s.parseID(c, "id")
	if err != nil {
		return service.Target{}, false
	}
	return service.Target{Kind: kind, ID: id}, true
}

// ToggleLike handles POST /api/{plans|publications}/:id/like
// @Summary Like or unlike
// @Tags engagement
// @Produce json
// @Param id path int true "Plan or publication ID"
// @Success 200 {object} service.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /plans/{id}/like [post]
// @Router /publications/{id}/like [post]
// @Security BearerAuth
func (s *Server) ToggleLike(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := s.target(c, kind)
		if !ok {
			return nil
		}
		res, err := s.engagement.LikeToggle(c.UserContext(), t, currentUserID(c))
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(res)
	}
}

// AddComment handles POST /api/{plans|publications}/:id/comments
// @Summary Comment
// @Tags engagement
// @Accept json
// @Produce json
// @Param id path int true "Plan or publication ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /plans/{id}/comments [post]
// @Router /publications/{id}/comments [post]
// @Security BearerAuth
func (s *Server) AddComment(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := s.target(c, kind)
		if !ok {
			return nil
		}
		var req textRequest
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		comment, err := s.engagement.AddComment(c.UserContext(), t, currentUserID(c), req.Text)
		if err != nil {
			return respondErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	}
}

// AddReply handles POST /api/{plans|publications}/:id/comments/:commentId/replies
// @Summary Reply to a comment
// @Tags engagement
// @Accept json
// @Produce json
// @Param id path int true "Plan or publication ID"
// @Param commentId path string true "Comment ID"
// @Param request body object{text=string} true "Reply"
// @Success 201 {object} models.Reply
// @Failure 404 {object} models.ErrorResponse
// @Router /plans/{id}/comments/{commentId}/replies [post]
// @Router /publications/{id}/comments/{commentId}/replies [post]
// @Security BearerAuth
func (s *Server) AddReply(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := s.target(c, kind)
		if !ok {
			return nil
		}
		var req textRequest
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		reply, err := s.engagement.AddReply(c.UserContext(), t, strings.TrimSpace(c.Params("commentId")), currentUserID(c), req.Text)
		if err != nil {
			return respondErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(reply)
	}
}

// ToggleReaction handles POST /api/{plans|publications}/:id/comments/:commentId/reactions
// @Summary Toggle an emoji reaction on a comment
// @Tags engagement
// @Accept json
// @Produce json
// @Param id path int true "Plan or publication ID"
// @Param commentId path string true "Comment ID"
// @Param request body object{type=string} true "Emoji"
// @Success 200 {object} object{reactions=[]models.Reaction}
// @Failure 404 {object} models.ErrorResponse
// @Router /plans/{id}/comments/{commentId}/reactions [post]
// @Router /publications/{id}/comments/{commentId}/reactions [post]
// @Security BearerAuth
func (s *Server) ToggleReaction(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := s.target(c, kind)
		if !ok {
			return nil
		}
		var req struct {
			Type string `json:"type"`
		}
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		reactions, err := s.engagement.ToggleReaction(c.UserContext(), t, strings.TrimSpace(c.Params("commentId")), currentUserID(c), req.Type)
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(fiber.Map{"reactions": reactions})
	}
}
