package server

import (
	"io"

	"wanderplan/internal/models"
	"wanderplan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetSuggestions handles GET /api/users
// @Summary People to follow
// @Description List other users with follower counts, common followers and public plan counts
// @Tags users
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} service.Suggestion
// @Failure 401 {object} models.ErrorResponse
// @Router /users [get]
// @Security BearerAuth
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	out, err := s.profiles.Suggestions(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// GetUserProfile handles GET /api/users/:id/profile
// @Summary Get user profile
// @Description Public profile with follow graph and public plans
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/profile [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.profiles.Profile(c.UserContext(), id, s.viewerID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(view)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update current user's profile
// @Description Change username, email, bio or password. Renames propagate to plans and publications.
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.UpdateProfileInput true "Profile update"
// @Success 200 {object} service.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [put]
// @Security BearerAuth
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	view, err := s.profiles.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(view)
}

// UploadAvatar handles POST /api/users/me/avatar
// @Summary Upload avatar
// @Description Upload a JPEG, PNG or WebP image; it is cropped square and stored as WebP
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} object{avatar_url=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /users/me/avatar [post]
// @Security BearerAuth
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	url, err := s.profiles.UploadAvatar(c.UserContext(), currentUserID(c), content, file.Header.Get("Content-Type"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}

// ResyncMe handles POST /api/users/me/resync
// @Summary Repair derived data
// @Description Re-apply the current username to all plans and publications
// @Tags users
// @Produce json
// @Success 200 {object} service.ResyncResult
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me/resync [post]
// @Security BearerAuth
func (s *Server) ResyncMe(c *fiber.Ctx) error {
	res, err := s.profiles.Resync(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(res)
}

// GetPrivatePlans handles GET /api/users/:id/plans/private
// @Summary List own private plans
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} service.PlanSummary
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id}/plans/private [get]
// @Security BearerAuth
func (s *Server) GetPrivatePlans(c *fiber.Ctx) error {
	id, ok := s.selfOnly(c)
	if !ok {
		return nil
	}
	out, err := s.plans.ListPrivatePlans(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// GetClonedPlans handles GET /api/users/:id/plans/cloned
// @Summary List own cloned plans
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} service.PlanSummary
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id}/plans/cloned [get]
// @Security BearerAuth
func (s *Server) GetClonedPlans(c *fiber.Ctx) error {
	id, ok := s.selfOnly(c)
	if !ok {
		return nil
	}
	out, err := s.plans.ListClonedPlans(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(out)
}

// selfOnly parses :id and rejects it unless it is the caller.
func (s *Server) selfOnly(c *fiber.Ctx) (uint, bool) {
	id, err := s.parseID(c, "id")
	if err != nil {
		return 0, false
	}
	if id != currentUserID(c) {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only view your own plans"))
		return 0, false
	}
	return id, true
}

// FollowUser handles POST /api/users/:id/follow
// @Summary Follow a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
// @Security BearerAuth
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.follows.Follow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(res)
}

// UnfollowUser handles DELETE /api/users/:id/follow
// @Summary Unfollow a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Router /users/{id}/follow [delete]
// @Security BearerAuth
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.follows.Unfollow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(res)
}

// RemoveFollower handles DELETE /api/users/:id/follower
// @Summary Remove a follower
// @Tags users
// @Produce json
// @Param id path int true "Follower user ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Router /users/{id}/follower [delete]
// @Security BearerAuth
func (s *Server) RemoveFollower(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.follows.RemoveFollower(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(res)
}

// GetFollowStatus handles GET /api/users/:id/follow-status
// @Summary Whether the caller follows a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{is_following=bool}
// @Router /users/{id}/follow-status [get]
// @Security BearerAuth
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	following, err := s.follows.IsFollowing(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"is_following": following})
}
