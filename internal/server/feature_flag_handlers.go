package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns the evaluated flags for the current user.
// @Summary Feature flags
// @Tags meta
// @Produce json
// @Success 200 {object} object{flags=[]string,evaluated=map[string]bool}
// @Router /feature-flags [get]
// @Security BearerAuth
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"flags":     []string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"flags":     s.featureFlags.Names(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
