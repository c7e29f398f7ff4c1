package server

import (
	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
// @Summary List notifications
// @Description Newest first, with the caller's unread count
// @Tags notifications
// @Produce json
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{notifications=[]models.Notification,unread_count=int}
// @Router /notifications [get]
// @Security BearerAuth
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page := parsePagination(c, 50)

	list, err := s.notifications.List(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return respondErr(c, err)
	}
	unread, err := s.notifications.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return c.JSON(fiber.Map{"notifications": list, "unread_count": unread})
}

// CreateNotification handles POST /api/notifications
// @Summary Create a notification
// @Description Sends a like, comment or clone notification from the caller
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body object{recipient_id=int,action_type=string,target_type=string,target_id=int,description=string} true "Notification"
// @Success 201 {object} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Router /notifications [post]
// @Security BearerAuth
func (s *Server) CreateNotification(c *fiber.Ctx) error {
	var req struct {
		RecipientID uint              `json:"recipient_id"`
		ActionType  models.ActionType `json:"action_type"`
		TargetType  models.TargetKind `json:"target_type"`
		TargetID    uint              `json:"target_id"`
		Description string            `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var senderName string
	if claims, ok := c.Locals("claims").(*middleware.Claims); ok {
		senderName = claims.Username
	}

	n, err := s.notifications.Create(c.UserContext(), currentUserID(c), senderName, service.CreateInput{
		RecipientID: req.RecipientID,
		Action:      req.ActionType,
		Target:      req.TargetType,
		TargetID:    req.TargetID,
		Description: req.Description,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
// @Summary Mark one notification read
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{id}/read [post]
// @Security BearerAuth
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notifications.MarkRead(c.UserContext(), currentUserID(c), id); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Success 200 {object} object{updated=int}
// @Router /notifications/read-all [post]
// @Security BearerAuth
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notifications.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
