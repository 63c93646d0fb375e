package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shakti-shield/internal/models"
	"shakti-shield/internal/services"
	"shakti-shield/internal/utils"
	"shakti-shield/internal/validators"
	"shakti-shield/pkg/logger"
)

type NotificationHandler struct {
	notificationService services.NotificationService
	logger              *logger.Logger
}

func NewNotificationHandler(notificationService services.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: log}
}

func (h *NotificationHandler) RegisterPushToken(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	var req models.PushTokenRequest
	if !bindJSON(c, &req, false) {
		return
	}

	if err := h.notificationService.RegisterPushToken(c.Request.Context(), user.ID, req.Token); err != nil {
		respondError(c, h.logger, err, "register push token")
		return
	}

	utils.SuccessResponse(c, "Push token registered successfully", nil)
}

func (h *NotificationHandler) ClearPushToken(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	if err := h.notificationService.ClearPushToken(c.Request.Context(), user.ID); err != nil {
		respondError(c, h.logger, err, "clear push token")
		return
	}

	utils.SuccessResponse(c, "Push token cleared successfully", nil)
}

// SendTestPush delivers a sample alert to the supplied token. A delivery
// failure is reported in the body, not as an HTTP error.
func (h *NotificationHandler) SendTestPush(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	var req models.PushTokenRequest
	if !bindJSON(c, &req, false) {
		return
	}

	if errs := validators.ValidatePushTokenRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	result := h.notificationService.SendTestPush(c.Request.Context(), user, req.Token)
	if !result.Success {
		c.JSON(http.StatusBadGateway, utils.APIResponse{
			Status:  utils.StatusFailed,
			Message: "Test push failed",
			Data:    result,
		})
		return
	}

	utils.SuccessResponse(c, "Test push sent", result)
}

func (h *NotificationHandler) SendTestContact(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	var req models.TestContactRequest
	if !bindJSON(c, &req, false) {
		return
	}

	result, err := h.notificationService.SendTestContact(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, h.logger, err, "send test notification")
		return
	}

	utils.SuccessResponse(c, "Test notification processed", result)
}
