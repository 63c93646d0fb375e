package handlers

import (
	"github.com/gin-gonic/gin"

	"shakti-shield/internal/models"
	"shakti-shield/internal/services"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/logger"
)

type SOSHandler struct {
	sosService services.SOSService
	logger     *logger.Logger
}

func NewSOSHandler(sosService services.SOSService, log *logger.Logger) *SOSHandler {
	return &SOSHandler{sosService: sosService, logger: log}
}

// Trigger creates an SOS request and fans out notifications.
func (h *SOSHandler) Trigger(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	var req models.TriggerSOSRequest
	if !bindJSON(c, &req, false) {
		return
	}

	summary, err := h.sosService.Trigger(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, h.logger, err, "trigger SOS")
		return
	}

	utils.CreatedResponse(c, "SOS triggered successfully", summary)
}

// GetActive returns the caller's active request, or null.
func (h *SOSHandler) GetActive(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	active, err := h.sosService.GetActive(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err, "get active SOS")
		return
	}

	if active == nil {
		utils.SuccessResponse(c, "No active SOS", nil)
		return
	}
	utils.SuccessResponse(c, "Active SOS retrieved successfully", active)
}

func (h *SOSHandler) GetHistory(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	history, total, err := h.sosService.GetHistory(c.Request.Context(), user.ID, params)
	if err != nil {
		respondError(c, h.logger, err, "get SOS history")
		return
	}
	if history == nil {
		history = []*models.SOSRequest{}
	}

	utils.SuccessResponseWithMeta(c, "SOS history retrieved successfully", history, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *SOSHandler) GetByID(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	sosID, ok := objectIDParam(c, "id", "SOS")
	if !ok {
		return
	}

	sos, err := h.sosService.GetByID(c.Request.Context(), sosID, user.ID)
	if err != nil {
		respondError(c, h.logger, err, "get SOS")
		return
	}

	utils.SuccessResponse(c, "SOS retrieved successfully", sos)
}

func (h *SOSHandler) Resolve(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	sosID, ok := objectIDParam(c, "id", "SOS")
	if !ok {
		return
	}

	var req models.ResolveSOSRequest
	if !bindJSON(c, &req, true) {
		return
	}

	sos, err := h.sosService.Resolve(c.Request.Context(), sosID, user.ID, req.Notes)
	if err != nil {
		respondError(c, h.logger, err, "resolve SOS")
		return
	}

	utils.SuccessResponse(c, "SOS resolved successfully", sos)
}

func (h *SOSHandler) Cancel(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	sosID, ok := objectIDParam(c, "id", "SOS")
	if !ok {
		return
	}

	sos, err := h.sosService.Cancel(c.Request.Context(), sosID, user.ID)
	if err != nil {
		respondError(c, h.logger, err, "cancel SOS")
		return
	}

	utils.SuccessResponse(c, "SOS cancelled successfully", sos)
}

func (h *SOSHandler) MarkFalseAlarm(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	sosID, ok := objectIDParam(c, "id", "SOS")
	if !ok {
		return
	}

	var req models.ResolveSOSRequest
	if !bindJSON(c, &req, true) {
		return
	}

	sos, err := h.sosService.MarkFalseAlarm(c.Request.Context(), sosID, user.ID, req.Notes)
	if err != nil {
		respondError(c, h.logger, err, "mark SOS as false alarm")
		return
	}

	utils.SuccessResponse(c, "SOS marked as false alarm", sos)
}

func (h *SOSHandler) AddNote(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	sosID, ok := objectIDParam(c, "id", "SOS")
	if !ok {
		return
	}

	var req models.AddSOSNoteRequest
	if !bindJSON(c, &req, false) {
		return
	}

	sos, err := h.sosService.AddNote(c.Request.Context(), sosID, user.ID, req.Message)
	if err != nil {
		respondError(c, h.logger, err, "add SOS note")
		return
	}

	utils.SuccessResponse(c, "Note added successfully", sos)
}
