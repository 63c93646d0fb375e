package handlers

import (
	"github.com/gin-gonic/gin"

	"shakti-shield/internal/models"
	"shakti-shield/internal/services"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/logger"
)

type ContactHandler struct {
	contactService services.ContactService
	logger         *logger.Logger
}

func NewContactHandler(contactService services.ContactService, log *logger.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, logger: log}
}

func (h *ContactHandler) List(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	contacts, err := h.contactService.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err, "list contacts")
		return
	}
	if contacts == nil {
		contacts = []models.TrustedContact{}
	}

	utils.SuccessResponseWithMeta(c, "Contacts retrieved successfully", contacts, &utils.Meta{Count: len(contacts)})
}

func (h *ContactHandler) Add(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	var req models.ContactRequest
	if !bindJSON(c, &req, false) {
		return
	}

	contact, err := h.contactService.Add(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, h.logger, err, "add contact")
		return
	}

	utils.CreatedResponse(c, "Contact added successfully", contact)
}

func (h *ContactHandler) Update(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	contactID, ok := objectIDParam(c, "contactId", "contact")
	if !ok {
		return
	}

	var req models.ContactRequest
	if !bindJSON(c, &req, false) {
		return
	}

	contact, err := h.contactService.Update(c.Request.Context(), user.ID, contactID, &req)
	if err != nil {
		respondError(c, h.logger, err, "update contact")
		return
	}

	utils.SuccessResponse(c, "Contact updated successfully", contact)
}

func (h *ContactHandler) Delete(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	contactID, ok := objectIDParam(c, "contactId", "contact")
	if !ok {
		return
	}

	if err := h.contactService.Delete(c.Request.Context(), user.ID, contactID); err != nil {
		respondError(c, h.logger, err, "delete contact")
		return
	}

	utils.SuccessResponse(c, "Contact deleted successfully", nil)
}

func (h *ContactHandler) SetPrimary(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}
	contactID, ok := objectIDParam(c, "contactId", "contact")
	if !ok {
		return
	}

	contact, err := h.contactService.SetPrimary(c.Request.Context(), user.ID, contactID)
	if err != nil {
		respondError(c, h.logger, err, "set primary contact")
		return
	}

	utils.SuccessResponse(c, "Primary contact updated successfully", contact)
}

func (h *ContactHandler) GetPrimary(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	contact, err := h.contactService.GetPrimary(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err, "get primary contact")
		return
	}
	if contact == nil {
		utils.SuccessResponse(c, "No primary contact set", nil)
		return
	}

	utils.SuccessResponse(c, "Primary contact retrieved successfully", contact)
}

func (h *ContactHandler) Import(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		return
	}

	var req models.ImportContactsRequest
	if !bindJSON(c, &req, false) {
		return
	}

	result, err := h.contactService.Import(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, h.logger, err, "import contacts")
		return
	}

	utils.SuccessResponse(c, "Contacts imported", result)
}
