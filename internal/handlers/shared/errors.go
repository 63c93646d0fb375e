package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shakti-shield/internal/middleware"
	"shakti-shield/internal/models"
	"shakti-shield/internal/services"
	"shakti-shield/internal/utils"
	"shakti-shield/internal/validators"
	"shakti-shield/pkg/logger"
)

// respondError maps service errors onto the API envelope.
func respondError(c *gin.Context, log *logger.Logger, err error, action string) {
	var verrs validators.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		utils.ValidationErrorResponse(c, verrs.Details())
	case errors.Is(err, services.ErrNotSOSOwner):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrSOSNotActive):
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeSOSNotActive, err.Error())
	case errors.Is(err, services.ErrSOSNotFound):
		utils.NotFoundResponse(c, "SOS request")
	case errors.Is(err, services.ErrContactNotFound):
		utils.NotFoundResponse(c, "Contact")
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "User")
	case errors.Is(err, services.ErrDuplicateContact), errors.Is(err, services.ErrTriggerInProgress):
		utils.ConflictResponse(c, err.Error())
	default:
		log.WithContext(c.Request.Context()).WithError(err).Errorf("Failed to %s", action)
		utils.ErrorResponse(c, http.StatusInternalServerError, utils.CodeInternalError, "Failed to "+action)
	}
}

func authUser(c *gin.Context) (*models.AuthUser, bool) {
	user, ok := middleware.GetAuthUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return nil, false
	}
	return user, true
}

func objectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+label+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindJSON binds the body into dst. An empty body is accepted when optional
// is set.
func bindJSON(c *gin.Context, dst interface{}, optional bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	return false
}
