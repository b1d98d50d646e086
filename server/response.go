package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/observability"
)

// RespondWithError writes the JSON error body for err. AppErrors keep their
// status and code; anything else becomes an opaque INTERNAL_ERROR. Server
// side failures are logged with their cause, which never reaches the client.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		logger.GetGlobalLogger().WithContext(ctx).Error("Request failed", map[string]interface{}{
			logger.FieldPath:      c.Request.URL.Path,
			logger.FieldErrorCode: string(appErr.Code),
			logger.FieldError:     err.Error(),
		})
		observability.SetSpanError(ctx, err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response with data as the body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends a 201 response with data as the body.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
