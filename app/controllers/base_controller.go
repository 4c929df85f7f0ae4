package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a 200 response with the payload as-is.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, data)
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"error": message,
	})
}

// JSONAppError maps an application error to its HTTP status and envelope.
// Internal and external failures are logged with their cause; the response
// only carries the public message.
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.AsAppError(err)

	switch appErr.Kind {
	case apperrors.KindValidation, apperrors.KindNotFound:
		logger.Debug("request rejected",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.String("kind", string(appErr.Kind)),
			zap.String("message", appErr.Message))
	default:
		logger.Error("request failed",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.String("kind", string(appErr.Kind)),
			zap.String("provider", appErr.Provider),
			zap.Error(err))
	}

	c.JSON(appErr.HTTPCode, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    appErr.Kind,
			"message": appErr.Message,
		},
	})
}
