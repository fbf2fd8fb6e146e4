package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	apperrors "github.com/frostdev-ops/home-panel-go/pkg/errors"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// toAppError maps a domain error to the status and message shown to the user
func toAppError(err error) *apperrors.AppError {
	var (
		nf  *home.NotFoundError
		ve  *home.ValidationError
		ae  *home.AuthError
		aze *home.AuthorizationError
		ext *home.ExternalServiceError
		app *apperrors.AppError
	)
	switch {
	case errors.As(err, &nf):
		return apperrors.Wrap(err, http.StatusNotFound, notFoundMessage(nf))
	case errors.As(err, &ve):
		return apperrors.Wrap(err, http.StatusBadRequest, validationMessage(ve))
	case errors.As(err, &ae):
		return apperrors.Wrap(err, http.StatusUnauthorized, ae.Message)
	case errors.As(err, &aze):
		return apperrors.Wrap(err, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.As(err, &ext):
		if ext.Service == "store" {
			return apperrors.Wrap(err, http.StatusBadGateway, "The home database is unavailable. Please try again.")
		}
		return apperrors.Wrap(err, http.StatusBadGateway, "The assistant is currently unavailable. Please try again.")
	case errors.As(err, &app):
		return app
	default:
		return apperrors.Wrap(err, http.StatusInternalServerError, apperrors.ErrInternalServer.Message)
	}
}

func notFoundMessage(e *home.NotFoundError) string {
	kind := string(e.Kind)
	if kind == "" {
		return apperrors.ErrNotFound.Message
	}
	return fmt.Sprintf("%s%s not found.", strings.ToUpper(kind[:1]), kind[1:])
}

func validationMessage(e *home.ValidationError) string {
	if e.Field == "" {
		return e.Message
	}
	return e.Error()
}

// respondError writes the error envelope for err, logging server-side failures
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Code >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
	}
	c.Error(err)
	utils.SendError(c, appErr.Code, appErr.Message)
}

// NotFound answers requests that match no route
func (h *Handlers) NotFound(c *gin.Context) {
	utils.SendError(c, http.StatusNotFound, "The requested endpoint does not exist.")
}
