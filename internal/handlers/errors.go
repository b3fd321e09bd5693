package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/middleware"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/services"
)

var kindStatus = map[models.ErrorKind]int{
	models.KindValidation:       http.StatusBadRequest,
	models.KindAuthorization:    http.StatusForbidden,
	models.KindNotFound:         http.StatusNotFound,
	models.KindConflict:         http.StatusConflict,
	models.KindExternalProvider: http.StatusBadGateway,
	models.KindIntegrity:        http.StatusInternalServerError,
}

// respondError writes err as {"error","message","code"} with the status of
// its kind. Errors without a kind are logged and hidden behind a 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var de *models.DomainError
	if !errors.As(err, &de) {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An internal error occurred",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	status, known := kindStatus[de.Kind]
	if !known {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError || de.Kind == models.KindExternalProvider {
		logger.WithError(err).WithField("code", de.Code).Error("Request failed")
	}
	c.JSON(status, gin.H{
		"error":   string(de.Kind),
		"message": de.Message,
		"code":    de.Code,
	})
}

// badRequest answers 400 for malformed input that never reached a service
func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(models.KindValidation),
		"message": message,
		"code":    code,
	})
}

func requireUser(c *gin.Context) (middleware.UserContext, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
			"code":    "UNAUTHORIZED",
		})
		return middleware.UserContext{}, false
	}
	return userCtx, true
}

func actorOf(userCtx middleware.UserContext) services.Actor {
	return services.Actor{UserID: userCtx.UserID, IsAdmin: userCtx.IsAdmin()}
}

// idParam parses a positive int64 path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "INVALID_ID", "invalid "+name)
		return 0, false
	}
	return id, true
}

// pagination reads limit and offset query parameters
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseDate parses a YYYY-MM-DD value and answers 400 when it is malformed
func parseDate(c *gin.Context, field, value string) (time.Time, bool) {
	d, err := models.ParseDate(value)
	if err != nil {
		badRequest(c, "INVALID_DATE", field+" must be a date in YYYY-MM-DD form")
		return time.Time{}, false
	}
	return d, true
}
