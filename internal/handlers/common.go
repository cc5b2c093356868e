package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workforce-service/internal/middleware"
	"workforce-service/internal/models"
)

// getPagination reads page/limit query parameters with sane bounds
func getPagination(c *gin.Context, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    middleware.ErrCodeBadRequest,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
	})
}

func respondNotFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
	})
}

func respondForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    middleware.ErrCodeForbidden,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
	})
}

func respondInternal(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    middleware.ErrCodeInternalServer,
			Message: err.Error(),
		},
		RequestID: c.GetString("request_id"),
	})
}
