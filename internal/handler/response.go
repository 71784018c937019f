package handler

import (
	"errors"
	"net/http"

	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/logic"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleError 按业务错误分类返回对应状态码
func HandleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, logic.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, logic.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, logic.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, logic.ErrInvariant):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, logic.ErrNotPermitted):
		status = http.StatusMethodNotAllowed
	default:
		logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	ErrorResponse(c, status, err.Error())
}
