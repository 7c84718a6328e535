// Package handler 只读 HTTP 接口
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawpunks/punk-watcher/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Code:    "OK",
		Message: "success",
		Data:    data,
	})
}

// Error 返回错误响应
func Error(c *gin.Context, err error) {
	coded := errors.FromError(err)
	c.JSON(errors.ToHTTPStatus(coded), &Response{
		Code:    coded.Code,
		Message: coded.Message,
	})
}
