// Package response 提供统一的 HTTP 响应封装，自动把 xerrors 业务错误映射为状态码与业务码.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quant/xerrors"
)

// Body 统一响应体.
type Body struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// HTTPStatusProvider 能够提供 HTTP 状态码的错误.
type HTTPStatusProvider interface {
	HTTPStatus() int
}

// Success 发送标准成功响应: HTTP 200，业务码 0.
func Success(c *gin.Context, data any) {
	SuccessWithStatus(c, http.StatusOK, data)
}

// SuccessWithStatus 发送指定 HTTP 状态码的成功响应.
func SuccessWithStatus(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Code: 0, Msg: "success", Data: data})
}

// Error 发送错误响应. xerrors 错误使用其业务码与状态码，其余错误兜底为 500.
func Error(c *gin.Context, err error) {
	ErrorWithData(c, err, nil)
}

// ErrorWithData 发送错误响应并附带部分结果，例如未收敛的优化结果.
func ErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		Success(c, data)
		return
	}

	body := Body{Code: http.StatusInternalServerError, Msg: err.Error(), Data: data}
	status := http.StatusInternalServerError

	if xe, ok := xerrors.FromError(err); ok {
		status = xe.HTTPStatus()
		body.Code = xe.Code
		body.Msg = xe.Message
		body.Detail = xe.Detail
	} else if p, ok := err.(HTTPStatusProvider); ok {
		status = p.HTTPStatus()
		body.Code = status
	}

	c.JSON(status, body)
}

// ErrorWithStatus 发送指定状态码、消息和详情的错误响应.
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, Body{Code: status, Msg: msg, Detail: detail})
}
