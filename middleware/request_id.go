package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quant/idgen"
)

const (
	// HeaderXRequestID 请求 ID 头.
	HeaderXRequestID = "X-Request-ID"
	// ContextKeyRequestID gin.Context 中保存请求 ID 的键.
	ContextKeyRequestID = "request_id"
)

// RequestID 透传或生成请求 ID，并写回响应头.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenIDString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)
		c.Next()
	}
}
