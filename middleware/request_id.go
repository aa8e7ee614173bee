// Package middleware 提供了 Gin 的通用中间件实现。
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionlab/idgen"
)

// HeaderXRequestID 请求 ID 头。
const HeaderXRequestID = "X-Request-ID"

// ContextKeyRequestID 请求 ID 在 gin.Context 中的键。
const ContextKeyRequestID = "request_id"

// RequestID 返回一个用于生成或传递请求 ID 的 Gin 中间件。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenRequestID()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
