package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// HeaderXTraceID 定义 Trace ID 响应头名称。
const HeaderXTraceID = "X-Trace-ID"

// Tracing 为每个请求创建 OpenTelemetry span，使用全局 TracerProvider。
func Tracing(service string) gin.HandlerFunc {
	return otelgin.Middleware(service)
}

// TraceIDHeader 将当前 span 的 Trace ID 写入响应头，需挂在 Tracing 之后。
func TraceIDHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		spanCtx := trace.SpanContextFromContext(c.Request.Context())
		if spanCtx.HasTraceID() {
			c.Header(HeaderXTraceID, spanCtx.TraceID().String())
		}
		c.Next()
	}
}
