package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 是日志中保留的请求/响应体的最大字节数。
const maxLoggedBody = 4096

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

// WriteString 让 gin 的字符串写出也经过捕获。
func (w bodyLogWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// skipRequestBody 判断请求体是否不应被记录：认证接口包含密码，multipart 是上传的文件。
func skipRequestBody(c *gin.Context) bool {
	if strings.Contains(c.Request.URL.Path, "/auth/") {
		return true
	}
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// skipResponseBody 判断响应体是否不应被记录：认证接口返回 token，流式响应和下载体积不可控。
func skipResponseBody(c *gin.Context) bool {
	if strings.Contains(c.Request.URL.Path, "/auth/") {
		return true
	}
	ct := c.Writer.Header().Get("Content-Type")
	if strings.HasPrefix(ct, "text/event-stream") {
		return true
	}
	return c.Writer.Header().Get("Content-Disposition") != ""
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 记录请求开始时间
		startTime := time.Now()

		// 读取并重新缓存请求体
		var requestBody []byte
		logRequest := !skipRequestBody(c) && c.Request.Body != nil
		if logRequest {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 将读取的请求体重新设置回 c.Request.Body，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		// 使用自定义的 ResponseWriter 捕获响应
		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		// 处理请求
		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestID", c.GetString(RequestIDKey),
		}
		if logRequest {
			if len(requestBody) > maxLoggedBody {
				requestBody = requestBody[:maxLoggedBody]
			}
			fields = append(fields, "requestBody", string(requestBody))
		}
		if !skipResponseBody(c) {
			fields = append(fields, "responseBody", blw.body.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
