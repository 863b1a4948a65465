package middleware

import (
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestHeaderID - заголовок, в котором клиент может передать свой ID запроса
const RequestHeaderID = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос ID и пишет краткие логи.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware; при nil пишет в логгер по умолчанию
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestHeaderID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestHeaderID, requestID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		rl.debug("[HTTP] %s %s %d %s ip=%s id=%s",
			method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), requestID)
	}
}

func (rl *RequestLogger) debug(format string, args ...interface{}) {
	if rl.logger != nil {
		rl.logger.Debug(format, args...)
		return
	}
	logging.Debug(format, args...)
}
