package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/utils"
)

// BaseHandler carries what every handler needs for logging and error responses
type BaseHandler struct {
	logger utils.Logger
	// exposeErrors adds raw error text to 500 responses outside production
	exposeErrors bool
}

func NewBaseHandler(logger utils.Logger, exposeErrors bool) BaseHandler {
	if logger == nil {
		logger = utils.Discard()
	}
	return BaseHandler{logger: logger, exposeErrors: exposeErrors}
}

// LogRequest logs an incoming request with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	if userID := c.GetString("user_id"); userID != "" {
		args = append(args, "user_id", userID)
	}
	utils.FromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.FullPath())
	utils.FromContext(c, h.logger).Error(msg, args...)
}
