package admin

import (
	handlershared "github.com/leadscout/leadscout-api/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, statusCode int, msg string, err error) {
	handlershared.RespondError(c, statusCode, msg, err)
}
