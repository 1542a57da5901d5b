package controllers

import (
	"net/http"
	"strconv"

	"hasiru/middlewares"
	"hasiru/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AlertController struct {
	Alerts *services.AlertBus
	Logger *zap.Logger
}

func NewAlertController(alerts *services.AlertBus, logger *zap.Logger) *AlertController {
	return &AlertController{Alerts: alerts, Logger: logger}
}

// Recent lists stored alerts so clients can catch up after reconnecting.
func (ac *AlertController) Recent(c *gin.Context) {
	limit := defaultListLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = min(n, maxListLimit)
	}
	alerts, err := ac.Alerts.Recent(c.Request.Context(), middlewares.Owner(c), limit)
	if err != nil {
		ac.Logger.Error("list alerts failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to list alerts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "alerts": alerts})
}
