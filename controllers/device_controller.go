package controllers

import (
	"errors"
	"net/http"

	"hasiru/middlewares"
	"hasiru/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceController struct {
	Push   *services.PushService
	Logger *zap.Logger
}

func NewDeviceController(ps *services.PushService, logger *zap.Logger) *DeviceController {
	return &DeviceController{Push: ps, Logger: logger}
}

// Register stores a phone's push token for the owner.
func (dc *DeviceController) Register(c *gin.Context) {
	var req services.RegisterDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "platform and token are required")
		return
	}

	dev, err := dc.Push.RegisterDevice(c.Request.Context(), middlewares.Owner(c), req.Platform, req.Token)
	if errors.Is(err, services.ErrUnknownPlatform) {
		respondError(c, http.StatusBadRequest, "unknown_platform", "platform must be android or ios")
		return
	}
	if err != nil {
		dc.Logger.Error("device registration failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "registration_failed", "Failed to register device")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "endpoint_arn": dev.EndpointARN})
}

type toggleReq struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ToggleNotifications turns push alerts on or off for all of the owner's devices.
func (dc *DeviceController) ToggleNotifications(c *gin.Context) {
	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "enabled is required")
		return
	}

	n, err := dc.Push.SetEnabled(c.Request.Context(), middlewares.Owner(c), *req.Enabled)
	if err != nil {
		dc.Logger.Error("toggle notifications failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to update notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "notifications updated",
		"enabled": *req.Enabled,
		"devices": n,
	})
}
