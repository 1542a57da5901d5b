package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"hasiru/middlewares"
	"hasiru/services"
	"hasiru/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type DetectionController struct {
	Detections *services.DetectionService
	MaxBytes   int64
	Logger     *zap.Logger
}

func NewDetectionController(detections *services.DetectionService, maxBytes int64, logger *zap.Logger) *DetectionController {
	if maxBytes <= 0 {
		maxBytes = services.DefaultMaxUploadBytes
	}
	return &DetectionController{Detections: detections, MaxBytes: maxBytes, Logger: logger}
}

// DetectUpload handles a multipart upload in the "image" field.
func (dc *DetectionController) DetectUpload(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "no_image", "No image file provided")
		return
	}
	if fh.Size > dc.MaxBytes {
		respondError(c, http.StatusBadRequest, "invalid_image", "Image is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_image", "Could not read the uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, dc.MaxBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_image", "Could not read the uploaded file")
		return
	}

	dc.detect(c, services.Upload{
		Data:        data,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	})
}

type detectBase64Request struct {
	Image string `json:"image" binding:"required"`
}

// DetectBase64 handles {"image": "<data URI or base64>"}.
func (dc *DetectionController) DetectBase64(c *gin.Context) {
	var req detectBase64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "no_image", "No image data provided")
		return
	}
	data, contentType, err := utils.DecodeImage(req.Image)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_image", "Invalid base64 image data")
		return
	}
	dc.detect(c, services.Upload{Data: data, ContentType: contentType})
}

func (dc *DetectionController) detect(c *gin.Context, up services.Upload) {
	report, err := dc.Detections.Detect(c.Request.Context(), middlewares.Owner(c), up)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, services.ErrInvalidImage):
		respondError(c, http.StatusBadRequest, "invalid_image", err.Error())
	case errors.Is(err, services.ErrNoPlant):
		respondError(c, http.StatusUnprocessableEntity, "no_plant",
			"No plant detected in the image. Please upload a clear image of a plant.")
	case errors.Is(err, services.ErrVisionFailed):
		dc.Logger.Error("vision request failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "vision_unavailable", "Failed to analyze image")
	default:
		dc.Logger.Error("detection failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to process image")
	}
}

func (dc *DetectionController) List(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	list, err := dc.Detections.List(c.Request.Context(), middlewares.Owner(c), limit)
	if err != nil {
		dc.Logger.Error("list detections failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to list detections")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detections": list})
}

func (dc *DetectionController) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "id must be numeric")
		return
	}
	d, err := dc.Detections.Get(c.Request.Context(), middlewares.Owner(c), uint(id))
	if errors.Is(err, services.ErrDetectionNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Detection not found")
		return
	}
	if err != nil {
		dc.Logger.Error("get detection failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to load detection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detection": d})
}
