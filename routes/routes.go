package routes

import (
	"net/http"

	"hasiru/controllers"
	"hasiru/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the handlers and settings the router is built from.
type Deps struct {
	DB        *gorm.DB
	Logger    *zap.Logger
	JWTSecret string
	Metrics   http.Handler // nil disables /metrics

	Detections *controllers.DetectionController
	Chat       *controllers.ChatController
	Posts      *controllers.PostController
	Alerts     *controllers.AlertController
	Realtime   *controllers.RealtimeController
	Devices    *controllers.DeviceController // nil when push is not configured
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(d.Logger), middlewares.Metrics(), middlewares.CORS("/api/"))

	r.GET("/healthz", controllers.Health(d.DB))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	auth := middlewares.AuthMiddleware(d.JWTSecret)
	r.GET("/ws", auth, d.Realtime.AlertsWS)

	api := r.Group("/api")
	api.Use(auth)
	{
		api.POST("/disease-detection/detect", d.Detections.DetectUpload)
		api.POST("/detect-disease", d.Detections.DetectBase64)
		api.GET("/detections", d.Detections.List)
		api.GET("/detections/:id", d.Detections.Get)

		api.POST("/chat", d.Chat.Send)
		api.DELETE("/chat", d.Chat.Reset)

		api.GET("/posts", d.Posts.List)
		api.POST("/posts", d.Posts.Save)
		api.POST("/posts/generate", d.Posts.Generate)
		api.GET("/posts/trending", d.Posts.Trending)
		api.GET("/posts/suggested-times", d.Posts.SuggestedTimes)
		api.PUT("/posts/:id/schedule", d.Posts.Schedule)
		api.DELETE("/posts/:id", d.Posts.Delete)

		api.GET("/alerts", d.Alerts.Recent)
		if d.Devices != nil {
			api.POST("/devices", d.Devices.Register)
			api.POST("/notifications/toggle", d.Devices.ToggleNotifications)
		}
	}

	return r
}
