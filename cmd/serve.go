package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hasiru/config"
	"hasiru/controllers"
	"hasiru/diagnosis"
	"hasiru/metrics"
	"hasiru/routes"
	"hasiru/services"
	"hasiru/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	gin.SetMode(cfg.Server.Mode)

	db, err := config.OpenDB(cfg.DB)
	if err != nil {
		return err
	}
	table, err := diagnosis.LoadTable(cfg.Diagnosis.TablePath)
	if err != nil {
		return err
	}
	awsCfg, err := utils.LoadAWSConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return err
	}
	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return err
	}

	var promHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metrics.EnablePrometheus(reg); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		promHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	hub := services.NewRealtimeHub()

	var (
		sinks   []services.AlertSink
		devices *controllers.DeviceController
	)
	if cfg.Notify.SNSTopicARN != "" || cfg.Notify.SNSPlatformARN != "" {
		push := services.NewPushService(db, awsCfg, cfg.Notify.SNSTopicARN, cfg.Notify.SNSPlatformARN)
		sinks = append(sinks, push)
		devices = controllers.NewDeviceController(push, logger)
	}
	if cfg.Notify.EmailFrom != "" && cfg.Notify.EmailTo != "" {
		sinks = append(sinks, &services.EmailSink{
			Mailer: utils.NewMailer(awsCfg, cfg.Notify.EmailFrom),
			To:     cfg.Notify.EmailTo,
		})
	}
	alerts := services.NewAlertBus(db, hub, logger, sinks...)

	opts := []services.DetectionOption{
		services.WithEvents(hub),
		services.WithMaxUploadBytes(cfg.Upload.MaxBytes),
	}
	if cfg.Advisor.Enabled {
		opts = append(opts, services.WithAdvisor(services.NewAdvisorService(gemini)))
	}
	if cfg.Storage.S3Bucket != "" {
		s3Cfg := awsCfg.Copy()
		s3Cfg.Region = cfg.Storage.S3Region
		opts = append(opts, services.WithArchive(utils.NewImageArchive(s3Cfg, cfg.Storage.S3Bucket, cfg.Storage.PublicURL)))
	}
	detections := services.NewDetectionService(db,
		services.NewRekognitionService(awsCfg, cfg.Diagnosis.MaxLabels),
		diagnosis.NewMatcher(table, cfg.Diagnosis.TopN),
		logger, opts...)

	images := services.NewUnsplashService(cfg.Unsplash.AccessKey, cfg.Unsplash.BaseURL, logger)
	posts := services.NewPostService(db, gemini, images, hub, logger)
	chat := services.NewChatService(gemini, services.NewSessionStore(cfg.Chat.SessionTTL, cfg.Chat.MaxTurns), logger)

	router := routes.SetupRouter(routes.Deps{
		DB:         db,
		Logger:     logger,
		JWTSecret:  cfg.Auth.JWTSecret,
		Metrics:    promHandler,
		Detections: controllers.NewDetectionController(detections, cfg.Upload.MaxBytes, logger),
		Chat:       controllers.NewChatController(chat, logger),
		Posts:      controllers.NewPostController(posts, logger),
		Alerts:     controllers.NewAlertController(alerts, logger),
		Realtime:   controllers.NewRealtimeController(hub),
		Devices:    devices,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Scheduler.Enabled {
		scheduler := services.NewScheduler(posts, alerts, cfg.Scheduler.Interval, logger)
		g.Go(func() error {
			scheduler.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("conditions", table.Len()),
			zap.Bool("advisor", cfg.Advisor.Enabled),
			zap.Int("alert_sinks", len(sinks)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
