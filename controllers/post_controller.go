package controllers

import (
	"errors"
	"net/http"
	"time"

	"hasiru/middlewares"
	"hasiru/models"
	"hasiru/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostController struct {
	Posts  *services.PostService
	Logger *zap.Logger
	now    func() time.Time
}

func NewPostController(posts *services.PostService, logger *zap.Logger) *PostController {
	return &PostController{Posts: posts, Logger: logger, now: time.Now}
}

func (pc *PostController) fail(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, services.ErrTopicRequired):
		respondError(c, http.StatusBadRequest, "topic_required", "Topic is required")
	case errors.Is(err, services.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Post not found")
	default:
		pc.Logger.Error(op+" failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to "+op)
	}
}

// List returns the owner's posts, seeding the samples for a new owner.
func (pc *PostController) List(c *gin.Context) {
	ctx, owner := c.Request.Context(), middlewares.Owner(c)
	if _, err := pc.Posts.Seed(ctx, owner); err != nil {
		pc.Logger.Warn("seeding posts failed", zap.String("owner", owner), zap.Error(err))
	}
	posts, err := pc.Posts.List(ctx, owner)
	if err != nil {
		pc.fail(c, err, "list posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

type topicRequest struct {
	Topic string `json:"topic"`
}

func (pc *PostController) Generate(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}
	post, err := pc.Posts.Generate(c.Request.Context(), req.Topic)
	if err != nil {
		if errors.Is(err, services.ErrTopicRequired) {
			pc.fail(c, err, "generate post")
			return
		}
		pc.Logger.Error("generate post failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "generation_failed", "Failed to generate post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (pc *PostController) Save(c *gin.Context) {
	var post models.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be a post")
		return
	}
	if err := pc.Posts.Save(c.Request.Context(), middlewares.Owner(c), &post); err != nil {
		pc.fail(c, err, "save post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

type scheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

func (pc *PostController) Schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_time", "scheduled_for must be an RFC3339 time")
		return
	}
	post, err := pc.Posts.Schedule(c.Request.Context(), middlewares.Owner(c), c.Param("id"), req.ScheduledFor)
	if err != nil {
		pc.fail(c, err, "schedule post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (pc *PostController) Delete(c *gin.Context) {
	if err := pc.Posts.Delete(c.Request.Context(), middlewares.Owner(c), c.Param("id")); err != nil {
		pc.fail(c, err, "delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

func (pc *PostController) Trending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": services.TrendingTopics})
}

func (pc *PostController) SuggestedTimes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"times": services.SuggestedTimes(pc.now())})
}
