package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hasiru/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrTopicRequired = errors.New("topic is required")
	ErrPostNotFound  = errors.New("post not found")
)

// EventPublisher pushes a realtime event to an owner's connected clients.
type EventPublisher interface {
	Publish(owner string, payload any)
}

type PostService struct {
	db     *gorm.DB
	gen    TextGenerator
	images ImageSearcher
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewPostService(db *gorm.DB, gen TextGenerator, images ImageSearcher, events EventPublisher, logger *zap.Logger) *PostService {
	return &PostService{db: db, gen: gen, images: images, events: events, logger: logger, now: time.Now}
}

var postOptions = GenerateOptions{Temperature: 0.7, TopK: 40, TopP: 0.95, MaxOutputTokens: 800}

func postPrompt(topic string) string {
	return fmt.Sprintf("Generate an engaging LinkedIn post about %s. The post should be professional, "+
		"include 2-3 key takeaways, and end with a call to action or question. "+
		"Format it with appropriate emojis, line breaks, and hashtags. Keep it under 1300 characters.", topic)
}

// Generate drafts a post for topic. The text and the photo are fetched
// concurrently; the draft is not saved.
func (s *PostService) Generate(ctx context.Context, topic string) (*models.Post, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrTopicRequired
	}

	var content, imageURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.gen.Generate(gctx, nil, postPrompt(topic), postOptions)
		if err != nil {
			return fmt.Errorf("failed to generate post: %w", err)
		}
		content = text
		return nil
	})
	g.Go(func() error {
		imageURL = s.images.Search(gctx, topic)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Post{
		ID:       uuid.NewString(),
		Topic:    topic,
		Content:  content,
		ImageURL: imageURL,
		SavedAt:  s.now().UTC(),
	}, nil
}

// Save stores post for owner, assigning an id and timestamp when missing.
// Times are stored in UTC so the due query compares them correctly.
func (s *PostService) Save(ctx context.Context, owner string, post *models.Post) error {
	if strings.TrimSpace(post.Topic) == "" {
		return ErrTopicRequired
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	} else {
		taken, err := s.ownedByOther(ctx, owner, post.ID)
		if err != nil {
			return err
		}
		if taken {
			post.ID = uuid.NewString()
		}
	}
	if post.SavedAt.IsZero() {
		post.SavedAt = s.now()
	}
	post.SavedAt = post.SavedAt.UTC()
	if post.ScheduledFor != nil {
		at := post.ScheduledFor.UTC()
		post.ScheduledFor = &at
	}
	post.Owner = owner
	post.NotifiedAt = nil
	if err := s.db.WithContext(ctx).Save(post).Error; err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	s.publish(owner, "post.saved", post)
	return nil
}

func (s *PostService) ownedByOther(ctx context.Context, owner, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ? AND owner <> ?", id, owner).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check post owner: %w", err)
	}
	return n > 0, nil
}

// List returns the owner's posts, newest first.
func (s *PostService) List(ctx context.Context, owner string) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("saved_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Seed inserts the sample posts when owner has none; it reports whether it did.
// The check and the insert share a transaction so concurrent calls seed once.
func (s *PostService) Seed(ctx context.Context, owner string) (bool, error) {
	seeded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("owner = ?", owner).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to count posts: %w", err)
		}
		if n > 0 {
			return nil
		}
		samples := samplePosts()
		for i := range samples {
			samples[i].ID = uuid.NewString()
			samples[i].Owner = owner
			// samples are already past their slot; never announce them
			samples[i].NotifiedAt = samples[i].ScheduledFor
		}
		if err := tx.Create(&samples).Error; err != nil {
			return fmt.Errorf("failed to seed posts: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func (s *PostService) Get(ctx context.Context, owner, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Where("id = ? AND owner = ?", id, owner).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	return &post, nil
}

// Schedule sets the publishing time and re-arms the due notification.
func (s *PostService) Schedule(ctx context.Context, owner, id string, at time.Time) (*models.Post, error) {
	post, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	err = s.db.WithContext(ctx).Model(post).Updates(map[string]any{
		"scheduled_for": at,
		"notified_at":   nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to schedule post: %w", err)
	}
	post.ScheduledFor = &at
	post.NotifiedAt = nil
	s.publish(owner, "post.scheduled", post)
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND owner = ?", id, owner).Delete(&models.Post{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	s.publish(owner, "post.deleted", map[string]string{"id": id})
	return nil
}

// Due returns scheduled posts whose time has come and that were not announced yet.
func (s *PostService) Due(ctx context.Context, now time.Time) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("scheduled_for IS NOT NULL AND scheduled_for <= ? AND notified_at IS NULL", now.UTC()).
		Order("scheduled_for ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	return posts, nil
}

// MarkNotified records that the due notification went out. It returns false
// when another worker got there first.
func (s *PostService) MarkNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", at.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark post notified: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *PostService) publish(owner, kind string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(owner, map[string]any{"kind": kind, "data": payload})
}
