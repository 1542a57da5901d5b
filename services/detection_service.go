package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"hasiru/diagnosis"
	"hasiru/metrics"
	"hasiru/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidImage      = errors.New("invalid image")
	ErrNoPlant           = errors.New("no plant detected in the image")
	ErrDetectionNotFound = errors.New("detection not found")
	ErrVisionFailed      = errors.New("image labeling failed")
)

const DefaultMaxUploadBytes = 5 << 20

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
}

// Upload is one image submitted for analysis.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Advisor expands a matched condition into richer advice.
type Advisor interface {
	Expand(ctx context.Context, condition string, labels []diagnosis.Label) (diagnosis.Advice, error)
}

// Archiver stores the analysed image and returns its URL.
type Archiver interface {
	Upload(ctx context.Context, prefix string, data []byte, contentType string) (string, error)
}

// DetectionReport is the response body of a detection.
type DetectionReport struct {
	Success       bool              `json:"success"`
	ID            uint              `json:"id"`
	Disease       string            `json:"disease"`
	Confidence    int               `json:"confidence"`
	Known         bool              `json:"known"`
	Symptoms      string            `json:"symptoms"`
	Causes        string            `json:"causes"`
	Treatment     string            `json:"treatment"`
	Prevention    string            `json:"prevention"`
	MatchedColors []string          `json:"matched_colors"`
	Labels        []diagnosis.Label `json:"labels"`
	ImageURL      string            `json:"image_url,omitempty"`
}

type DetectionService struct {
	db       *gorm.DB
	labeler  Labeler
	matcher  *diagnosis.Matcher
	advisor  Advisor
	archive  Archiver
	events   EventPublisher
	maxBytes int64
	logger   *zap.Logger
}

// DetectionOption configures the optional collaborators of a DetectionService.
type DetectionOption func(*DetectionService)

func WithAdvisor(a Advisor) DetectionOption {
	return func(s *DetectionService) { s.advisor = a }
}

func WithArchive(a Archiver) DetectionOption {
	return func(s *DetectionService) { s.archive = a }
}

func WithEvents(e EventPublisher) DetectionOption {
	return func(s *DetectionService) { s.events = e }
}

func WithMaxUploadBytes(n int64) DetectionOption {
	return func(s *DetectionService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewDetectionService(db *gorm.DB, labeler Labeler, matcher *diagnosis.Matcher, logger *zap.Logger, opts ...DetectionOption) *DetectionService {
	s := &DetectionService{
		db:       db,
		labeler:  labeler,
		matcher:  matcher,
		maxBytes: DefaultMaxUploadBytes,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DetectionService) validate(up *Upload) error {
	if len(up.Data) == 0 {
		return fmt.Errorf("%w: no image data", ErrInvalidImage)
	}
	if int64(len(up.Data)) > s.maxBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidImage, s.maxBytes)
	}
	if up.ContentType == "" || up.ContentType == "application/octet-stream" {
		up.ContentType = http.DetectContentType(up.Data)
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, up.ContentType)
	}
	if up.Filename != "" {
		ext := strings.ToLower(filepath.Ext(up.Filename))
		if !allowedExtensions[ext] {
			return fmt.Errorf("%w: unsupported file extension %q", ErrInvalidImage, ext)
		}
	}
	return nil
}

// Detect labels the image, matches it against the condition table and stores the result.
func (s *DetectionService) Detect(ctx context.Context, owner string, up Upload) (*DetectionReport, error) {
	if err := s.validate(&up); err != nil {
		return nil, err
	}

	set, err := s.labeler.DetectLabels(ctx, up.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVisionFailed, err)
	}
	if !diagnosis.IsPlant(set.Labels) {
		return nil, ErrNoPlant
	}

	result := s.matcher.Match(set.Labels)
	details := result.Details
	advised := false
	if s.advisor != nil {
		extra, err := s.advisor.Expand(ctx, result.Condition, diagnosis.TopLabels(set.Labels, diagnosis.DefaultTopN))
		if err != nil {
			s.logger.Warn("advisor failed, using table advice",
				zap.String("condition", result.Condition), zap.Error(err))
		} else {
			details = MergeAdvice(details, extra)
			advised = true
		}
	}

	var imageURL string
	if s.archive != nil {
		imageURL, err = s.archive.Upload(ctx, "detections/"+owner, up.Data, up.ContentType)
		if err != nil {
			s.logger.Warn("image archive failed", zap.Error(err))
			imageURL = ""
		}
	}

	labelsJSON, err := json.Marshal(set.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode labels: %w", err)
	}
	rec := models.Detection{
		Owner:       owner,
		Condition:   result.Condition,
		Known:       result.Known,
		Confidence:  result.Confidence,
		Labels:      string(labelsJSON),
		ImageURL:    imageURL,
		AdvisorUsed: advised,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to save detection: %w", err)
	}
	metrics.Default().IncDetection(result.Known)

	report := &DetectionReport{
		Success:       true,
		ID:            rec.ID,
		Disease:       result.Condition,
		Confidence:    result.Percent(),
		Known:         result.Known,
		Symptoms:      details.Symptoms,
		Causes:        details.Causes,
		Treatment:     details.Treatment,
		Prevention:    details.Prevention,
		MatchedColors: diagnosis.MatchColors(result.ColorHints, set.Colors),
		Labels:        set.Labels,
		ImageURL:      imageURL,
	}
	if report.MatchedColors == nil {
		report.MatchedColors = []string{}
	}
	if s.events != nil {
		s.events.Publish(owner, map[string]any{"kind": "detection.created", "data": report})
	}
	return report, nil
}

// List returns the owner's latest detections.
func (s *DetectionService) List(ctx context.Context, owner string, limit int) ([]models.Detection, error) {
	var out []models.Detection
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return out, nil
}

func (s *DetectionService) Get(ctx context.Context, owner string, id uint) (*models.Detection, error) {
	var d models.Detection
	err := s.db.WithContext(ctx).Where("id = ? AND owner = ?", id, owner).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDetectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load detection: %w", err)
	}
	return &d, nil
}
