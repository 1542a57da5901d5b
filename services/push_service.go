package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hasiru/metrics"
	"hasiru/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"gorm.io/gorm"
)

var ErrUnknownPlatform = errors.New("unknown platform")

type snsAPI interface {
	CreatePlatformEndpoint(ctx context.Context, in *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// PushService delivers alerts through SNS: to the owner's registered devices
// and, when configured, to a shared topic.
type PushService struct {
	db          *gorm.DB
	sns         snsAPI
	topicArn    string
	platformArn string
}

func NewPushService(db *gorm.DB, cfg aws.Config, topicArn, platformArn string) *PushService {
	return &PushService{db: db, sns: awssns.NewFromConfig(cfg), topicArn: topicArn, platformArn: platformArn}
}

type RegisterDeviceReq struct {
	Platform string `json:"platform" binding:"required"` // "android" | "ios"
	Token    string `json:"token" binding:"required"`
}

func tokenHash(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

func (p *PushService) platformArnFor(platform string) (string, error) {
	switch strings.ToLower(platform) {
	case "android", "ios":
		if p.platformArn == "" {
			return "", errors.New("SNS platform application not configured")
		}
		return p.platformArn, nil
	default:
		return "", ErrUnknownPlatform
	}
}

// RegisterDevice creates an SNS endpoint for token and remembers it for owner.
// Registering the same token again refreshes the stored endpoint.
func (p *PushService) RegisterDevice(ctx context.Context, owner, platform, token string) (*models.Device, error) {
	appArn, err := p.platformArnFor(platform)
	if err != nil {
		return nil, err
	}

	done := metrics.TimeCall("sns", "create_platform_endpoint")
	out, err := p.sns.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appArn),
		Token:                  aws.String(token),
	})
	done(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform endpoint: %w", err)
	}

	dev := models.Device{Owner: owner, TokenHash: tokenHash(token), Enabled: true}
	err = p.db.WithContext(ctx).
		Where(models.Device{Owner: owner, TokenHash: dev.TokenHash}).
		FirstOrInit(&dev).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}
	dev.Platform = strings.ToLower(platform)
	dev.EndpointARN = aws.ToString(out.EndpointArn)
	if err := p.db.WithContext(ctx).Save(&dev).Error; err != nil {
		return nil, fmt.Errorf("failed to save device: %w", err)
	}
	return &dev, nil
}

// SetEnabled switches push delivery on or off for all of owner's devices.
func (p *PushService) SetEnabled(ctx context.Context, owner string, enabled bool) (int64, error) {
	res := p.db.WithContext(ctx).Model(&models.Device{}).
		Where("owner = ?", owner).
		Update("enabled", enabled)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update devices: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (p *PushService) Name() string { return "sns" }

func (p *PushService) Deliver(ctx context.Context, a *models.Alert, _ any) error {
	raw, err := pushMessage(a)
	if err != nil {
		return err
	}

	var targets []*awssns.PublishInput
	if p.db != nil {
		var devices []models.Device
		err := p.db.WithContext(ctx).Where("owner = ? AND enabled = ?", a.Owner, true).Find(&devices).Error
		if err != nil {
			return fmt.Errorf("failed to load devices: %w", err)
		}
		for _, d := range devices {
			targets = append(targets, &awssns.PublishInput{
				TargetArn:        aws.String(d.EndpointARN),
				MessageStructure: aws.String("json"),
				Message:          aws.String(raw),
			})
		}
	}
	if p.topicArn != "" {
		targets = append(targets, &awssns.PublishInput{
			TopicArn:         aws.String(p.topicArn),
			MessageStructure: aws.String("json"),
			Message:          aws.String(raw),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"owner": {DataType: aws.String("String"), StringValue: aws.String(a.Owner)},
			},
		})
	}

	var errs []error
	for _, in := range targets {
		done := metrics.TimeCall("sns", "publish")
		_, err := p.sns.Publish(ctx, in)
		done(err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("sns publish: %w", err))
		}
	}
	return errors.Join(errs...)
}

// pushMessage builds the per-platform SNS payload; platform bodies are
// embedded JSON strings.
func pushMessage(a *models.Alert) (string, error) {
	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{
			"title": "Hasiru",
			"body":  a.Message,
		},
		"data": map[string]string{
			"type":    a.Type,
			"alertId": fmt.Sprintf("%d", a.ID),
		},
	})
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(map[string]string{
		"default": a.Message,
		"GCM":     string(gcm),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
