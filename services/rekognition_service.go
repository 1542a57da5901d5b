package services

import (
	"context"
	"fmt"
	"sort"

	"hasiru/diagnosis"
	"hasiru/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// LabelSet is what the vision service reports for one image.
type LabelSet struct {
	Labels []diagnosis.Label
	Colors []diagnosis.Color
}

// Labeler turns image bytes into ranked labels.
type Labeler interface {
	DetectLabels(ctx context.Context, image []byte) (*LabelSet, error)
}

type rekognitionAPI interface {
	DetectLabels(ctx context.Context, in *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

type RekognitionService struct {
	client        rekognitionAPI
	maxLabels     int32
	minConfidence float32
}

func NewRekognitionService(cfg aws.Config, maxLabels int) *RekognitionService {
	return newRekognitionService(rekognition.NewFromConfig(cfg), maxLabels)
}

func newRekognitionService(client rekognitionAPI, maxLabels int) *RekognitionService {
	if maxLabels <= 0 {
		maxLabels = 20
	}
	return &RekognitionService{client: client, maxLabels: int32(maxLabels), minConfidence: 50}
}

// DetectLabels returns labels sorted by descending score (0..1) plus the
// dominant colours of the image.
func (r *RekognitionService) DetectLabels(ctx context.Context, image []byte) (*LabelSet, error) {
	done := metrics.TimeCall("rekognition", "detect_labels")
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
		Features: []types.DetectLabelsFeatureName{
			types.DetectLabelsFeatureNameGeneralLabels,
			types.DetectLabelsFeatureNameImageProperties,
		},
	})
	done(err == nil)
	if err != nil {
		return nil, fmt.Errorf("rekognition detect labels: %w", err)
	}

	set := &LabelSet{Labels: make([]diagnosis.Label, 0, len(out.Labels))}
	for _, l := range out.Labels {
		name := aws.ToString(l.Name)
		if name == "" {
			continue
		}
		set.Labels = append(set.Labels, diagnosis.Label{
			Description: name,
			Score:       float64(aws.ToFloat32(l.Confidence)) / 100,
		})
	}
	sort.SliceStable(set.Labels, func(i, j int) bool {
		return set.Labels[i].Score > set.Labels[j].Score
	})

	if out.ImageProperties != nil {
		for _, c := range out.ImageProperties.DominantColors {
			set.Colors = append(set.Colors, diagnosis.Color{
				Red:      int(aws.ToInt32(c.Red)),
				Green:    int(aws.ToInt32(c.Green)),
				Blue:     int(aws.ToInt32(c.Blue)),
				Name:     aws.ToString(c.SimplifiedColor),
				Fraction: float64(aws.ToFloat32(c.PixelPercent)) / 100,
			})
		}
	}
	return set, nil
}
