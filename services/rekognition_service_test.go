package services

import (
	"context"
	"errors"
	"testing"

	"hasiru/diagnosis"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRekognition struct {
	in  *rekognition.DetectLabelsInput
	out *rekognition.DetectLabelsOutput
	err error
}

func (f *fakeRekognition) DetectLabels(_ context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestRekognitionDetectLabels(t *testing.T) {
	fake := &fakeRekognition{out: &rekognition.DetectLabelsOutput{
		Labels: []types.Label{
			{Name: aws.String("Leaf"), Confidence: aws.Float32(80)},
			{Name: aws.String("Plant"), Confidence: aws.Float32(99)},
			{Name: nil, Confidence: aws.Float32(70)},
		},
		ImageProperties: &types.DetectLabelsImageProperties{
			DominantColors: []types.DominantColor{
				{Red: aws.Int32(120), Green: aws.Int32(80), Blue: aws.Int32(20), SimplifiedColor: aws.String("brown"), PixelPercent: aws.Float32(40)},
			},
		},
	}}
	svc := newRekognitionService(fake, 0)

	set, err := svc.DetectLabels(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, set.Labels, 2)
	assert.Equal(t, "Plant", set.Labels[0].Description)
	assert.InDelta(t, 0.99, set.Labels[0].Score, 1e-6)
	assert.InDelta(t, 0.8, set.Labels[1].Score, 1e-6)
	assert.Equal(t, []diagnosis.Color{{Red: 120, Green: 80, Blue: 20, Name: "brown", Fraction: 0.4}}, roundColors(set.Colors))

	assert.Equal(t, int32(20), aws.ToInt32(fake.in.MaxLabels))
	assert.Equal(t, []byte("img"), fake.in.Image.Bytes)
}

func TestRekognitionDetectLabelsError(t *testing.T) {
	svc := newRekognitionService(&fakeRekognition{err: errors.New("throttled")}, 5)
	_, err := svc.DetectLabels(context.Background(), nil)
	assert.ErrorContains(t, err, "throttled")
}

func roundColors(cs []diagnosis.Color) []diagnosis.Color {
	for i := range cs {
		cs[i].Fraction = float64(int(cs[i].Fraction*100+0.5)) / 100
	}
	return cs
}
