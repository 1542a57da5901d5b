package services

import (
	"context"
	"errors"
	"testing"

	"hasiru/diagnosis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeAdvisor struct {
	advice diagnosis.Advice
	err    error
}

func (f fakeAdvisor) Expand(context.Context, string, []diagnosis.Label) (diagnosis.Advice, error) {
	return f.advice, f.err
}

func newTestDetectionService(t *testing.T, set *LabelSet, opts ...DetectionOption) *DetectionService {
	t.Helper()
	tbl, err := diagnosis.DefaultTable()
	require.NoError(t, err)
	return NewDetectionService(testDB(t), &fakeLabeler{set: set},
		diagnosis.NewMatcher(tbl, diagnosis.DefaultTopN), zap.NewNop(), opts...)
}

func rustLabels() *LabelSet {
	return &LabelSet{
		Labels: []diagnosis.Label{{Description: "Rust", Score: 0.8}, {Description: "Leaf", Score: 0.6}},
		Colors: []diagnosis.Color{{Red: 210, Green: 140, Blue: 40}},
	}
}

func TestDetectLeafRust(t *testing.T) {
	events := &fakeEvents{}
	archive := &fakeArchive{url: "https://cdn.example/detections/alice/1.png"}
	svc := newTestDetectionService(t, rustLabels(), WithEvents(events), WithArchive(archive))

	rep, err := svc.Detect(context.Background(), "alice", Upload{Data: pngPixel, Filename: "leaf.PNG"})
	require.NoError(t, err)
	assert.True(t, rep.Success)
	assert.Equal(t, "leaf rust", rep.Disease)
	assert.Equal(t, 80, rep.Confidence)
	assert.True(t, rep.Known)
	assert.NotEmpty(t, rep.Treatment)
	assert.Contains(t, rep.MatchedColors, "orange")
	assert.Equal(t, "https://cdn.example/detections/alice/1.png", rep.ImageURL)
	assert.Equal(t, "detections/alice", archive.prefix)
	assert.Equal(t, []string{"detection.created"}, events.Kinds())

	got, err := svc.Get(context.Background(), "alice", rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "leaf rust", got.Condition)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.JSONEq(t, `[{"description":"Rust","score":0.8},{"description":"Leaf","score":0.6}]`, got.Labels)
	assert.False(t, got.AdvisorUsed)

	_, err = svc.Get(context.Background(), "bob", rep.ID)
	assert.ErrorIs(t, err, ErrDetectionNotFound)
}

func TestDetectNoPlant(t *testing.T) {
	svc := newTestDetectionService(t, &LabelSet{Labels: []diagnosis.Label{{Description: "Car", Score: 0.9}}})
	_, err := svc.Detect(context.Background(), "alice", Upload{Data: pngPixel})
	assert.ErrorIs(t, err, ErrNoPlant)

	list, err := svc.List(context.Background(), "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDetectValidation(t *testing.T) {
	svc := newTestDetectionService(t, rustLabels(), WithMaxUploadBytes(32))
	ctx := context.Background()

	cases := map[string]Upload{
		"empty":     {},
		"too large": {Data: pngPixel},
		"not image": {Data: []byte("hello"), Filename: "a.png"},
	}
	for name, up := range cases {
		_, err := svc.Detect(ctx, "alice", up)
		assert.ErrorIs(t, err, ErrInvalidImage, name)
	}

	svc = newTestDetectionService(t, rustLabels())
	_, err := svc.Detect(ctx, "alice", Upload{Data: pngPixel, Filename: "leaf.bmp"})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDetectLabelerFailure(t *testing.T) {
	tbl, err := diagnosis.DefaultTable()
	require.NoError(t, err)
	svc := NewDetectionService(testDB(t), &fakeLabeler{err: errors.New("throttled")},
		diagnosis.NewMatcher(tbl, 5), zap.NewNop())

	_, err = svc.Detect(context.Background(), "alice", Upload{Data: pngPixel})
	assert.ErrorContains(t, err, "throttled")
	assert.ErrorIs(t, err, ErrVisionFailed)
	assert.NotErrorIs(t, err, ErrInvalidImage)
}

func TestDetectAdvisorMerge(t *testing.T) {
	advisor := fakeAdvisor{advice: diagnosis.Advice{Treatment: "Apply sulfur spray weekly"}}
	svc := newTestDetectionService(t, rustLabels(), WithAdvisor(advisor))

	rep, err := svc.Detect(context.Background(), "alice", Upload{Data: pngPixel})
	require.NoError(t, err)
	assert.Equal(t, "Apply sulfur spray weekly", rep.Treatment)
	assert.NotEmpty(t, rep.Symptoms, "fields the advisor left empty keep table advice")

	got, err := svc.Get(context.Background(), "alice", rep.ID)
	require.NoError(t, err)
	assert.True(t, got.AdvisorUsed)
}

func TestDetectAdvisorAndArchiveFailuresAreIgnored(t *testing.T) {
	svc := newTestDetectionService(t, rustLabels(),
		WithAdvisor(fakeAdvisor{err: errors.New("bad json")}),
		WithArchive(&fakeArchive{err: errors.New("denied")}))

	rep, err := svc.Detect(context.Background(), "alice", Upload{Data: pngPixel})
	require.NoError(t, err)
	assert.Equal(t, "leaf rust", rep.Disease)
	assert.Empty(t, rep.ImageURL)
}

func TestDetectUnknownCondition(t *testing.T) {
	set := &LabelSet{Labels: []diagnosis.Label{{Description: "Houseplant", Score: 0.93}, {Description: "Pottery", Score: 0.7}}}
	svc := newTestDetectionService(t, set)

	rep, err := svc.Detect(context.Background(), "alice", Upload{Data: pngPixel})
	require.NoError(t, err)
	assert.False(t, rep.Known)
	assert.Equal(t, "Houseplant, Pottery", rep.Disease)
	assert.Equal(t, 93, rep.Confidence)
	assert.Equal(t, []string{}, rep.MatchedColors)
}

func TestDetectionListNewestFirst(t *testing.T) {
	svc := newTestDetectionService(t, rustLabels())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Detect(ctx, "alice", Upload{Data: pngPixel})
		require.NoError(t, err)
	}
	list, err := svc.List(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Greater(t, list[0].ID, list[1].ID)
}
