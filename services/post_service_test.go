package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hasiru/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPostService(t *testing.T, gen TextGenerator) (*PostService, *fakeEvents) {
	t.Helper()
	events := &fakeEvents{}
	svc := NewPostService(testDB(t), gen, fakeImages{url: "https://img.example/x.jpg"}, events, zap.NewNop())
	return svc, events
}

func TestPostGenerate(t *testing.T) {
	gen := &fakeGenerator{reply: staticReply("Great post #AI", nil)}
	svc, _ := newTestPostService(t, gen)

	post, err := svc.Generate(context.Background(), "  AI for career growth ")
	require.NoError(t, err)
	assert.Equal(t, "AI for career growth", post.Topic)
	assert.Equal(t, "Great post #AI", post.Content)
	assert.Equal(t, "https://img.example/x.jpg", post.ImageURL)
	assert.NotEmpty(t, post.ID)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "AI for career growth")
	assert.Equal(t, float32(0.7), calls[0].Opts.Temperature)
	assert.Equal(t, int32(800), calls[0].Opts.MaxOutputTokens)

	list, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, list, "generated drafts are not saved")
}

func TestPostGenerateErrors(t *testing.T) {
	svc, _ := newTestPostService(t, &fakeGenerator{reply: staticReply("", errors.New("quota"))})

	_, err := svc.Generate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrTopicRequired)

	_, err = svc.Generate(context.Background(), "remote work")
	assert.ErrorContains(t, err, "quota")
}

func TestPostSaveListNewestFirst(t *testing.T) {
	svc, events := newTestPostService(t, &fakeGenerator{})
	var tick int64
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base.Add(time.Duration(atomic.AddInt64(&tick, 1)) * time.Minute) }
	ctx := context.Background()

	first := &models.Post{Topic: "first"}
	second := &models.Post{Topic: "second"}
	require.NoError(t, svc.Save(ctx, "alice", first))
	require.NoError(t, svc.Save(ctx, "alice", second))
	require.NoError(t, svc.Save(ctx, "bob", &models.Post{Topic: "other"}))

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Topic)
	assert.Equal(t, "first", list[1].Topic)
	assert.Equal(t, []string{"post.saved", "post.saved", "post.saved"}, events.Kinds())

	assert.ErrorIs(t, svc.Save(ctx, "alice", &models.Post{}), ErrTopicRequired)
}

func TestPostSaveCannotOverwriteOtherOwner(t *testing.T) {
	svc, _ := newTestPostService(t, &fakeGenerator{})
	ctx := context.Background()

	mine := &models.Post{Topic: "mine"}
	require.NoError(t, svc.Save(ctx, "alice", mine))

	stolen := &models.Post{ID: mine.ID, Topic: "hijack"}
	require.NoError(t, svc.Save(ctx, "bob", stolen))
	assert.NotEqual(t, mine.ID, stolen.ID)

	got, err := svc.Get(ctx, "alice", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Topic)
}

func TestPostSeedOnce(t *testing.T) {
	svc, _ := newTestPostService(t, &fakeGenerator{})
	ctx := context.Background()

	seeded, err := svc.Seed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = svc.Seed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, seeded)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, len(samplePosts()))

	due, err := svc.Due(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due, "samples are never announced")
}

func TestPostSeedConcurrentCallsSeedOnce(t *testing.T) {
	svc, _ := newTestPostService(t, &fakeGenerator{})
	ctx := context.Background()

	var wg sync.WaitGroup
	var seededCount int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seeded, err := svc.Seed(ctx, "alice")
			assert.NoError(t, err)
			if seeded {
				atomic.AddInt32(&seededCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), seededCount)
	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, len(samplePosts()))
}

func TestPostSaveStoresScheduleInUTC(t *testing.T) {
	svc, _ := newTestPostService(t, &fakeGenerator{})
	ctx := context.Background()

	// 10:00 in UTC+5 is 05:00Z
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("PKT", 5*3600))
	p := &models.Post{Topic: "harvest", ScheduledFor: &at, SavedAt: at.Add(-time.Hour)}
	require.NoError(t, svc.Save(ctx, "alice", p))
	assert.Equal(t, time.UTC, p.ScheduledFor.Location())
	assert.Equal(t, time.UTC, p.SavedAt.Location())

	due, err := svc.Due(ctx, time.Date(2024, 5, 1, 4, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.Due(ctx, time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.NotNil(t, due[0].ScheduledFor)
	assert.True(t, due[0].ScheduledFor.Equal(at))
}

func TestPostSaveReportsOwnerLookupFailure(t *testing.T) {
	svc, _ := newTestPostService(t, &fakeGenerator{})
	sqlDB, err := svc.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = svc.Save(context.Background(), "alice", &models.Post{ID: "existing", Topic: "x"})
	assert.ErrorContains(t, err, "failed to check post owner")
}

func TestPostScheduleAndDue(t *testing.T) {
	svc, events := newTestPostService(t, &fakeGenerator{})
	ctx := context.Background()

	p := &models.Post{Topic: "launch"}
	require.NoError(t, svc.Save(ctx, "alice", p))

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	got, err := svc.Schedule(ctx, "alice", p.ID, at)
	require.NoError(t, err)
	require.NotNil(t, got.ScheduledFor)
	assert.True(t, got.ScheduledFor.Equal(at))

	due, err := svc.Due(ctx, at.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.Due(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, p.ID, due[0].ID)

	ok, err := svc.MarkNotified(ctx, p.ID, at)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.MarkNotified(ctx, p.ID, at)
	require.NoError(t, err)
	assert.False(t, ok)

	// rescheduling re-arms the notification
	_, err = svc.Schedule(ctx, "alice", p.ID, at.Add(time.Hour))
	require.NoError(t, err)
	due, err = svc.Due(ctx, at.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	_, err = svc.Schedule(ctx, "bob", p.ID, at)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Contains(t, events.Kinds(), "post.scheduled")
}

func TestPostDelete(t *testing.T) {
	svc, events := newTestPostService(t, &fakeGenerator{})
	ctx := context.Background()

	p := &models.Post{Topic: "bye"}
	require.NoError(t, svc.Save(ctx, "alice", p))

	assert.ErrorIs(t, svc.Delete(ctx, "bob", p.ID), ErrPostNotFound)
	require.NoError(t, svc.Delete(ctx, "alice", p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", p.ID), ErrPostNotFound)

	_, err := svc.Get(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, "post.deleted", events.Kinds()[len(events.Kinds())-1])
}

func TestSuggestedTimes(t *testing.T) {
	// a Wednesday
	now := time.Date(2024, 5, 8, 15, 4, 0, 0, time.UTC)
	times := SuggestedTimes(now)
	require.Len(t, times, 4)
	assert.Equal(t, time.Date(2024, 5, 9, 9, 0, 0, 0, time.UTC), times[0].Value)
	assert.Equal(t, time.Date(2024, 5, 10, 10, 30, 0, 0, time.UTC), times[1].Value)
	assert.Equal(t, time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC), times[2].Value)
	assert.Equal(t, time.Date(2024, 5, 13, 9, 15, 0, 0, time.UTC), times[3].Value)

	// on a Monday, next Monday is a week away
	monday := SuggestedTimes(time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 20, 9, 15, 0, 0, time.UTC), monday[3].Value)
}

func TestTrendingTopics(t *testing.T) {
	assert.Len(t, TrendingTopics, 10)
}
