package services

import (
	"context"
	"sync"
	"testing"

	"hasiru/config"
	"hasiru/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type generateCall struct {
	History []Turn
	Prompt  string
	Opts    GenerateOptions
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	reply func(call generateCall) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, history []Turn, prompt string, opts GenerateOptions) (string, error) {
	call := generateCall{History: append([]Turn(nil), history...), Prompt: prompt, Opts: opts}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.reply == nil {
		return "ok", nil
	}
	return f.reply(call)
}

func (f *fakeGenerator) Calls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generateCall(nil), f.calls...)
}

func staticReply(text string, err error) func(generateCall) (string, error) {
	return func(generateCall) (string, error) { return text, err }
}

type fakeLabeler struct {
	set *LabelSet
	err error
}

func (f *fakeLabeler) DetectLabels(context.Context, []byte) (*LabelSet, error) {
	return f.set, f.err
}

type fakeImages struct{ url string }

func (f fakeImages) Search(context.Context, string) string { return f.url }

type fakeArchive struct {
	url    string
	err    error
	prefix string
}

func (f *fakeArchive) Upload(_ context.Context, prefix string, _ []byte, _ string) (string, error) {
	f.prefix = prefix
	return f.url, f.err
}

type published struct {
	Owner   string
	Payload map[string]any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []published
}

func (f *fakeEvents) Publish(owner string, payload any) {
	p, _ := payload.(map[string]any)
	f.mu.Lock()
	f.events = append(f.events, published{Owner: owner, Payload: p})
	f.mu.Unlock()
}

func (f *fakeEvents) Kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Payload["kind"].(string))
	}
	return out
}

type fakeSink struct {
	mu     sync.Mutex
	alerts []models.Alert
	err    error
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Deliver(_ context.Context, a *models.Alert, _ any) error {
	f.mu.Lock()
	f.alerts = append(f.alerts, *a)
	f.mu.Unlock()
	return f.err
}

func (f *fakeSink) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDB(config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
