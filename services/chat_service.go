package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultSessionID = "default"

var ErrEmptyMessage = errors.New("message is required")

type chatSession struct {
	mu      sync.Mutex
	history []Turn
}

// SessionStore keeps chat histories keyed by session id. Idle sessions expire
// after ttl; every access renews the deadline.
type SessionStore struct {
	mu       sync.Mutex
	cache    *cache.Cache
	ttl      time.Duration
	maxTurns int
}

func NewSessionStore(ttl time.Duration, maxTurns int) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &SessionStore{cache: cache.New(ttl, cleanup), ttl: ttl, maxTurns: maxTurns}
}

func (s *SessionStore) session(id string) *chatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(id); ok {
		sess := v.(*chatSession)
		s.cache.Set(id, sess, cache.DefaultExpiration)
		return sess
	}
	sess := &chatSession{}
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess
}

// History returns a copy of the session's turns.
func (s *SessionStore) History(id string) []Turn {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	sess := v.(*chatSession)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]Turn(nil), sess.history...)
}

func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}

func (s *SessionStore) Len() int {
	return s.cache.ItemCount()
}

// append adds turns and drops the oldest beyond maxTurns, keeping user/model pairs aligned.
func (s *SessionStore) append(sess *chatSession, turns ...Turn) {
	sess.history = append(sess.history, turns...)
	if s.maxTurns > 0 && len(sess.history) > s.maxTurns {
		drop := len(sess.history) - s.maxTurns
		if drop%2 == 1 {
			drop++
		}
		sess.history = append([]Turn(nil), sess.history[drop:]...)
	}
}

// ChatService runs a plant-care conversation per session.
type ChatService struct {
	gen    TextGenerator
	store  *SessionStore
	logger *zap.Logger
}

func NewChatService(gen TextGenerator, store *SessionStore, logger *zap.Logger) *ChatService {
	return &ChatService{gen: gen, store: store, logger: logger}
}

var chatOptions = GenerateOptions{Temperature: 0.9, TopP: 1, TopK: 1, MaxOutputTokens: 2048}

// sessionKey scopes a client-chosen session id to its owner.
func sessionKey(owner, sessionID string) string {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return owner + "/" + sessionID
}

// Send appends message to the owner's session and returns the model's reply.
// Messages on one session are serialised; a failed call leaves history untouched.
func (c *ChatService) Send(ctx context.Context, owner, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	key := sessionKey(owner, sessionID)

	sess := c.store.session(key)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	reply, err := c.gen.Generate(ctx, sess.history, message, chatOptions)
	if err != nil {
		c.logger.Warn("chat generation failed", zap.String("session", key), zap.Error(err))
		return "", err
	}
	c.store.append(sess, Turn{Role: RoleUser, Text: message}, Turn{Role: RoleModel, Text: reply})
	return reply, nil
}

func (c *ChatService) Reset(owner, sessionID string) {
	c.store.Delete(sessionKey(owner, sessionID))
}
