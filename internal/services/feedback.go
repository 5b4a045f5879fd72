package services

import (
	"sync"

	"github.com/snappy-loop/fairytales/internal/models"
)

// FeedbackStore keeps the latest vote per session.
type FeedbackStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Feedback
}

// NewFeedbackStore creates an empty store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{sessions: make(map[string]models.Feedback)}
}

// Get returns the session's feedback, FeedbackNone if it never voted.
func (s *FeedbackStore) Get(sessionID string) models.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.sessions[sessionID]; ok {
		return f
	}
	return models.FeedbackNone
}

// Set overwrites the session's feedback.
func (s *FeedbackStore) Set(sessionID string, f models.Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = f
}
