package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/repository"
)

// GetOrCreateSession returns the session with the given id, creating it when
// it does not exist. An empty id creates a session with a new UUID.
func (s *Service) GetOrCreateSession(ctx context.Context, sessionID string) (string, *domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", nil, s.fail(ctx, "get_session", err, "session_id", sessionID)
	}
	if session != nil {
		return sessionID, session, nil
	}

	session, err = s.createSession(ctx, sessionID)
	if err != nil {
		return "", nil, s.fail(ctx, "create_session", err, "session_id", sessionID)
	}
	return sessionID, session, nil
}

// GetSession returns the session or nil if it does not exist.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "get_session", err, "session_id", sessionID)
	}
	return session, nil
}

// DeleteSession removes the session with its threads, saved searches and
// cached documents. It reports false if the session does not exist.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, s.fail(ctx, "delete_session", err, "session_id", sessionID)
	}
	if session == nil {
		return false, nil
	}

	threadKeys, err := s.store.ThreadKeys(ctx, sessionID)
	if err != nil {
		return false, s.fail(ctx, "delete_session", err, "session_id", sessionID)
	}
	docKeys, err := s.store.EnrichedDocKeys(ctx, sessionID)
	if err != nil {
		return false, s.fail(ctx, "delete_session", err, "session_id", sessionID)
	}

	keys := make([]string, 0, len(threadKeys)+len(docKeys)+2)
	keys = append(keys, repository.SessionKey(sessionID), repository.SavedSearchesKey(sessionID))
	keys = append(keys, threadKeys...)
	keys = append(keys, docKeys...)
	if err := s.store.Delete(ctx, keys...); err != nil {
		return false, s.fail(ctx, "delete_session", err, "session_id", sessionID)
	}

	logger.L.Info("session deleted", "session_id", sessionID, "threads", len(threadKeys))
	return true, nil
}

// createSession stores a new session and seeds its saved searches from the
// system template. The session lock must be held.
func (s *Service) createSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	now := s.now().Unix()
	session := &domain.Session{ID: sessionID, CreatedAt: now, UpdatedAt: now}

	searches, err := s.templates.SystemTemplate(ctx)
	if err != nil {
		// A session without the template is still usable; listing re-seeds it.
		logger.L.Warn("failed to load saved-search template", "session_id", sessionID, "error", err)
		searches = nil
	}
	if err := s.store.PutSavedSearches(ctx, sessionID, cloneSearches(searches)); err != nil {
		return nil, fmt.Errorf("seed saved searches: %w", err)
	}
	if err := s.store.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	logger.L.Info("session created", "session_id", sessionID, "saved_searches", len(searches))
	return session, nil
}

// ensureSession loads the session, creating it when absent, and refreshes
// its update time and expiry. The session lock must be held.
func (s *Service) ensureSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return s.createSession(ctx, sessionID)
	}
	return session, s.touchSession(ctx, session)
}

// touchSession refreshes the session record and the expiry of its registry.
func (s *Service) touchSession(ctx context.Context, session *domain.Session) error {
	session.UpdatedAt = s.now().Unix()
	if err := s.store.PutSession(ctx, session); err != nil {
		return err
	}
	return s.store.Touch(ctx, repository.SavedSearchesKey(session.ID))
}

func cloneSearches(in []domain.SavedSearch) []domain.SavedSearch {
	out := make([]domain.SavedSearch, len(in))
	for i, ss := range in {
		out[i] = ss.Clone()
	}
	return out
}
