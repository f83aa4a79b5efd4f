// Package repository maps the domain entities onto cache keys.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/cache"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// Store provides typed access to the state kept in the cache.
type Store struct {
	cache      cache.Cache
	sessionTTL time.Duration
}

// NewStore creates a store. Session-scoped keys are written with sessionTTL.
func NewStore(c cache.Cache, sessionTTL time.Duration) *Store {
	return &Store{cache: c, sessionTTL: sessionTTL}
}

// Cache returns the underlying cache.
func (s *Store) Cache() cache.Cache {
	return s.cache
}

// Sessions

// GetSession returns the session or nil if it does not exist.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	ok, err := cache.GetJSON(ctx, s.cache, SessionKey(sessionID), &session)
	if err != nil || !ok {
		return nil, err
	}
	return &session, nil
}

func (s *Store) PutSession(ctx context.Context, session *domain.Session) error {
	return cache.SetJSON(ctx, s.cache, SessionKey(session.ID), session, s.sessionTTL)
}

// Messages

// GetMessages returns the thread log, empty if it does not exist.
func (s *Store) GetMessages(ctx context.Context, sessionID, threadID string) ([]domain.Message, error) {
	messages := []domain.Message{}
	if _, err := cache.GetJSON(ctx, s.cache, MessagesKey(sessionID, threadID), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Store) PutMessages(ctx context.Context, sessionID, threadID string, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	return cache.SetJSON(ctx, s.cache, MessagesKey(sessionID, threadID), messages, s.sessionTTL)
}

// ThreadKeys lists the message keys owned by the session.
func (s *Store) ThreadKeys(ctx context.Context, sessionID string) ([]string, error) {
	prefix := MessagesKey(sessionID, "")
	keys, err := s.cache.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return threadKeys(keys, prefix), nil
}

// Saved searches

// GetSavedSearches returns the session's registry. Entries missing an id, a
// title or a query object are dropped.
func (s *Store) GetSavedSearches(ctx context.Context, sessionID string) ([]domain.SavedSearch, error) {
	return s.getSavedSearches(ctx, SavedSearchesKey(sessionID))
}

func (s *Store) PutSavedSearches(ctx context.Context, sessionID string, searches []domain.SavedSearch) error {
	if searches == nil {
		searches = []domain.SavedSearch{}
	}
	return cache.SetJSON(ctx, s.cache, SavedSearchesKey(sessionID), searches, s.sessionTTL)
}

// GetGlobalSavedSearches returns the system template.
func (s *Store) GetGlobalSavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	return s.getSavedSearches(ctx, GlobalSavedSearchesKey)
}

// PutGlobalSavedSearches replaces the system template. It does not expire.
func (s *Store) PutGlobalSavedSearches(ctx context.Context, searches []domain.SavedSearch) error {
	if searches == nil {
		searches = []domain.SavedSearch{}
	}
	return cache.SetJSON(ctx, s.cache, GlobalSavedSearchesKey, searches, 0)
}

func (s *Store) getSavedSearches(ctx context.Context, key string) ([]domain.SavedSearch, error) {
	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return []domain.SavedSearch{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSavedSearches(data), nil
}

func decodeSavedSearches(data []byte) []domain.SavedSearch {
	out := []domain.SavedSearch{}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return out
	}
	root.ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("id").Type != gjson.Number ||
			entry.Get("title").Type != gjson.String ||
			!entry.Get("query").IsObject() {
			return true
		}
		var ss domain.SavedSearch
		if err := json.Unmarshal([]byte(entry.Raw), &ss); err != nil {
			return true
		}
		out = append(out, ss)
		return true
	})
	return out
}

// Enriched documents

// GetEnrichedDoc returns the cached document of a thread.
func (s *Store) GetEnrichedDoc(ctx context.Context, sessionID, threadID string) (string, bool, error) {
	data, err := s.cache.Get(ctx, EnrichedDocKey(sessionID, threadID))
	if errors.Is(err, cache.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *Store) PutEnrichedDoc(ctx context.Context, sessionID, threadID, doc string, ttl time.Duration) error {
	return s.cache.Set(ctx, EnrichedDocKey(sessionID, threadID), []byte(doc), ttl)
}

// EnrichedDocKeys lists the document keys owned by the session.
func (s *Store) EnrichedDocKeys(ctx context.Context, sessionID string) ([]string, error) {
	prefix := EnrichedDocKey(sessionID, "")
	keys, err := s.cache.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return threadKeys(keys, prefix), nil
}

// Sheets

// GetSheet decodes the rows cached under key into dst.
func (s *Store) GetSheet(ctx context.Context, key string, dst any) (bool, error) {
	return cache.GetJSON(ctx, s.cache, key, dst)
}

// PutSheet caches rows under key without expiry.
func (s *Store) PutSheet(ctx context.Context, key string, rows any) error {
	return cache.SetJSON(ctx, s.cache, key, rows, 0)
}

// Expiry

// Touch resets the expiry of every given session-scoped key.
func (s *Store) Touch(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.cache.Expire(ctx, key, s.sessionTTL); err != nil {
			return fmt.Errorf("touch %s: %w", key, err)
		}
	}
	return nil
}

// Delete removes keys in one operation.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.cache.Delete(ctx, keys...)
}
