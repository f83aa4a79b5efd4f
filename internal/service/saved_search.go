package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// DefaultAccount owns saved searches created without an explicit account.
const DefaultAccount = "user"

// CreateSavedSearch adds a saved search to the session's registry, creating
// the session if needed.
func (s *Service) CreateSavedSearch(ctx context.Context, sessionID string, input domain.SavedSearchInput) (*domain.SavedSearch, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}
	query := input.Params.Resolve()
	if err := s.validator.ValidateQuery(ctx, query); err != nil {
		return nil, s.fail(ctx, "create_saved_search", err, "session_id", sessionID)
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	created, err := s.createSavedSearch(ctx, sessionID, input, query)
	if err != nil {
		return nil, s.fail(ctx, "create_saved_search", err, "session_id", sessionID)
	}
	return created, nil
}

func (s *Service) createSavedSearch(ctx context.Context, sessionID string, input domain.SavedSearchInput, query domain.SearchQuery) (*domain.SavedSearch, error) {
	if _, err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	searches, err := s.store.GetSavedSearches(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, ss := range searches {
		if ss.ID > maxID {
			maxID = ss.ID
		}
	}

	now := s.now()
	title := ""
	if input.Title != nil {
		title = strings.TrimSpace(*input.Title)
	}
	if title == "" {
		title = query.Title
	}
	if title == "" {
		title = fmt.Sprintf("Search %d", now.Unix())
	}
	if query.Title == "" {
		query.Title = title
	}
	account := strings.TrimSpace(input.Account)
	if account == "" {
		account = DefaultAccount
	}

	created := domain.SavedSearch{
		ID:        maxID + 1,
		Title:     title,
		Account:   account,
		Order:     len(searches) + 1,
		Query:     query,
		CreatedAt: domain.FormatCreatedAt(now),
	}
	searches = append(searches, created)
	if err := s.store.PutSavedSearches(ctx, sessionID, searches); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListSavedSearches returns the session's registry. An empty registry of an
// existing session is re-seeded from the system template. A missing session
// yields an empty list.
func (s *Service) ListSavedSearches(ctx context.Context, sessionID string) ([]domain.SavedSearch, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "list_saved_searches", err, "session_id", sessionID)
	}
	if session == nil {
		return []domain.SavedSearch{}, nil
	}

	searches, err := s.store.GetSavedSearches(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "list_saved_searches", err, "session_id", sessionID)
	}
	if len(searches) > 0 {
		return searches, nil
	}

	searches, err = s.reseedSavedSearches(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "list_saved_searches", err, "session_id", sessionID)
	}
	return searches, nil
}

func (s *Service) reseedSavedSearches(ctx context.Context, sessionID string) ([]domain.SavedSearch, error) {
	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return []domain.SavedSearch{}, err
	}
	// Another request may have written the registry while we waited.
	searches, err := s.store.GetSavedSearches(ctx, sessionID)
	if err != nil || len(searches) > 0 {
		return searches, err
	}

	template, err := s.templates.SystemTemplate(ctx)
	if err != nil {
		return nil, err
	}
	searches = cloneSearches(template)
	if err := s.store.PutSavedSearches(ctx, sessionID, searches); err != nil {
		return nil, err
	}
	if err := s.touchSession(ctx, session); err != nil {
		return nil, err
	}
	return searches, nil
}

// UpdateSavedSearch merges upd into the saved search with the given id and
// returns the result, or nil if the session or the search does not exist.
func (s *Service) UpdateSavedSearch(ctx context.Context, sessionID string, searchID int, upd domain.SavedSearchUpdate) (*domain.SavedSearch, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}
	if upd.Empty() {
		return nil, fmt.Errorf("%w: update carries no fields", domain.ErrValidation)
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	updated, err := s.updateSavedSearch(ctx, sessionID, searchID, upd)
	if err != nil {
		return nil, s.fail(ctx, "update_saved_search", err, "session_id", sessionID, "search_id", searchID)
	}
	return updated, nil
}

func (s *Service) updateSavedSearch(ctx context.Context, sessionID string, searchID int, upd domain.SavedSearchUpdate) (*domain.SavedSearch, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}
	searches, err := s.store.GetSavedSearches(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range searches {
		if searches[i].ID != searchID {
			continue
		}
		next := searches[i].Clone()
		next.Apply(upd)
		if err := s.validator.ValidateQuery(ctx, next.Query); err != nil {
			return nil, err
		}
		searches[i] = next
		if err := s.store.PutSavedSearches(ctx, sessionID, searches); err != nil {
			return nil, err
		}
		if err := s.touchSession(ctx, session); err != nil {
			return nil, err
		}
		return &next, nil
	}
	return nil, nil
}

// DeleteSavedSearch removes a saved search. It reports false if the session
// or the search does not exist.
func (s *Service) DeleteSavedSearch(ctx context.Context, sessionID string, searchID int) (bool, error) {
	if sessionID == "" {
		return false, errSessionRequired
	}
	release := s.locks.Acquire(sessionID)
	defer release()

	deleted, err := s.deleteSavedSearch(ctx, sessionID, searchID)
	if err != nil {
		return false, s.fail(ctx, "delete_saved_search", err, "session_id", sessionID, "search_id", searchID)
	}
	return deleted, nil
}

func (s *Service) deleteSavedSearch(ctx context.Context, sessionID string, searchID int) (bool, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return false, err
	}
	searches, err := s.store.GetSavedSearches(ctx, sessionID)
	if err != nil {
		return false, err
	}

	kept := searches[:0]
	for _, ss := range searches {
		if ss.ID != searchID {
			kept = append(kept, ss)
		}
	}
	if len(kept) == len(searches) {
		return false, nil
	}
	if err := s.store.PutSavedSearches(ctx, sessionID, kept); err != nil {
		return false, err
	}
	return true, s.touchSession(ctx, session)
}

// RunSavedSearch runs the pipeline with the query of a stored saved search.
func (s *Service) RunSavedSearch(ctx context.Context, sessionID, threadID string, searchID int, appendDoc bool) (*domain.EnrichResult, error) {
	searches, err := s.ListSavedSearches(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, ss := range searches {
		if ss.ID == searchID {
			return s.Enrich(ctx, sessionID, threadID, ss.Query, appendDoc)
		}
	}
	return nil, fmt.Errorf("%w: saved search %d", domain.ErrNotFound, searchID)
}
