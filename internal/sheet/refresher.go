// Package sheet loads the upstream KOL sheets and the saved-search template
// into the cache.
package sheet

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/repository"
)

// Refresher serves the sheets from the cache and reloads them from upstream
// when they are missing. Concurrent reloads of the same sheet are collapsed.
type Refresher struct {
	store         *repository.Store
	cfg           config.SheetsConfig
	systemAccount string
	client        *http.Client
	group         singleflight.Group
}

// NewRefresher creates a refresher writing through store.
func NewRefresher(store *repository.Store, cfg config.SheetsConfig, systemAccount string) *Refresher {
	return &Refresher{
		store:         store,
		cfg:           cfg,
		systemAccount: systemAccount,
		client:        &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// KOLInfo returns the account metadata sheet.
func (r *Refresher) KOLInfo(ctx context.Context) ([]domain.MetadataRecord, error) {
	var rows []domain.MetadataRecord
	ok, err := r.store.GetSheet(ctx, repository.KOLInfoKey, &rows)
	if err != nil {
		return nil, err
	}
	if ok {
		return rows, nil
	}
	v, err, _ := r.group.Do(repository.KOLInfoKey, func() (any, error) {
		fctx, cancel := r.fetchContext(ctx)
		defer cancel()
		return r.refreshKOLInfo(fctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.MetadataRecord), nil
}

// KOLData returns the content sheet.
func (r *Refresher) KOLData(ctx context.Context) ([]domain.ContentRecord, error) {
	var rows []domain.ContentRecord
	ok, err := r.store.GetSheet(ctx, repository.KOLDataKey, &rows)
	if err != nil {
		return nil, err
	}
	if ok {
		return rows, nil
	}
	v, err, _ := r.group.Do(repository.KOLDataKey, func() (any, error) {
		fctx, cancel := r.fetchContext(ctx)
		defer cancel()
		return r.refreshKOLData(fctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ContentRecord), nil
}

// SavedSearches returns the global saved-search list, reloading it when the
// cached copy is empty.
func (r *Refresher) SavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	searches, err := r.store.GetGlobalSavedSearches(ctx)
	if err != nil {
		return nil, err
	}
	if len(searches) > 0 {
		return searches, nil
	}
	v, err, _ := r.group.Do(repository.GlobalSavedSearchesKey, func() (any, error) {
		fctx, cancel := r.fetchContext(ctx)
		defer cancel()
		return r.refreshSavedSearches(fctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.SavedSearch), nil
}

// SystemTemplate returns a copy of the saved searches owned by the system
// account.
func (r *Refresher) SystemTemplate(ctx context.Context) ([]domain.SavedSearch, error) {
	all, err := r.SavedSearches(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SavedSearch, 0, len(all))
	for _, s := range all {
		if s.Account == r.systemAccount {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// Refresh reloads every sheet from upstream.
func (r *Refresher) Refresh(ctx context.Context) error {
	if _, err := r.refreshKOLInfo(ctx); err != nil {
		return fmt.Errorf("refresh kol info: %w", err)
	}
	if _, err := r.refreshKOLData(ctx); err != nil {
		return fmt.Errorf("refresh kol data: %w", err)
	}
	if _, err := r.refreshSavedSearches(ctx); err != nil {
		return fmt.Errorf("refresh saved searches: %w", err)
	}
	return nil
}

func (r *Refresher) refreshKOLInfo(ctx context.Context) ([]domain.MetadataRecord, error) {
	rows, err := r.fetchCSV(ctx, r.cfg.KOLInfo)
	if err != nil {
		return nil, err
	}
	records := parseMetadata(rows)
	if err := r.store.PutSheet(ctx, repository.KOLInfoKey, records); err != nil {
		return nil, err
	}
	logger.L.Info("sheet refreshed", "sheet", repository.KOLInfoKey, "rows", len(records))
	return records, nil
}

func (r *Refresher) refreshKOLData(ctx context.Context) ([]domain.ContentRecord, error) {
	rows, err := r.fetchCSV(ctx, r.cfg.KOLData)
	if err != nil {
		return nil, err
	}
	records := parseContent(rows)
	if err := r.store.PutSheet(ctx, repository.KOLDataKey, records); err != nil {
		return nil, err
	}
	logger.L.Info("sheet refreshed", "sheet", repository.KOLDataKey, "rows", len(records))
	return records, nil
}

func (r *Refresher) refreshSavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	rows, err := r.fetchCSV(ctx, r.cfg.SavedSearches)
	if err != nil {
		return nil, err
	}
	searches := parseSavedSearches(rows)

	if r.cfg.TemplateFile != "" {
		fromFile, err := loadTemplateFile(r.cfg.TemplateFile)
		if err != nil {
			return nil, err
		}
		searches = append(searches, fromFile...)
	}
	renumber(searches)

	if err := r.store.PutGlobalSavedSearches(ctx, searches); err != nil {
		return nil, err
	}
	logger.L.Info("sheet refreshed", "sheet", repository.GlobalSavedSearchesKey, "rows", len(searches))
	return searches, nil
}

// fetchContext detaches a shared reload from the caller that started it, so
// one cancelled request does not fail every waiter. The fetch timeout still
// applies.
func (r *Refresher) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if r.cfg.FetchTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.FetchTimeout)
	}
	return ctx, func() {}
}

// fetchCSV reads the rows at location. An unset location yields no rows.
func (r *Refresher) fetchCSV(ctx context.Context, location string) ([]row, error) {
	if location == "" {
		return nil, nil
	}
	body, err := open(ctx, r.client, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := readCSV(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, location, err)
	}
	return rows, nil
}

// renumber gives the merged list unique ids starting at 1. A missing order
// takes the entry's position.
func renumber(searches []domain.SavedSearch) {
	for i := range searches {
		searches[i].ID = i + 1
		if searches[i].Order <= 0 {
			searches[i].Order = i + 1
		}
	}
}
