// Package service implements the session, thread, saved-search, enrichment
// and chat operations on top of the cache.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/adapter/llm"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/cache"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/lock"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/repository"
)

// TemplateSource provides the saved searches copied into every new session.
type TemplateSource interface {
	SystemTemplate(ctx context.Context) ([]domain.SavedSearch, error)
}

// SheetSource provides the upstream records the pipeline reads.
type SheetSource interface {
	KOLInfo(ctx context.Context) ([]domain.MetadataRecord, error)
	KOLData(ctx context.Context) ([]domain.ContentRecord, error)
}

// QueryValidator checks filter parameters before they are stored or run.
type QueryValidator interface {
	ValidateQuery(ctx context.Context, q domain.SearchQuery) error
}

// Notifier receives thread change events.
type Notifier interface {
	Publish(event domain.ThreadEvent)
}

type Service struct {
	store     *repository.Store
	locks     *lock.Registry
	templates TemplateSource
	sheets    SheetSource
	validator QueryValidator
	llmClient llm.LLMClient
	notifier  Notifier
	config    *config.Config
	now       func() time.Time
}

func New(store *repository.Store, locks *lock.Registry, templates TemplateSource, sheets SheetSource, validator QueryValidator, llmClient llm.LLMClient, notifier Notifier, cfg *config.Config) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:     store,
		locks:     locks,
		templates: templates,
		sheets:    sheets,
		validator: validator,
		llmClient: llmClient,
		notifier:  notifier,
		config:    cfg,
		now:       time.Now,
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(domain.ThreadEvent) {}

// CacheAlive reports whether the cache answers a ping.
func (s *Service) CacheAlive(ctx context.Context) bool {
	return cache.IsAlive(ctx, s.store.Cache())
}

// RunLockSweeper drops idle session locks until ctx is done.
func (s *Service) RunLockSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.config.LockSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.locks.Sweep(s.config.LockIdleTimeout); n > 0 {
				logger.L.Debug("swept idle session locks", "removed", n, "remaining", s.locks.Len())
			}
		}
	}
}

// fail logs err at the operation boundary and returns it. Cache failures are
// logged with a liveness probe.
func (s *Service) fail(ctx context.Context, op string, err error, attrs ...any) error {
	attrs = append(attrs, "op", op, "error", err)
	level := slog.LevelWarn
	if errors.Is(err, domain.ErrCacheUnavailable) {
		attrs = append(attrs, "cache_alive", s.CacheAlive(ctx))
		level = slog.LevelError
	} else if errors.Is(err, domain.ErrUpstreamUnavailable) || !isClientError(err) {
		level = slog.LevelError
	}
	logger.L.Log(ctx, level, "operation failed", attrs...)
	return err
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound)
}

func (s *Service) publish(eventType domain.ThreadEventType, sessionID, threadID string, msg *domain.Message, messageID *int) {
	s.notifier.Publish(domain.ThreadEvent{
		Type:      eventType,
		SessionID: sessionID,
		ThreadID:  threadID,
		Message:   msg,
		MessageID: messageID,
		Ts:        s.now().Unix(),
	})
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
