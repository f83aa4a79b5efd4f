package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/pipeline"
)

// Enrich runs the filtering pipeline for q, caches the rendered document for
// the thread and, when appendDoc is set, appends it to the thread as a bot
// message.
func (s *Service) Enrich(ctx context.Context, sessionID, threadID string, q domain.SearchQuery, appendDoc bool) (*domain.EnrichResult, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateQuery(ctx, q); err != nil {
		return nil, s.fail(ctx, "enrich", err, "session_id", sessionID, "thread_id", threadID)
	}

	var (
		content []domain.ContentRecord
		meta    []domain.MetadataRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		content, err = s.sheets.KOLData(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = s.sheets.KOLInfo(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, "enrich", fmt.Errorf("load sheets: %w", err), "session_id", sessionID, "thread_id", threadID)
	}

	records, doc := pipeline.Run(content, meta, q, s.now())
	result := &domain.EnrichResult{Records: records, Document: doc}

	msg, err := s.storeEnrichment(ctx, sessionID, threadID, doc, len(records), appendDoc)
	if err != nil {
		return nil, s.fail(ctx, "enrich", err, "session_id", sessionID, "thread_id", threadID)
	}
	if msg != nil {
		result.Message = msg
		s.publish(domain.ThreadEventMessageCreated, sessionID, threadID, msg, nil)
	}

	s.publish(domain.ThreadEventDocumentEnriched, sessionID, threadID, nil, nil)
	return result, nil
}

// storeEnrichment caches doc for the thread, creating the session when
// needed, and appends it as a bot message when appendDoc is set.
func (s *Service) storeEnrichment(ctx context.Context, sessionID, threadID, doc string, records int, appendDoc bool) (*domain.Message, error) {
	release := s.locks.Acquire(sessionID)
	defer release()

	if _, err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := s.store.PutEnrichedDoc(ctx, sessionID, threadID, doc, s.config.EnrichTTL); err != nil {
		return nil, err
	}
	if !appendDoc {
		return nil, nil
	}
	return s.appendMessage(ctx, sessionID, threadID, domain.RoleBot, doc, map[string]any{
		"kind":    "enriched_document",
		"records": records,
	})
}

// GetEnrichedDocument returns the cached document of the thread's last
// enrichment, or domain.ErrNotFound once it has expired.
func (s *Service) GetEnrichedDocument(ctx context.Context, sessionID, threadID string) (string, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return "", err
	}
	doc, ok, err := s.store.GetEnrichedDoc(ctx, sessionID, threadID)
	if err != nil {
		return "", s.fail(ctx, "get_enriched_document", err, "session_id", sessionID, "thread_id", threadID)
	}
	if !ok {
		return "", fmt.Errorf("%w: no enriched document for thread %s", domain.ErrNotFound, threadID)
	}
	return doc, nil
}
