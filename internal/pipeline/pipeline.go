// Package pipeline filters, joins and renders the KOL content feed.
package pipeline

import (
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// Run applies q to content and meta and returns the projected records with
// their rendered table. Empty inputs give an empty result.
func Run(content []domain.ContentRecord, meta []domain.MetadataRecord, q domain.SearchQuery, now time.Time) ([]domain.EnrichedRecord, string) {
	filtered := FilterByTags(content, meta, q.Tags)
	if w, ok := ResolveWindow(q, now); ok {
		filtered = FilterByTime(filtered, w)
	}
	filtered = FilterBySource(filtered, q.Source)
	filtered = FilterByKeyword(filtered, q.Query)

	joined := Join(filtered, meta)
	SortByTimestamp(joined)

	records := Project(joined)
	return records, Render(records)
}
