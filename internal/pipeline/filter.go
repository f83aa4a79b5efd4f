package pipeline

import (
	"strings"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// FilterByTags keeps content whose account carries one of tags. An empty tag
// set, or one containing domain.TagAll, disables the filter.
func FilterByTags(records []domain.ContentRecord, meta []domain.MetadataRecord, tags []string) []domain.ContentRecord {
	if len(tags) == 0 {
		return records
	}
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == domain.TagAll {
			return records
		}
		wanted[t] = struct{}{}
	}

	accounts := make(map[string]struct{})
	for _, m := range meta {
		if _, ok := wanted[strings.TrimSpace(m.Tag)]; ok {
			accounts[m.KOLID] = struct{}{}
		}
	}

	out := make([]domain.ContentRecord, 0, len(records))
	for _, r := range records {
		if _, ok := accounts[r.KOLID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// FilterBySource keeps content from source, compared case-insensitively.
// Empty and domain.SourceAll disable the filter.
func FilterBySource(records []domain.ContentRecord, source string) []domain.ContentRecord {
	if source == "" || source == domain.SourceAll {
		return records
	}
	out := make([]domain.ContentRecord, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(r.Source, source) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByKeyword keeps content containing keyword, case-insensitively.
func FilterByKeyword(records []domain.ContentRecord, keyword string) []domain.ContentRecord {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return records
	}
	needle := strings.ToLower(keyword)
	out := make([]domain.ContentRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Content), needle) {
			out = append(out, r)
		}
	}
	return out
}
