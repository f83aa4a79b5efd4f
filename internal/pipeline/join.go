package pipeline

import (
	"sort"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// Join left-joins content to metadata on kol_id. The first metadata row of
// an account wins.
func Join(records []domain.ContentRecord, meta []domain.MetadataRecord) []domain.JoinedRecord {
	byID := make(map[string]*domain.MetadataRecord, len(meta))
	for i := range meta {
		if _, ok := byID[meta[i].KOLID]; !ok {
			byID[meta[i].KOLID] = &meta[i]
		}
	}

	out := make([]domain.JoinedRecord, len(records))
	for i, r := range records {
		out[i] = domain.JoinedRecord{ContentRecord: r}
		if m, ok := byID[r.KOLID]; ok {
			mc := *m
			out[i].Meta = &mc
		}
	}
	return out
}

// SortByTimestamp orders records newest first. Records without a timestamp
// go last, in their input order.
func SortByTimestamp(records []domain.JoinedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Timestamp, records[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a > *b
	})
}
