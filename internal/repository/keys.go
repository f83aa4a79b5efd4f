package repository

import (
	"strings"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// Cache key layout.
const (
	sessionPrefix       = "sessions:"
	messagesPrefix      = "messages:"
	savedSearchesPrefix = "saved_searches:"
	enrichedDocPrefix   = "enriched_doc:"

	GlobalSavedSearchesKey = "global_saved_searches"
	KOLInfoKey             = "sheet:kol_info"
	KOLDataKey             = "sheet:kol_data"
)

func SessionKey(sessionID string) string {
	return sessionPrefix + sessionID
}

func MessagesKey(sessionID, threadID string) string {
	return messagesPrefix + sessionID + "-" + threadID
}

func SavedSearchesKey(sessionID string) string {
	return savedSearchesPrefix + sessionID
}

func EnrichedDocKey(sessionID, threadID string) string {
	return enrichedDocPrefix + sessionID + "-" + threadID
}

// threadKeys keeps the keys under prefix whose remainder is a valid thread id.
func threadKeys(keys []string, prefix string) []string {
	out := keys[:0]
	for _, k := range keys {
		if domain.ValidThreadID(strings.TrimPrefix(k, prefix)) {
			out = append(out, k)
		}
	}
	return out
}
