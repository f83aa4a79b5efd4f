// Package domain defines the core domain models for the search state service.
package domain

// Role identifies the author of a thread message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// TimeMode selects the time window applied by the enrichment pipeline.
type TimeMode string

const (
	TimeModeNone      TimeMode = ""
	TimeModeYesterday TimeMode = "yesterday"
	TimeModeToday     TimeMode = "today"
	TimeModeLastDays  TimeMode = "last_n_days"
	TimeModeRange     TimeMode = "range"
)

// Valid reports whether m is a known time mode.
func (m TimeMode) Valid() bool {
	switch m {
	case TimeModeNone, TimeModeYesterday, TimeModeToday, TimeModeLastDays, TimeModeRange:
		return true
	}
	return false
}

// ThreadEventType represents the kind of change pushed to thread watchers.
type ThreadEventType string

const (
	ThreadEventMessageCreated   ThreadEventType = "message_created"
	ThreadEventMessageUpdated   ThreadEventType = "message_updated"
	ThreadEventMessageDeleted   ThreadEventType = "message_deleted"
	ThreadEventThreadCleared    ThreadEventType = "thread_cleared"
	ThreadEventDocumentEnriched ThreadEventType = "document_enriched"
)

// TagAll is the sentinel tag that disables tag filtering.
const TagAll = "All"

// SourceAll is the sentinel source that disables source filtering.
const SourceAll = "All"
