package domain

import "regexp"

// Session is a bounded-lifetime unit of user state.
type Session struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Message is a single entry of a (session, thread) log.
type Message struct {
	ID        int            `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	CreatedAt int64          `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MessagePatch holds the optional fields of a message update. Nil fields are
// left untouched.
type MessagePatch struct {
	Content  *string        `json:"content,omitempty"`
	Role     *Role          `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ThreadEvent is pushed to watchers whenever a thread changes.
type ThreadEvent struct {
	Type      ThreadEventType `json:"type"`
	SessionID string          `json:"session_id"`
	ThreadID  string          `json:"thread_id"`
	Message   *Message        `json:"message,omitempty"`
	MessageID *int            `json:"message_id,omitempty"`
	Ts        int64           `json:"ts"`
}

var threadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidThreadID reports whether id may be used as a thread id. The separator
// used in cache keys is excluded so one session's threads never match another
// session's key prefix.
func ValidThreadID(id string) bool {
	return threadIDPattern.MatchString(id)
}
