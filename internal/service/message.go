package service

import (
	"context"
	"fmt"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

var errSessionRequired = fmt.Errorf("%w: session_id is required", domain.ErrValidation)

func validateThread(sessionID, threadID string) error {
	if sessionID == "" {
		return errSessionRequired
	}
	if !domain.ValidThreadID(threadID) {
		return fmt.Errorf("%w: thread_id %q must contain only letters, digits and underscores", domain.ErrValidation, threadID)
	}
	return nil
}

// AppendMessage adds a message to the thread, creating the session if
// needed. Ids continue from the highest id in the thread.
func (s *Service) AppendMessage(ctx context.Context, sessionID, threadID string, role domain.Role, content string, metadata map[string]any) (*domain.Message, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be %q or %q", domain.ErrValidation, domain.RoleUser, domain.RoleBot)
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	msg, err := s.appendMessage(ctx, sessionID, threadID, role, content, metadata)
	if err != nil {
		return nil, s.fail(ctx, "append_message", err, "session_id", sessionID, "thread_id", threadID)
	}
	s.publish(domain.ThreadEventMessageCreated, sessionID, threadID, msg, nil)
	return msg, nil
}

// appendMessage does the work of AppendMessage. The session lock must be held.
func (s *Service) appendMessage(ctx context.Context, sessionID, threadID string, role domain.Role, content string, metadata map[string]any) (*domain.Message, error) {
	if _, err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, sessionID, threadID)
	if err != nil {
		return nil, err
	}

	nextID := 0
	for _, m := range messages {
		if m.ID >= nextID {
			nextID = m.ID + 1
		}
	}
	msg := domain.Message{
		ID:        nextID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().Unix(),
		Metadata:  metadata,
	}
	messages = append(messages, msg)
	if err := s.store.PutMessages(ctx, sessionID, threadID, messages); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns the messages with id greater than sinceID (when set),
// keeping only the last limit of them when limit is positive. A missing
// session yields an empty list.
func (s *Service) ListMessages(ctx context.Context, sessionID, threadID string, sinceID *int, limit int) ([]domain.Message, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.fail(ctx, "list_messages", err, "session_id", sessionID, "thread_id", threadID)
	}
	if session == nil {
		return []domain.Message{}, nil
	}

	messages, err := s.store.GetMessages(ctx, sessionID, threadID)
	if err != nil {
		return nil, s.fail(ctx, "list_messages", err, "session_id", sessionID, "thread_id", threadID)
	}

	if sinceID != nil {
		filtered := messages[:0]
		for _, m := range messages {
			if m.ID > *sinceID {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// UpdateMessage applies patch to the message with the given id. It reports
// false if the session or the message does not exist.
func (s *Service) UpdateMessage(ctx context.Context, sessionID, threadID string, messageID int, patch domain.MessagePatch) (bool, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return false, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return false, fmt.Errorf("%w: role must be %q or %q", domain.ErrValidation, domain.RoleUser, domain.RoleBot)
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	var updated *domain.Message
	err := s.mutateThread(ctx, sessionID, threadID, func(messages []domain.Message) ([]domain.Message, bool) {
		for i := range messages {
			if messages[i].ID != messageID {
				continue
			}
			if patch.Content != nil {
				messages[i].Content = *patch.Content
			}
			if patch.Role != nil {
				messages[i].Role = *patch.Role
			}
			if patch.Metadata != nil {
				messages[i].Metadata = patch.Metadata
			}
			m := messages[i]
			updated = &m
			return messages, true
		}
		return messages, false
	})
	if err != nil {
		return false, s.fail(ctx, "update_message", err, "session_id", sessionID, "thread_id", threadID)
	}
	if updated == nil {
		return false, nil
	}
	s.publish(domain.ThreadEventMessageUpdated, sessionID, threadID, updated, &messageID)
	return true, nil
}

// DeleteMessage removes one message. It reports false if the session or the
// message does not exist.
func (s *Service) DeleteMessage(ctx context.Context, sessionID, threadID string, messageID int) (bool, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return false, err
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	deleted := false
	err := s.mutateThread(ctx, sessionID, threadID, func(messages []domain.Message) ([]domain.Message, bool) {
		kept := messages[:0]
		for _, m := range messages {
			if m.ID == messageID {
				deleted = true
				continue
			}
			kept = append(kept, m)
		}
		return kept, deleted
	})
	if err != nil {
		return false, s.fail(ctx, "delete_message", err, "session_id", sessionID, "thread_id", threadID)
	}
	if deleted {
		s.publish(domain.ThreadEventMessageDeleted, sessionID, threadID, nil, &messageID)
	}
	return deleted, nil
}

// ClearThread empties the thread. It reports false if the session does not
// exist.
func (s *Service) ClearThread(ctx context.Context, sessionID, threadID string) (bool, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return false, err
	}

	release := s.locks.Acquire(sessionID)
	defer release()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, s.fail(ctx, "clear_thread", err, "session_id", sessionID, "thread_id", threadID)
	}
	if session == nil {
		return false, nil
	}
	if err := s.store.PutMessages(ctx, sessionID, threadID, nil); err != nil {
		return false, s.fail(ctx, "clear_thread", err, "session_id", sessionID, "thread_id", threadID)
	}
	if err := s.touchSession(ctx, session); err != nil {
		return false, s.fail(ctx, "clear_thread", err, "session_id", sessionID, "thread_id", threadID)
	}
	s.publish(domain.ThreadEventThreadCleared, sessionID, threadID, nil, nil)
	return true, nil
}

// mutateThread runs fn over the stored thread of an existing session and
// writes the result back when fn reports a change. A missing session is a
// no-op. The session lock must be held.
func (s *Service) mutateThread(ctx context.Context, sessionID, threadID string, fn func([]domain.Message) ([]domain.Message, bool)) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return err
	}
	messages, err := s.store.GetMessages(ctx, sessionID, threadID)
	if err != nil {
		return err
	}
	messages, changed := fn(messages)
	if !changed {
		return nil
	}
	if err := s.store.PutMessages(ctx, sessionID, threadID, messages); err != nil {
		return err
	}
	return s.touchSession(ctx, session)
}
