package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/adapter/llm"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

// ChatResult is the reply of the LLM bridge.
type ChatResult struct {
	Reply   string          `json:"reply"`
	Message *domain.Message `json:"message,omitempty"`
}

// Chat asks the LLM to answer in the context of the thread. With a query the
// query is sent after the history; without one the last thread message is
// sent. When appendReply is set the query (if any) and the reply are
// appended to the thread.
func (s *Service) Chat(ctx context.Context, sessionID, threadID, query string, appendReply bool) (*ChatResult, error) {
	if err := validateThread(sessionID, threadID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)

	history, err := s.ListMessages(ctx, sessionID, threadID, nil, s.config.LLM.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 && query == "" {
		return nil, fmt.Errorf("%w: no messages in thread and no query given", domain.ErrValidation)
	}

	send := query
	if send == "" {
		send = history[len(history)-1].Content
		history = history[:len(history)-1]
	}

	messages := make([]llm.ChatMessage, 0, len(history)+3)
	if prompt := s.loadPrompt(); prompt != "" {
		messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: prompt})
	}
	doc, ok, err := s.store.GetEnrichedDoc(ctx, sessionID, threadID)
	if err != nil {
		return nil, s.fail(ctx, "chat", err, "session_id", sessionID, "thread_id", threadID)
	}
	if ok {
		messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: "Reference data:\n" + doc})
	}
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == domain.RoleBot {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: send})

	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    s.config.LLM.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, s.fail(ctx, "chat", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err), "session_id", sessionID, "thread_id", threadID)
	}
	logger.L.Info("chat completed", "session_id", sessionID, "thread_id", threadID,
		"model", resp.Model, "total_tokens", resp.Usage.TotalTokens)

	result := &ChatResult{Reply: resp.Content}
	if !appendReply {
		return result, nil
	}
	msg, err := s.appendExchange(ctx, sessionID, threadID, query, resp)
	if err != nil {
		return nil, s.fail(ctx, "chat", err, "session_id", sessionID, "thread_id", threadID)
	}
	result.Message = msg
	return result, nil
}

// appendExchange appends the query (when set) and the reply under one lock
// so the pair stays adjacent in the thread.
func (s *Service) appendExchange(ctx context.Context, sessionID, threadID, query string, resp *llm.ChatCompletionResponse) (*domain.Message, error) {
	release := s.locks.Acquire(sessionID)
	defer release()

	if query != "" {
		asked, err := s.appendMessage(ctx, sessionID, threadID, domain.RoleUser, query, nil)
		if err != nil {
			return nil, err
		}
		s.publish(domain.ThreadEventMessageCreated, sessionID, threadID, asked, nil)
	}
	msg, err := s.appendMessage(ctx, sessionID, threadID, domain.RoleBot, resp.Content, map[string]any{"model": resp.Model})
	if err != nil {
		return nil, err
	}
	s.publish(domain.ThreadEventMessageCreated, sessionID, threadID, msg, nil)
	return msg, nil
}

// loadPrompt reads the system prompt file. A missing file means no prompt.
func (s *Service) loadPrompt() string {
	path := s.config.LLM.PromptPath
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.L.Warn("failed to read prompt file", "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}
