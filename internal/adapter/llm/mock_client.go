package llm

import (
	"context"
	"fmt"

	"github.com/rivo/uniseg"
)

// MockClient is an offline LLMClient that echoes the last user message.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := m.generateMockResponse(req)
	prompt := m.estimateTokens(req)
	completion := len(content) / 4

	return &ChatCompletionResponse{
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate keeps the first maxLen grapheme clusters of s.
func truncate(s string, maxLen int) string {
	if uniseg.GraphemeClusterCount(s) <= maxLen {
		return s
	}
	out := make([]byte, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for i := 0; i < maxLen && g.Next(); i++ {
		out = append(out, g.Bytes()...)
	}
	return string(out) + "..."
}
