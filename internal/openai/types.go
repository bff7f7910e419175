// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// ChatRequest represents a request to the chat completions endpoint.
// ReasoningEffort is only honored by OpenAI-style servers; GPT4ALL requests
// leave it empty.
type ChatRequest struct {
	Model           string        `json:"model"`
	Messages        []ChatMessage `json:"messages"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

// ResponseMessage is the message inside a completion choice. Content is a
// pointer so that a missing field can be told apart from an empty one.
type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage reports token accounting. Fields are pointers because some local
// servers omit them.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// GetContent returns the content of the first choice and whether it was
// present and non-empty.
func (r *ChatResponse) GetContent() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	c := r.Choices[0].Message.Content
	if c == nil || *c == "" {
		return "", false
	}
	return *c, true
}

// TotalTokens returns usage.total_tokens when reported.
func (r *ChatResponse) TotalTokens() (int, bool) {
	if r == nil || r.Usage == nil || r.Usage.TotalTokens == nil {
		return 0, false
	}
	return *r.Usage.TotalTokens, true
}

// modelsResponse is the response structure for listing models.
type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by,omitempty"`
	} `json:"data"`
}
