// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`           // Model name (e.g., "llama2")
	Messages []Message `json:"messages"`        // Conversation history
	Stream   bool      `json:"stream"`          // Always false for this client
	Think    string    `json:"think,omitempty"` // Reasoning effort for reasoning models
}

// ShowRequest is the request for /api/show endpoint.
type ShowRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ResponseMessage is the assistant message inside a chat response. Content
// is a pointer so that a missing field can be told apart from an empty one.
type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// ChatResponse is the response from /api/chat endpoint.
type ChatResponse struct {
	Model         string           `json:"model"`
	Message       *ResponseMessage `json:"message"`
	Done          bool             `json:"done"`
	DoneReason    string           `json:"done_reason,omitempty"`
	TotalDuration int64            `json:"total_duration,omitempty"` // nanoseconds
	EvalCount     *int             `json:"eval_count,omitempty"`     // number of tokens generated
	EvalDuration  int64            `json:"eval_duration,omitempty"`  // nanoseconds
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// TagModel is one entry of the /api/tags listing.
type TagModel struct {
	Name    string       `json:"name"`
	Size    int64        `json:"size,omitempty"`
	Digest  string       `json:"digest,omitempty"`
	Details ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// TagsResponse is the response from /api/tags endpoint.
type TagsResponse struct {
	Models []TagModel `json:"models"`
}

// ShowResponse is the response from /api/show endpoint.
type ShowResponse struct {
	License      string       `json:"license"`
	Modelfile    string       `json:"modelfile"`
	Parameters   string       `json:"parameters"`
	Template     string       `json:"template"`
	System       string       `json:"system"`
	Details      ModelDetails `json:"details"`
	Capabilities []string     `json:"capabilities"`
}

// MetadataText returns every free-text metadata field of the response, in
// a fixed order. Empty fields are skipped.
func (r *ShowResponse) MetadataText() []string {
	if r == nil {
		return nil
	}
	fields := []string{
		r.License,
		r.Modelfile,
		r.Parameters,
		r.Template,
		r.System,
		r.Details.Family,
		r.Details.Format,
	}
	fields = append(fields, r.Details.Families...)
	fields = append(fields, r.Capabilities...)

	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
