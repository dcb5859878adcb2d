package providers

import (
	"encoding/json"
	"strings"
)

// OpenAI-compatible chat completion wire types, shared by the OpenRouter
// client and the DeepInfra OCR client.

type chatCompletionRequest struct {
	Model          string                  `json:"model"`
	Messages       []chatCompletionMessage `json:"messages"`
	Temperature    float64                 `json:"temperature"`
	MaxTokens      int                     `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat     `json:"response_format,omitempty"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []chatContentPart
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatResponseMessage `json:"message"`
		FinishReason string              `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	// Error is returned by OpenRouter when something goes wrong at the model level
	Error *chatError `json:"error,omitempty"`
}

type chatResponseMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or an array of text parts
}

type chatError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"` // Can be string or int
}

// text flattens string or multipart content into one string.
func (m chatResponseMessage) text() string {
	switch c := m.Content.(type) {
	case string:
		return c
	case []any:
		var b strings.Builder
		for _, part := range c {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := p["text"].(string); ok {
				b.WriteString(t)
			}
		}
		return b.String()
	}
	return ""
}

// toChatMessages converts provider-neutral messages to the wire format.
func toChatMessages(msgs []Message) []chatCompletionMessage {
	out := make([]chatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Images) == 0 {
			out = append(out, chatCompletionMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := []chatContentPart{{Type: "text", Text: m.Content}}
		for _, img := range m.Images {
			parts = append(parts, chatContentPart{
				Type:     "image_url",
				ImageURL: &chatImageURL{URL: img.DataURL()},
			})
		}
		out = append(out, chatCompletionMessage{Role: m.Role, Content: parts})
	}
	return out
}
