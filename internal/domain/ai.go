package domain

import (
	"context"
	"encoding/json"
)

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the upstream result of a text generation.
type Completion struct {
	Content string          `json:"content"`
	ModelID string          `json:"model"`
	Usage   json.RawMessage `json:"usage"`
}

// ImageGeneration is the upstream request for a single image.
type ImageGeneration struct {
	ModelID string
	Prompt  string
	Width   int
	Height  int
	Format  string
}

// GeneratedImage is the upstream result of an image generation.
type GeneratedImage struct {
	ImageBase64 string
	ModelID     string
}

// InferenceClient is the upstream inference collaborator. Non-success
// responses surface as *errors.AppError of type upstream carrying the
// provider's status code and body.
type InferenceClient interface {
	Complete(ctx context.Context, modelID string, messages []ChatMessage) (*Completion, error)
	GenerateImage(ctx context.Context, req ImageGeneration) (*GeneratedImage, error)
}

// KindSupporter is implemented by providers that cannot serve every usage
// kind. The gateway asks before charging quota.
type KindSupporter interface {
	Supports(kind UsageKind) bool
}

// ConversationValidator is implemented by providers that accept only some
// message sequences. The gateway validates before charging quota.
type ConversationValidator interface {
	ValidateConversation(messages []ChatMessage) error
}

// ChatRequest is the body accepted by the chat entry point. Either Messages
// or Message must be present.
type ChatRequest struct {
	Message  string        `json:"message,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty" validate:"omitempty,dive"`
	Model    string        `json:"model,omitempty"`
}

// ChatMessages returns the message list, wrapping a lone Message as a user
// turn.
func (r ChatRequest) ChatMessages() []ChatMessage {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	if r.Message != "" {
		return []ChatMessage{{Role: "user", Content: r.Message}}
	}
	return nil
}

// ChatResponse is returned by the chat entry point.
type ChatResponse struct {
	Content string          `json:"content"`
	Model   string          `json:"model"`
	Usage   json.RawMessage `json:"usage"`
}

// ImageRequest is the body accepted by the image entry point.
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Width  int    `json:"width,omitempty" validate:"omitempty,min=64,max=4096"`
	Height int    `json:"height,omitempty" validate:"omitempty,min=64,max=4096"`
	Format string `json:"format,omitempty" validate:"omitempty,oneof=webp png jpg jpeg WEBP PNG JPG JPEG"`
}

// ImageResponse is returned by the image entry point.
type ImageResponse struct {
	ImageURL string `json:"image_url"`
	Model    string `json:"model"`
}
