package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

const DefaultModel = "gemini-2.0-flash-001"

var errNoUserTurn = errors.New("conversation has no user message")

// Client serves chat completions from Vertex AI Gemini models. Image requests
// go to the optional images client.
type Client struct {
	genaiClient *genai.Client
	images      domain.InferenceClient
	logger      domain.Logger
}

var (
	_ domain.InferenceClient       = (*Client)(nil)
	_ domain.KindSupporter         = (*Client)(nil)
	_ domain.ConversationValidator = (*Client)(nil)
)

// NewClient connects with Application Default Credentials.
func NewClient(ctx context.Context, projectID, location string, images domain.InferenceClient, logger domain.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	return &Client{
		genaiClient: client,
		images:      images,
		logger:      logger,
	}, nil
}

func (c *Client) Close() error {
	return c.genaiClient.Close()
}

func (c *Client) Complete(ctx context.Context, modelID string, messages []domain.ChatMessage) (*domain.Completion, error) {
	system, history, last, err := splitConversation(messages)
	if err != nil {
		return nil, apperrors.NewValidationError("Missing message.", err.Error())
	}

	model := c.genaiClient.GenerativeModel(modelID)
	if system != nil {
		model.SystemInstruction = system
	}
	chat := model.StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, upstreamError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, apperrors.NewUpstreamError(http.StatusBadGateway, "Empty response from model", errors.New("no candidates"))
	}

	completion := &domain.Completion{
		Content: candidateText(resp.Candidates[0].Content),
		ModelID: modelID,
	}
	if resp.UsageMetadata != nil {
		completion.Usage = usageJSON(resp.UsageMetadata)
	}
	return completion, nil
}

// Supports reports whether kind can be served. Images need the delegate.
func (c *Client) Supports(kind domain.UsageKind) bool {
	return kind != domain.UsageImage || c.images != nil
}

// ValidateConversation rejects message lists Gemini cannot take, such as
// ones that do not end with a user turn.
func (c *Client) ValidateConversation(messages []domain.ChatMessage) error {
	if _, _, _, err := splitConversation(messages); err != nil {
		return apperrors.NewValidationError("Missing message.", err.Error())
	}
	return nil
}

func (c *Client) GenerateImage(ctx context.Context, req domain.ImageGeneration) (*domain.GeneratedImage, error) {
	if c.images == nil {
		return nil, apperrors.NewUpstreamError(
			http.StatusNotImplemented,
			"Image generation is not available for this provider",
			domain.ErrMissingCredentials,
		)
	}
	return c.images.GenerateImage(ctx, req)
}

// splitConversation maps chat messages onto Gemini turns. System messages
// become the system instruction, the final user message is sent and the rest
// is history.
func splitConversation(messages []domain.ChatMessage) (*genai.Content, []*genai.Content, string, error) {
	var systemParts []genai.Part
	var turns []*genai.Content
	for _, m := range messages {
		switch strings.ToLower(m.Role) {
		case "system":
			systemParts = append(systemParts, genai.Text(m.Content))
		case "assistant", "model":
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}

	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return nil, nil, "", errNoUserTurn
	}
	last := turns[len(turns)-1]
	return system, turns[:len(turns)-1], string(last.Parts[0].(genai.Text)), nil
}

func candidateText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func usageJSON(meta *genai.UsageMetadata) json.RawMessage {
	raw, err := json.Marshal(map[string]int32{
		"prompt_tokens":     meta.PromptTokenCount,
		"completion_tokens": meta.CandidatesTokenCount,
		"total_tokens":      meta.TotalTokenCount,
	})
	if err != nil {
		return nil
	}
	return raw
}

// upstreamError keeps the provider status. gRPC codes are mapped to their
// HTTP equivalents; errors without a status are wrapped as they are.
func upstreamError(err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPCode() > 0 {
		return apperrors.NewUpstreamError(apiErr.HTTPCode(), map[string]string{"error": apiErr.Error()}, err)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		return apperrors.NewUpstreamError(httpStatus(st.Code()), map[string]string{"error": st.Message()}, err)
	}
	return fmt.Errorf("gemini call failed: %w", err)
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}
