package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ba6-ai-server/internal/domain"
	"ba6-ai-server/internal/metrics"
	apperrors "ba6-ai-server/pkg/errors"
)

const (
	defaultImageSize   = 1024
	defaultImageFormat = "webp"
)

var validate = validator.New()

// GatewayConfig holds the model routing and refund policy of the gateway.
type GatewayConfig struct {
	DefaultTextModel  string
	DefaultImageModel string
	// Legacy ids mapped to the current model. Keys are lowercase.
	TextAliases  map[string]string
	ImageAliases map[string]string
	// RefundOnUpstreamFailure releases the consumed unit when the upstream
	// call fails. Off means failed calls are charged.
	RefundOnUpstreamFailure bool
}

// DefaultGatewayConfig returns the routing used when nothing is configured.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		DefaultTextModel:  "venice-uncensored",
		DefaultImageModel: "z-image-turbo",
	}
}

func (c GatewayConfig) withAliases() GatewayConfig {
	if c.TextAliases == nil {
		c.TextAliases = map[string]string{
			"llama-3-8b":  c.DefaultTextModel,
			"llama-3-70b": c.DefaultTextModel,
		}
	}
	if c.ImageAliases == nil {
		c.ImageAliases = map[string]string{
			"sdxl":                "z-image-turbo",
			"stable-diffusion-xl": "z-image-turbo",
		}
	}
	return c
}

// GenerationGateway runs one generation request: resolve plan, consume
// quota, call the upstream, respond. Quota is consumed before the upstream
// call so the check and the charge are a single conditional update.
type GenerationGateway struct {
	resolver  *PlanResolver
	ledger    *UsageLedger
	catalog   *ModelCatalog
	inference domain.InferenceClient
	config    GatewayConfig
	now       func() time.Time
	logger    domain.Logger
	metrics   metrics.Recorder
}

func NewGenerationGateway(
	resolver *PlanResolver,
	ledger *UsageLedger,
	catalog *ModelCatalog,
	inference domain.InferenceClient,
	config GatewayConfig,
	logger domain.Logger,
	rec metrics.Recorder,
) *GenerationGateway {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &GenerationGateway{
		resolver:  resolver,
		ledger:    ledger,
		catalog:   catalog,
		inference: inference,
		config:    config.withAliases(),
		now:       time.Now,
		logger:    logger,
		metrics:   rec,
	}
}

// ResolveModel maps a requested id to the canonical upstream id. Empty ids
// use the kind's default, aliases are rewritten, anything else passes
// through.
func (g *GenerationGateway) ResolveModel(kind domain.UsageKind, requested string) string {
	requested = strings.TrimSpace(requested)
	defaultModel, aliases, modality := g.config.DefaultTextModel, g.config.TextAliases, domain.ModalityText
	if kind == domain.UsageImage {
		defaultModel, aliases, modality = g.config.DefaultImageModel, g.config.ImageAliases, domain.ModalityImage
	}
	if requested == "" {
		return defaultModel
	}
	if target, ok := aliases[strings.ToLower(requested)]; ok {
		return target
	}
	if g.catalog != nil {
		return g.catalog.CanonicalID(modality, requested)
	}
	return requested
}

// Chat generates a text completion for userID.
func (g *GenerationGateway) Chat(ctx context.Context, userID string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if err := g.checkConfigured(domain.UsageText); err != nil {
		return nil, err
	}
	messages := req.ChatMessages()
	if len(messages) == 0 {
		g.metrics.ObserveGeneration(string(domain.UsageText), "", metrics.OutcomeInvalid)
		return nil, apperrors.NewValidationError("Missing message.")
	}
	if err := validate.Struct(req); err != nil {
		g.metrics.ObserveGeneration(string(domain.UsageText), "", metrics.OutcomeInvalid)
		return nil, apperrors.NewValidationError("Invalid request", err.Error())
	}
	if v, ok := g.inference.(domain.ConversationValidator); ok {
		if err := v.ValidateConversation(messages); err != nil {
			g.metrics.ObserveGeneration(string(domain.UsageText), "", metrics.OutcomeInvalid)
			if _, isAppErr := apperrors.As(err); isAppErr {
				return nil, err
			}
			return nil, apperrors.NewValidationError("Invalid request", err.Error())
		}
	}

	model := g.ResolveModel(domain.UsageText, req.Model)
	monthKey, plan, err := g.consume(ctx, userID, domain.UsageText)
	if err != nil {
		return nil, err
	}

	completion, err := g.inference.Complete(ctx, model, messages)
	if err != nil {
		return nil, g.upstreamFailed(ctx, userID, monthKey, plan, domain.UsageText, err)
	}

	g.metrics.ObserveGeneration(string(domain.UsageText), string(plan), metrics.OutcomeSuccess)
	resp := &domain.ChatResponse{Model: model}
	if completion != nil {
		resp.Content = completion.Content
		resp.Usage = completion.Usage
		if completion.ModelID != "" {
			resp.Model = completion.ModelID
		}
	}
	return resp, nil
}

// Image generates one image for userID.
func (g *GenerationGateway) Image(ctx context.Context, userID string, req domain.ImageRequest) (*domain.ImageResponse, error) {
	if err := g.checkConfigured(domain.UsageImage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		g.metrics.ObserveGeneration(string(domain.UsageImage), "", metrics.OutcomeInvalid)
		return nil, apperrors.NewValidationError("Missing prompt.")
	}
	if err := validate.Struct(req); err != nil {
		g.metrics.ObserveGeneration(string(domain.UsageImage), "", metrics.OutcomeInvalid)
		return nil, apperrors.NewValidationError("Invalid request", err.Error())
	}

	gen := domain.ImageGeneration{
		ModelID: g.ResolveModel(domain.UsageImage, req.Model),
		Prompt:  req.Prompt,
		Width:   req.Width,
		Height:  req.Height,
		Format:  strings.ToLower(req.Format),
	}
	if gen.Width == 0 {
		gen.Width = defaultImageSize
	}
	if gen.Height == 0 {
		gen.Height = defaultImageSize
	}
	if gen.Format == "" {
		gen.Format = defaultImageFormat
	}

	monthKey, plan, err := g.consume(ctx, userID, domain.UsageImage)
	if err != nil {
		return nil, err
	}

	image, err := g.inference.GenerateImage(ctx, gen)
	if err == nil && (image == nil || image.ImageBase64 == "") {
		err = apperrors.NewUpstreamError(http.StatusBadGateway, map[string]string{"error": "No image returned"}, errors.New("no image returned"))
	}
	if err != nil {
		return nil, g.upstreamFailed(ctx, userID, monthKey, plan, domain.UsageImage, err)
	}

	g.metrics.ObserveGeneration(string(domain.UsageImage), string(plan), metrics.OutcomeSuccess)
	model := gen.ModelID
	if image.ModelID != "" {
		model = image.ModelID
	}
	return &domain.ImageResponse{
		ImageURL: fmt.Sprintf("data:%s;base64,%s", ImageMIMEType(gen.Format), image.ImageBase64),
		Model:    model,
	}, nil
}

// Usage reports the user's plan and current-month consumption without
// creating a usage record.
func (g *GenerationGateway) Usage(ctx context.Context, userID string) (*domain.UsageSummary, error) {
	plan, err := g.resolver.ResolveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	monthKey := domain.MonthKey(g.now())
	record, err := g.ledger.Current(ctx, userID, monthKey)
	if err != nil {
		return nil, err
	}

	limits := domain.LimitsFor(plan)
	used := domain.PlanLimits{TextLimit: record.TextCount, ImageLimit: record.ImageCount}
	return &domain.UsageSummary{
		Plan:     plan,
		MonthKey: monthKey,
		Limits:   limits,
		Used:     used,
		Remaining: domain.PlanLimits{
			TextLimit:  remaining(limits.TextLimit, used.TextLimit),
			ImageLimit: remaining(limits.ImageLimit, used.ImageLimit),
		},
	}, nil
}

func (g *GenerationGateway) checkConfigured(kind domain.UsageKind) error {
	if g.inference == nil {
		g.logger.Error("Inference client not configured", domain.ErrMissingCredentials, "kind", kind)
		g.metrics.ObserveGeneration(string(kind), "", metrics.OutcomeConfigError)
		return apperrors.NewConfigError("Missing upstream API key.")
	}
	if s, ok := g.inference.(domain.KindSupporter); ok && !s.Supports(kind) {
		g.logger.Error("Inference provider cannot serve kind", domain.ErrMissingCredentials, "kind", kind)
		g.metrics.ObserveGeneration(string(kind), "", metrics.OutcomeConfigError)
		return apperrors.NewConfigError("Missing upstream API key.")
	}
	if g.resolver == nil || g.ledger == nil {
		g.logger.Error("Usage store not configured", domain.ErrStoreNotConfigured, "kind", kind)
		g.metrics.ObserveGeneration(string(kind), "", metrics.OutcomeConfigError)
		return apperrors.NewConfigError("Usage store not configured.")
	}
	return nil
}

// consume resolves the plan and takes one unit of kind. The month key is
// taken at quota-check time.
func (g *GenerationGateway) consume(ctx context.Context, userID string, kind domain.UsageKind) (string, domain.PlanTier, error) {
	plan, err := g.resolver.ResolveForUser(ctx, userID)
	if err != nil {
		g.metrics.ObserveGeneration(string(kind), "", outcomeFor(err))
		return "", "", err
	}

	monthKey := domain.MonthKey(g.now())
	if _, err := g.ledger.Ensure(ctx, userID, monthKey); err != nil {
		g.metrics.ObserveGeneration(string(kind), string(plan), outcomeFor(err))
		return "", "", err
	}

	result, err := g.ledger.TryConsume(ctx, userID, monthKey, kind, domain.LimitsFor(plan).Limit(kind))
	if err != nil {
		g.metrics.ObserveGeneration(string(kind), string(plan), outcomeFor(err))
		return "", "", err
	}
	if !result.Allowed {
		g.logger.Info("Usage limit reached", "user_id", userID, "plan", plan, "kind", kind, "month_key", monthKey)
		g.metrics.ObserveGeneration(string(kind), string(plan), metrics.OutcomeQuotaExceeded)
		if kind == domain.UsageImage {
			return "", "", apperrors.NewQuotaExceededError("Image usage limit reached.")
		}
		return "", "", apperrors.NewQuotaExceededError("Text usage limit reached.")
	}
	return monthKey, plan, nil
}

func (g *GenerationGateway) upstreamFailed(ctx context.Context, userID, monthKey string, plan domain.PlanTier, kind domain.UsageKind, err error) error {
	g.logger.Error("Upstream generation failed", err, "user_id", userID, "kind", kind)
	g.metrics.ObserveGeneration(string(kind), string(plan), metrics.OutcomeUpstreamError)

	if g.config.RefundOnUpstreamFailure {
		// The request context may already be done; the refund must still land.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, releaseErr := g.ledger.Release(releaseCtx, userID, monthKey, kind); releaseErr != nil {
			g.logger.Error("Failed to release usage after upstream failure", releaseErr, "user_id", userID, "kind", kind)
		} else {
			g.metrics.ObserveRefund(string(kind))
		}
	}

	if apperrors.IsType(err, apperrors.ErrorTypeUpstream) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUpstreamError(http.StatusGatewayTimeout, nil, err)
	}
	return apperrors.NewUpstreamError(http.StatusBadGateway, nil, err)
}

func outcomeFor(err error) string {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeConfig):
		return metrics.OutcomeConfigError
	default:
		return metrics.OutcomeStoreError
	}
}

// ImageMIMEType maps an output format to its MIME type. Unknown formats are
// reported as webp.
func ImageMIMEType(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/webp"
	}
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
