package handler

import (
	"context"
	"net/http"
	"sync"

	"ba6-ai-server/internal/domain"
)

// mockHandlerLogger keeps logged messages so tests can assert on them.
type mockHandlerLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockHandlerLogger() *mockHandlerLogger {
	return &mockHandlerLogger{}
}

func (l *mockHandlerLogger) Info(msg string, fields ...interface{})  { l.record(msg) }
func (l *mockHandlerLogger) Debug(msg string, fields ...interface{}) { l.record(msg) }
func (l *mockHandlerLogger) Warn(msg string, fields ...interface{})  { l.record(msg) }
func (l *mockHandlerLogger) Error(msg string, err error, fields ...interface{}) {
	l.record(msg)
}

func (l *mockHandlerLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockHandlerLogger) logged(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func createContextWithUser(r *http.Request, user *domain.SupabaseUser) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

type mockGenerationService struct {
	chatResp  *domain.ChatResponse
	imageResp *domain.ImageResponse
	usage     *domain.UsageSummary
	err       error

	lastUserID string
	lastChat   domain.ChatRequest
	lastImage  domain.ImageRequest
	calls      int
}

func (m *mockGenerationService) Chat(ctx context.Context, userID string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.calls++
	m.lastUserID = userID
	m.lastChat = req
	return m.chatResp, m.err
}

func (m *mockGenerationService) Image(ctx context.Context, userID string, req domain.ImageRequest) (*domain.ImageResponse, error) {
	m.calls++
	m.lastUserID = userID
	m.lastImage = req
	return m.imageResp, m.err
}

func (m *mockGenerationService) Usage(ctx context.Context, userID string) (*domain.UsageSummary, error) {
	m.calls++
	m.lastUserID = userID
	return m.usage, m.err
}

type mockModelLister struct {
	models       []domain.ModelDescriptor
	err          error
	lastModality domain.Modality
}

func (m *mockModelLister) ListModels(ctx context.Context, modality domain.Modality) ([]domain.ModelDescriptor, error) {
	m.lastModality = modality
	return m.models, m.err
}

type mockPlans struct {
	plan   domain.PlanTier
	err    error
	prices map[domain.PlanTier]string
}

func (m *mockPlans) ResolveForUser(ctx context.Context, userID string) (domain.PlanTier, error) {
	return m.plan, m.err
}

func (m *mockPlans) PriceIDFor(tier domain.PlanTier) string {
	return m.prices[tier]
}

type mockBilling struct {
	checkout *domain.CheckoutCompleted
	change   *domain.SubscriptionChanged
	err      error
}

func (m *mockBilling) ApplyCheckout(ctx context.Context, event domain.CheckoutCompleted) (domain.PlanTier, error) {
	m.checkout = &event
	return domain.PlanPro, m.err
}

func (m *mockBilling) ApplySubscriptionChange(ctx context.Context, event domain.SubscriptionChanged) (domain.PlanTier, error) {
	m.change = &event
	return domain.PlanFree, m.err
}

type mockPlanWriter struct {
	userID string
	update domain.ProfilePlanUpdate
	err    error
}

func (m *mockPlanWriter) UpdatePlanByUserID(ctx context.Context, userID string, update domain.ProfilePlanUpdate) error {
	m.userID = userID
	m.update = update
	return m.err
}
