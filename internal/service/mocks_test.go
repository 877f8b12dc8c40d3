package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/supabase-community/supabase-go"

	"ba6-ai-server/internal/domain"
)

// MockLogger records messages for assertions
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.record("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		msg += " - " + err.Error()
	}
	m.record("ERROR: " + msg)
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.record("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.record("WARN: " + msg)
}

func (m *MockLogger) record(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, line)
}

func (m *MockLogger) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.messages {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// mockProfileRepository is an in-memory domain.ProfileRepository
type mockProfileRepository struct {
	mu            sync.Mutex
	profiles      map[string]*domain.Profile
	subscriptions map[string]*domain.SubscriptionRecord
	err           error

	byUser     map[string]domain.ProfilePlanUpdate
	byCustomer map[string]domain.ProfilePlanUpdate
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{
		profiles:      make(map[string]*domain.Profile),
		subscriptions: make(map[string]*domain.SubscriptionRecord),
		byUser:        make(map[string]domain.ProfilePlanUpdate),
		byCustomer:    make(map[string]domain.ProfilePlanUpdate),
	}
}

func (m *mockProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles[userID], nil
}

func (m *mockProfileRepository) GetSubscription(ctx context.Context, userID string) (*domain.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.subscriptions[userID], nil
}

func (m *mockProfileRepository) UpdatePlanByUserID(ctx context.Context, userID string, update domain.ProfilePlanUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.byUser[userID] = update
	return nil
}

func (m *mockProfileRepository) UpdatePlanByCustomer(ctx context.Context, customerID string, update domain.ProfilePlanUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.byCustomer[customerID] = update
	updated := 0
	for _, p := range m.profiles {
		if p.StripeCustomerID == customerID {
			updated++
		}
	}
	return updated, nil
}

// mockInferenceClient is a scripted domain.InferenceClient
type mockInferenceClient struct {
	completion *domain.Completion
	image      *domain.GeneratedImage
	err        error

	calls     int32
	lastModel string
	lastImage domain.ImageGeneration
	mu        sync.Mutex
}

func (m *mockInferenceClient) Complete(ctx context.Context, modelID string, messages []domain.ChatMessage) (*domain.Completion, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	m.lastModel = modelID
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

func (m *mockInferenceClient) GenerateImage(ctx context.Context, req domain.ImageGeneration) (*domain.GeneratedImage, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	m.lastModel = req.ModelID
	m.lastImage = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.image, nil
}

func (m *mockInferenceClient) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

// mockCatalogClient is a scripted domain.CatalogClient
type mockCatalogClient struct {
	models []domain.ModelDescriptor
	err    error
	calls  int32
}

func (m *mockCatalogClient) ListModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return nil, m.err
	}
	return m.models, nil
}

func (m *mockCatalogClient) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

// mockSnapshotCache is an in-memory domain.CatalogSnapshotCache. With ttl and
// now set it expires entries the way Redis does.
type mockSnapshotCache struct {
	mu       sync.Mutex
	snapshot *domain.CatalogSnapshot
	storedAt time.Time
	ttl      time.Duration
	now      func() time.Time
	stores   int
}

func (m *mockSnapshotCache) LoadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, nil
	}
	if m.ttl > 0 && m.now != nil && m.now().Sub(m.storedAt) >= m.ttl {
		return nil, nil
	}
	copied := *m.snapshot
	return &copied, nil
}

func (m *mockSnapshotCache) StoreCatalog(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = &snapshot
	if m.now != nil {
		m.storedAt = m.now()
	}
	m.stores++
	return nil
}

// MockSupabaseClient for testing
type MockSupabaseClient struct {
	calls int32
}

func NewMockSupabaseClient() *MockSupabaseClient {
	return &MockSupabaseClient{}
}

func (m *MockSupabaseClient) Initialize() error {
	return nil
}

func (m *MockSupabaseClient) ValidateToken(token string) (*domain.SupabaseUser, error) {
	atomic.AddInt32(&m.calls, 1)
	if token == "valid-token" {
		return &domain.SupabaseUser{
			ID:    "user-123",
			Email: "test@example.com",
		}, nil
	}
	if token == "invalid-token" {
		return nil, errors.New("invalid token")
	}
	return nil, errors.New("token validation failed")
}

func (m *MockSupabaseClient) DB() *supabase.Client {
	return nil
}

func (m *MockSupabaseClient) AdminDB() (*supabase.Client, error) {
	return nil, errors.New("not configured")
}
