package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ba6-ai-server/internal/domain"
)

func newTestRouter(gateway *mockGenerationService) http.Handler {
	logger := NewMockHandlerLogger()
	plans := &mockPlans{plan: domain.PlanFree, prices: map[domain.PlanTier]string{domain.PlanPro: "price_pro", domain.PlanTeam: "price_team"}}
	auth := &mockAuthService{user: &domain.SupabaseUser{ID: "user-1"}}

	return NewRouter(RouterConfig{
		AI:             NewAIHandler(gateway, logger),
		Models:         NewModelHandler(&mockModelLister{}, logger),
		Config:         NewConfigHandler("https://example.supabase.co", "anon", plans),
		Auth:           NewAuthHandler(plans, logger),
		AuthMiddleware: NewAuthMiddleware(auth, logger).Middleware,
		Logger:         logger,
	})
}

func TestNewRouter_Health(t *testing.T) {
	router := newTestRouter(&mockGenerationService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) || !strings.Contains(rr.Body.String(), `"service":"ba6-ai-server"`) {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestNewRouter_GenerationRequiresPOST(t *testing.T) {
	gateway := &mockGenerationService{}
	router := newTestRouter(gateway)

	for _, path := range []string{"/api/v1/chat", "/api/v1/images"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusMethodNotAllowed, rr.Code)
		}
	}
	if gateway.calls != 0 {
		t.Fatalf("expected gateway not to be called")
	}
}

func TestNewRouter_GenerationRequiresAuth(t *testing.T) {
	gateway := &mockGenerationService{}
	router := newTestRouter(gateway)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`)))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	if gateway.calls != 0 {
		t.Fatalf("expected gateway not to be called")
	}
}

func TestNewRouter_AuthenticatedChat(t *testing.T) {
	gateway := &mockGenerationService{chatResp: &domain.ChatResponse{Content: "ok"}}
	router := newTestRouter(gateway)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if gateway.lastUserID != "user-1" {
		t.Fatalf("expected authenticated user id, got %q", gateway.lastUserID)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestNewRouter_PublicConfig(t *testing.T) {
	router := newTestRouter(&mockGenerationService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public-config", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`"SUPABASE_URL":"https://example.supabase.co"`, `"STRIPE_PRO_PRICE_ID":"price_pro"`, `"STRIPE_TEAM_PRICE_ID":"price_team"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestNewRouter_ModelsArePublic(t *testing.T) {
	router := newTestRouter(&mockGenerationService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/models?type=text", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
