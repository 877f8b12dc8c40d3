package supabase

import (
	"fmt"
	"sync"

	"ba6-ai-server/internal/domain"

	"github.com/supabase-community/supabase-go"
)

// SupabaseClient implements the domain.SupabaseClient interface
type SupabaseClient struct {
	client *supabase.Client
	config domain.Config
	logger domain.Logger

	adminOnce sync.Once
	admin     *supabase.Client
	adminErr  error
}

// NewSupabaseClient creates a new Supabase client instance
func NewSupabaseClient(config domain.Config, logger domain.Logger) domain.SupabaseClient {
	return &SupabaseClient{
		config: config,
		logger: logger,
	}
}

func (s *SupabaseClient) DB() *supabase.Client {
	return s.client
}

// AdminDB lazily builds the service-role client.
func (s *SupabaseClient) AdminDB() (*supabase.Client, error) {
	s.adminOnce.Do(func() {
		url := s.config.GetSupabaseURL()
		key := s.config.GetSupabaseServiceKey()
		if url == "" || key == "" {
			s.adminErr = fmt.Errorf("supabase URL and service role key must be provided")
			return
		}
		s.admin, s.adminErr = supabase.NewClient(url, key, &supabase.ClientOptions{})
		if s.adminErr != nil {
			s.adminErr = fmt.Errorf("failed to create Supabase admin client: %w", s.adminErr)
		}
	})
	return s.admin, s.adminErr
}

// Initialize establishes a connection to Supabase
func (s *SupabaseClient) Initialize() error {
	supabaseURL := s.config.GetSupabaseURL()
	supabaseKey := s.config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}

	s.client = client
	s.logger.Info("Supabase client initialized successfully", "url", supabaseURL)
	return nil
}

// ValidateToken resolves an access token into the Supabase Auth user.
func (s *SupabaseClient) ValidateToken(token string) (*domain.SupabaseUser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	// Headers set on the base client do not reach GoTrue, so the token goes
	// through WithToken.
	user, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		s.logger.Error("Failed to validate token with Supabase", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	return &domain.SupabaseUser{
		ID:           user.ID.String(),
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		CreatedAt:    user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}
