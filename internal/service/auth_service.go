package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ba6-ai-server/internal/domain"
)

const validatedTokenCacheTTL = 30 * time.Second

type validatedTokenEntry struct {
	user      *domain.SupabaseUser
	expiresAt time.Time
}

// supabaseClaims is the access token payload issued by Supabase Auth.
type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	supabaseClient domain.SupabaseClient
	jwtSecret      []byte
	logger         domain.Logger
	now            func() time.Time

	tokenCacheMu sync.RWMutex
	tokenCache   map[string]validatedTokenEntry
}

// NewAuthService verifies tokens locally when jwtSecret is set and asks
// Supabase Auth otherwise.
func NewAuthService(
	supabaseClient domain.SupabaseClient,
	jwtSecret string,
	logger domain.Logger,
) *authService {
	return &authService{
		supabaseClient: supabaseClient,
		jwtSecret:      []byte(jwtSecret),
		logger:         logger,
		now:            time.Now,
		tokenCache:     make(map[string]validatedTokenEntry),
	}
}

// ValidateToken resolves a bearer token into the authenticated user
func (s *authService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrInvalidToken)
	}

	if len(s.jwtSecret) > 0 {
		return s.verifyLocally(token)
	}
	return s.verifyRemotely(token)
}

func (s *authService) verifyLocally(token string) (*domain.SupabaseUser, error) {
	claims := &supabaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Debug("Rejected access token", "error", err.Error())
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: %w", errors.New("token has no subject"))
	}

	return &domain.SupabaseUser{
		ID:    claims.Subject,
		Email: claims.Email,
	}, nil
}

func (s *authService) verifyRemotely(token string) (*domain.SupabaseUser, error) {
	now := s.now()
	s.tokenCacheMu.RLock()
	entry, ok := s.tokenCache[token]
	s.tokenCacheMu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.user, nil
	}

	if s.supabaseClient == nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrMissingCredentials)
	}
	user, err := s.supabaseClient.ValidateToken(token)
	if err != nil {
		s.logger.Error("Failed to validate token with Supabase", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	s.tokenCacheMu.Lock()
	for key, cached := range s.tokenCache {
		if !now.Before(cached.expiresAt) {
			delete(s.tokenCache, key)
		}
	}
	s.tokenCache[token] = validatedTokenEntry{user: user, expiresAt: now.Add(validatedTokenCacheTTL)}
	s.tokenCacheMu.Unlock()

	return user, nil
}
