package domain

// AuthService resolves bearer credentials into the authenticated user. The
// user id it returns is the only identity the gateway trusts.
type AuthService interface {
	ValidateToken(token string) (*SupabaseUser, error)
}
