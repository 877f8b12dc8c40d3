package domain

import "github.com/supabase-community/supabase-go"

type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)

	// DB returns the anon-key client, nil before Initialize succeeds.
	DB() *supabase.Client
	// AdminDB returns the service-role client used for server-side reads
	// and webhook writes that bypass RLS.
	AdminDB() (*supabase.Client, error)
}
