package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ba6-ai-server/internal/domain"

	"github.com/supabase-community/supabase-go"
)

const (
	profilesTable      = "profiles"
	subscriptionsTable = "subscription_status_all"
)

// SupabaseProfileRepository implements the domain.ProfileRepository interface
// with the service-role client.
type SupabaseProfileRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseProfileRepository creates a new Supabase profile repository
func NewSupabaseProfileRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) domain.ProfileRepository {
	return &SupabaseProfileRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func (r *SupabaseProfileRepository) admin(ctx context.Context) (*supabase.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := r.supabaseClient.AdminDB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreNotConfigured, err)
	}
	return client, nil
}

// GetProfile retrieves the plan columns of a profile
func (r *SupabaseProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	client, err := r.admin(ctx)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(profilesTable).
		Select("id, plan, stripe_customer_id, stripe_subscription_id", "", false).
		Eq("id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &domain.Profile{
		ID:                   stringField(row, "id"),
		Plan:                 stringField(row, "plan"),
		StripeCustomerID:     stringField(row, "stripe_customer_id"),
		StripeSubscriptionID: stringField(row, "stripe_subscription_id"),
	}, nil
}

// GetSubscription retrieves the latest billing status row for a user
func (r *SupabaseProfileRepository) GetSubscription(ctx context.Context, userID string) (*domain.SubscriptionRecord, error) {
	client, err := r.admin(ctx)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(subscriptionsTable).
		Select("user_id, price_id, subscription_status", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription status: %w", err)
	}

	var rows []domain.SubscriptionRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		r.logger.Warn("Multiple subscription rows for user, using first", "user_id", userID, "count", len(rows))
	}
	return &rows[0], nil
}

// UpdatePlanByUserID writes the plan columns of one profile
func (r *SupabaseProfileRepository) UpdatePlanByUserID(ctx context.Context, userID string, update domain.ProfilePlanUpdate) error {
	client, err := r.admin(ctx)
	if err != nil {
		return err
	}

	_, _, err = client.From(profilesTable).
		Update(planUpdateData(update), "", "").
		Eq("id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update profile plan: %w", err)
	}

	r.logger.Info("Profile plan updated", "user_id", userID, "plan", update.Plan)
	return nil
}

// UpdatePlanByCustomer writes the plan columns of every profile linked to a
// billing customer
func (r *SupabaseProfileRepository) UpdatePlanByCustomer(ctx context.Context, customerID string, update domain.ProfilePlanUpdate) (int, error) {
	client, err := r.admin(ctx)
	if err != nil {
		return 0, err
	}

	data, _, err := client.From(profilesTable).
		Update(planUpdateData(update), "representation", "").
		Eq("stripe_customer_id", customerID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to update profile plan: %w", err)
	}

	var rows []map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	r.logger.Info("Profile plan updated by customer", "customer_id", customerID, "plan", update.Plan, "rows", len(rows))
	return len(rows), nil
}

func planUpdateData(update domain.ProfilePlanUpdate) map[string]interface{} {
	data := map[string]interface{}{
		"plan":       string(update.Plan),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if update.StripeCustomerID != "" {
		data["stripe_customer_id"] = update.StripeCustomerID
	}
	if update.StripeSubscriptionID != "" {
		data["stripe_subscription_id"] = update.StripeSubscriptionID
	}
	return data
}

func stringField(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
