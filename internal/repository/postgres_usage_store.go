package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ba6-ai-server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// querier is the subset of *pgxpool.Pool the usage store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUsageStore implements domain.UsageStore against the usage_monthly
// table. Expected schema:
//
//	CREATE TABLE usage_monthly (
//		user_id     uuid        NOT NULL,
//		month_key   text        NOT NULL,
//		text_count  integer     NOT NULL DEFAULT 0,
//		image_count integer     NOT NULL DEFAULT 0,
//		created_at  timestamptz NOT NULL DEFAULT now(),
//		updated_at  timestamptz NOT NULL DEFAULT now(),
//		UNIQUE (user_id, month_key)
//	);
type PostgresUsageStore struct {
	db     querier
	logger domain.Logger
}

func NewPostgresUsageStore(db querier, logger domain.Logger) *PostgresUsageStore {
	return &PostgresUsageStore{
		db:     db,
		logger: logger,
	}
}

// NewPostgresPool opens and pings a connection pool
func NewPostgresPool(ctx context.Context, connString string, logger domain.Logger) (*pgxpool.Pool, error) {
	logger.Info("Connecting to PostgreSQL")

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL")
	return pool, nil
}

const usageColumns = "user_id, month_key, text_count, image_count, created_at, updated_at"

func (s *PostgresUsageStore) Get(ctx context.Context, userID, monthKey string) (*domain.UsageRecord, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM usage_monthly
		WHERE user_id = $1 AND month_key = $2
	`
	record, err := scanUsage(s.db.QueryRow(ctx, query, userID, monthKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return record, nil
}

func (s *PostgresUsageStore) Insert(ctx context.Context, record *domain.UsageRecord) error {
	query := `
		INSERT INTO usage_monthly (user_id, month_key, text_count, image_count)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.Exec(ctx, query, record.UserID, record.MonthKey, record.TextCount, record.ImageCount)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateUsage
		}
		return fmt.Errorf("failed to insert usage: %w", err)
	}
	return nil
}

func (s *PostgresUsageStore) IncrementIfBelow(ctx context.Context, userID, monthKey string, kind domain.UsageKind, limit int) (*domain.UsageRecord, bool, error) {
	column, err := usageColumn(kind)
	if err != nil {
		return nil, false, err
	}
	query := fmt.Sprintf(`
		UPDATE usage_monthly
		SET %[1]s = %[1]s + 1, updated_at = now()
		WHERE user_id = $1 AND month_key = $2 AND %[1]s < $3
		RETURNING %[2]s
	`, column, usageColumns)
	return s.conditionalUpdate(ctx, query, userID, monthKey, limit)
}

func (s *PostgresUsageStore) DecrementIfPositive(ctx context.Context, userID, monthKey string, kind domain.UsageKind) (*domain.UsageRecord, bool, error) {
	column, err := usageColumn(kind)
	if err != nil {
		return nil, false, err
	}
	query := fmt.Sprintf(`
		UPDATE usage_monthly
		SET %[1]s = %[1]s - 1, updated_at = now()
		WHERE user_id = $1 AND month_key = $2 AND %[1]s > 0
		RETURNING %[2]s
	`, column, usageColumns)
	return s.conditionalUpdate(ctx, query, userID, monthKey)
}

func (s *PostgresUsageStore) conditionalUpdate(ctx context.Context, query string, args ...any) (*domain.UsageRecord, bool, error) {
	record, err := scanUsage(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to update usage: %w", err)
	}
	return record, true, nil
}

// usageColumn whitelists the counter column interpolated into SQL.
func usageColumn(kind domain.UsageKind) (string, error) {
	switch kind {
	case domain.UsageText:
		return "text_count", nil
	case domain.UsageImage:
		return "image_count", nil
	default:
		return "", fmt.Errorf("unknown usage kind %q", kind)
	}
}

func scanUsage(row pgx.Row) (*domain.UsageRecord, error) {
	var r domain.UsageRecord
	if err := row.Scan(&r.UserID, &r.MonthKey, &r.TextCount, &r.ImageCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
