package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyunwoo-jung/tripline/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Payment Sessions ---

// SavePaymentSession upserts a session by order id. Saving the same order
// twice keeps the latest backend-issued fields, so a retried submit cannot
// leave a stale row behind.
func (s *PostgresStore) SavePaymentSession(ctx context.Context, session *models.PaymentSession) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_sessions (order_id, reservation_id, amount, currency, order_name, gateway_client_key, success_url, fail_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 ON CONFLICT (order_id) DO UPDATE SET
		   reservation_id = EXCLUDED.reservation_id,
		   amount = EXCLUDED.amount,
		   currency = EXCLUDED.currency,
		   order_name = EXCLUDED.order_name,
		   gateway_client_key = EXCLUDED.gateway_client_key,
		   success_url = EXCLUDED.success_url,
		   fail_url = EXCLUDED.fail_url,
		   status = EXCLUDED.status,
		   updated_at = NOW()`,
		session.OrderID, session.ReservationID, session.Amount, session.Currency,
		session.OrderName, session.GatewayClientKey, session.SuccessURL, session.FailURL,
		session.Status)
	if err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPaymentSession(ctx context.Context, orderID string) (*models.PaymentSession, error) {
	var p models.PaymentSession
	err := s.pool.QueryRow(ctx,
		`SELECT order_id, reservation_id, amount, currency, order_name, gateway_client_key, success_url, fail_url, status, created_at, updated_at
		 FROM payment_sessions WHERE order_id = $1`, orderID,
	).Scan(&p.OrderID, &p.ReservationID, &p.Amount, &p.Currency, &p.OrderName,
		&p.GatewayClientKey, &p.SuccessURL, &p.FailURL, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePaymentSessionStatus(ctx context.Context, orderID string, status models.PaymentSessionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE payment_sessions SET status = $1, updated_at = NOW() WHERE order_id = $2`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("update payment session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
