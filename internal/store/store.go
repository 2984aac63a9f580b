package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hyunwoo-jung/tripline/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	SavePaymentSession(ctx context.Context, session *models.PaymentSession) error
	GetPaymentSession(ctx context.Context, orderID string) (*models.PaymentSession, error)
	UpdatePaymentSessionStatus(ctx context.Context, orderID string, status models.PaymentSessionStatus) error
}
