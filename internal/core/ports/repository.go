// Package ports defines the collaborator contracts the engine consumes.
// Implementations live under internal/adapters.
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// PaymentRepository persists payments. The payment orchestrator is the only
// writer of payment status transitions; a failed write is fatal for the
// request.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, payment *domain.Payment) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error
}

// ConsentRepository persists AIS and PIIS consents.
type ConsentRepository interface {
	CreateConsent(ctx context.Context, consent *domain.Consent) error
	GetConsent(ctx context.Context, id uuid.UUID) (*domain.Consent, error)
	UpdateConsent(ctx context.Context, consent *domain.Consent) error
	UpdateConsentStatus(ctx context.Context, id uuid.UUID, status domain.ConsentStatus) error
}

// AuthorisationRepository persists SCA authorisations. The authorisation
// state machine is the only writer of SCA status transitions.
type AuthorisationRepository interface {
	CreateAuthorisation(ctx context.Context, auth *domain.Authorisation) error
	GetAuthorisation(ctx context.Context, id uuid.UUID) (*domain.Authorisation, error)
	GetAuthorisationsByParent(ctx context.Context, parentID uuid.UUID, kind domain.AuthorisationParent) ([]*domain.Authorisation, error)
	UpdateAuthorisation(ctx context.Context, auth *domain.Authorisation) error
}
