package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthorisationParent discriminates what an authorisation is attached to.
// An authorisation belongs to exactly one parent resource, never more.
type AuthorisationParent string

const (
	ParentConsent             AuthorisationParent = "CONSENT"
	ParentPaymentInitiation   AuthorisationParent = "PAYMENT_INITIATION"
	ParentPaymentCancellation AuthorisationParent = "PAYMENT_CANCELLATION"
)

// Authorisation is one SCA attempt. It is created either implicitly by the
// engine or explicitly by the TPP, advanced by the authorisation state
// machine, and immutable once terminal.
type Authorisation struct {
	ID         uuid.UUID
	ParentID   uuid.UUID
	ParentKind AuthorisationParent

	// Psu may start empty and be filled during PSU identification.
	Psu      PsuData
	Approach ScaApproach
	Status   ScaStatus

	AvailableMethods []AuthMethod
	ChosenMethodID   string

	// ConfirmationCode is write-once-check-once: set when the flow enters
	// STARTED, consumed by the confirmation step.
	ConfirmationCode string

	RedirectURI       string
	InternalRequestID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAuthorisation creates an authorisation in RECEIVED for the given parent,
// pinned to the resolved SCA approach so resumption re-selects the same
// strategy.
func NewAuthorisation(parentID uuid.UUID, kind AuthorisationParent, psu PsuData, approach ScaApproach) *Authorisation {
	now := time.Now().UTC()
	return &Authorisation{
		ID:         uuid.New(),
		ParentID:   parentID,
		ParentKind: kind,
		Psu:        psu,
		Approach:   approach,
		Status:     ScaReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ApplyStatus advances the SCA status, rejecting regressions and any change
// to an already terminal authorisation.
func (a *Authorisation) ApplyStatus(status ScaStatus) error {
	if err := a.Status.CanAdvanceTo(status); err != nil {
		return err
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}
