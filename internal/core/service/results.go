package service

import (
	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// AuthorisationInput is the caller-supplied data for one state machine step.
// Exactly the fields appropriate to the current SCA stage may be set; the
// validation pipeline rejects everything else.
type AuthorisationInput struct {
	Psu                   *domain.PsuData
	Password              string
	MethodID              string
	ScaAuthenticationData string
	ConfirmationCode      string
}

// AuthorisationStepResult reports the outcome of starting or advancing an
// authorisation. Built once after all backend calls completed.
type AuthorisationStepResult struct {
	AuthorisationID  string
	ScaStatus        domain.ScaStatus
	Approach         domain.ScaApproach
	AvailableMethods []domain.AuthMethod
	ChosenMethodID   string
	Challenge        *domain.Challenge
	PsuMessage       string
	RedirectURI      string
	Warnings         []Warning
}

// PaymentInitiationResult is the caller-facing outcome of a payment
// initiation. AuthorisationID and ScaStatus are set when the authorisation
// was started implicitly.
type PaymentInitiationResult struct {
	PaymentID         string // opaque external id
	TransactionStatus domain.TransactionStatus
	AuthorisationID   string
	ScaStatus         domain.ScaStatus
	PsuMessage        string
	Warnings          []Warning
}

// CancelResult is the caller-facing outcome of a cancellation request.
type CancelResult struct {
	TransactionStatus domain.TransactionStatus
	// AuthorisationID is set when cancellation requires SCA and an
	// authorisation was started implicitly.
	AuthorisationID   string
	ScaStatus         domain.ScaStatus
	RedirectURI       string
	InternalRequestID string
	Warnings          []Warning
}

// ConsentCreationResult is the caller-facing outcome of a consent creation.
type ConsentCreationResult struct {
	ConsentID       string // opaque external id
	ConsentStatus   domain.ConsentStatus
	AuthorisationID string
	ScaStatus       domain.ScaStatus
	MultilevelSca   bool
	Warnings        []Warning
}
