package spi

import (
	"context"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// PaymentInitiationPayload is the backend's answer to a payment initiation.
type PaymentInitiationPayload struct {
	BackendPaymentID  string
	TransactionStatus domain.TransactionStatus
	// MultilevelScaRequired reports whether the backend demands more than one
	// PSU authorisation before execution.
	MultilevelScaRequired bool
	PsuMessage            string
}

// ExecutionPayload is the backend's answer to an execute/cancel verification.
type ExecutionPayload struct {
	TransactionStatus domain.TransactionStatus
	// ConfirmationCode is set when the deployment requires an explicit
	// confirmation step after SCA verification.
	ConfirmationCode string
}

// CancellationPayload is the backend's answer to a cancellation initiation.
type CancellationPayload struct {
	TransactionStatus domain.TransactionStatus
	// ScaRequired reports whether the backend insists on SCA for this
	// cancellation regardless of profile configuration.
	ScaRequired bool
}

// PsuAuthorisationStatus reports the outcome of a PSU credential check.
type PsuAuthorisationStatus string

const (
	PsuAuthorisationSuccess        PsuAuthorisationStatus = "SUCCESS"
	PsuAuthorisationFailure        PsuAuthorisationStatus = "FAILURE"
	PsuAuthorisationAttemptFailure PsuAuthorisationStatus = "ATTEMPT_FAILURE"
)

// PsuAuthorisationPayload is the backend's answer to AuthorisePsu.
type PsuAuthorisationPayload struct {
	Status PsuAuthorisationStatus
	// ScaExempted short-circuits the flow to EXEMPTED (e.g. low-value
	// payment exemption decided by the backend).
	ScaExempted bool
}

// ConfirmationCodeResult is the backend's verdict on a confirmation code when
// the deployment delegates the check.
type ConfirmationCodeResult struct {
	ScaStatus         domain.ScaStatus
	TransactionStatus domain.TransactionStatus
}

// ConsentInitiationPayload is the backend's answer to a consent initiation.
type ConsentInitiationPayload struct {
	BackendConsentID      string
	ConsentStatus         domain.ConsentStatus
	MultilevelScaRequired bool
}

// ConsentDecision is the final outcome reported once per consent.
type ConsentDecision string

const (
	ConsentDecisionConfirmed ConsentDecision = "CONFIRMED"
	ConsentDecisionRejected  ConsentDecision = "REJECTED"
)

// Void is the payload of backend calls that return no data.
type Void struct{}

// PaymentBackend is the payment half of the backend SPI.
type PaymentBackend interface {
	InitiatePayment(ctx context.Context, cd ContextData, payment *domain.Payment, cont ContinuationData) Response[PaymentInitiationPayload]
	GetPaymentByID(ctx context.Context, cd ContextData, payment *domain.Payment, cont ContinuationData) Response[*domain.Payment]
	GetPaymentStatusByID(ctx context.Context, cd ContextData, payment *domain.Payment, cont ContinuationData) Response[domain.TransactionStatus]
	ExecutePaymentWithoutSca(ctx context.Context, cd ContextData, payment *domain.Payment, cont ContinuationData) Response[domain.TransactionStatus]
	VerifyScaAndExecutePayment(ctx context.Context, cd ContextData, payment *domain.Payment, proof ScaConfirmation, cont ContinuationData) Response[ExecutionPayload]
	InitiatePaymentCancellation(ctx context.Context, cd ContextData, payment *domain.Payment, cont ContinuationData) Response[CancellationPayload]
	CancelPaymentWithoutSca(ctx context.Context, cd ContextData, payment *domain.Payment, cont ContinuationData) Response[Void]
	VerifyScaAndCancelPayment(ctx context.Context, cd ContextData, payment *domain.Payment, proof ScaConfirmation, cont ContinuationData) Response[ExecutionPayload]
}

// ConsentBackend is the consent half of the backend SPI, shared by AIS and
// PIIS consents.
type ConsentBackend interface {
	InitiateConsent(ctx context.Context, cd ContextData, consent *domain.Consent, cont ContinuationData) Response[ConsentInitiationPayload]
	GetConsentStatusByID(ctx context.Context, cd ContextData, consent *domain.Consent, cont ContinuationData) Response[domain.ConsentStatus]
	VerifyScaAndActivateConsent(ctx context.Context, cd ContextData, consent *domain.Consent, proof ScaConfirmation, cont ContinuationData) Response[ExecutionPayload]
	RevokeConsent(ctx context.Context, cd ContextData, consent *domain.Consent, cont ContinuationData) Response[Void]
	NotifyConsentDecision(ctx context.Context, cd ContextData, consent *domain.Consent, decision ConsentDecision, cont ContinuationData) Response[Void]
}

// AuthorisationBackend drives the PSU-facing SCA steps.
type AuthorisationBackend interface {
	AuthorisePsu(ctx context.Context, cd ContextData, psu domain.PsuData, password string, cont ContinuationData) Response[PsuAuthorisationPayload]
	RequestAvailableScaMethods(ctx context.Context, cd ContextData, cont ContinuationData) Response[[]domain.AuthMethod]
	RequestAuthorisationCode(ctx context.Context, cd ContextData, methodID string, cont ContinuationData) Response[domain.Challenge]
	StartScaDecoupled(ctx context.Context, cd ContextData, authorisationID string, methodID string, cont ContinuationData) Response[string]
	CheckConfirmationCode(ctx context.Context, cd ContextData, authorisationID string, code string, cont ContinuationData) Response[ConfirmationCodeResult]
}

// ScaConfirmation is the proof handed to a verify-and-execute call.
type ScaConfirmation struct {
	AuthorisationID       string
	MethodID              string
	ScaAuthenticationData string
}
