package service

import (
	"fmt"
	"net/http"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// Operation names the engine operation being validated.
type Operation string

const (
	OpPaymentInitiation   Operation = "PAYMENT_INITIATION"
	OpPaymentRead         Operation = "PAYMENT_READ"
	OpPaymentCancellation Operation = "PAYMENT_CANCELLATION"
	OpConsentCreation     Operation = "CONSENT_CREATION"
	OpConsentRead         Operation = "CONSENT_READ"
	OpConsentRevocation   Operation = "CONSENT_REVOCATION"
	OpConsentRevision     Operation = "CONSENT_REVISION"
	OpAuthorisationUpdate Operation = "AUTHORISATION_UPDATE"
)

// OperationContext bundles everything the validation checks may inspect.
// Fields irrelevant to the operation stay nil.
type OperationContext struct {
	Operation Operation
	Service   domain.ServiceType

	Tpp domain.TppInfo
	Psu domain.PsuData

	Payment       *domain.Payment
	Consent       *domain.Consent
	Authorisation *domain.Authorisation
	Input         *AuthorisationInput
}

// Warning is a non-fatal validation finding surfaced to the caller without
// blocking execution.
type Warning struct {
	Check   string
	Message string
}

// ValidationResult is the outcome of a pipeline run: either valid (possibly
// with warnings) or invalid with exactly one ErrorHolder.
type ValidationResult struct {
	Error    *domain.ErrorHolder
	Warnings []Warning
}

// Valid reports whether the operation may proceed.
func (r ValidationResult) Valid() bool { return r.Error == nil }

// check is one independently testable precondition.
type check interface {
	Name() string
	Validate(opCtx *OperationContext) (*domain.ErrorHolder, []Warning)
}

// Pipeline runs its checks in fixed order, short-circuiting on the first
// failure and collecting warnings from the checks that ran.
type Pipeline struct {
	checks []check
}

// Run executes the pipeline against an operation context.
func (p *Pipeline) Run(opCtx *OperationContext) ValidationResult {
	var warnings []Warning
	for _, c := range p.checks {
		errHolder, ws := c.Validate(opCtx)
		warnings = append(warnings, ws...)
		if errHolder != nil {
			return ValidationResult{Error: errHolder, Warnings: warnings}
		}
	}
	return ValidationResult{Warnings: warnings}
}

// newValidationPipeline assembles the standard check order: TPP identity,
// PSU identity, resource status, request shape.
func newValidationPipeline() *Pipeline {
	return &Pipeline{checks: []check{
		tppIdentityCheck{},
		psuIdentityCheck{},
		resourceStatusCheck{},
		requestShapeCheck{},
	}}
}

// tppIdentityCheck rejects requests from a TPP other than the resource owner.
type tppIdentityCheck struct{}

func (tppIdentityCheck) Name() string { return "tpp-identity" }

func (tppIdentityCheck) Validate(opCtx *OperationContext) (*domain.ErrorHolder, []Warning) {
	var owner *domain.TppInfo
	switch {
	case opCtx.Payment != nil:
		owner = &opCtx.Payment.Tpp
	case opCtx.Consent != nil:
		owner = &opCtx.Consent.Tpp
	}
	if owner == nil {
		return nil, nil
	}
	if !owner.Matches(opCtx.Tpp) {
		return domain.NewErrorHolder(opCtx.Service, http.StatusForbidden,
			domain.CodeResourceUnknown403, "resource belongs to a different TPP"), nil
	}
	return nil, nil
}

// psuIdentityCheck enforces PSU consistency: a PSU supplied on an update must
// match the one already attached to the authorisation, and payment resources
// reject a foreign PSU.
type psuIdentityCheck struct{}

func (psuIdentityCheck) Name() string { return "psu-identity" }

func (psuIdentityCheck) Validate(opCtx *OperationContext) (*domain.ErrorHolder, []Warning) {
	if opCtx.Psu.Empty() {
		return nil, nil
	}
	if auth := opCtx.Authorisation; auth != nil && !auth.Psu.Empty() && !auth.Psu.Matches(opCtx.Psu) {
		return domain.NewErrorHolder(opCtx.Service, http.StatusUnauthorized,
			domain.CodePsuCredentialsInvalid, "PSU does not match the authorisation"), nil
	}
	if p := opCtx.Payment; p != nil && !p.Psu.Empty() && !p.Psu.Matches(opCtx.Psu) {
		if opCtx.Authorisation == nil || opCtx.Authorisation.ParentKind != domain.ParentConsent {
			return domain.NewErrorHolder(opCtx.Service, http.StatusUnauthorized,
				domain.CodePsuCredentialsInvalid, "PSU does not match the payment"), nil
		}
	}
	if c := opCtx.Consent; c != nil && c.MultilevelSca && !c.HasPsu(opCtx.Psu) {
		// Multilevel consents accept additional PSUs; surface it as a
		// warning so the caller can see the list grew.
		return nil, []Warning{{Check: "psu-identity", Message: "PSU not yet associated with the consent"}}
	}
	return nil, nil
}

// resourceStatusCheck rejects operations the current resource status forbids.
type resourceStatusCheck struct{}

func (resourceStatusCheck) Name() string { return "resource-status" }

func (resourceStatusCheck) Validate(opCtx *OperationContext) (*domain.ErrorHolder, []Warning) {
	switch opCtx.Operation {
	case OpPaymentCancellation:
		// The CANC fast path and RESOURCE_BLOCKED decision live in the
		// payment orchestrator; nothing to gate here.
		return nil, nil
	case OpConsentRevision:
		if c := opCtx.Consent; c != nil && c.Status.Finalised() {
			return domain.NewErrorHolder(opCtx.Service, http.StatusBadRequest,
				domain.CodeStatusInvalid,
				fmt.Sprintf("consent status %s allows no %s", c.Status, opCtx.Operation)), nil
		}
	case OpConsentRevocation:
		// Revoking an already revoked consent stays allowed; the orchestrator
		// answers it idempotently.
		if c := opCtx.Consent; c != nil && c.Status.Finalised() && c.Status != domain.ConsentRevokedByPsu {
			return domain.NewErrorHolder(opCtx.Service, http.StatusBadRequest,
				domain.CodeStatusInvalid,
				fmt.Sprintf("consent status %s allows no %s", c.Status, opCtx.Operation)), nil
		}
	case OpAuthorisationUpdate:
		if a := opCtx.Authorisation; a != nil && a.Status.Terminal() {
			return domain.NewErrorHolder(opCtx.Service, http.StatusBadRequest,
				domain.CodeStatusInvalid,
				fmt.Sprintf("authorisation already %s", a.Status)), nil
		}
	}
	return nil, nil
}

// requestShapeCheck verifies the update payload fits the current SCA stage:
// a confirmation code is only acceptable in STARTED, an OTP only in
// SCAMETHODSELECTED, and so on.
type requestShapeCheck struct{}

func (requestShapeCheck) Name() string { return "request-shape" }

func (requestShapeCheck) Validate(opCtx *OperationContext) (*domain.ErrorHolder, []Warning) {
	if opCtx.Operation != OpAuthorisationUpdate || opCtx.Authorisation == nil {
		return nil, nil
	}
	if opCtx.Input == nil {
		return shapeError(opCtx, "authorisation update requires a request body"), nil
	}
	in := opCtx.Input
	status := opCtx.Authorisation.Status

	if in.ConfirmationCode != "" && status != domain.ScaStarted {
		return shapeError(opCtx, "confirmation code is only accepted after SCA completed"), nil
	}
	if in.ScaAuthenticationData != "" && status != domain.ScaMethodSelected {
		return shapeError(opCtx, "authentication data requires a selected SCA method"), nil
	}
	if in.MethodID != "" && status != domain.ScaPsuAuthenticated {
		return shapeError(opCtx, "method selection requires an authenticated PSU"), nil
	}

	switch status {
	case domain.ScaReceived:
		if in.Psu == nil || in.Psu.Empty() {
			return shapeError(opCtx, "PSU identification required"), nil
		}
	case domain.ScaPsuIdentified:
		if in.Password == "" {
			return shapeError(opCtx, "PSU password required"), nil
		}
	case domain.ScaPsuAuthenticated:
		if in.MethodID == "" {
			return shapeError(opCtx, "SCA method selection required"), nil
		}
	case domain.ScaMethodSelected:
		if in.ScaAuthenticationData == "" {
			return shapeError(opCtx, "SCA authentication data required"), nil
		}
	case domain.ScaStarted:
		if in.ConfirmationCode == "" {
			return shapeError(opCtx, "confirmation code required"), nil
		}
	}
	return nil, nil
}

func shapeError(opCtx *OperationContext, msg string) *domain.ErrorHolder {
	return domain.NewErrorHolder(opCtx.Service, http.StatusBadRequest, domain.CodeFormatError, msg)
}
