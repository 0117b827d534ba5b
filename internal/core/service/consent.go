package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/ports"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// ConsentService orchestrates AIS and PIIS consents. It exclusively owns
// Consent lifecycle transitions and runs the multilevel aggregation that
// turns a set of finalised authorisations into a valid consent.
type ConsentService struct {
	consentRepo    ports.ConsentRepository
	consentBackend spi.ConsentBackend
	authorisations *AuthorisationService
	continuations  ports.ContinuationStore
	events         ports.EventRecorder
	codec          ports.IDCodec
	pipeline       *Pipeline
	logger         *slog.Logger
}

func NewConsentService(
	consentRepo ports.ConsentRepository,
	consentBackend spi.ConsentBackend,
	authorisations *AuthorisationService,
	continuations ports.ContinuationStore,
	events ports.EventRecorder,
	codec ports.IDCodec,
	logger *slog.Logger,
) *ConsentService {
	return &ConsentService{
		consentRepo:    consentRepo,
		consentBackend: consentBackend,
		authorisations: authorisations,
		continuations:  continuations,
		events:         events,
		codec:          codec,
		pipeline:       newValidationPipeline(),
		logger:         logger,
	}
}

// CreateConsentRequest is the validated shape of a consent creation.
type CreateConsentRequest struct {
	Type            domain.ConsentType `validate:"required"`
	Access          domain.ConsentAccess
	ValidUntil      time.Time `validate:"required"`
	Recurring       bool
	FrequencyPerDay int

	Psu domain.PsuData
	Tpp domain.TppInfo

	ExplicitAuthorisationPreferred bool
	TppRedirectPreferred           *bool
}

// CreateConsent initiates the consent at the backend and persists it in the
// backend-confirmed status. Authorisation starts implicitly unless the caller
// asked for explicit creation or the backend requires multilevel SCA.
func (s *ConsentService) CreateConsent(ctx context.Context, req CreateConsentRequest) (*ConsentCreationResult, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:      ports.EventConsentCreationReceived,
		TppNumber: req.Tpp.AuthorisationNumber,
		PsuID:     req.Psu.ID,
	})

	service := s.serviceTypeForConsent(req.Type)
	if errHolder := validateRequestShape(service, req); errHolder != nil {
		return nil, errHolder
	}

	now := time.Now().UTC()
	consent := &domain.Consent{
		ID:              uuid.New(),
		Type:            req.Type,
		Access:          req.Access,
		ValidUntil:      req.ValidUntil,
		Recurring:       req.Recurring,
		FrequencyPerDay: req.FrequencyPerDay,
		Status:          domain.ConsentReceived,
		Tpp:             req.Tpp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	consent.ExternalID = s.codec.Encode(consent.ID)
	if !req.Psu.Empty() {
		consent.Psus = []domain.PsuData{req.Psu}
	}

	opCtx := &OperationContext{
		Operation: OpConsentCreation,
		Service:   service,
		Tpp:       req.Tpp,
		Psu:       req.Psu,
		Consent:   consent,
	}
	validation := s.pipeline.Run(opCtx)
	if !validation.Valid() {
		return nil, validation.Error
	}

	cd := spi.ContextData{Psu: req.Psu, Tpp: req.Tpp}
	resp := s.consentBackend.InitiateConsent(ctx, cd, consent, nil)
	if resp.HasError() {
		// Nothing is persisted on a failed initiation.
		return nil, TranslateFailure(resp.Failure, service)
	}
	s.putContinuation(ctx, consent.ID, resp.Continuation)

	if resp.Payload.ConsentStatus != "" {
		consent.Status = resp.Payload.ConsentStatus
	}
	consent.MultilevelSca = resp.Payload.MultilevelScaRequired

	if err := s.consentRepo.CreateConsent(ctx, consent); err != nil {
		return nil, s.persistenceError(service, err)
	}

	result := &ConsentCreationResult{
		ConsentID:     consent.ExternalID,
		ConsentStatus: consent.Status,
		MultilevelSca: consent.MultilevelSca,
		Warnings:      validation.Warnings,
	}

	if !req.ExplicitAuthorisationPreferred && !consent.MultilevelSca {
		stepResult, errHolder := s.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
			ParentID: consent.ID,
			Kind:     domain.ParentConsent,
			Psu:      req.Psu,
			Tpp:      req.Tpp,
			Hints:    ApproachHints{TppRedirectPreferred: req.TppRedirectPreferred},
		})
		if errHolder != nil {
			// The consent exists; the caller may retry the authorisation.
			return nil, errHolder
		}
		result.AuthorisationID = stepResult.AuthorisationID
		result.ScaStatus = stepResult.ScaStatus
	}

	return result, nil
}

// GetConsent returns the consent after the usual ownership checks.
func (s *ConsentService) GetConsent(ctx context.Context, externalID string, tpp domain.TppInfo) (*domain.Consent, *domain.ErrorHolder) {
	return s.loadConsent(ctx, externalID, tpp, OpConsentRead)
}

// GetConsentStatus returns the consent status, synchronised read-through from
// the backend. A locally finalised status is never overwritten.
func (s *ConsentService) GetConsentStatus(ctx context.Context, externalID string, tpp domain.TppInfo) (domain.ConsentStatus, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:       ports.EventGetConsentStatusReceived,
		ResourceID: externalID,
		TppNumber:  tpp.AuthorisationNumber,
	})

	consent, errHolder := s.loadConsent(ctx, externalID, tpp, OpConsentRead)
	if errHolder != nil {
		return "", errHolder
	}
	if consent.Status.Finalised() {
		return consent.Status, nil
	}

	service := s.serviceTypeForConsent(consent.Type)
	cont, errHolder := s.getContinuation(ctx, consent.ID, service)
	if errHolder != nil {
		return "", errHolder
	}
	cd := spi.ContextData{Tpp: tpp}
	resp := s.consentBackend.GetConsentStatusByID(ctx, cd, consent, cont)
	s.putContinuation(ctx, consent.ID, resp.Continuation)
	if resp.HasError() {
		return "", TranslateFailure(resp.Failure, service)
	}

	if resp.Payload != consent.Status {
		if err := consent.ApplyStatus(resp.Payload); err != nil {
			return "", domain.NewErrorHolder(service, http.StatusBadRequest,
				domain.CodeFormatError, err.Error())
		}
		if err := s.consentRepo.UpdateConsent(ctx, consent); err != nil {
			return "", s.persistenceError(service, err)
		}
	}
	return consent.Status, nil
}

// ReviseConsent replaces the access scope of a non-finalised consent. The
// revised consent drops back to RECEIVED and must be authorised again.
func (s *ConsentService) ReviseConsent(ctx context.Context, externalID string, tpp domain.TppInfo, access domain.ConsentAccess, validUntil time.Time) (*domain.Consent, *domain.ErrorHolder) {
	consent, errHolder := s.loadConsent(ctx, externalID, tpp, OpConsentRevision)
	if errHolder != nil {
		return nil, errHolder
	}
	service := s.serviceTypeForConsent(consent.Type)

	consent.Access = access
	if !validUntil.IsZero() {
		consent.ValidUntil = validUntil
	}
	consent.Status = domain.ConsentReceived
	consent.DecisionNotified = false
	consent.UpdatedAt = time.Now().UTC()
	if err := s.consentRepo.UpdateConsent(ctx, consent); err != nil {
		return nil, s.persistenceError(service, err)
	}
	s.logger.Info("consent access revised", "consent_id", consent.ID.String())
	return consent, nil
}

// RevokeConsent revokes the consent at the backend and locally. Revoking an
// already revoked consent succeeds without a backend call.
func (s *ConsentService) RevokeConsent(ctx context.Context, externalID string, tpp domain.TppInfo, psu domain.PsuData) (domain.ConsentStatus, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:       ports.EventConsentRevocationReceived,
		ResourceID: externalID,
		TppNumber:  tpp.AuthorisationNumber,
		PsuID:      psu.ID,
	})

	consent, errHolder := s.loadConsent(ctx, externalID, tpp, OpConsentRevocation)
	if errHolder != nil {
		return "", errHolder
	}
	service := s.serviceTypeForConsent(consent.Type)
	if consent.Status == domain.ConsentRevokedByPsu {
		return consent.Status, nil
	}

	cont, errHolder := s.getContinuation(ctx, consent.ID, service)
	if errHolder != nil {
		return "", errHolder
	}
	cd := spi.ContextData{Psu: psu, Tpp: tpp}
	resp := s.consentBackend.RevokeConsent(ctx, cd, consent, cont)
	s.putContinuation(ctx, consent.ID, resp.Continuation)
	if resp.HasError() {
		return "", TranslateFailure(resp.Failure, service)
	}

	if err := consent.ApplyStatus(domain.ConsentRevokedByPsu); err != nil {
		return "", domain.NewErrorHolder(service, http.StatusBadRequest,
			domain.CodeStatusInvalid, err.Error())
	}
	if err := s.consentRepo.UpdateConsent(ctx, consent); err != nil {
		return "", s.persistenceError(service, err)
	}
	s.logger.Info("consent revoked by PSU", "consent_id", consent.ID.String())
	return consent.Status, nil
}

// VerifyConsent runs the backend SCA verification for a consent
// authorisation. Called by the authorisation state machine.
func (s *ConsentService) VerifyConsent(ctx context.Context, cd spi.ContextData, consentID uuid.UUID, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	consent, err := s.consentRepo.GetConsent(ctx, consentID)
	if err != nil {
		return spi.Fail[spi.ExecutionPayload](
			spi.NewFailure(spi.LogicalFailure, domain.CodeConsentUnknown, "unknown consent"), cont)
	}
	resp := s.consentBackend.VerifyScaAndActivateConsent(ctx, cd, consent, proof, cont)
	s.putContinuation(ctx, consentID, resp.Continuation)
	return resp
}

// ConsentAuthorisationFinished aggregates terminal authorisations into a
// consent decision. All finalised moves the consent to VALID; any failed
// authorisation rejects it. The backend is notified of the decision exactly
// once.
func (s *ConsentService) ConsentAuthorisationFinished(ctx context.Context, consentID uuid.UUID) *domain.ErrorHolder {
	consent, err := s.consentRepo.GetConsent(ctx, consentID)
	if err != nil {
		return s.persistenceError(domain.ServiceAIS, err)
	}
	service := s.serviceTypeForConsent(consent.Type)
	if consent.Status.Finalised() || consent.Status == domain.ConsentValid {
		return nil
	}

	outcome, err := s.authorisations.OutcomeForParent(ctx, consentID, domain.ParentConsent)
	if err != nil {
		return s.persistenceError(service, err)
	}

	// A multilevel consent needs one finalised authorisation per associated
	// PSU; the PSU list grows as PSUs identify themselves on the consent.
	required := 1
	if consent.MultilevelSca && len(consent.Psus) > required {
		required = len(consent.Psus)
	}

	var decision spi.ConsentDecision
	switch {
	case outcome.Failed > 0:
		decision = spi.ConsentDecisionRejected
	case outcome.Total > 0 && outcome.Finalised == outcome.Total && outcome.Finalised >= required:
		decision = spi.ConsentDecisionConfirmed
	default:
		// Authorisations or associated PSUs still pending; nothing changes
		// yet.
		return nil
	}

	status := domain.ConsentValid
	if decision == spi.ConsentDecisionRejected {
		status = domain.ConsentRejected
	}
	if err := consent.ApplyStatus(status); err != nil {
		return domain.NewErrorHolder(service, http.StatusBadRequest,
			domain.CodeStatusInvalid, err.Error())
	}

	if !consent.DecisionNotified {
		cont, errHolder := s.getContinuation(ctx, consent.ID, service)
		if errHolder != nil {
			return errHolder
		}
		cd := spi.ContextData{Tpp: consent.Tpp}
		resp := s.consentBackend.NotifyConsentDecision(ctx, cd, consent, decision, cont)
		s.putContinuation(ctx, consent.ID, resp.Continuation)
		if resp.HasError() {
			return TranslateFailure(resp.Failure, service)
		}
		consent.DecisionNotified = true
	}

	if err := s.consentRepo.UpdateConsent(ctx, consent); err != nil {
		return s.persistenceError(service, err)
	}
	s.logger.Info("consent decision settled",
		"consent_id", consent.ID.String(), "status", string(consent.Status))
	return nil
}

func (s *ConsentService) loadConsent(ctx context.Context, externalID string, tpp domain.TppInfo, op Operation) (*domain.Consent, *domain.ErrorHolder) {
	id, err := s.codec.Decode(externalID)
	if err != nil {
		return nil, domain.NewErrorHolder(domain.ServiceAIS, http.StatusForbidden,
			domain.CodeConsentUnknown403, "malformed consent id")
	}
	consent, err := s.consentRepo.GetConsent(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrConsentNotFound) {
			return nil, domain.NewErrorHolder(domain.ServiceAIS, http.StatusForbidden,
				domain.CodeConsentUnknown403, "unknown consent")
		}
		return nil, s.persistenceError(domain.ServiceAIS, err)
	}
	service := s.serviceTypeForConsent(consent.Type)

	opCtx := &OperationContext{
		Operation: op,
		Service:   service,
		Tpp:       tpp,
		Consent:   consent,
	}
	if result := s.pipeline.Run(opCtx); !result.Valid() {
		return nil, result.Error
	}
	return consent, nil
}

func (s *ConsentService) serviceTypeForConsent(t domain.ConsentType) domain.ServiceType {
	if t == domain.ConsentPIIS {
		return domain.ServicePIIS
	}
	return domain.ServiceAIS
}

func (s *ConsentService) getContinuation(ctx context.Context, id uuid.UUID, service domain.ServiceType) (spi.ContinuationData, *domain.ErrorHolder) {
	cont, err := s.continuations.Get(ctx, id)
	if err != nil {
		return nil, s.persistenceError(service, err)
	}
	return cont, nil
}

func (s *ConsentService) putContinuation(ctx context.Context, id uuid.UUID, data spi.ContinuationData) {
	if len(data) == 0 {
		return
	}
	if err := s.continuations.Put(ctx, id, data); err != nil {
		s.logger.Error("failed to store continuation data", "resource_id", id.String(), "error", err)
	}
}

func (s *ConsentService) persistenceError(service domain.ServiceType, err error) *domain.ErrorHolder {
	s.logger.Error("persistence failure", "error", err)
	return domain.NewErrorHolder(service, http.StatusInternalServerError,
		domain.CodeInternalServerError, "persistence failure")
}
