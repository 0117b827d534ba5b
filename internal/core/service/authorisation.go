package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/ports"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// ScaSettings is the deployment configuration slice the state machine needs.
type ScaSettings struct {
	// ConfirmationMandated inserts the STARTED stage: after SCA verification
	// the TPP must echo a confirmation code before the flow finalises.
	ConfirmationMandated bool
	// ConfirmationCodeCheckedByBackend delegates the confirmation-code check
	// to the backend instead of comparing locally.
	ConfirmationCodeCheckedByBackend bool
	// CancellationScaMandated requires SCA before a non-RCVD payment may be
	// cancelled.
	CancellationScaMandated bool
	// RedirectURLTemplate builds the redirect link handed to the PSU; it
	// receives the authorisation id.
	RedirectURLTemplate string
}

// paymentParent is the payment orchestrator's side of an initiation or
// cancellation authorisation: verification of the SCA proof and the status
// consequences of the terminal outcome.
type paymentParent interface {
	VerifyExecution(ctx context.Context, cd spi.ContextData, paymentID uuid.UUID, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]
	VerifyCancellation(ctx context.Context, cd spi.ContextData, paymentID uuid.UUID, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]
	PaymentAuthorised(ctx context.Context, paymentID uuid.UUID, kind domain.AuthorisationParent) *domain.ErrorHolder
}

// consentParent is the consent orchestrator's side: proof verification plus
// the multilevel aggregation run after any authorisation reaches a terminal
// state.
type consentParent interface {
	VerifyConsent(ctx context.Context, cd spi.ContextData, consentID uuid.UUID, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]
	ConsentAuthorisationFinished(ctx context.Context, consentID uuid.UUID) *domain.ErrorHolder
}

// AuthorisationService is the SCA authorisation state machine. It exclusively
// owns Authorisation lifecycle transitions.
type AuthorisationService struct {
	authRepo    ports.AuthorisationRepository
	paymentRepo ports.PaymentRepository
	consentRepo ports.ConsentRepository

	authBackend   spi.AuthorisationBackend
	continuations ports.ContinuationStore
	events        ports.EventRecorder

	resolver   *ApproachResolver
	strategies map[domain.ScaApproach]scaStrategy
	pipeline   *Pipeline
	settings   ScaSettings
	logger     *slog.Logger

	payments paymentParent
	consents consentParent
}

// NewAuthorisationService builds the state machine. The parent orchestrators
// are attached afterwards via AttachParents to break the construction cycle.
func NewAuthorisationService(
	authRepo ports.AuthorisationRepository,
	paymentRepo ports.PaymentRepository,
	consentRepo ports.ConsentRepository,
	authBackend spi.AuthorisationBackend,
	continuations ports.ContinuationStore,
	events ports.EventRecorder,
	resolver *ApproachResolver,
	settings ScaSettings,
	logger *slog.Logger,
) *AuthorisationService {
	return &AuthorisationService{
		authRepo:      authRepo,
		paymentRepo:   paymentRepo,
		consentRepo:   consentRepo,
		authBackend:   authBackend,
		continuations: continuations,
		events:        events,
		resolver:      resolver,
		strategies:    newStrategyRegistry(settings.ConfirmationMandated, settings.RedirectURLTemplate),
		pipeline:      newValidationPipeline(),
		settings:      settings,
		logger:        logger,
	}
}

// AttachParents wires the payment and consent orchestrators as terminal-state
// listeners and proof verifiers.
func (s *AuthorisationService) AttachParents(payments paymentParent, consents consentParent) {
	s.payments = payments
	s.consents = consents
}

// StartAuthorisationRequest asks for a new SCA authorisation on a consent,
// a payment initiation or a payment cancellation.
type StartAuthorisationRequest struct {
	ParentID uuid.UUID
	Kind     domain.AuthorisationParent
	Psu      domain.PsuData
	Tpp      domain.TppInfo
	Hints    ApproachHints
}

// StartAuthorisation creates an authorisation for the given parent, resolving
// and pinning the SCA approach. At most one non-terminal authorisation may
// exist per (resource, PSU) pair.
func (s *AuthorisationService) StartAuthorisation(ctx context.Context, req StartAuthorisationRequest) (*AuthorisationStepResult, *domain.ErrorHolder) {
	service := s.serviceTypeForKind(req.Kind)

	existing, err := s.authRepo.GetAuthorisationsByParent(ctx, req.ParentID, req.Kind)
	if err != nil {
		return nil, s.persistenceError(service, err)
	}
	for _, a := range existing {
		if !a.Status.Terminal() && (a.Psu.Empty() || req.Psu.Empty() || a.Psu.Matches(req.Psu)) {
			return nil, domain.NewErrorHolder(service, http.StatusBadRequest,
				domain.CodeStatusInvalid, "an authorisation is already in progress for this PSU")
		}
	}

	approach, errHolder := s.resolver.Resolve(req.Hints)
	if errHolder != nil {
		return nil, errHolder
	}
	strategy, ok := s.strategies[approach]
	if !ok {
		return nil, domain.NewErrorHolder(service, http.StatusInternalServerError,
			domain.CodeInternalServerError, "no strategy for approach "+string(approach))
	}

	auth := strategy.StartAuthorisation(req.ParentID, req.Kind, req.Psu)
	if err := s.authRepo.CreateAuthorisation(ctx, auth); err != nil {
		return nil, s.persistenceError(service, err)
	}
	if err := s.associatePsu(ctx, req.ParentID, req.Kind, req.Psu); err != nil {
		return nil, s.persistenceError(service, err)
	}

	s.events.Record(ctx, ports.Event{
		Type:       ports.EventAuthorisationStarted,
		ResourceID: req.ParentID.String(),
		TppNumber:  req.Tpp.AuthorisationNumber,
		PsuID:      req.Psu.ID,
	})

	return &AuthorisationStepResult{
		AuthorisationID: auth.ID.String(),
		ScaStatus:       auth.Status,
		Approach:        auth.Approach,
		RedirectURI:     auth.RedirectURI,
	}, nil
}

// Advance runs one step of the state machine for the given authorisation.
func (s *AuthorisationService) Advance(ctx context.Context, authorisationID uuid.UUID, tpp domain.TppInfo, input *AuthorisationInput) (*AuthorisationStepResult, *domain.ErrorHolder) {
	auth, err := s.authRepo.GetAuthorisation(ctx, authorisationID)
	if err != nil {
		if errors.Is(err, domain.ErrAuthorisationNotFound) {
			return nil, domain.NewErrorHolder(domain.ServicePIS, http.StatusForbidden,
				domain.CodeResourceUnknown403, "unknown authorisation")
		}
		return nil, s.persistenceError(domain.ServicePIS, err)
	}

	service := s.serviceTypeFor(auth)

	// Terminal authorisations are immutable; checked before anything else so
	// concurrent attempts resolve on this guard rather than on locks.
	if auth.Status.Terminal() {
		return nil, domain.NewErrorHolder(service, http.StatusBadRequest,
			domain.CodeStatusInvalid, "authorisation already "+string(auth.Status))
	}

	opCtx := &OperationContext{
		Operation:     OpAuthorisationUpdate,
		Service:       service,
		Tpp:           tpp,
		Authorisation: auth,
		Input:         input,
	}
	if input != nil && input.Psu != nil {
		opCtx.Psu = *input.Psu
	}
	if errHolder := s.loadParent(ctx, auth, opCtx); errHolder != nil {
		return nil, errHolder
	}
	validation := s.pipeline.Run(opCtx)
	if !validation.Valid() {
		return nil, validation.Error
	}

	cont, err := s.continuations.Get(ctx, auth.ParentID)
	if err != nil {
		return nil, s.persistenceError(service, err)
	}

	strategy, ok := s.strategies[auth.Approach]
	if !ok {
		return nil, domain.NewErrorHolder(service, http.StatusInternalServerError,
			domain.CodeInternalServerError, "no strategy for approach "+string(auth.Approach))
	}

	cd := spi.ContextData{Psu: auth.Psu, Tpp: tpp, RequestID: uuid.New()}
	if input != nil && input.Psu != nil {
		cd.Psu = *input.Psu
	}

	s.events.Record(ctx, ports.Event{
		Type:       ports.EventAuthorisationUpdated,
		ResourceID: auth.ParentID.String(),
		TppNumber:  tpp.AuthorisationNumber,
		PsuID:      cd.Psu.ID,
	})

	result, errHolder := s.step(ctx, service, strategy, cd, auth, input, cont)
	if errHolder != nil {
		return nil, errHolder
	}
	result.Warnings = validation.Warnings
	return result, nil
}

// step dispatches on the current SCA status.
func (s *AuthorisationService) step(ctx context.Context, service domain.ServiceType, strategy scaStrategy, cd spi.ContextData, auth *domain.Authorisation, input *AuthorisationInput, cont spi.ContinuationData) (*AuthorisationStepResult, *domain.ErrorHolder) {
	switch auth.Status {
	case domain.ScaReceived:
		auth.Psu = *input.Psu
		if err := auth.ApplyStatus(domain.ScaPsuIdentified); err != nil {
			return nil, s.internalError(service, err)
		}
		if err := s.associatePsu(ctx, auth.ParentID, auth.ParentKind, auth.Psu); err != nil {
			return nil, s.persistenceError(service, err)
		}
		if input.Password != "" {
			return s.authenticatePsu(ctx, service, strategy, cd, auth, input, cont)
		}
		if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
			return nil, errHolder
		}
		return s.stepResult(auth), nil

	case domain.ScaPsuIdentified:
		return s.authenticatePsu(ctx, service, strategy, cd, auth, input, cont)

	case domain.ScaPsuAuthenticated:
		return s.selectMethod(ctx, service, strategy, cd, auth, input.MethodID, cont)

	case domain.ScaMethodSelected:
		return s.finalise(ctx, service, strategy, cd, auth, input, cont)

	case domain.ScaStarted:
		return s.checkConfirmationCode(ctx, service, cd, auth, input.ConfirmationCode, cont)

	default:
		return nil, domain.NewErrorHolder(service, http.StatusBadRequest,
			domain.CodeStatusInvalid, "authorisation in unexpected status "+string(auth.Status))
	}
}

// authenticatePsu checks the PSU's credentials against the backend and, on
// success, lists the available SCA methods, auto-selecting a sole method.
func (s *AuthorisationService) authenticatePsu(ctx context.Context, service domain.ServiceType, strategy scaStrategy, cd spi.ContextData, auth *domain.Authorisation, input *AuthorisationInput, cont spi.ContinuationData) (*AuthorisationStepResult, *domain.ErrorHolder) {
	resp := s.authBackend.AuthorisePsu(ctx, cd, cd.Psu, input.Password, cont)
	cont = s.storeContinuation(ctx, auth.ParentID, resp.Continuation, cont)
	if resp.HasError() {
		if resp.Failure.Category == spi.UnauthorizedFailure {
			return nil, s.failAuthorisation(ctx, service, auth, "PSU authentication failed")
		}
		return nil, TranslateFailure(resp.Failure, service)
	}

	switch resp.Payload.Status {
	case spi.PsuAuthorisationFailure:
		return nil, s.failAuthorisation(ctx, service, auth, "PSU credentials invalid")
	case spi.PsuAuthorisationAttemptFailure:
		// Attempt failed but further attempts remain; no status mutation.
		return nil, domain.NewErrorHolder(service, http.StatusUnauthorized,
			domain.CodePsuCredentialsInvalid, "PSU credentials invalid, attempts remain")
	}

	if resp.Payload.ScaExempted {
		if err := auth.ApplyStatus(domain.ScaExempted); err != nil {
			return nil, s.internalError(service, err)
		}
		if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
			return nil, errHolder
		}
		if errHolder := s.notifyParent(ctx, auth); errHolder != nil {
			return nil, errHolder
		}
		return s.stepResult(auth), nil
	}

	if err := auth.ApplyStatus(domain.ScaPsuAuthenticated); err != nil {
		return nil, s.internalError(service, err)
	}

	methodsResp := strategy.ListAvailableMethods(ctx, s.authBackend, cd, cont)
	cont = s.storeContinuation(ctx, auth.ParentID, methodsResp.Continuation, cont)
	if methodsResp.HasError() {
		return nil, TranslateFailure(methodsResp.Failure, service)
	}
	methods := methodsResp.Payload
	auth.AvailableMethods = methods

	if len(methods) == 1 {
		return s.selectMethod(ctx, service, strategy, cd, auth, methods[0].ID, cont)
	}

	if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
		return nil, errHolder
	}
	return s.stepResult(auth), nil
}

func (s *AuthorisationService) selectMethod(ctx context.Context, service domain.ServiceType, strategy scaStrategy, cd spi.ContextData, auth *domain.Authorisation, methodID string, cont spi.ContinuationData) (*AuthorisationStepResult, *domain.ErrorHolder) {
	if len(auth.AvailableMethods) > 0 && !hasMethod(auth.AvailableMethods, methodID) {
		return nil, domain.NewErrorHolder(service, http.StatusBadRequest,
			domain.CodeScaMethodUnknown, "unknown SCA method "+methodID)
	}

	resp := strategy.SelectMethodAndChallenge(ctx, s.authBackend, cd, auth, methodID, cont)
	s.storeContinuation(ctx, auth.ParentID, resp.Continuation, cont)
	if resp.HasError() {
		return nil, TranslateFailure(resp.Failure, service)
	}

	auth.ChosenMethodID = methodID
	if err := auth.ApplyStatus(domain.ScaMethodSelected); err != nil {
		return nil, s.internalError(service, err)
	}
	if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
		return nil, errHolder
	}

	result := s.stepResult(auth)
	challenge := resp.Payload
	result.Challenge = &challenge
	result.PsuMessage = challenge.AdditionalInfo
	return result, nil
}

func (s *AuthorisationService) finalise(ctx context.Context, service domain.ServiceType, strategy scaStrategy, cd spi.ContextData, auth *domain.Authorisation, input *AuthorisationInput, cont spi.ContinuationData) (*AuthorisationStepResult, *domain.ErrorHolder) {
	proof := spi.ScaConfirmation{
		AuthorisationID:       auth.ID.String(),
		MethodID:              auth.ChosenMethodID,
		ScaAuthenticationData: input.ScaAuthenticationData,
	}

	status, confirmationCode, failure := strategy.Finalise(ctx, cd, auth, proof, s.verifierFor(auth), cont)
	if failure != nil {
		if failure.Category == spi.UnauthorizedFailure {
			return nil, s.failAuthorisation(ctx, service, auth, "SCA verification failed")
		}
		// Retryable: status untouched.
		return nil, TranslateFailure(failure, service)
	}

	auth.ConfirmationCode = confirmationCode
	if err := auth.ApplyStatus(status); err != nil {
		return nil, s.internalError(service, err)
	}
	if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
		return nil, errHolder
	}
	if auth.Status == domain.ScaFinalised {
		if errHolder := s.notifyParent(ctx, auth); errHolder != nil {
			return nil, errHolder
		}
	}
	return s.stepResult(auth), nil
}

// checkConfirmationCode is the guarded one-shot: a wrong code moves the
// authorisation to FAILED, never retried silently.
func (s *AuthorisationService) checkConfirmationCode(ctx context.Context, service domain.ServiceType, cd spi.ContextData, auth *domain.Authorisation, code string, cont spi.ContinuationData) (*AuthorisationStepResult, *domain.ErrorHolder) {
	var accepted bool

	// Redirect flows never observe a confirmation code locally (SCA runs at
	// the backend's redirect page), so the backend owns the check there.
	if s.settings.ConfirmationCodeCheckedByBackend || auth.Approach == domain.ApproachRedirect {
		resp := s.authBackend.CheckConfirmationCode(ctx, cd, auth.ID.String(), code, cont)
		s.storeContinuation(ctx, auth.ParentID, resp.Continuation, cont)
		if resp.HasError() {
			if resp.Failure.Category == spi.UnauthorizedFailure {
				return nil, s.failAuthorisation(ctx, service, auth, "confirmation code rejected")
			}
			return nil, TranslateFailure(resp.Failure, service)
		}
		accepted = resp.Payload.ScaStatus == domain.ScaFinalised
	} else {
		accepted = auth.ConfirmationCode != "" && auth.ConfirmationCode == code
	}

	if !accepted {
		errHolder := s.failAuthorisation(ctx, service, auth, "confirmation code invalid")
		if parentErr := s.notifyParentFailed(ctx, auth); parentErr != nil {
			return nil, parentErr
		}
		return nil, errHolder
	}

	if err := auth.ApplyStatus(domain.ScaFinalised); err != nil {
		return nil, s.internalError(service, err)
	}
	if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
		return nil, errHolder
	}
	if errHolder := s.notifyParent(ctx, auth); errHolder != nil {
		return nil, errHolder
	}
	return s.stepResult(auth), nil
}

// failAuthorisation moves the authorisation to FAILED and reports the
// credential-invalid error.
func (s *AuthorisationService) failAuthorisation(ctx context.Context, service domain.ServiceType, auth *domain.Authorisation, msg string) *domain.ErrorHolder {
	if err := auth.ApplyStatus(domain.ScaFailed); err != nil {
		return s.internalError(service, err)
	}
	if errHolder := s.saveAuthorisation(ctx, service, auth); errHolder != nil {
		return errHolder
	}
	s.logger.Info("authorisation failed",
		"authorisation_id", auth.ID.String(),
		"parent_kind", string(auth.ParentKind),
	)
	return domain.NewErrorHolder(service, http.StatusUnauthorized, domain.CodePsuCredentialsInvalid, msg)
}

// verifierFor routes the SCA proof verification to the parent orchestrator.
func (s *AuthorisationService) verifierFor(auth *domain.Authorisation) verifyFunc {
	parentID := auth.ParentID
	switch auth.ParentKind {
	case domain.ParentPaymentInitiation:
		return func(ctx context.Context, cd spi.ContextData, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
			return s.payments.VerifyExecution(ctx, cd, parentID, proof, cont)
		}
	case domain.ParentPaymentCancellation:
		return func(ctx context.Context, cd spi.ContextData, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
			return s.payments.VerifyCancellation(ctx, cd, parentID, proof, cont)
		}
	}
	return func(ctx context.Context, cd spi.ContextData, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
		return s.consents.VerifyConsent(ctx, cd, parentID, proof, cont)
	}
}

// notifyParent reports a successful terminal state to the parent resource.
func (s *AuthorisationService) notifyParent(ctx context.Context, auth *domain.Authorisation) *domain.ErrorHolder {
	switch auth.ParentKind {
	case domain.ParentPaymentInitiation, domain.ParentPaymentCancellation:
		return s.payments.PaymentAuthorised(ctx, auth.ParentID, auth.ParentKind)
	case domain.ParentConsent:
		return s.consents.ConsentAuthorisationFinished(ctx, auth.ParentID)
	}
	return nil
}

// notifyParentFailed lets a consent aggregate a FAILED authorisation; a failed
// payment authorisation leaves the payment itself untouched.
func (s *AuthorisationService) notifyParentFailed(ctx context.Context, auth *domain.Authorisation) *domain.ErrorHolder {
	if auth.ParentKind == domain.ParentConsent {
		return s.consents.ConsentAuthorisationFinished(ctx, auth.ParentID)
	}
	return nil
}

// associatePsu records a PSU against the consent it is authorising. The
// multilevel aggregation requires one finalised authorisation per PSU in the
// list.
func (s *AuthorisationService) associatePsu(ctx context.Context, parentID uuid.UUID, kind domain.AuthorisationParent, psu domain.PsuData) error {
	if kind != domain.ParentConsent || psu.Empty() {
		return nil
	}
	consent, err := s.consentRepo.GetConsent(ctx, parentID)
	if err != nil {
		return err
	}
	if consent.HasPsu(psu) {
		return nil
	}
	consent.Psus = append(consent.Psus, psu)
	return s.consentRepo.UpdateConsent(ctx, consent)
}

func (s *AuthorisationService) loadParent(ctx context.Context, auth *domain.Authorisation, opCtx *OperationContext) *domain.ErrorHolder {
	switch auth.ParentKind {
	case domain.ParentPaymentInitiation, domain.ParentPaymentCancellation:
		payment, err := s.paymentRepo.GetPayment(ctx, auth.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotFound) {
				return domain.NewErrorHolder(opCtx.Service, http.StatusForbidden,
					domain.CodeResourceUnknown403, "unknown payment")
			}
			return s.persistenceError(opCtx.Service, err)
		}
		opCtx.Payment = payment
	case domain.ParentConsent:
		consent, err := s.consentRepo.GetConsent(ctx, auth.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrConsentNotFound) {
				return domain.NewErrorHolder(opCtx.Service, http.StatusForbidden,
					domain.CodeResourceUnknown403, "unknown consent")
			}
			return s.persistenceError(opCtx.Service, err)
		}
		opCtx.Consent = consent
	}
	return nil
}

// storeContinuation persists fresh continuation data and returns the token to
// use for the next backend call in this step.
func (s *AuthorisationService) storeContinuation(ctx context.Context, resourceID uuid.UUID, fresh, previous spi.ContinuationData) spi.ContinuationData {
	if len(fresh) == 0 {
		return previous
	}
	if err := s.continuations.Put(ctx, resourceID, fresh); err != nil {
		s.logger.Error("failed to store continuation data",
			"resource_id", resourceID.String(), "error", err)
	}
	return fresh
}

// ParentOutcome summarises how the authorisations attached to a parent
// resource have concluded so far. Parents use it to aggregate multilevel SCA.
type ParentOutcome struct {
	Total     int
	Finalised int
	Failed    int
}

// OutcomeForParent counts terminal authorisations for the given parent.
func (s *AuthorisationService) OutcomeForParent(ctx context.Context, parentID uuid.UUID, kind domain.AuthorisationParent) (ParentOutcome, error) {
	auths, err := s.authRepo.GetAuthorisationsByParent(ctx, parentID, kind)
	if err != nil {
		return ParentOutcome{}, err
	}
	outcome := ParentOutcome{Total: len(auths)}
	for _, a := range auths {
		switch a.Status {
		case domain.ScaFinalised, domain.ScaExempted:
			outcome.Finalised++
		case domain.ScaFailed:
			outcome.Failed++
		}
	}
	return outcome, nil
}

func (s *AuthorisationService) saveAuthorisation(ctx context.Context, service domain.ServiceType, auth *domain.Authorisation) *domain.ErrorHolder {
	if err := s.authRepo.UpdateAuthorisation(ctx, auth); err != nil {
		return s.persistenceError(service, err)
	}
	return nil
}

func (s *AuthorisationService) serviceTypeFor(auth *domain.Authorisation) domain.ServiceType {
	return s.serviceTypeForKind(auth.ParentKind)
}

func (s *AuthorisationService) serviceTypeForKind(kind domain.AuthorisationParent) domain.ServiceType {
	switch kind {
	case domain.ParentPaymentInitiation:
		return domain.ServicePIS
	case domain.ParentPaymentCancellation:
		return domain.ServicePISCanc
	default:
		return domain.ServiceAIS
	}
}

func (s *AuthorisationService) persistenceError(service domain.ServiceType, err error) *domain.ErrorHolder {
	s.logger.Error("persistence failure", "error", err)
	return domain.NewErrorHolder(service, http.StatusInternalServerError,
		domain.CodeInternalServerError, "persistence failure")
}

func (s *AuthorisationService) internalError(service domain.ServiceType, err error) *domain.ErrorHolder {
	s.logger.Error("internal error", "error", err)
	return domain.NewErrorHolder(service, http.StatusInternalServerError,
		domain.CodeInternalServerError, err.Error())
}

func (s *AuthorisationService) stepResult(auth *domain.Authorisation) *AuthorisationStepResult {
	return &AuthorisationStepResult{
		AuthorisationID:  auth.ID.String(),
		ScaStatus:        auth.Status,
		Approach:         auth.Approach,
		AvailableMethods: auth.AvailableMethods,
		ChosenMethodID:   auth.ChosenMethodID,
		RedirectURI:      auth.RedirectURI,
	}
}

func hasMethod(methods []domain.AuthMethod, id string) bool {
	for _, m := range methods {
		if m.ID == id {
			return true
		}
	}
	return false
}
