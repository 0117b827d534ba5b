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

// PaymentService orchestrates payment initiation, reads and cancellation.
// It exclusively owns Payment lifecycle transitions and never advances local
// status speculatively: every status write follows a backend confirmation.
type PaymentService struct {
	paymentRepo    ports.PaymentRepository
	paymentBackend spi.PaymentBackend
	authorisations *AuthorisationService
	continuations  ports.ContinuationStore
	events         ports.EventRecorder
	codec          ports.IDCodec
	pipeline       *Pipeline
	settings       ScaSettings
	logger         *slog.Logger
}

func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	paymentBackend spi.PaymentBackend,
	authorisations *AuthorisationService,
	continuations ports.ContinuationStore,
	events ports.EventRecorder,
	codec ports.IDCodec,
	settings ScaSettings,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		paymentBackend: paymentBackend,
		authorisations: authorisations,
		continuations:  continuations,
		events:         events,
		codec:          codec,
		pipeline:       newValidationPipeline(),
		settings:       settings,
		logger:         logger,
	}
}

// InitiatePaymentRequest is the validated shape of a payment initiation.
type InitiatePaymentRequest struct {
	Type    domain.PaymentType `validate:"required"`
	Product string             `validate:"required"`

	DebtorAccount   domain.AccountReference
	CreditorAccount domain.AccountReference
	CreditorName    string
	Amount          domain.Amount

	RequestedExecutionDate *time.Time
	// RawData carries the original body for raw (pain.) payment products.
	RawData []byte

	Psu domain.PsuData
	Tpp domain.TppInfo

	ExplicitAuthorisationPreferred bool
	TppRedirectPreferred           *bool
}

// InitiatePayment validates the request, initiates the payment at the backend
// and persists it in the backend-confirmed status. Authorisation is started
// implicitly unless the caller asked for explicit creation or the backend
// requires multilevel SCA.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*PaymentInitiationResult, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:      ports.EventPaymentInitiationReceived,
		TppNumber: req.Tpp.AuthorisationNumber,
		PsuID:     req.Psu.ID,
	})

	if errHolder := validateRequestShape(domain.ServicePIS, req); errHolder != nil {
		return nil, errHolder
	}

	payment := &domain.Payment{
		ID:                     uuid.New(),
		Product:                req.Product,
		Type:                   req.Type,
		DebtorAccount:          req.DebtorAccount,
		CreditorAccount:        req.CreditorAccount,
		CreditorName:           req.CreditorName,
		Amount:                 req.Amount,
		RequestedExecutionDate: req.RequestedExecutionDate,
		RawData:                req.RawData,
		Status:                 domain.TransactionRCVD,
		Psu:                    req.Psu,
		Tpp:                    req.Tpp,
		CreatedAt:              time.Now().UTC(),
	}
	payment.ExternalID = s.codec.Encode(payment.ID)

	opCtx := &OperationContext{
		Operation: OpPaymentInitiation,
		Service:   domain.ServicePIS,
		Tpp:       req.Tpp,
		Psu:       req.Psu,
	}
	if result := s.pipeline.Run(opCtx); !result.Valid() {
		return nil, result.Error
	}

	cd := spi.ContextData{Psu: req.Psu, Tpp: req.Tpp, RequestID: uuid.New()}
	resp := s.paymentBackend.InitiatePayment(ctx, cd, payment, nil)
	if resp.HasError() {
		// Nothing is persisted on a failed initiation.
		return nil, TranslateFailure(resp.Failure, domain.ServicePIS)
	}
	s.putContinuation(ctx, payment.ID, resp.Continuation)

	payment.Status = resp.Payload.TransactionStatus
	if payment.Status == "" {
		payment.Status = domain.TransactionRCVD
	}
	payment.MultilevelSca = resp.Payload.MultilevelScaRequired

	if err := s.paymentRepo.CreatePayment(ctx, payment); err != nil {
		return nil, s.persistenceError(err)
	}

	result := &PaymentInitiationResult{
		PaymentID:         payment.ExternalID,
		TransactionStatus: payment.Status,
		PsuMessage:        resp.Payload.PsuMessage,
	}

	// Implicit start only when a single authorisation suffices. Multilevel
	// payments need one authorisation per PSU, created explicitly.
	if !req.ExplicitAuthorisationPreferred && !payment.MultilevelSca {
		stepResult, errHolder := s.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
			ParentID: payment.ID,
			Kind:     domain.ParentPaymentInitiation,
			Psu:      req.Psu,
			Tpp:      req.Tpp,
			Hints:    ApproachHints{TppRedirectPreferred: req.TppRedirectPreferred},
		})
		if errHolder != nil {
			// The payment exists; the caller may retry the authorisation.
			return nil, errHolder
		}
		result.AuthorisationID = stepResult.AuthorisationID
		result.ScaStatus = stepResult.ScaStatus
	}

	return result, nil
}

// GetPayment returns the payment, refreshing raw (common) payments from the
// backend because their body is opaque to the local view.
func (s *PaymentService) GetPayment(ctx context.Context, externalID string, tpp domain.TppInfo) (*domain.Payment, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:       ports.EventGetPaymentReceived,
		ResourceID: externalID,
		TppNumber:  tpp.AuthorisationNumber,
	})

	payment, errHolder := s.loadPayment(ctx, externalID, tpp, OpPaymentRead)
	if errHolder != nil {
		return nil, errHolder
	}
	if !payment.IsRaw() {
		return payment, nil
	}

	cont, errHolder := s.getContinuation(ctx, payment.ID)
	if errHolder != nil {
		return nil, errHolder
	}
	cd := spi.ContextData{Psu: payment.Psu, Tpp: tpp, RequestID: uuid.New()}
	resp := s.paymentBackend.GetPaymentByID(ctx, cd, payment, cont)
	s.putContinuation(ctx, payment.ID, resp.Continuation)
	if resp.HasError() {
		return nil, TranslateFailure(resp.Failure, domain.ServicePIS)
	}

	refreshed := resp.Payload
	if refreshed.Status != payment.Status && !payment.Status.Finalised() {
		if err := payment.ApplyStatus(refreshed.Status); err == nil {
			if err := s.paymentRepo.UpdatePaymentStatus(ctx, payment.ID, payment.Status); err != nil {
				return nil, s.persistenceError(err)
			}
		}
	}
	refreshed.Status = payment.Status
	return refreshed, nil
}

// GetPaymentStatus reads the transaction status through to the backend and
// synchronises the local view with the confirmed answer. A finalised local
// status is never overwritten.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, externalID string, tpp domain.TppInfo) (domain.TransactionStatus, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:       ports.EventGetTransactionStatusReceived,
		ResourceID: externalID,
		TppNumber:  tpp.AuthorisationNumber,
	})

	payment, errHolder := s.loadPayment(ctx, externalID, tpp, OpPaymentRead)
	if errHolder != nil {
		return "", errHolder
	}

	cont, errHolder := s.getContinuation(ctx, payment.ID)
	if errHolder != nil {
		return "", errHolder
	}
	cd := spi.ContextData{Psu: payment.Psu, Tpp: tpp, RequestID: uuid.New()}
	resp := s.paymentBackend.GetPaymentStatusByID(ctx, cd, payment, cont)
	s.putContinuation(ctx, payment.ID, resp.Continuation)
	if resp.HasError() {
		return "", TranslateFailure(resp.Failure, domain.ServicePIS)
	}

	status := resp.Payload
	if status == "" {
		return "", domain.NewErrorHolder(domain.ServicePIS, http.StatusForbidden,
			domain.CodeResourceUnknown403, "backend reported no status")
	}

	if status != payment.Status {
		if payment.Status.Finalised() {
			return "", domain.NewErrorHolder(domain.ServicePIS, http.StatusBadRequest,
				domain.CodeFormatError, "payment is finalised already, status cannot change")
		}
		if err := payment.ApplyStatus(status); err != nil {
			return "", domain.NewErrorHolder(domain.ServicePIS, http.StatusBadRequest,
				domain.CodeFormatError, err.Error())
		}
		if err := s.paymentRepo.UpdatePaymentStatus(ctx, payment.ID, payment.Status); err != nil {
			return "", s.persistenceError(err)
		}
	}
	return payment.Status, nil
}

// CancelPaymentRequest is a cancellation attempt for an existing payment.
type CancelPaymentRequest struct {
	PaymentExternalID              string
	Psu                            domain.PsuData
	Tpp                            domain.TppInfo
	ExplicitAuthorisationPreferred bool
	TppRedirectPreferred           *bool
	TppRedirectURI                 string
}

// CancelPayment drives the cancellation ladder: already-CANC returns success
// idempotently, other finalised statuses are blocked, RCVD payments cancel
// directly, and everything else initiates a cancellation at the backend and
// starts an authorisation when the deployment or the backend requires SCA.
func (s *PaymentService) CancelPayment(ctx context.Context, req CancelPaymentRequest) (*CancelResult, *domain.ErrorHolder) {
	s.events.Record(ctx, ports.Event{
		Type:       ports.EventPaymentCancellationReceived,
		ResourceID: req.PaymentExternalID,
		TppNumber:  req.Tpp.AuthorisationNumber,
		PsuID:      req.Psu.ID,
	})

	payment, errHolder := s.loadPayment(ctx, req.PaymentExternalID, req.Tpp, OpPaymentCancellation)
	if errHolder != nil {
		return nil, errHolder
	}

	// Idempotence: a cancelled payment cancels to the same outcome without
	// another backend call.
	if payment.Status == domain.TransactionCANC {
		return &CancelResult{TransactionStatus: domain.TransactionCANC}, nil
	}
	if payment.Status.Finalised() {
		return nil, domain.NewErrorHolder(domain.ServicePISCanc, http.StatusBadRequest,
			domain.CodeResourceBlocked, "payment is finalised already and cannot be cancelled")
	}

	cont, errHolder := s.getContinuation(ctx, payment.ID)
	if errHolder != nil {
		return nil, errHolder
	}
	cd := spi.ContextData{Psu: req.Psu, Tpp: req.Tpp, RequestID: uuid.New()}

	if payment.Status == domain.TransactionRCVD {
		return s.cancelWithoutSca(ctx, cd, payment, cont)
	}

	resp := s.paymentBackend.InitiatePaymentCancellation(ctx, cd, payment, cont)
	s.putContinuation(ctx, payment.ID, resp.Continuation)
	if resp.HasError() {
		return nil, TranslateFailure(resp.Failure, domain.ServicePISCanc)
	}
	if len(resp.Continuation) > 0 {
		cont = resp.Continuation
	}

	// The backend may insist on SCA for this cancellation even when the
	// deployment profile does not mandate it.
	if !s.settings.CancellationScaMandated && !resp.Payload.ScaRequired {
		return s.cancelWithoutSca(ctx, cd, payment, cont)
	}

	payment.CancellationInitiated = true
	payment.CancellationRedirectURI = req.TppRedirectURI
	payment.CancellationInternalRequestID = uuid.New().String()
	if err := s.paymentRepo.UpdatePayment(ctx, payment); err != nil {
		return nil, s.persistenceError(err)
	}

	result := &CancelResult{
		TransactionStatus: payment.Status,
		RedirectURI:       payment.CancellationRedirectURI,
		InternalRequestID: payment.CancellationInternalRequestID,
	}

	// Cancellation authorisations are never multilevel.
	if !req.ExplicitAuthorisationPreferred {
		stepResult, errHolder := s.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
			ParentID: payment.ID,
			Kind:     domain.ParentPaymentCancellation,
			Psu:      req.Psu,
			Tpp:      req.Tpp,
			Hints:    ApproachHints{TppRedirectPreferred: req.TppRedirectPreferred},
		})
		if errHolder != nil {
			return nil, errHolder
		}
		result.AuthorisationID = stepResult.AuthorisationID
		result.ScaStatus = stepResult.ScaStatus
		if stepResult.RedirectURI != "" {
			result.RedirectURI = stepResult.RedirectURI
		}
	}

	return result, nil
}

func (s *PaymentService) cancelWithoutSca(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) (*CancelResult, *domain.ErrorHolder) {
	resp := s.paymentBackend.CancelPaymentWithoutSca(ctx, cd, payment, cont)
	s.putContinuation(ctx, payment.ID, resp.Continuation)
	if resp.HasError() {
		return nil, TranslateFailure(resp.Failure, domain.ServicePISCanc)
	}

	if err := payment.ApplyStatus(domain.TransactionCANC); err != nil {
		return nil, domain.NewErrorHolder(domain.ServicePISCanc, http.StatusBadRequest,
			domain.CodeFormatError, err.Error())
	}
	payment.CancelledFinalised = true
	if err := s.paymentRepo.UpdatePayment(ctx, payment); err != nil {
		return nil, s.persistenceError(err)
	}
	return &CancelResult{TransactionStatus: domain.TransactionCANC}, nil
}

// VerifyExecution runs the backend SCA verification for an initiation
// authorisation and applies the backend-confirmed transaction status. Called
// by the authorisation state machine.
func (s *PaymentService) VerifyExecution(ctx context.Context, cd spi.ContextData, paymentID uuid.UUID, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	payment, err := s.paymentRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return spi.Fail[spi.ExecutionPayload](
			spi.NewFailure(spi.LogicalFailure, domain.CodeResourceUnknown403, "unknown payment"), cont)
	}
	resp := s.paymentBackend.VerifyScaAndExecutePayment(ctx, cd, payment, proof, cont)
	s.putContinuation(ctx, paymentID, resp.Continuation)
	if resp.HasError() {
		return resp
	}
	if status := resp.Payload.TransactionStatus; status != "" {
		if err := payment.ApplyStatus(status); err != nil {
			return spi.Fail[spi.ExecutionPayload](
				spi.NewFailure(spi.LogicalFailure, domain.CodeStatusInvalid, err.Error()), resp.Continuation)
		}
		if err := s.paymentRepo.UpdatePayment(ctx, payment); err != nil {
			return spi.Fail[spi.ExecutionPayload](
				spi.NewFailure(spi.TechnicalFailure, "", "persisting payment status"), resp.Continuation)
		}
	}
	return resp
}

// VerifyCancellation runs the backend SCA verification for a cancellation
// authorisation. Called by the authorisation state machine.
func (s *PaymentService) VerifyCancellation(ctx context.Context, cd spi.ContextData, paymentID uuid.UUID, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	payment, err := s.paymentRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return spi.Fail[spi.ExecutionPayload](
			spi.NewFailure(spi.LogicalFailure, domain.CodeResourceUnknown403, "unknown payment"), cont)
	}
	resp := s.paymentBackend.VerifyScaAndCancelPayment(ctx, cd, payment, proof, cont)
	s.putContinuation(ctx, paymentID, resp.Continuation)
	return resp
}

// PaymentAuthorised reacts to an authorisation reaching a successful terminal
// state. For a cancellation the payment moves to CANC; for an initiation that
// concluded without backend verification (SCA exemption) the payment is
// executed now.
func (s *PaymentService) PaymentAuthorised(ctx context.Context, paymentID uuid.UUID, kind domain.AuthorisationParent) *domain.ErrorHolder {
	payment, err := s.paymentRepo.GetPayment(ctx, paymentID)
	if err != nil {
		return s.persistenceError(err)
	}

	if kind == domain.ParentPaymentCancellation {
		if payment.Status == domain.TransactionCANC {
			return nil
		}
		if err := payment.ApplyStatus(domain.TransactionCANC); err != nil {
			return domain.NewErrorHolder(domain.ServicePISCanc, http.StatusBadRequest,
				domain.CodeFormatError, err.Error())
		}
		payment.CancellationInitiated = false
		if err := s.paymentRepo.UpdatePayment(ctx, payment); err != nil {
			return s.persistenceError(err)
		}
		s.logger.Info("payment cancelled after SCA", "payment_id", paymentID.String())
		return nil
	}

	// Initiation. The verified path has already written the backend-confirmed
	// status; only an exempted authorisation leaves the payment in RCVD.
	if payment.Status != domain.TransactionRCVD {
		return nil
	}
	cont, errHolder := s.getContinuation(ctx, payment.ID)
	if errHolder != nil {
		return errHolder
	}
	cd := spi.ContextData{Psu: payment.Psu, Tpp: payment.Tpp}
	resp := s.paymentBackend.ExecutePaymentWithoutSca(ctx, cd, payment, cont)
	s.putContinuation(ctx, payment.ID, resp.Continuation)
	if resp.HasError() {
		return TranslateFailure(resp.Failure, domain.ServicePIS)
	}
	if err := payment.ApplyStatus(resp.Payload); err != nil {
		return domain.NewErrorHolder(domain.ServicePIS, http.StatusBadRequest,
			domain.CodeStatusInvalid, err.Error())
	}
	if err := s.paymentRepo.UpdatePayment(ctx, payment); err != nil {
		return s.persistenceError(err)
	}
	s.logger.Info("payment executed after SCA exemption", "payment_id", paymentID.String())
	return nil
}

func (s *PaymentService) loadPayment(ctx context.Context, externalID string, tpp domain.TppInfo, op Operation) (*domain.Payment, *domain.ErrorHolder) {
	service := domain.ServicePIS
	if op == OpPaymentCancellation {
		service = domain.ServicePISCanc
	}

	id, err := s.codec.Decode(externalID)
	if err != nil {
		return nil, domain.NewErrorHolder(service, http.StatusForbidden,
			domain.CodeResourceUnknown403, "malformed payment id")
	}
	payment, err := s.paymentRepo.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil, domain.NewErrorHolder(service, http.StatusForbidden,
				domain.CodeResourceUnknown403, "unknown payment")
		}
		return nil, s.persistenceError(err)
	}

	opCtx := &OperationContext{
		Operation: op,
		Service:   service,
		Tpp:       tpp,
		Payment:   payment,
	}
	if result := s.pipeline.Run(opCtx); !result.Valid() {
		return nil, result.Error
	}
	return payment, nil
}

func (s *PaymentService) getContinuation(ctx context.Context, id uuid.UUID) (spi.ContinuationData, *domain.ErrorHolder) {
	cont, err := s.continuations.Get(ctx, id)
	if err != nil {
		return nil, s.persistenceError(err)
	}
	return cont, nil
}

func (s *PaymentService) putContinuation(ctx context.Context, id uuid.UUID, data spi.ContinuationData) {
	if len(data) == 0 {
		return
	}
	if err := s.continuations.Put(ctx, id, data); err != nil {
		s.logger.Error("failed to store continuation data", "resource_id", id.String(), "error", err)
	}
}

func (s *PaymentService) persistenceError(err error) *domain.ErrorHolder {
	s.logger.Error("persistence failure", "error", err)
	return domain.NewErrorHolder(domain.ServicePIS, http.StatusInternalServerError,
		domain.CodeInternalServerError, "persistence failure")
}
