package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/ports"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// MockPaymentRepository
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment

	CreatePaymentFn func(ctx context.Context, payment *domain.Payment) error
	GetPaymentFn    func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	UpdatePaymentFn func(ctx context.Context, payment *domain.Payment) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (m *MockPaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, payment)
	}
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetPaymentFn != nil {
		return m.GetPaymentFn(ctx, id)
	}
	if p, ok := m.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *MockPaymentRepository) UpdatePayment(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdatePaymentFn != nil {
		return m.UpdatePaymentFn(ctx, payment)
	}
	if _, ok := m.payments[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *MockPaymentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

// MockConsentRepository
type MockConsentRepository struct {
	mu       sync.RWMutex
	consents map[uuid.UUID]*domain.Consent

	CreateConsentFn func(ctx context.Context, consent *domain.Consent) error
	GetConsentFn    func(ctx context.Context, id uuid.UUID) (*domain.Consent, error)
	UpdateConsentFn func(ctx context.Context, consent *domain.Consent) error
}

func NewMockConsentRepository() *MockConsentRepository {
	return &MockConsentRepository{consents: make(map[uuid.UUID]*domain.Consent)}
}

func (m *MockConsentRepository) CreateConsent(ctx context.Context, consent *domain.Consent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateConsentFn != nil {
		return m.CreateConsentFn(ctx, consent)
	}
	cp := *consent
	m.consents[consent.ID] = &cp
	return nil
}

func (m *MockConsentRepository) GetConsent(ctx context.Context, id uuid.UUID) (*domain.Consent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetConsentFn != nil {
		return m.GetConsentFn(ctx, id)
	}
	if c, ok := m.consents[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrConsentNotFound
}

func (m *MockConsentRepository) UpdateConsent(ctx context.Context, consent *domain.Consent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateConsentFn != nil {
		return m.UpdateConsentFn(ctx, consent)
	}
	if _, ok := m.consents[consent.ID]; !ok {
		return domain.ErrConsentNotFound
	}
	cp := *consent
	m.consents[consent.ID] = &cp
	return nil
}

func (m *MockConsentRepository) UpdateConsentStatus(ctx context.Context, id uuid.UUID, status domain.ConsentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consents[id]
	if !ok {
		return domain.ErrConsentNotFound
	}
	c.Status = status
	return nil
}

// MockAuthorisationRepository
type MockAuthorisationRepository struct {
	mu    sync.RWMutex
	auths map[uuid.UUID]*domain.Authorisation

	CreateAuthorisationFn func(ctx context.Context, auth *domain.Authorisation) error
	UpdateAuthorisationFn func(ctx context.Context, auth *domain.Authorisation) error
}

func NewMockAuthorisationRepository() *MockAuthorisationRepository {
	return &MockAuthorisationRepository{auths: make(map[uuid.UUID]*domain.Authorisation)}
}

func (m *MockAuthorisationRepository) CreateAuthorisation(ctx context.Context, auth *domain.Authorisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateAuthorisationFn != nil {
		return m.CreateAuthorisationFn(ctx, auth)
	}
	cp := *auth
	m.auths[auth.ID] = &cp
	return nil
}

func (m *MockAuthorisationRepository) GetAuthorisation(ctx context.Context, id uuid.UUID) (*domain.Authorisation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.auths[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrAuthorisationNotFound
}

func (m *MockAuthorisationRepository) GetAuthorisationsByParent(ctx context.Context, parentID uuid.UUID, kind domain.AuthorisationParent) ([]*domain.Authorisation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Authorisation
	for _, a := range m.auths {
		if a.ParentID == parentID && a.ParentKind == kind {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockAuthorisationRepository) UpdateAuthorisation(ctx context.Context, auth *domain.Authorisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateAuthorisationFn != nil {
		return m.UpdateAuthorisationFn(ctx, auth)
	}
	if _, ok := m.auths[auth.ID]; !ok {
		return domain.ErrAuthorisationNotFound
	}
	cp := *auth
	m.auths[auth.ID] = &cp
	return nil
}

// MockBackend implements the full backend SPI with overridable call
// functions. Defaults answer a plain happy path.
type MockBackend struct {
	InitiatePaymentFn            func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.PaymentInitiationPayload]
	GetPaymentByIDFn             func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[*domain.Payment]
	GetPaymentStatusByIDFn       func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus]
	ExecutePaymentWithoutScaFn   func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus]
	VerifyScaAndExecutePaymentFn func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]
	InitiatePaymentCancellationFn func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.CancellationPayload]
	CancelPaymentWithoutScaFn    func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.Void]
	VerifyScaAndCancelPaymentFn  func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]

	InitiateConsentFn             func(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[spi.ConsentInitiationPayload]
	GetConsentStatusByIDFn        func(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[domain.ConsentStatus]
	VerifyScaAndActivateConsentFn func(ctx context.Context, cd spi.ContextData, consent *domain.Consent, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload]
	RevokeConsentFn               func(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[spi.Void]
	NotifyConsentDecisionFn       func(ctx context.Context, cd spi.ContextData, consent *domain.Consent, decision spi.ConsentDecision, cont spi.ContinuationData) spi.Response[spi.Void]

	AuthorisePsuFn               func(ctx context.Context, cd spi.ContextData, psu domain.PsuData, password string, cont spi.ContinuationData) spi.Response[spi.PsuAuthorisationPayload]
	RequestAvailableScaMethodsFn func(ctx context.Context, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod]
	RequestAuthorisationCodeFn   func(ctx context.Context, cd spi.ContextData, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge]
	StartScaDecoupledFn          func(ctx context.Context, cd spi.ContextData, authorisationID, methodID string, cont spi.ContinuationData) spi.Response[string]
	CheckConfirmationCodeFn      func(ctx context.Context, cd spi.ContextData, authorisationID, code string, cont spi.ContinuationData) spi.Response[spi.ConfirmationCodeResult]

	NotifiedDecisions []spi.ConsentDecision
}

func (m *MockBackend) InitiatePayment(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.PaymentInitiationPayload] {
	if m.InitiatePaymentFn != nil {
		return m.InitiatePaymentFn(ctx, cd, payment, cont)
	}
	return spi.Ok(spi.PaymentInitiationPayload{
		BackendPaymentID:  "bank-" + payment.ID.String(),
		TransactionStatus: domain.TransactionRCVD,
	}, nil)
}

func (m *MockBackend) GetPaymentByID(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[*domain.Payment] {
	if m.GetPaymentByIDFn != nil {
		return m.GetPaymentByIDFn(ctx, cd, payment, cont)
	}
	return spi.Ok(payment, cont)
}

func (m *MockBackend) GetPaymentStatusByID(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
	if m.GetPaymentStatusByIDFn != nil {
		return m.GetPaymentStatusByIDFn(ctx, cd, payment, cont)
	}
	return spi.Ok(payment.Status, cont)
}

func (m *MockBackend) ExecutePaymentWithoutSca(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
	if m.ExecutePaymentWithoutScaFn != nil {
		return m.ExecutePaymentWithoutScaFn(ctx, cd, payment, cont)
	}
	return spi.Ok(domain.TransactionACTC, cont)
}

func (m *MockBackend) VerifyScaAndExecutePayment(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	if m.VerifyScaAndExecutePaymentFn != nil {
		return m.VerifyScaAndExecutePaymentFn(ctx, cd, payment, proof, cont)
	}
	return spi.Ok(spi.ExecutionPayload{TransactionStatus: domain.TransactionACTC}, cont)
}

func (m *MockBackend) InitiatePaymentCancellation(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.CancellationPayload] {
	if m.InitiatePaymentCancellationFn != nil {
		return m.InitiatePaymentCancellationFn(ctx, cd, payment, cont)
	}
	return spi.Ok(spi.CancellationPayload{TransactionStatus: payment.Status, ScaRequired: false}, cont)
}

func (m *MockBackend) CancelPaymentWithoutSca(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.Void] {
	if m.CancelPaymentWithoutScaFn != nil {
		return m.CancelPaymentWithoutScaFn(ctx, cd, payment, cont)
	}
	return spi.Ok(spi.Void{}, cont)
}

func (m *MockBackend) VerifyScaAndCancelPayment(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	if m.VerifyScaAndCancelPaymentFn != nil {
		return m.VerifyScaAndCancelPaymentFn(ctx, cd, payment, proof, cont)
	}
	return spi.Ok(spi.ExecutionPayload{TransactionStatus: domain.TransactionCANC}, cont)
}

func (m *MockBackend) InitiateConsent(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[spi.ConsentInitiationPayload] {
	if m.InitiateConsentFn != nil {
		return m.InitiateConsentFn(ctx, cd, consent, cont)
	}
	return spi.Ok(spi.ConsentInitiationPayload{
		BackendConsentID: "bank-" + consent.ID.String(),
		ConsentStatus:    domain.ConsentReceived,
	}, nil)
}

func (m *MockBackend) GetConsentStatusByID(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[domain.ConsentStatus] {
	if m.GetConsentStatusByIDFn != nil {
		return m.GetConsentStatusByIDFn(ctx, cd, consent, cont)
	}
	return spi.Ok(consent.Status, cont)
}

func (m *MockBackend) VerifyScaAndActivateConsent(ctx context.Context, cd spi.ContextData, consent *domain.Consent, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	if m.VerifyScaAndActivateConsentFn != nil {
		return m.VerifyScaAndActivateConsentFn(ctx, cd, consent, proof, cont)
	}
	return spi.Ok(spi.ExecutionPayload{}, cont)
}

func (m *MockBackend) RevokeConsent(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[spi.Void] {
	if m.RevokeConsentFn != nil {
		return m.RevokeConsentFn(ctx, cd, consent, cont)
	}
	return spi.Ok(spi.Void{}, cont)
}

func (m *MockBackend) NotifyConsentDecision(ctx context.Context, cd spi.ContextData, consent *domain.Consent, decision spi.ConsentDecision, cont spi.ContinuationData) spi.Response[spi.Void] {
	m.NotifiedDecisions = append(m.NotifiedDecisions, decision)
	if m.NotifyConsentDecisionFn != nil {
		return m.NotifyConsentDecisionFn(ctx, cd, consent, decision, cont)
	}
	return spi.Ok(spi.Void{}, cont)
}

func (m *MockBackend) AuthorisePsu(ctx context.Context, cd spi.ContextData, psu domain.PsuData, password string, cont spi.ContinuationData) spi.Response[spi.PsuAuthorisationPayload] {
	if m.AuthorisePsuFn != nil {
		return m.AuthorisePsuFn(ctx, cd, psu, password, cont)
	}
	return spi.Ok(spi.PsuAuthorisationPayload{Status: spi.PsuAuthorisationSuccess}, cont)
}

func (m *MockBackend) RequestAvailableScaMethods(ctx context.Context, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	if m.RequestAvailableScaMethodsFn != nil {
		return m.RequestAvailableScaMethodsFn(ctx, cd, cont)
	}
	return spi.Ok([]domain.AuthMethod{
		{ID: "sms-otp", Type: "SMS_OTP", Name: "SMS code"},
		{ID: "push-otp", Type: "PUSH_OTP", Name: "App push"},
	}, cont)
}

func (m *MockBackend) RequestAuthorisationCode(ctx context.Context, cd spi.ContextData, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge] {
	if m.RequestAuthorisationCodeFn != nil {
		return m.RequestAuthorisationCodeFn(ctx, cd, methodID, cont)
	}
	return spi.Ok(domain.Challenge{OtpMaxLength: 6, OtpFormat: "integer"}, cont)
}

func (m *MockBackend) StartScaDecoupled(ctx context.Context, cd spi.ContextData, authorisationID, methodID string, cont spi.ContinuationData) spi.Response[string] {
	if m.StartScaDecoupledFn != nil {
		return m.StartScaDecoupledFn(ctx, cd, authorisationID, methodID, cont)
	}
	return spi.Ok("please confirm the operation in your banking app", cont)
}

func (m *MockBackend) CheckConfirmationCode(ctx context.Context, cd spi.ContextData, authorisationID, code string, cont spi.ContinuationData) spi.Response[spi.ConfirmationCodeResult] {
	if m.CheckConfirmationCodeFn != nil {
		return m.CheckConfirmationCodeFn(ctx, cd, authorisationID, code, cont)
	}
	return spi.Ok(spi.ConfirmationCodeResult{ScaStatus: domain.ScaFinalised}, cont)
}

// MemContinuationStore
type MemContinuationStore struct {
	mu   sync.Mutex
	data map[uuid.UUID]spi.ContinuationData
}

func NewMemContinuationStore() *MemContinuationStore {
	return &MemContinuationStore{data: make(map[uuid.UUID]spi.ContinuationData)}
}

func (s *MemContinuationStore) Get(ctx context.Context, resourceID uuid.UUID) (spi.ContinuationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[resourceID], nil
}

func (s *MemContinuationStore) Put(ctx context.Context, resourceID uuid.UUID, data spi.ContinuationData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[resourceID] = data
	return nil
}

// RecordingEvents collects every recorded event.
type RecordingEvents struct {
	mu     sync.Mutex
	Events []ports.Event
}

func (r *RecordingEvents) Record(ctx context.Context, event ports.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	r.Events = append(r.Events, event)
}

// plainCodec exposes the raw uuid as the external id; opacity is not under
// test here.
type plainCodec struct{}

func (plainCodec) Encode(id uuid.UUID) string { return id.String() }

func (plainCodec) Decode(opaque string) (uuid.UUID, error) { return uuid.Parse(opaque) }

// testEnv wires the three orchestrators over mocks.
type testEnv struct {
	paymentRepo *MockPaymentRepository
	consentRepo *MockConsentRepository
	authRepo    *MockAuthorisationRepository
	backend     *MockBackend
	events      *RecordingEvents

	authorisations *AuthorisationService
	payments       *PaymentService
	consents       *ConsentService
}

func newTestEnv(settings ScaSettings, approaches ...string) *testEnv {
	if len(approaches) == 0 {
		approaches = []string{"EMBEDDED", "REDIRECT", "DECOUPLED"}
	}
	resolver, err := NewApproachResolver(approaches)
	if err != nil {
		panic(err)
	}

	env := &testEnv{
		paymentRepo: NewMockPaymentRepository(),
		consentRepo: NewMockConsentRepository(),
		authRepo:    NewMockAuthorisationRepository(),
		backend:     &MockBackend{},
		events:      &RecordingEvents{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewMemContinuationStore()

	env.authorisations = NewAuthorisationService(
		env.authRepo, env.paymentRepo, env.consentRepo,
		env.backend, store, env.events, resolver, settings, logger,
	)
	env.payments = NewPaymentService(
		env.paymentRepo, env.backend, env.authorisations,
		store, env.events, plainCodec{}, settings, logger,
	)
	env.consents = NewConsentService(
		env.consentRepo, env.backend, env.authorisations,
		store, env.events, plainCodec{}, logger,
	)
	env.authorisations.AttachParents(env.payments, env.consents)
	return env
}
