package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

func initiateRequest() InitiatePaymentRequest {
	return InitiatePaymentRequest{
		Type:            domain.PaymentSingle,
		Product:         "sepa-credit-transfers",
		DebtorAccount:   domain.AccountReference{IBAN: "DE40100100100000012345"},
		CreditorAccount: domain.AccountReference{IBAN: "DE02120300000000202051"},
		CreditorName:    "Merchant GmbH",
		Amount:          domain.Amount{Currency: "EUR", Value: "100.00"},
		Psu:             testPsu,
		Tpp:             testTpp,
	}
}

func TestInitiatePayment_ImplicitAuthorisation(t *testing.T) {
	env := newTestEnv(ScaSettings{})

	result, errHolder := env.payments.InitiatePayment(context.Background(), initiateRequest())
	if errHolder != nil {
		t.Fatalf("initiate payment: %v", errHolder)
	}
	if result.TransactionStatus != domain.TransactionRCVD {
		t.Errorf("expected RCVD, got %s", result.TransactionStatus)
	}
	if result.AuthorisationID == "" {
		t.Error("expected an implicitly started authorisation")
	}
	if result.ScaStatus != domain.ScaPsuIdentified {
		t.Errorf("expected psuIdentified, got %s", result.ScaStatus)
	}
}

func TestInitiatePayment_NoPsuStartsAuthorisationReceived(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	req := initiateRequest()
	req.Psu = domain.PsuData{}

	result, errHolder := env.payments.InitiatePayment(context.Background(), req)
	if errHolder != nil {
		t.Fatalf("initiate payment: %v", errHolder)
	}
	if result.AuthorisationID == "" {
		t.Fatal("expected an implicitly started authorisation")
	}
	if result.ScaStatus != domain.ScaReceived {
		t.Errorf("expected received without PSU identification, got %s", result.ScaStatus)
	}
}

func TestInitiatePayment_MalformedRequestRejected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	var initiated bool
	env.backend.InitiatePaymentFn = func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.PaymentInitiationPayload] {
		initiated = true
		return spi.Ok(spi.PaymentInitiationPayload{TransactionStatus: domain.TransactionRCVD}, nil)
	}

	req := initiateRequest()
	req.Amount = domain.Amount{}

	_, errHolder := env.payments.InitiatePayment(context.Background(), req)
	if errHolder == nil || errHolder.Code != domain.CodeFormatError {
		t.Fatalf("expected FORMAT_ERROR for a payment without amount, got %v", errHolder)
	}
	if initiated {
		t.Error("backend must not see a malformed initiation")
	}
}

func TestInitiatePayment_MultilevelSkipsImplicitStart(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	env.backend.InitiatePaymentFn = func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.PaymentInitiationPayload] {
		return spi.Ok(spi.PaymentInitiationPayload{
			TransactionStatus:     domain.TransactionRCVD,
			MultilevelScaRequired: true,
		}, nil)
	}

	result, errHolder := env.payments.InitiatePayment(context.Background(), initiateRequest())
	if errHolder != nil {
		t.Fatalf("initiate payment: %v", errHolder)
	}
	if result.AuthorisationID != "" {
		t.Error("multilevel payments must not start an authorisation implicitly")
	}
}

func TestInitiatePayment_ExplicitPreferenceSkipsImplicitStart(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	req := initiateRequest()
	req.ExplicitAuthorisationPreferred = true

	result, errHolder := env.payments.InitiatePayment(context.Background(), req)
	if errHolder != nil {
		t.Fatalf("initiate payment: %v", errHolder)
	}
	if result.AuthorisationID != "" {
		t.Error("expected no implicit authorisation with explicit preference")
	}
}

func TestInitiatePayment_BackendFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	env.backend.InitiatePaymentFn = func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.PaymentInitiationPayload] {
		return spi.Fail[spi.PaymentInitiationPayload](
			spi.NewFailure(spi.LogicalFailure, domain.CodeFormatError, "invalid creditor"), nil)
	}
	var created bool
	env.paymentRepo.CreatePaymentFn = func(ctx context.Context, payment *domain.Payment) error {
		created = true
		return nil
	}

	_, errHolder := env.payments.InitiatePayment(context.Background(), initiateRequest())
	if errHolder == nil {
		t.Fatal("expected initiation failure")
	}
	if errHolder.Code != domain.CodeFormatError || errHolder.Type.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected FORMAT_ERROR 400, got %s %d", errHolder.Code, errHolder.Type.HTTPStatus)
	}
	if created {
		t.Error("nothing may be persisted when the backend rejects the initiation")
	}
}

func TestGetPaymentStatus_ReadThroughSynchronises(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionACTC)
	env.backend.GetPaymentStatusByIDFn = func(ctx context.Context, cd spi.ContextData, p *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
		return spi.Ok(domain.TransactionACSC, cont)
	}

	status, errHolder := env.payments.GetPaymentStatus(ctx, payment.ID.String(), testTpp)
	if errHolder != nil {
		t.Fatalf("get status: %v", errHolder)
	}
	if status != domain.TransactionACSC {
		t.Errorf("expected ACSC, got %s", status)
	}

	stored, _ := env.paymentRepo.GetPayment(ctx, payment.ID)
	if stored.Status != domain.TransactionACSC {
		t.Errorf("expected local status synchronised to ACSC, got %s", stored.Status)
	}
}

func TestGetPaymentStatus_FinalisedNeverOverwritten(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	payment := seedPayment(t, env, domain.TransactionACSC)
	env.backend.GetPaymentStatusByIDFn = func(ctx context.Context, cd spi.ContextData, p *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
		return spi.Ok(domain.TransactionRJCT, cont)
	}

	_, errHolder := env.payments.GetPaymentStatus(context.Background(), payment.ID.String(), testTpp)
	if errHolder == nil {
		t.Fatal("expected an error when the backend contradicts a finalised status")
	}
	if errHolder.Code != domain.CodeFormatError {
		t.Errorf("expected FORMAT_ERROR, got %s", errHolder.Code)
	}
}

func TestGetPayment_ForeignTppRejected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	payment := seedPayment(t, env, domain.TransactionRCVD)

	other := domain.TppInfo{AuthorisationNumber: "PSDDE-BAFIN-999999"}
	_, errHolder := env.payments.GetPayment(context.Background(), payment.ID.String(), other)
	if errHolder == nil || errHolder.Code != domain.CodeResourceUnknown403 {
		t.Fatalf("expected RESOURCE_UNKNOWN_403 for a foreign TPP, got %v", errHolder)
	}
}

func TestCancelPayment_IdempotentOnCancelled(t *testing.T) {
	env := newTestEnv(ScaSettings{CancellationScaMandated: true})
	payment := seedPayment(t, env, domain.TransactionCANC)
	var backendCalled bool
	env.backend.CancelPaymentWithoutScaFn = func(ctx context.Context, cd spi.ContextData, p *domain.Payment, cont spi.ContinuationData) spi.Response[spi.Void] {
		backendCalled = true
		return spi.Ok(spi.Void{}, cont)
	}

	result, errHolder := env.payments.CancelPayment(context.Background(), CancelPaymentRequest{
		PaymentExternalID: payment.ID.String(), Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("cancel: %v", errHolder)
	}
	if result.TransactionStatus != domain.TransactionCANC {
		t.Errorf("expected CANC, got %s", result.TransactionStatus)
	}
	if backendCalled {
		t.Error("cancelling a cancelled payment must not call the backend")
	}
}

func TestCancelPayment_FinalisedBlocked(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	payment := seedPayment(t, env, domain.TransactionACSC)

	_, errHolder := env.payments.CancelPayment(context.Background(), CancelPaymentRequest{
		PaymentExternalID: payment.ID.String(), Psu: testPsu, Tpp: testTpp,
	})
	if errHolder == nil || errHolder.Code != domain.CodeResourceBlocked {
		t.Fatalf("expected RESOURCE_BLOCKED, got %v", errHolder)
	}
}

func TestCancelPayment_ReceivedCancelsDirectly(t *testing.T) {
	env := newTestEnv(ScaSettings{CancellationScaMandated: true})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	result, errHolder := env.payments.CancelPayment(ctx, CancelPaymentRequest{
		PaymentExternalID: payment.ID.String(), Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("cancel: %v", errHolder)
	}
	if result.TransactionStatus != domain.TransactionCANC {
		t.Errorf("expected CANC, got %s", result.TransactionStatus)
	}

	stored, _ := env.paymentRepo.GetPayment(ctx, payment.ID)
	if !stored.CancelledFinalised {
		t.Error("expected the payment marked cancelled without SCA")
	}
}

func TestCancelPayment_ScaMandatedStartsAuthorisation(t *testing.T) {
	env := newTestEnv(ScaSettings{CancellationScaMandated: true})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionACTC)

	result, errHolder := env.payments.CancelPayment(ctx, CancelPaymentRequest{
		PaymentExternalID: payment.ID.String(),
		Psu:               testPsu,
		Tpp:               testTpp,
		TppRedirectURI:    "https://tpp.example/return",
	})
	if errHolder != nil {
		t.Fatalf("cancel: %v", errHolder)
	}
	if result.AuthorisationID == "" {
		t.Error("expected a cancellation authorisation started implicitly")
	}
	if result.InternalRequestID == "" {
		t.Error("expected an internal request id for the cancellation")
	}
	// Status unchanged until the backend confirms the cancellation.
	if result.TransactionStatus != domain.TransactionACTC {
		t.Errorf("expected ACTC kept until SCA completes, got %s", result.TransactionStatus)
	}

	stored, _ := env.paymentRepo.GetPayment(ctx, payment.ID)
	if !stored.CancellationInitiated {
		t.Error("expected cancellation marked in flight")
	}
}

func TestCancelPayment_BackendRequiresSca(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	payment := seedPayment(t, env, domain.TransactionACTC)
	env.backend.InitiatePaymentCancellationFn = func(ctx context.Context, cd spi.ContextData, p *domain.Payment, cont spi.ContinuationData) spi.Response[spi.CancellationPayload] {
		return spi.Ok(spi.CancellationPayload{TransactionStatus: p.Status, ScaRequired: true}, cont)
	}

	result, errHolder := env.payments.CancelPayment(context.Background(), CancelPaymentRequest{
		PaymentExternalID: payment.ExternalID, Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("cancel payment: %v", errHolder)
	}
	if result.AuthorisationID == "" {
		t.Fatal("backend-required SCA must start a cancellation authorisation")
	}

	stored, _ := env.paymentRepo.GetPayment(context.Background(), payment.ID)
	if stored.Status == domain.TransactionCANC {
		t.Error("payment must not cancel before the SCA concluded")
	}
	if !stored.CancellationInitiated {
		t.Error("expected the cancellation marked as initiated")
	}
}

func TestCancelPayment_UnknownPayment(t *testing.T) {
	env := newTestEnv(ScaSettings{})

	_, errHolder := env.payments.CancelPayment(context.Background(), CancelPaymentRequest{
		PaymentExternalID: "not-a-payment", Psu: testPsu, Tpp: testTpp,
	})
	if errHolder == nil || errHolder.Code != domain.CodeResourceUnknown403 {
		t.Fatalf("expected RESOURCE_UNKNOWN_403, got %v", errHolder)
	}
}
