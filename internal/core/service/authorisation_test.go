package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

var (
	testPsu = domain.PsuData{ID: "psu-1"}
	testTpp = domain.TppInfo{AuthorisationNumber: "PSDDE-BAFIN-000001", Name: "Test TPP"}
)

func seedPayment(t *testing.T, env *testEnv, status domain.TransactionStatus) *domain.Payment {
	t.Helper()
	payment := &domain.Payment{
		ID:              uuid.New(),
		Product:         "sepa-credit-transfers",
		Type:            domain.PaymentSingle,
		CreditorName:    "Merchant GmbH",
		CreditorAccount: domain.AccountReference{IBAN: "DE02120300000000202051"},
		DebtorAccount:   domain.AccountReference{IBAN: "DE40100100100000012345"},
		Amount:          domain.Amount{Currency: "EUR", Value: "100.00"},
		Status:          status,
		Psu:             testPsu,
		Tpp:             testTpp,
	}
	payment.ExternalID = payment.ID.String()
	if err := env.paymentRepo.CreatePayment(context.Background(), payment); err != nil {
		t.Fatalf("seeding payment: %v", err)
	}
	return payment
}

func mustAdvance(t *testing.T, env *testEnv, authID uuid.UUID, input *AuthorisationInput) *AuthorisationStepResult {
	t.Helper()
	result, errHolder := env.authorisations.Advance(context.Background(), authID, testTpp, input)
	if errHolder != nil {
		t.Fatalf("advance failed: %v", errHolder)
	}
	return result
}

func TestAuthorisation_EmbeddedFlowToFinalised(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, errHolder := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID,
		Kind:     domain.ParentPaymentInitiation,
		Psu:      testPsu,
		Tpp:      testTpp,
	})
	if errHolder != nil {
		t.Fatalf("start authorisation: %v", errHolder)
	}
	if start.ScaStatus != domain.ScaPsuIdentified {
		t.Fatalf("expected psuIdentified after start with PSU, got %s", start.ScaStatus)
	}
	authID := uuid.MustParse(start.AuthorisationID)

	// Password step: authenticate and receive the SCA methods.
	step := mustAdvance(t, env, authID, &AuthorisationInput{Psu: &testPsu, Password: "secret"})
	if step.ScaStatus != domain.ScaPsuAuthenticated {
		t.Fatalf("expected psuAuthenticated, got %s", step.ScaStatus)
	}
	if len(step.AvailableMethods) != 2 {
		t.Fatalf("expected 2 SCA methods, got %d", len(step.AvailableMethods))
	}

	// Method selection triggers the challenge.
	step = mustAdvance(t, env, authID, &AuthorisationInput{MethodID: "sms-otp"})
	if step.ScaStatus != domain.ScaMethodSelected {
		t.Fatalf("expected scaMethodSelected, got %s", step.ScaStatus)
	}
	if step.Challenge == nil {
		t.Fatal("expected a challenge with the selected method")
	}

	// OTP verifies against the backend and executes the payment.
	step = mustAdvance(t, env, authID, &AuthorisationInput{ScaAuthenticationData: "555000"})
	if step.ScaStatus != domain.ScaFinalised {
		t.Fatalf("expected finalised, got %s", step.ScaStatus)
	}

	stored, err := env.paymentRepo.GetPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("reading payment back: %v", err)
	}
	if stored.Status != domain.TransactionACTC {
		t.Fatalf("expected payment ACTC after execution, got %s", stored.Status)
	}
}

func TestAuthorisation_SoleMethodAutoSelected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	env.backend.RequestAvailableScaMethodsFn = func(ctx context.Context, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
		return spi.Ok([]domain.AuthMethod{{ID: "push-otp", Type: "PUSH_OTP"}}, cont)
	}
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, errHolder := env.authorisations.StartAuthorisation(context.Background(), StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("start authorisation: %v", errHolder)
	}

	step := mustAdvance(t, env, uuid.MustParse(start.AuthorisationID), &AuthorisationInput{Psu: &testPsu, Password: "secret"})
	if step.ScaStatus != domain.ScaMethodSelected {
		t.Fatalf("expected the single method auto-selected, got %s", step.ScaStatus)
	}
	if step.ChosenMethodID != "push-otp" {
		t.Fatalf("expected push-otp chosen, got %q", step.ChosenMethodID)
	}
}

func TestAuthorisation_TerminalIsImmutable(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionACTC)

	auth := domain.NewAuthorisation(payment.ID, domain.ParentPaymentInitiation, testPsu, domain.ApproachEmbedded)
	auth.Status = domain.ScaFinalised
	if err := env.authRepo.CreateAuthorisation(ctx, auth); err != nil {
		t.Fatalf("seeding authorisation: %v", err)
	}

	_, errHolder := env.authorisations.Advance(ctx, auth.ID, testTpp, &AuthorisationInput{ConfirmationCode: "1234"})
	if errHolder == nil {
		t.Fatal("expected an error advancing a finalised authorisation")
	}
	if errHolder.Code != domain.CodeStatusInvalid {
		t.Errorf("expected STATUS_INVALID, got %s", errHolder.Code)
	}
	if errHolder.Type.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", errHolder.Type.HTTPStatus)
	}
}

func TestAuthorisation_SecondNonTerminalRejected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	req := StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	}
	if _, errHolder := env.authorisations.StartAuthorisation(ctx, req); errHolder != nil {
		t.Fatalf("first start: %v", errHolder)
	}
	_, errHolder := env.authorisations.StartAuthorisation(ctx, req)
	if errHolder == nil {
		t.Fatal("expected the second authorisation for the same PSU to be rejected")
	}
	if errHolder.Code != domain.CodeStatusInvalid {
		t.Errorf("expected STATUS_INVALID, got %s", errHolder.Code)
	}
}

func TestAuthorisation_PsuCredentialsRejected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	env.backend.AuthorisePsuFn = func(ctx context.Context, cd spi.ContextData, psu domain.PsuData, password string, cont spi.ContinuationData) spi.Response[spi.PsuAuthorisationPayload] {
		return spi.Ok(spi.PsuAuthorisationPayload{Status: spi.PsuAuthorisationFailure}, cont)
	}
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, _ := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	authID := uuid.MustParse(start.AuthorisationID)

	_, errHolder := env.authorisations.Advance(ctx, authID, testTpp, &AuthorisationInput{Psu: &testPsu, Password: "wrong"})
	if errHolder == nil {
		t.Fatal("expected credential failure")
	}
	if errHolder.Code != domain.CodePsuCredentialsInvalid || errHolder.Type.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("expected PSU_CREDENTIALS_INVALID 401, got %s %d", errHolder.Code, errHolder.Type.HTTPStatus)
	}

	stored, _ := env.authRepo.GetAuthorisation(ctx, authID)
	if stored.Status != domain.ScaFailed {
		t.Errorf("expected authorisation failed, got %s", stored.Status)
	}
}

func TestAuthorisation_AttemptFailureKeepsStatus(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	env.backend.AuthorisePsuFn = func(ctx context.Context, cd spi.ContextData, psu domain.PsuData, password string, cont spi.ContinuationData) spi.Response[spi.PsuAuthorisationPayload] {
		return spi.Ok(spi.PsuAuthorisationPayload{Status: spi.PsuAuthorisationAttemptFailure}, cont)
	}
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, _ := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	authID := uuid.MustParse(start.AuthorisationID)

	_, errHolder := env.authorisations.Advance(ctx, authID, testTpp, &AuthorisationInput{Psu: &testPsu, Password: "typo"})
	if errHolder == nil || errHolder.Type.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", errHolder)
	}

	// Attempts remain, so the authorisation is still advanceable.
	stored, _ := env.authRepo.GetAuthorisation(ctx, authID)
	if stored.Status != domain.ScaPsuIdentified {
		t.Errorf("expected psuIdentified kept, got %s", stored.Status)
	}
}

func TestAuthorisation_ExemptionExecutesPayment(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	env.backend.AuthorisePsuFn = func(ctx context.Context, cd spi.ContextData, psu domain.PsuData, password string, cont spi.ContinuationData) spi.Response[spi.PsuAuthorisationPayload] {
		return spi.Ok(spi.PsuAuthorisationPayload{Status: spi.PsuAuthorisationSuccess, ScaExempted: true}, cont)
	}
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, _ := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	authID := uuid.MustParse(start.AuthorisationID)

	step := mustAdvance(t, env, authID, &AuthorisationInput{Psu: &testPsu, Password: "secret"})
	if step.ScaStatus != domain.ScaExempted {
		t.Fatalf("expected exempted, got %s", step.ScaStatus)
	}

	stored, _ := env.paymentRepo.GetPayment(ctx, payment.ID)
	if stored.Status != domain.TransactionACTC {
		t.Errorf("expected exempted payment executed to ACTC, got %s", stored.Status)
	}
}

func TestAuthorisation_NilInputRejected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, errHolder := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("start authorisation: %v", errHolder)
	}
	authID := uuid.MustParse(start.AuthorisationID)

	_, errHolder = env.authorisations.Advance(ctx, authID, testTpp, nil)
	if errHolder == nil || errHolder.Code != domain.CodeFormatError {
		t.Fatalf("expected FORMAT_ERROR for a missing body, got %v", errHolder)
	}
}

func TestAuthorisation_StartAssociatesPsuWithMultilevelConsent(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	consent := seedConsent(t, env, domain.ConsentReceived, true)
	psu2 := domain.PsuData{ID: "psu-2"}

	_, errHolder := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: consent.ID, Kind: domain.ParentConsent, Psu: psu2, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("start authorisation: %v", errHolder)
	}

	stored, err := env.consentRepo.GetConsent(ctx, consent.ID)
	if err != nil {
		t.Fatalf("reading consent back: %v", err)
	}
	if !stored.HasPsu(psu2) {
		t.Error("a starting PSU must be associated with the consent")
	}
	if len(stored.Psus) != 2 {
		t.Errorf("expected 2 associated PSUs, got %d", len(stored.Psus))
	}
}

func TestAuthorisation_RedirectConfirmationCheckedByBackend(t *testing.T) {
	env := newTestEnv(ScaSettings{RedirectURLTemplate: "https://bank.example/sca/%s"}, "REDIRECT")
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	var checked bool
	env.backend.CheckConfirmationCodeFn = func(ctx context.Context, cd spi.ContextData, authorisationID, code string, cont spi.ContinuationData) spi.Response[spi.ConfirmationCodeResult] {
		checked = true
		return spi.Ok(spi.ConfirmationCodeResult{
			ScaStatus:         domain.ScaFinalised,
			TransactionStatus: domain.TransactionACTC,
		}, cont)
	}

	start, errHolder := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("start authorisation: %v", errHolder)
	}
	if start.ScaStatus != domain.ScaStarted {
		t.Fatalf("expected started for redirect, got %s", start.ScaStatus)
	}
	if start.RedirectURI == "" {
		t.Fatal("expected a redirect link")
	}
	authID := uuid.MustParse(start.AuthorisationID)

	step := mustAdvance(t, env, authID, &AuthorisationInput{ConfirmationCode: "314159"})
	if step.ScaStatus != domain.ScaFinalised {
		t.Fatalf("expected finalised, got %s", step.ScaStatus)
	}
	if !checked {
		t.Error("redirect confirmation codes must be checked by the backend")
	}
}

func TestAuthorisation_ConfirmationCodeAccepted(t *testing.T) {
	env := newTestEnv(ScaSettings{ConfirmationMandated: true})
	env.backend.VerifyScaAndExecutePaymentFn = func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
		return spi.Ok(spi.ExecutionPayload{TransactionStatus: domain.TransactionACTC, ConfirmationCode: "314159"}, cont)
	}
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, _ := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	authID := uuid.MustParse(start.AuthorisationID)

	mustAdvance(t, env, authID, &AuthorisationInput{Psu: &testPsu, Password: "secret"})
	mustAdvance(t, env, authID, &AuthorisationInput{MethodID: "sms-otp"})
	step := mustAdvance(t, env, authID, &AuthorisationInput{ScaAuthenticationData: "555000"})
	if step.ScaStatus != domain.ScaStarted {
		t.Fatalf("expected started while confirmation pending, got %s", step.ScaStatus)
	}

	step = mustAdvance(t, env, authID, &AuthorisationInput{ConfirmationCode: "314159"})
	if step.ScaStatus != domain.ScaFinalised {
		t.Fatalf("expected finalised after confirmation, got %s", step.ScaStatus)
	}
}

func TestAuthorisation_WrongConfirmationCodeFailsOnce(t *testing.T) {
	env := newTestEnv(ScaSettings{ConfirmationMandated: true})
	env.backend.VerifyScaAndExecutePaymentFn = func(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
		return spi.Ok(spi.ExecutionPayload{TransactionStatus: domain.TransactionACTC, ConfirmationCode: "314159"}, cont)
	}
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, _ := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	authID := uuid.MustParse(start.AuthorisationID)

	mustAdvance(t, env, authID, &AuthorisationInput{Psu: &testPsu, Password: "secret"})
	mustAdvance(t, env, authID, &AuthorisationInput{MethodID: "sms-otp"})
	mustAdvance(t, env, authID, &AuthorisationInput{ScaAuthenticationData: "555000"})

	_, errHolder := env.authorisations.Advance(ctx, authID, testTpp, &AuthorisationInput{ConfirmationCode: "000000"})
	if errHolder == nil || errHolder.Type.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 on wrong confirmation code, got %v", errHolder)
	}

	stored, _ := env.authRepo.GetAuthorisation(ctx, authID)
	if stored.Status != domain.ScaFailed {
		t.Fatalf("expected failed after wrong code, got %s", stored.Status)
	}

	// No second chance.
	_, errHolder = env.authorisations.Advance(ctx, authID, testTpp, &AuthorisationInput{ConfirmationCode: "314159"})
	if errHolder == nil || errHolder.Code != domain.CodeStatusInvalid {
		t.Fatalf("expected STATUS_INVALID on retry, got %v", errHolder)
	}
}

func TestAuthorisation_CancellationFinaliseCancelsPayment(t *testing.T) {
	env := newTestEnv(ScaSettings{CancellationScaMandated: true})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionACTC)

	start, errHolder := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentCancellation, Psu: testPsu, Tpp: testTpp,
	})
	if errHolder != nil {
		t.Fatalf("start cancellation authorisation: %v", errHolder)
	}
	authID := uuid.MustParse(start.AuthorisationID)

	mustAdvance(t, env, authID, &AuthorisationInput{Psu: &testPsu, Password: "secret"})
	mustAdvance(t, env, authID, &AuthorisationInput{MethodID: "sms-otp"})
	step := mustAdvance(t, env, authID, &AuthorisationInput{ScaAuthenticationData: "555000"})
	if step.ScaStatus != domain.ScaFinalised {
		t.Fatalf("expected finalised, got %s", step.ScaStatus)
	}

	stored, _ := env.paymentRepo.GetPayment(ctx, payment.ID)
	if stored.Status != domain.TransactionCANC {
		t.Errorf("expected payment CANC after cancellation SCA, got %s", stored.Status)
	}
}

func TestAuthorisation_ForeignPsuRejected(t *testing.T) {
	env := newTestEnv(ScaSettings{})
	ctx := context.Background()
	payment := seedPayment(t, env, domain.TransactionRCVD)

	start, _ := env.authorisations.StartAuthorisation(ctx, StartAuthorisationRequest{
		ParentID: payment.ID, Kind: domain.ParentPaymentInitiation, Psu: testPsu, Tpp: testTpp,
	})
	authID := uuid.MustParse(start.AuthorisationID)

	intruder := domain.PsuData{ID: "psu-2"}
	_, errHolder := env.authorisations.Advance(ctx, authID, testTpp, &AuthorisationInput{Psu: &intruder, Password: "secret"})
	if errHolder == nil || errHolder.Code != domain.CodePsuCredentialsInvalid {
		t.Fatalf("expected PSU_CREDENTIALS_INVALID for a foreign PSU, got %v", errHolder)
	}
}
