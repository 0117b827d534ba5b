// Package bank implements the backend SPI over the connector's HTTP API.
package bank

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

const continuationHeader = "X-Continuation-Token"

type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *Metrics
}

func NewClient(baseURL string, timeout time.Duration, metrics *Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

func (c *Client) InitiatePayment(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.PaymentInitiationPayload] {
	req := initiatePaymentRequest{
		PaymentID:              payment.ID.String(),
		Product:                payment.Product,
		PaymentType:            string(payment.Type),
		DebtorAccount:          toAccountDTO(payment.DebtorAccount),
		CreditorAccount:        toAccountDTO(payment.CreditorAccount),
		CreditorName:           payment.CreditorName,
		Amount:                 amountDTO{Currency: payment.Amount.Currency, Amount: payment.Amount.Value},
		RequestedExecutionDate: payment.RequestedExecutionDate,
		RawData:                payment.RawData,
	}
	resp, newCont, failure := send[initiatePaymentRequest, initiatePaymentResponse](
		c, ctx, "initiate_payment", http.MethodPost, "/api/v1/payments", cd, &req, cont)
	if failure != nil {
		return spi.Fail[spi.PaymentInitiationPayload](failure, newCont)
	}
	return spi.Ok(spi.PaymentInitiationPayload{
		BackendPaymentID:      resp.BankPaymentID,
		TransactionStatus:     domain.TransactionStatus(resp.TransactionStatus),
		MultilevelScaRequired: resp.MultilevelSca,
		PsuMessage:            resp.PsuMessage,
	}, newCont)
}

func (c *Client) GetPaymentByID(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[*domain.Payment] {
	path := fmt.Sprintf("/api/v1/payments/%s", payment.ID.String())
	resp, newCont, failure := send[any, paymentResponse](
		c, ctx, "get_payment", http.MethodGet, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[*domain.Payment](failure, newCont)
	}

	fresh := *payment
	fresh.Status = domain.TransactionStatus(resp.TransactionStatus)
	fresh.CreditorName = resp.CreditorName
	fresh.Amount = domain.Amount{Currency: resp.Amount.Currency, Value: resp.Amount.Amount}
	fresh.RawData = resp.RawData
	return spi.Ok(&fresh, newCont)
}

func (c *Client) GetPaymentStatusByID(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
	path := fmt.Sprintf("/api/v1/payments/%s/status", payment.ID.String())
	resp, newCont, failure := send[any, transactionStatusResponse](
		c, ctx, "get_payment_status", http.MethodGet, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[domain.TransactionStatus](failure, newCont)
	}
	return spi.Ok(domain.TransactionStatus(resp.TransactionStatus), newCont)
}

func (c *Client) ExecutePaymentWithoutSca(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
	path := fmt.Sprintf("/api/v1/payments/%s/execute", payment.ID.String())
	resp, newCont, failure := send[any, transactionStatusResponse](
		c, ctx, "execute_payment", http.MethodPost, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[domain.TransactionStatus](failure, newCont)
	}
	return spi.Ok(domain.TransactionStatus(resp.TransactionStatus), newCont)
}

func (c *Client) VerifyScaAndExecutePayment(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	path := fmt.Sprintf("/api/v1/payments/%s/verify", payment.ID.String())
	return c.verify(ctx, "verify_payment", path, cd, proof, cont)
}

func (c *Client) InitiatePaymentCancellation(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.CancellationPayload] {
	path := fmt.Sprintf("/api/v1/payments/%s/cancellation", payment.ID.String())
	resp, newCont, failure := send[any, cancellationResponse](
		c, ctx, "initiate_cancellation", http.MethodPost, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[spi.CancellationPayload](failure, newCont)
	}
	return spi.Ok(spi.CancellationPayload{
		TransactionStatus: domain.TransactionStatus(resp.TransactionStatus),
		ScaRequired:       resp.ScaRequired,
	}, newCont)
}

func (c *Client) CancelPaymentWithoutSca(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[spi.Void] {
	path := fmt.Sprintf("/api/v1/payments/%s/cancellation/execute", payment.ID.String())
	_, newCont, failure := send[any, struct{}](
		c, ctx, "cancel_payment", http.MethodPost, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[spi.Void](failure, newCont)
	}
	return spi.Ok(spi.Void{}, newCont)
}

func (c *Client) VerifyScaAndCancelPayment(ctx context.Context, cd spi.ContextData, payment *domain.Payment, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	path := fmt.Sprintf("/api/v1/payments/%s/cancellation/verify", payment.ID.String())
	return c.verify(ctx, "verify_cancellation", path, cd, proof, cont)
}

func (c *Client) InitiateConsent(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[spi.ConsentInitiationPayload] {
	req := initiateConsentRequest{
		ConsentID:       consent.ID.String(),
		ConsentType:     string(consent.Type),
		AllPsd2:         consent.Access.AllPsd2,
		ValidUntil:      consent.ValidUntil,
		Recurring:       consent.Recurring,
		FrequencyPerDay: consent.FrequencyPerDay,
	}
	for _, a := range consent.Access.Accounts {
		req.Accounts = append(req.Accounts, toAccountDTO(a))
	}
	for _, a := range consent.Access.Balances {
		req.Balances = append(req.Balances, toAccountDTO(a))
	}
	for _, a := range consent.Access.Transactions {
		req.Transactions = append(req.Transactions, toAccountDTO(a))
	}

	resp, newCont, failure := send[initiateConsentRequest, initiateConsentResponse](
		c, ctx, "initiate_consent", http.MethodPost, "/api/v1/consents", cd, &req, cont)
	if failure != nil {
		return spi.Fail[spi.ConsentInitiationPayload](failure, newCont)
	}
	return spi.Ok(spi.ConsentInitiationPayload{
		BackendConsentID:      resp.BankConsentID,
		ConsentStatus:         domain.ConsentStatus(resp.ConsentStatus),
		MultilevelScaRequired: resp.MultilevelSca,
	}, newCont)
}

func (c *Client) GetConsentStatusByID(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[domain.ConsentStatus] {
	path := fmt.Sprintf("/api/v1/consents/%s/status", consent.ID.String())
	resp, newCont, failure := send[any, consentStatusResponse](
		c, ctx, "get_consent_status", http.MethodGet, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[domain.ConsentStatus](failure, newCont)
	}
	return spi.Ok(domain.ConsentStatus(resp.ConsentStatus), newCont)
}

func (c *Client) VerifyScaAndActivateConsent(ctx context.Context, cd spi.ContextData, consent *domain.Consent, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	path := fmt.Sprintf("/api/v1/consents/%s/verify", consent.ID.String())
	return c.verify(ctx, "verify_consent", path, cd, proof, cont)
}

func (c *Client) RevokeConsent(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[spi.Void] {
	path := fmt.Sprintf("/api/v1/consents/%s", consent.ID.String())
	_, newCont, failure := send[any, struct{}](
		c, ctx, "revoke_consent", http.MethodDelete, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[spi.Void](failure, newCont)
	}
	return spi.Ok(spi.Void{}, newCont)
}

func (c *Client) NotifyConsentDecision(ctx context.Context, cd spi.ContextData, consent *domain.Consent, decision spi.ConsentDecision, cont spi.ContinuationData) spi.Response[spi.Void] {
	path := fmt.Sprintf("/api/v1/consents/%s/decision", consent.ID.String())
	req := consentDecisionRequest{Decision: string(decision)}
	_, newCont, failure := send[consentDecisionRequest, struct{}](
		c, ctx, "notify_consent_decision", http.MethodPost, path, cd, &req, cont)
	if failure != nil {
		return spi.Fail[spi.Void](failure, newCont)
	}
	return spi.Ok(spi.Void{}, newCont)
}

func (c *Client) AuthorisePsu(ctx context.Context, cd spi.ContextData, psu domain.PsuData, password string, cont spi.ContinuationData) spi.Response[spi.PsuAuthorisationPayload] {
	req := authorisePsuRequest{PsuID: psu.ID, Password: password}
	resp, newCont, failure := send[authorisePsuRequest, authorisePsuResponse](
		c, ctx, "authorise_psu", http.MethodPost, "/api/v1/psu/authorise", cd, &req, cont)
	if failure != nil {
		return spi.Fail[spi.PsuAuthorisationPayload](failure, newCont)
	}
	return spi.Ok(spi.PsuAuthorisationPayload{
		Status:      spi.PsuAuthorisationStatus(resp.Status),
		ScaExempted: resp.ScaExempted,
	}, newCont)
}

func (c *Client) RequestAvailableScaMethods(ctx context.Context, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	resp, newCont, failure := send[any, scaMethodsResponse](
		c, ctx, "sca_methods", http.MethodGet, "/api/v1/psu/sca-methods", cd, nil, cont)
	if failure != nil {
		return spi.Fail[[]domain.AuthMethod](failure, newCont)
	}
	methods := make([]domain.AuthMethod, 0, len(resp.Methods))
	for _, m := range resp.Methods {
		methods = append(methods, domain.AuthMethod{
			ID:          m.ID,
			Type:        m.Type,
			Name:        m.Name,
			Explanation: m.Explanation,
		})
	}
	return spi.Ok(methods, newCont)
}

func (c *Client) RequestAuthorisationCode(ctx context.Context, cd spi.ContextData, methodID string, cont spi.ContinuationData) spi.Response[domain.Challenge] {
	path := fmt.Sprintf("/api/v1/psu/sca-methods/%s/challenge", methodID)
	resp, newCont, failure := send[any, challengeResponse](
		c, ctx, "request_challenge", http.MethodPost, path, cd, nil, cont)
	if failure != nil {
		return spi.Fail[domain.Challenge](failure, newCont)
	}
	return spi.Ok(domain.Challenge{
		Image:          resp.Image,
		Data:           resp.Data,
		ImageLink:      resp.ImageLink,
		OtpMaxLength:   resp.OtpMaxLength,
		OtpFormat:      resp.OtpFormat,
		AdditionalInfo: resp.AdditionalInfo,
	}, newCont)
}

func (c *Client) StartScaDecoupled(ctx context.Context, cd spi.ContextData, authorisationID string, methodID string, cont spi.ContinuationData) spi.Response[string] {
	req := startDecoupledRequest{AuthorisationID: authorisationID, MethodID: methodID}
	resp, newCont, failure := send[startDecoupledRequest, startDecoupledResponse](
		c, ctx, "start_decoupled", http.MethodPost, "/api/v1/psu/decoupled", cd, &req, cont)
	if failure != nil {
		return spi.Fail[string](failure, newCont)
	}
	return spi.Ok(resp.PsuMessage, newCont)
}

func (c *Client) CheckConfirmationCode(ctx context.Context, cd spi.ContextData, authorisationID string, code string, cont spi.ContinuationData) spi.Response[spi.ConfirmationCodeResult] {
	req := checkConfirmationCodeRequest{AuthorisationID: authorisationID, ConfirmationCode: code}
	resp, newCont, failure := send[checkConfirmationCodeRequest, checkConfirmationCodeResponse](
		c, ctx, "check_confirmation_code", http.MethodPost, "/api/v1/psu/confirmation-code", cd, &req, cont)
	if failure != nil {
		return spi.Fail[spi.ConfirmationCodeResult](failure, newCont)
	}
	return spi.Ok(spi.ConfirmationCodeResult{
		ScaStatus:         domain.ScaStatus(resp.ScaStatus),
		TransactionStatus: domain.TransactionStatus(resp.TransactionStatus),
	}, newCont)
}

func (c *Client) verify(ctx context.Context, operation, path string, cd spi.ContextData, proof spi.ScaConfirmation, cont spi.ContinuationData) spi.Response[spi.ExecutionPayload] {
	req := verifyScaRequest{
		AuthorisationID:       proof.AuthorisationID,
		MethodID:              proof.MethodID,
		ScaAuthenticationData: proof.ScaAuthenticationData,
	}
	resp, newCont, failure := send[verifyScaRequest, executionResponse](
		c, ctx, operation, http.MethodPost, path, cd, &req, cont)
	if failure != nil {
		return spi.Fail[spi.ExecutionPayload](failure, newCont)
	}
	return spi.Ok(spi.ExecutionPayload{
		TransactionStatus: domain.TransactionStatus(resp.TransactionStatus),
		ConfirmationCode:  resp.ConfirmationCode,
	}, newCont)
}

func send[Req any, Resp any](c *Client, ctx context.Context, operation, method, path string, cd spi.ContextData, reqBody *Req, cont spi.ContinuationData) (Resp, spi.ContinuationData, *spi.Failure) {
	var zero Resp
	start := time.Now()

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			c.metrics.observe(operation, "error", time.Since(start).Seconds())
			return zero, cont, spi.NewFailure(spi.TechnicalFailure, "", "error marshalling request: "+err.Error())
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		c.metrics.observe(operation, "error", time.Since(start).Seconds())
		return zero, cont, spi.NewFailure(spi.TechnicalFailure, "", "error creating request: "+err.Error())
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if cd.RequestID != uuid.Nil {
		httpReq.Header.Set("X-Request-ID", cd.RequestID.String())
	}
	if cd.Psu.ID != "" {
		httpReq.Header.Set("PSU-ID", cd.Psu.ID)
	}
	if cd.Tpp.AuthorisationNumber != "" {
		httpReq.Header.Set("TPP-Authorisation-Number", cd.Tpp.AuthorisationNumber)
	}
	if len(cont) > 0 {
		httpReq.Header.Set(continuationHeader, base64.StdEncoding.EncodeToString(cont))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observe(operation, "error", time.Since(start).Seconds())
		return zero, cont, spi.NewFailure(spi.TechnicalFailure, "", "error making request: "+err.Error())
	}
	defer resp.Body.Close()

	newCont := cont
	if token := resp.Header.Get(continuationHeader); token != "" {
		if decoded, err := base64.StdEncoding.DecodeString(token); err == nil {
			newCont = decoded
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var errResp connectorErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			c.metrics.observe(operation, "failure", time.Since(start).Seconds())
			return zero, newCont, spi.NewFailure(categoryForStatus(resp.StatusCode), "",
				fmt.Sprintf("backend returned status %d", resp.StatusCode))
		}
		c.metrics.observe(operation, "failure", time.Since(start).Seconds())
		return zero, newCont, failureFrom(resp.StatusCode, errResp)
	}

	var payload Resp
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && err != io.EOF {
			c.metrics.observe(operation, "error", time.Since(start).Seconds())
			return zero, newCont, spi.NewFailure(spi.TechnicalFailure, "", "error decoding response: "+err.Error())
		}
	}

	c.metrics.observe(operation, "success", time.Since(start).Seconds())
	return payload, newCont, nil
}
