package bank

import (
	"time"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// Wire DTOs for the backend connector API. The connector speaks plain JSON;
// domain types never cross the wire directly.

type accountDTO struct {
	IBAN     string `json:"iban,omitempty"`
	BBAN     string `json:"bban,omitempty"`
	PAN      string `json:"pan,omitempty"`
	MSISDN   string `json:"msisdn,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type amountDTO struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func toAccountDTO(a domain.AccountReference) accountDTO {
	return accountDTO{IBAN: a.IBAN, BBAN: a.BBAN, PAN: a.PAN, MSISDN: a.MSISDN, Currency: a.Currency}
}

type initiatePaymentRequest struct {
	PaymentID              string     `json:"paymentId"`
	Product                string     `json:"product"`
	PaymentType            string     `json:"paymentType"`
	DebtorAccount          accountDTO `json:"debtorAccount"`
	CreditorAccount        accountDTO `json:"creditorAccount"`
	CreditorName           string     `json:"creditorName"`
	Amount                 amountDTO  `json:"instructedAmount"`
	RequestedExecutionDate *time.Time `json:"requestedExecutionDate,omitempty"`
	RawData                []byte     `json:"rawData,omitempty"`
}

type initiatePaymentResponse struct {
	BankPaymentID     string `json:"bankPaymentId"`
	TransactionStatus string `json:"transactionStatus"`
	MultilevelSca     bool   `json:"multilevelScaRequired"`
	PsuMessage        string `json:"psuMessage,omitempty"`
}

type paymentResponse struct {
	PaymentID         string     `json:"paymentId"`
	Product           string     `json:"product"`
	PaymentType       string     `json:"paymentType"`
	DebtorAccount     accountDTO `json:"debtorAccount"`
	CreditorAccount   accountDTO `json:"creditorAccount"`
	CreditorName      string     `json:"creditorName"`
	Amount            amountDTO  `json:"instructedAmount"`
	TransactionStatus string     `json:"transactionStatus"`
	RawData           []byte     `json:"rawData,omitempty"`
}

type transactionStatusResponse struct {
	TransactionStatus string `json:"transactionStatus"`
}

type executionResponse struct {
	TransactionStatus string `json:"transactionStatus"`
	ConfirmationCode  string `json:"confirmationCode,omitempty"`
}

type cancellationResponse struct {
	TransactionStatus string `json:"transactionStatus"`
	ScaRequired       bool   `json:"scaRequired"`
}

type authorisePsuRequest struct {
	PsuID    string `json:"psuId"`
	Password string `json:"password"`
}

type authorisePsuResponse struct {
	Status      string `json:"status"`
	ScaExempted bool   `json:"scaExempted"`
}

type scaMethodDTO struct {
	ID          string `json:"authenticationMethodId"`
	Type        string `json:"authenticationType"`
	Name        string `json:"name,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type scaMethodsResponse struct {
	Methods []scaMethodDTO `json:"scaMethods"`
}

type challengeResponse struct {
	Image          string   `json:"image,omitempty"`
	Data           []string `json:"data,omitempty"`
	ImageLink      string   `json:"imageLink,omitempty"`
	OtpMaxLength   int      `json:"otpMaxLength,omitempty"`
	OtpFormat      string   `json:"otpFormat,omitempty"`
	AdditionalInfo string   `json:"additionalInformation,omitempty"`
}

type startDecoupledRequest struct {
	AuthorisationID string `json:"authorisationId"`
	MethodID        string `json:"authenticationMethodId"`
}

type startDecoupledResponse struct {
	PsuMessage string `json:"psuMessage"`
}

type verifyScaRequest struct {
	AuthorisationID       string `json:"authorisationId"`
	MethodID              string `json:"authenticationMethodId,omitempty"`
	ScaAuthenticationData string `json:"scaAuthenticationData"`
}

type checkConfirmationCodeRequest struct {
	AuthorisationID  string `json:"authorisationId"`
	ConfirmationCode string `json:"confirmationCode"`
}

type checkConfirmationCodeResponse struct {
	ScaStatus         string `json:"scaStatus"`
	TransactionStatus string `json:"transactionStatus,omitempty"`
}

type initiateConsentRequest struct {
	ConsentID       string       `json:"consentId"`
	ConsentType     string       `json:"consentType"`
	Accounts        []accountDTO `json:"accounts,omitempty"`
	Balances        []accountDTO `json:"balances,omitempty"`
	Transactions    []accountDTO `json:"transactions,omitempty"`
	AllPsd2         bool         `json:"allPsd2,omitempty"`
	ValidUntil      time.Time    `json:"validUntil"`
	Recurring       bool         `json:"recurringIndicator"`
	FrequencyPerDay int          `json:"frequencyPerDay"`
}

type initiateConsentResponse struct {
	BankConsentID string `json:"bankConsentId"`
	ConsentStatus string `json:"consentStatus"`
	MultilevelSca bool   `json:"multilevelScaRequired"`
}

type consentStatusResponse struct {
	ConsentStatus string `json:"consentStatus"`
}

type consentDecisionRequest struct {
	Decision string `json:"decision"`
}
