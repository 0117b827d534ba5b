package service

import (
	"net/http"

	"github.com/go-playground/validator"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// requestValidator checks creation requests before anything reaches the
// backend. Struct tags cover the unconditional fields; the struct-level
// functions cover what depends on the payment product or the access scope.
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(initiatePaymentStructLevel, InitiatePaymentRequest{})
	v.RegisterStructValidation(createConsentStructLevel, CreateConsentRequest{})
	return v
}

func initiatePaymentStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(InitiatePaymentRequest)
	if domain.IsRawPaymentProduct(req.Product) {
		// Raw products carry the original body; the backend parses it.
		if len(req.RawData) == 0 {
			sl.ReportError(req.RawData, "RawData", "RawData", "required", "")
		}
		return
	}
	if req.DebtorAccount == (domain.AccountReference{}) {
		sl.ReportError(req.DebtorAccount, "DebtorAccount", "DebtorAccount", "required", "")
	}
	if req.CreditorAccount == (domain.AccountReference{}) {
		sl.ReportError(req.CreditorAccount, "CreditorAccount", "CreditorAccount", "required", "")
	}
	if req.Amount.Currency == "" || req.Amount.Value == "" {
		sl.ReportError(req.Amount, "Amount", "Amount", "required", "")
	}
}

func createConsentStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateConsentRequest)
	a := req.Access
	if !a.AllPsd2 && len(a.Accounts) == 0 && len(a.Balances) == 0 && len(a.Transactions) == 0 {
		sl.ReportError(req.Access, "Access", "Access", "required", "")
	}
}

// validateRequestShape maps a validator verdict on a creation request to the
// FORMAT_ERROR the TPP receives.
func validateRequestShape(service domain.ServiceType, req interface{}) *domain.ErrorHolder {
	if err := requestValidator.Struct(req); err != nil {
		return domain.NewErrorHolder(service, http.StatusBadRequest,
			domain.CodeFormatError, err.Error())
	}
	return nil
}
