package domain

import (
	"fmt"
	"strings"
)

// ServiceType names the API family a request belongs to; it selects the
// ErrorType family failures are reported under.
type ServiceType string

const (
	ServiceAIS     ServiceType = "AIS"
	ServicePIS     ServiceType = "PIS"
	ServicePISCanc ServiceType = "PIS_CANC"
	ServicePIIS    ServiceType = "PIIS"
)

// MessageErrorCode is the machine-readable code surfaced to the TPP.
type MessageErrorCode string

const (
	CodeFormatError           MessageErrorCode = "FORMAT_ERROR"
	CodeResourceUnknown403    MessageErrorCode = "RESOURCE_UNKNOWN_403"
	CodeResourceUnknown404    MessageErrorCode = "RESOURCE_UNKNOWN_404"
	CodeResourceBlocked       MessageErrorCode = "RESOURCE_BLOCKED"
	CodeStatusInvalid         MessageErrorCode = "STATUS_INVALID"
	CodePsuCredentialsInvalid MessageErrorCode = "PSU_CREDENTIALS_INVALID"
	CodeScaMethodUnknown      MessageErrorCode = "SCA_METHOD_UNKNOWN"
	CodeScaInvalid            MessageErrorCode = "SCA_INVALID"
	CodeCancellationInvalid   MessageErrorCode = "CANCELLATION_INVALID"
	CodeConsentInvalid        MessageErrorCode = "CONSENT_INVALID"
	CodeConsentUnknown        MessageErrorCode = "CONSENT_UNKNOWN_400"
	CodeConsentUnknown403     MessageErrorCode = "CONSENT_UNKNOWN_403"
	CodeServiceInvalid405     MessageErrorCode = "SERVICE_INVALID_405"
	CodeUnauthorized          MessageErrorCode = "UNAUTHORIZED"
	CodeInternalServerError   MessageErrorCode = "INTERNAL_SERVER_ERROR"
)

// ErrorType pairs the API family with the HTTP status class the caller-facing
// layer should render.
type ErrorType struct {
	Name       string
	HTTPStatus int
}

// ErrorTypeFor selects the ErrorType family by service type and status class.
func ErrorTypeFor(service ServiceType, httpStatus int) ErrorType {
	return ErrorType{
		Name:       fmt.Sprintf("%s_%d", service, httpStatus),
		HTTPStatus: httpStatus,
	}
}

// ErrorHolder is the structured, caller-facing error produced by the error
// translator and the validation pipeline: one error type, one code, at least
// one human-readable message.
type ErrorHolder struct {
	Type     ErrorType
	Code     MessageErrorCode
	Messages []string
}

func (h *ErrorHolder) Error() string {
	return fmt.Sprintf("%s [%s]: %s", h.Type.Name, h.Code, strings.Join(h.Messages, "; "))
}

// NewErrorHolder builds an ErrorHolder, guaranteeing a non-empty message list.
func NewErrorHolder(service ServiceType, httpStatus int, code MessageErrorCode, messages ...string) *ErrorHolder {
	if len(messages) == 0 {
		messages = []string{string(code)}
	}
	return &ErrorHolder{
		Type:     ErrorTypeFor(service, httpStatus),
		Code:     code,
		Messages: messages,
	}
}
