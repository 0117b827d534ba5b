package service

import (
	"net/http"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// TranslateFailure maps a categorized backend failure onto a structured
// ErrorHolder of the given service family. The mapping is total: an unknown
// category falls back to a technical failure, and the message list is never
// empty.
func TranslateFailure(failure *spi.Failure, service domain.ServiceType) *domain.ErrorHolder {
	if failure == nil {
		return domain.NewErrorHolder(service, http.StatusInternalServerError,
			domain.CodeInternalServerError, "backend reported no failure detail")
	}

	status, code := categoryDefaults(failure.Category)
	if failure.Code != "" {
		code = failure.Code
		status = statusForCode(failure.Code, status)
	}
	return domain.NewErrorHolder(service, status, code, failure.Messages...)
}

func categoryDefaults(category spi.FailureCategory) (int, domain.MessageErrorCode) {
	switch category {
	case spi.TechnicalFailure:
		return http.StatusInternalServerError, domain.CodeInternalServerError
	case spi.LogicalFailure:
		return http.StatusBadRequest, domain.CodeFormatError
	case spi.UnauthorizedFailure:
		return http.StatusUnauthorized, domain.CodePsuCredentialsInvalid
	case spi.NotSupported:
		return http.StatusMethodNotAllowed, domain.CodeServiceInvalid405
	default:
		// Unmapped categories are never dropped silently.
		return http.StatusInternalServerError, domain.CodeInternalServerError
	}
}

// statusForCode keeps the HTTP class consistent when the backend narrows the
// failure with a specific code.
func statusForCode(code domain.MessageErrorCode, fallback int) int {
	switch code {
	case domain.CodeResourceUnknown403:
		return http.StatusForbidden
	case domain.CodeResourceUnknown404:
		return http.StatusNotFound
	case domain.CodeResourceBlocked, domain.CodeStatusInvalid, domain.CodeCancellationInvalid:
		return http.StatusBadRequest
	case domain.CodePsuCredentialsInvalid, domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeServiceInvalid405:
		return http.StatusMethodNotAllowed
	case domain.CodeInternalServerError:
		return http.StatusInternalServerError
	default:
		return fallback
	}
}
