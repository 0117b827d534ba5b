package bank

import (
	"net/http"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// connectorErrorResponse is the backend's JSON error body.
type connectorErrorResponse struct {
	Code     string   `json:"code"`
	Messages []string `json:"messages"`
}

// failureFrom maps an HTTP error status plus the connector's error body onto
// a categorized SPI failure. The mapping is total; anything unrecognised is
// treated as a technical failure.
func failureFrom(statusCode int, body connectorErrorResponse) *spi.Failure {
	category := categoryForStatus(statusCode)
	messages := body.Messages
	if len(messages) == 0 {
		messages = []string{http.StatusText(statusCode)}
	}
	return spi.NewFailure(category, domain.MessageErrorCode(body.Code), messages...)
}

func categoryForStatus(statusCode int) spi.FailureCategory {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return spi.UnauthorizedFailure
	case statusCode == http.StatusMethodNotAllowed || statusCode == http.StatusNotImplemented:
		return spi.NotSupported
	case statusCode >= 500:
		return spi.TechnicalFailure
	case statusCode >= 400:
		return spi.LogicalFailure
	default:
		return spi.TechnicalFailure
	}
}
