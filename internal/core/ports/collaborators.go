package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// IDCodec translates between externally visible opaque ids and internal ids.
// The engine never inspects the opaque id's structure.
type IDCodec interface {
	Encode(id uuid.UUID) string
	Decode(opaque string) (uuid.UUID, error)
}

// ContinuationStore keeps the backend's opaque session-continuation data per
// resource so the next call for the same resource can echo it back.
type ContinuationStore interface {
	Get(ctx context.Context, resourceID uuid.UUID) (spi.ContinuationData, error)
	Put(ctx context.Context, resourceID uuid.UUID, data spi.ContinuationData) error
}

// EventType names the TPP request events the engine records.
type EventType string

const (
	EventPaymentInitiationReceived    EventType = "PAYMENT_INITIATION_REQUEST_RECEIVED"
	EventGetPaymentReceived           EventType = "GET_PAYMENT_REQUEST_RECEIVED"
	EventGetTransactionStatusReceived EventType = "GET_TRANSACTION_STATUS_REQUEST_RECEIVED"
	EventPaymentCancellationReceived  EventType = "PAYMENT_CANCELLATION_REQUEST_RECEIVED"
	EventConsentCreationReceived      EventType = "CONSENT_CREATION_REQUEST_RECEIVED"
	EventGetConsentStatusReceived     EventType = "GET_CONSENT_STATUS_REQUEST_RECEIVED"
	EventConsentRevocationReceived    EventType = "CONSENT_REVOCATION_REQUEST_RECEIVED"
	EventAuthorisationStarted         EventType = "START_AUTHORISATION_REQUEST_RECEIVED"
	EventAuthorisationUpdated         EventType = "UPDATE_AUTHORISATION_REQUEST_RECEIVED"
)

// Event is one recorded TPP request.
type Event struct {
	Type       EventType `json:"type"`
	ResourceID string    `json:"resource_id,omitempty"`
	TppNumber  string    `json:"tpp_number,omitempty"`
	PsuID      string    `json:"psu_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventRecorder publishes TPP request events. Recording is best effort and
// must never fail the request being recorded.
type EventRecorder interface {
	Record(ctx context.Context, event Event)
}
