package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentType discriminates the supported payment services.
type PaymentType string

const (
	PaymentSingle   PaymentType = "SINGLE"
	PaymentPeriodic PaymentType = "PERIODIC"
	PaymentBulk     PaymentType = "BULK"
)

// IsRawPaymentProduct reports whether a payment product carries opaque payment
// data (pain.xxx products) handled through the common-payment path.
func IsRawPaymentProduct(product string) bool {
	return strings.Contains(product, "pain.")
}

// Payment is a single, periodic or bulk payment initiated by a TPP on behalf
// of a PSU. Raw (pain.) products keep their original body in RawData.
type Payment struct {
	ID         uuid.UUID
	ExternalID string // opaque id visible to the TPP
	Product    string
	Type       PaymentType

	DebtorAccount   AccountReference
	CreditorAccount AccountReference
	CreditorName    string
	Amount          Amount

	RequestedExecutionDate *time.Time
	RawData                []byte

	Status TransactionStatus
	Psu    PsuData
	Tpp    TppInfo

	MultilevelSca bool
	// CancellationInitiated marks a payment whose cancellation authorisation
	// is in flight; the transaction status itself only moves to CANC once the
	// backend confirms the cancellation.
	CancellationInitiated bool
	// CancelledFinalised marks a cancellation executed without SCA.
	CancelledFinalised bool

	CancellationRedirectURI       string
	CancellationInternalRequestID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRaw reports whether the payment is a common (raw) payment.
func (p *Payment) IsRaw() bool {
	return IsRawPaymentProduct(p.Product)
}

// ApplyStatus moves the payment to a backend-confirmed status. The move is
// rejected when it would regress or leave a finalised status.
func (p *Payment) ApplyStatus(status TransactionStatus) error {
	if err := p.Status.CanTransitionTo(status); err != nil {
		return err
	}
	p.Status = status
	return nil
}
