package postgres

import (
	"time"

	"github.com/google/uuid"
)

// paymentModel mirrors the payments table. Account references, the amount and
// the PSU identity live in jsonb columns so the table stays stable as the
// product range grows.
type paymentModel struct {
	ID         uuid.UUID
	ExternalID string
	Product    string
	Type       string

	DebtorAccount   []byte
	CreditorAccount []byte
	CreditorName    string
	Amount          []byte

	RequestedExecutionDate *time.Time
	RawData                []byte

	Status string
	Psu    []byte
	Tpp    []byte

	MultilevelSca         bool
	CancellationInitiated bool
	CancelledFinalised    bool

	CancellationRedirectURI       string
	CancellationInternalRequestID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// consentModel mirrors the consents table.
type consentModel struct {
	ID         uuid.UUID
	ExternalID string
	Type       string

	Access          []byte
	ValidUntil      time.Time
	Recurring       bool
	FrequencyPerDay int

	Status           string
	MultilevelSca    bool
	Psus             []byte
	Tpp              []byte
	DecisionNotified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// authorisationModel mirrors the authorisations table.
type authorisationModel struct {
	ID         uuid.UUID
	ParentID   uuid.UUID
	ParentKind string

	Psu      []byte
	Approach string
	Status   string

	AvailableMethods []byte
	ChosenMethodID   string
	ConfirmationCode string

	RedirectURI       string
	InternalRequestID string

	CreatedAt time.Time
	UpdatedAt time.Time
}
