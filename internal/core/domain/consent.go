package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsentType discriminates account-information from funds-confirmation
// consents.
type ConsentType string

const (
	ConsentAIS  ConsentType = "AIS"
	ConsentPIIS ConsentType = "PIIS"
)

// ConsentAccess is the scope of account data a consent grants access to.
type ConsentAccess struct {
	Accounts     []AccountReference
	Balances     []AccountReference
	Transactions []AccountReference
	// AllPsd2 grants access to every account the PSU holds.
	AllPsd2 bool
}

// Consent is an AIS or PIIS consent. When MultilevelSca is set the consent
// becomes valid only after every PSU in Psus finalised an authorisation.
type Consent struct {
	ID         uuid.UUID
	ExternalID string
	Type       ConsentType

	Access          ConsentAccess
	ValidUntil      time.Time
	Recurring       bool
	FrequencyPerDay int

	Status        ConsentStatus
	MultilevelSca bool
	Psus          []PsuData
	Tpp           TppInfo

	// DecisionNotified guards the one-shot "notify backend of final consent
	// decision" call; once set, repeated confirmation calls are no-ops.
	DecisionNotified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyStatus moves the consent to a new status, rejecting moves out of a
// terminal state.
func (c *Consent) ApplyStatus(status ConsentStatus) error {
	if c.Status == status {
		return nil
	}
	if c.Status.Finalised() {
		return NewInvalidTransitionError(string(c.Status), string(status))
	}
	c.Status = status
	return nil
}

// HasPsu reports whether the given PSU is associated with the consent.
func (c *Consent) HasPsu(psu PsuData) bool {
	for _, p := range c.Psus {
		if p.Matches(psu) {
			return true
		}
	}
	return false
}
