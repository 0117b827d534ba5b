package domain

import "fmt"

// TransactionStatus is the ISO 20022 payment transaction status as exposed to
// TPPs. Local status only ever moves forward; a backend answer that would
// regress the status is rejected.
type TransactionStatus string

const (
	TransactionRCVD TransactionStatus = "RCVD" // received
	TransactionPATC TransactionStatus = "PATC" // partially authorised, more PSUs pending
	TransactionACTC TransactionStatus = "ACTC" // accepted technical validation
	TransactionACCP TransactionStatus = "ACCP" // accepted customer profile
	TransactionACSP TransactionStatus = "ACSP" // accepted settlement in process
	TransactionACSC TransactionStatus = "ACSC" // accepted settlement completed
	TransactionACWC TransactionStatus = "ACWC" // accepted with change
	TransactionCANC TransactionStatus = "CANC" // cancelled
	TransactionRJCT TransactionStatus = "RJCT" // rejected
)

// rank orders statuses along the execution pipeline. Terminal statuses share
// the highest rank so no terminal status can replace another.
func (s TransactionStatus) rank() int {
	switch s {
	case TransactionRCVD:
		return 0
	case TransactionPATC:
		return 1
	case TransactionACTC:
		return 2
	case TransactionACCP:
		return 3
	case TransactionACWC:
		return 4
	case TransactionACSP:
		return 5
	case TransactionACSC, TransactionCANC, TransactionRJCT:
		return 6
	default:
		return -1
	}
}

// Finalised reports whether the status terminates the payment lifecycle.
func (s TransactionStatus) Finalised() bool {
	switch s {
	case TransactionACSC, TransactionCANC, TransactionRJCT:
		return true
	}
	return false
}

// CanTransitionTo rejects regressions and any move out of a finalised status.
// Staying on the same status is always allowed.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) error {
	if s == next {
		return nil
	}
	if s.Finalised() {
		return NewInvalidTransitionError(string(s), string(next))
	}
	if next.rank() < 0 {
		return fmt.Errorf("unknown transaction status %q", string(next))
	}
	if next.rank() < s.rank() {
		return NewInvalidTransitionError(string(s), string(next))
	}
	return nil
}

// ConsentStatus is the lifecycle status of an AIS or PIIS consent.
type ConsentStatus string

const (
	ConsentReceived     ConsentStatus = "RECEIVED"
	ConsentValid        ConsentStatus = "VALID"
	ConsentExpired      ConsentStatus = "EXPIRED"
	ConsentRevokedByPsu ConsentStatus = "REVOKED_BY_PSU"
	ConsentRejected     ConsentStatus = "REJECTED"
	ConsentTerminated   ConsentStatus = "TERMINATED_BY_TPP"
)

// Finalised reports whether the consent can never change status again.
// VALID is not final: a valid consent may still expire or be revoked.
func (s ConsentStatus) Finalised() bool {
	switch s {
	case ConsentExpired, ConsentRevokedByPsu, ConsentRejected, ConsentTerminated:
		return true
	}
	return false
}

// ScaStatus is the status of a single SCA authorisation.
type ScaStatus string

const (
	ScaReceived         ScaStatus = "received"
	ScaPsuIdentified    ScaStatus = "psuIdentified"
	ScaPsuAuthenticated ScaStatus = "psuAuthenticated"
	ScaMethodSelected   ScaStatus = "scaMethodSelected"
	ScaStarted          ScaStatus = "started"
	ScaFinalised        ScaStatus = "finalised"
	ScaFailed           ScaStatus = "failed"
	ScaExempted         ScaStatus = "exempted"
)

// Rank orders the SCA statuses along the authorisation flow. Terminal
// statuses share the highest rank.
func (s ScaStatus) Rank() int {
	switch s {
	case ScaReceived:
		return 0
	case ScaPsuIdentified:
		return 1
	case ScaPsuAuthenticated:
		return 2
	case ScaMethodSelected:
		return 3
	case ScaStarted:
		return 4
	case ScaFinalised, ScaFailed, ScaExempted:
		return 5
	default:
		return -1
	}
}

// Terminal reports whether the authorisation is immutable.
func (s ScaStatus) Terminal() bool {
	switch s {
	case ScaFinalised, ScaFailed, ScaExempted:
		return true
	}
	return false
}

// CanAdvanceTo rejects regressions and any change to a terminal
// authorisation. FAILED is reachable from every non-terminal status.
func (s ScaStatus) CanAdvanceTo(next ScaStatus) error {
	if s == next {
		return nil
	}
	if s.Terminal() {
		return NewInvalidTransitionError(string(s), string(next))
	}
	if next == ScaFailed {
		return nil
	}
	if next.Rank() < 0 {
		return fmt.Errorf("unknown sca status %q", string(next))
	}
	if next.Rank() < s.Rank() {
		return NewInvalidTransitionError(string(s), string(next))
	}
	return nil
}

// ScaApproach selects the authorisation strategy the engine drives a PSU
// through.
type ScaApproach string

const (
	ApproachEmbedded         ScaApproach = "EMBEDDED"
	ApproachDecoupled        ScaApproach = "DECOUPLED"
	ApproachRedirect         ScaApproach = "REDIRECT"
	ApproachPreAuthenticated ScaApproach = "PRE_AUTHENTICATED"
)

// ParseScaApproach parses a configured approach name.
func ParseScaApproach(s string) (ScaApproach, bool) {
	switch ScaApproach(s) {
	case ApproachEmbedded, ApproachDecoupled, ApproachRedirect, ApproachPreAuthenticated:
		return ScaApproach(s), true
	}
	return "", false
}
