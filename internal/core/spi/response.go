// Package spi defines the contract between the engine and the banking
// backend: one operation per orchestration step, each returning a payload or
// a categorized failure plus opaque continuation data the engine passes back
// unmodified on the next call for the same resource.
package spi

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

// FailureCategory classifies a backend failure for the error translator.
type FailureCategory string

const (
	TechnicalFailure    FailureCategory = "TECHNICAL_FAILURE"
	LogicalFailure      FailureCategory = "LOGICAL_FAILURE"
	UnauthorizedFailure FailureCategory = "UNAUTHORIZED_FAILURE"
	NotSupported        FailureCategory = "NOT_SUPPORTED"
)

// Categories lists every defined failure category.
func Categories() []FailureCategory {
	return []FailureCategory{TechnicalFailure, LogicalFailure, UnauthorizedFailure, NotSupported}
}

// Failure is the categorized error half of a backend call result.
type Failure struct {
	Category FailureCategory
	// Code optionally narrows the failure beyond its category; the error
	// translator falls back to a category default when empty.
	Code     domain.MessageErrorCode
	Messages []string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("backend failure %s [%s]", f.Category, f.Code)
}

// NewFailure builds a Failure with an optional narrowing code.
func NewFailure(category FailureCategory, code domain.MessageErrorCode, messages ...string) *Failure {
	return &Failure{Category: category, Code: code, Messages: messages}
}

// ContinuationData is the opaque session-continuation token a backend hands
// out per resource. The engine never inspects it.
type ContinuationData []byte

// Response wraps the outcome of one backend call: either a payload or a
// failure, never both, plus continuation data to echo on the next call.
// It is transient and consumed immediately by the orchestrators.
type Response[T any] struct {
	Payload      T
	Continuation ContinuationData
	Failure      *Failure
}

// HasError reports whether the call failed.
func (r Response[T]) HasError() bool {
	return r.Failure != nil
}

// Ok builds a successful response.
func Ok[T any](payload T, cont ContinuationData) Response[T] {
	return Response[T]{Payload: payload, Continuation: cont}
}

// Fail builds a failed response carrying the continuation data observed so
// far, if any.
func Fail[T any](failure *Failure, cont ContinuationData) Response[T] {
	return Response[T]{Failure: failure, Continuation: cont}
}

// ContextData carries the request-scoped identities every backend call needs.
// It is passed explicitly; the engine holds no ambient request state.
type ContextData struct {
	Psu       domain.PsuData
	Tpp       domain.TppInfo
	RequestID uuid.UUID
}
