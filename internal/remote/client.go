// Package remote asks an external classification service to suggest a
// ledger account for a transaction.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Request carries the texts the remote service classifies.
type Request struct {
	Description string `json:"description"`
	Explanation string `json:"explanation"`
}

// Classification is the remote service's answer for one transaction.
type Classification struct {
	AccountID  string  `json:"account"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Client defines the transport contract to the remote service. The service
// is treated as untrusted, slow, and possibly unavailable; implementations
// convert every transport or protocol failure into a *ClassificationError.
type Client interface {
	Classify(ctx context.Context, req Request) (Classification, error)
}

// ErrorKind distinguishes classification failures.
type ErrorKind string

// Classification error kinds.
const (
	// KindUnavailable covers timeouts, transport failures, non-2xx
	// statuses and malformed responses.
	KindUnavailable ErrorKind = "unavailable"
	// KindUnauthorized covers rejected credentials.
	KindUnauthorized ErrorKind = "unauthorized"
)

// ClassificationError is a typed failure from the remote boundary. It is
// always a result, never a panic path; the orchestrator treats it as
// "leave the transaction unresolved".
type ClassificationError struct {
	Err  error
	Kind ErrorKind
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote classification %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("remote classification %s", e.Kind)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as an unavailable classification error.
func Unavailable(err error) error {
	return &ClassificationError{Kind: KindUnavailable, Err: err}
}

// Unauthorized wraps err as an unauthorized classification error.
func Unauthorized(err error) error {
	return &ClassificationError{Kind: KindUnauthorized, Err: err}
}

// KindOf extracts the error kind from err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var classErr *ClassificationError
	if errors.As(err, &classErr) {
		return classErr.Kind, true
	}
	return "", false
}
