// Package connector abstracts the transport that carries outbound
// documents to the external ERP.
package connector

import (
	"context"
	"errors"

	"github.com/otodash/erp-sync/pkg/mapper"
)

// Connector defines the single delivery operation against the ERP.
type Connector interface {
	// Deliver transmits the document. Retryable failures are returned as
	// *TransientError, rejections that will never succeed as
	// *PermanentError.
	Deliver(ctx context.Context, doc mapper.OutboundDocument) error
	// Close cleans up any resources (connections).
	Close() error
}

// TransientError marks a delivery failure worth retrying (endpoint busy,
// network blip).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient delivery error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable delivery failure.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// PermanentError marks a rejection that retrying cannot fix, e.g. the ERP
// refusing the document schema.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent delivery rejection: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a non-retryable rejection.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is a non-retryable rejection. Anything
// else, including unclassified errors, is treated as retryable.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
