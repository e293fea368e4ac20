package certkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure conditions of the issuance pipeline.
var (
	// ErrTemplateParse indicates an unreadable or corrupt template document.
	// Fatal for the whole batch.
	ErrTemplateParse = errors.New("certkit: template cannot be parsed")

	// ErrTemplateEncrypted indicates an encrypted template. Certificate
	// templates are expected in the clear; decryption is not supported.
	ErrTemplateEncrypted = errors.New("certkit: template is encrypted")

	// ErrSigningKeyMissing indicates an absent or empty secret key.
	// Signing fails closed: no records are produced.
	ErrSigningKeyMissing = errors.New("certkit: signing key is missing")

	// ErrDuplicateID indicates the store rejected a certificate id that
	// already exists. Retried with a fresh id a bounded number of times,
	// then fatal for that row only.
	ErrDuplicateID = errors.New("certkit: duplicate certificate id")

	// ErrSymbolEncode indicates the verification symbol could not be
	// encoded. Fatal for that row only.
	ErrSymbolEncode = errors.New("certkit: verification symbol encoding failed")

	// ErrNotFound indicates no record exists for a certificate id.
	ErrNotFound = errors.New("certkit: certificate not found")
)

// Error wraps an underlying error with the name of the pipeline operation
// that failed, e.g. "Scan", "Render", "Issue".
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certkit.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("certkit.%s: unknown error", e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error wrapping err with operation context.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
