// Package store persists certificate records keyed by certificate id.
package store

import (
	"context"

	"github.com/lvillar/certkit"
)

// Store is the persistence contract the issuing and verification paths
// depend on. Put returns certkit.ErrDuplicateID when the id is already
// taken; Get returns certkit.ErrNotFound when no record exists.
// Implementations must support concurrent Puts with no lost writes.
type Store interface {
	Put(ctx context.Context, rec *certkit.CertificateRecord) error
	Get(ctx context.Context, certID string) (*certkit.CertificateRecord, error)
	Close() error
}
