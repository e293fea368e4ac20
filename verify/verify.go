// Package verify resolves certificate ids to verification results.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/sign"
	"github.com/lvillar/certkit/store"
)

// ErrLookupFailed marks a store failure during resolution. It is a
// distinct outcome from "not found" so an unavailable store is never
// reported as an absent certificate.
var ErrLookupFailed = errors.New("certificate lookup failed")

// Resolver answers whether a certificate id exists and still verifies
// under the current signing key.
type Resolver struct {
	store  store.Store
	signer *sign.Signer
}

// NewResolver wires a resolver over a store and signer.
func NewResolver(st store.Store, signer *sign.Signer) *Resolver {
	return &Resolver{store: st, signer: signer}
}

// Resolve looks up certID. A malformed id behaves as not found rather
// than an error; only a failing store produces ErrLookupFailed.
func (r *Resolver) Resolve(ctx context.Context, certID string) (certkit.VerificationResult, error) {
	if !sign.ValidID(certID) {
		return certkit.VerificationResult{}, nil
	}

	rec, err := r.store.Get(ctx, certID)
	if errors.Is(err, certkit.ErrNotFound) {
		return certkit.VerificationResult{}, nil
	}
	if err != nil {
		return certkit.VerificationResult{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	return certkit.VerificationResult{
		Found:       true,
		Valid:       r.signer.Verify(rec),
		Certificate: rec,
	}, nil
}
