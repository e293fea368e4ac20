// Package certkit turns a styled PDF template containing {{placeholder}}
// tokens into personalized, signed, QR-verifiable certificates.
//
// The pipeline is: scanner (locate placeholders and recover their visual
// style) -> mapping (bind data columns to placeholders) -> render + sign
// (one output document and one signed record per data row) -> store.
// Verification resolves a certificate id back to its record and recomputes
// the hash and signature independently.
package certkit

import (
	"time"
)

// CertificateRecord is the persisted unit of issuance: identity, signed
// content and metadata. Records are created exactly once per rendered row
// and are immutable afterwards; the store is the only thing that holds them.
type CertificateRecord struct {
	CertID         string            // 11 chars, URL-safe alphabet
	RecipientName  string
	CourseName     string
	IssueDate      string            // as provided by the data row, e.g. "2024-01-15"
	Signature      string            // hex HMAC-SHA256
	DataHash       string            // hex SHA-256 of the canonical record data
	AdditionalData map[string]string // remaining row columns, canonically stringified
	CreatedAt      time.Time
}

// VerificationResult is the outcome of resolving a certificate id.
// It is derived on demand and never persisted.
type VerificationResult struct {
	Found       bool
	Valid       bool
	Certificate *CertificateRecord // nil unless Found
}
