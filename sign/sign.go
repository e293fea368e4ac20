// Package sign issues certificate identities and keyed signatures.
//
// Every certificate gets a random URL-safe id, a SHA-256 hash over its
// canonicalized data payload, and an HMAC-SHA256 signature binding the
// id, hash, and identity fields under a process-wide secret key. The
// signer refuses to operate without a key.
package sign

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lvillar/certkit"
)

// idAlphabet is the URL-safe alphabet certificate ids are drawn from.
// 64 symbols, so each byte of randomness maps to one symbol without
// modulo bias.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// IDLength is the certificate id length. 11 symbols over a 64-symbol
// alphabet gives 66 bits of entropy.
const IDLength = 11

// Config carries the two process-wide signing inputs.
type Config struct {
	// SecretKey signs and verifies certificates. Required. Treated as
	// sensitive: it must never appear in logs or output documents.
	SecretKey string
	// BaseURL is the absolute URL prefix embedded in verification
	// symbols, e.g. "https://certs.example.com".
	BaseURL string
}

// Signer issues and recomputes certificate signatures.
type Signer struct {
	key     []byte
	baseURL string
}

// New validates the configuration and returns a Signer. An empty secret
// key is refused outright so nothing is ever signed under a default or
// missing key.
func New(cfg Config) (*Signer, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, certkit.NewError("sign.New", certkit.ErrSigningKeyMissing)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, certkit.NewError("sign.New", fmt.Errorf("base URL %q is not absolute", cfg.BaseURL))
	}
	return &Signer{key: []byte(cfg.SecretKey), baseURL: base}, nil
}

// GenerateID returns a fresh random certificate id.
func GenerateID() (string, error) {
	var buf [IDLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", certkit.NewError("sign.GenerateID", err)
	}
	out := make([]byte, IDLength)
	for i, b := range buf {
		out[i] = idAlphabet[b&0x3f]
	}
	return string(out), nil
}

// ValidID reports whether s has the shape of a certificate id.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(idAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// canonicalEscaper guards the bytes that structure the canonical form,
// so a value containing "=" or a newline cannot mimic another payload's
// key/value layout.
var canonicalEscaper = strings.NewReplacer(`\`, `\\`, "=", `\=`, "\n", `\n`)

// CanonicalData serializes the additional-data payload into the fixed
// byte sequence that gets hashed: keys sorted lexicographically, one
// "key=value" line each, with backslash, "=" and newline escaped in
// both. The encoding is injective: distinct payloads never share
// canonical bytes. Values are expected to already be in their canonical
// string form.
func CanonicalData(data map[string]string) []byte {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(canonicalEscaper.Replace(k))
		b.WriteByte('=')
		b.WriteString(canonicalEscaper.Replace(data[k]))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// DataHash computes the hex SHA-256 of the canonicalized payload.
func DataHash(data map[string]string) string {
	sum := sha256.Sum256(CanonicalData(data))
	return hex.EncodeToString(sum[:])
}

func (s *Signer) signature(certID, dataHash, recipient, course, date string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(certID + "|" + dataHash + "|" + recipient + "|" + course + "|" + date))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue builds a fully populated record for one certificate: fresh id,
// data hash, and signature.
func (s *Signer) Issue(recipient, course, date string, data map[string]string) (*certkit.CertificateRecord, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	return s.IssueWithID(id, recipient, course, date, data), nil
}

// IssueWithID signs a record under a caller-chosen id. Used when a
// store rejects an id as duplicate and the caller retries with a new
// one.
func (s *Signer) IssueWithID(certID, recipient, course, date string, data map[string]string) *certkit.CertificateRecord {
	hash := DataHash(data)
	return &certkit.CertificateRecord{
		CertID:         certID,
		RecipientName:  recipient,
		CourseName:     course,
		IssueDate:      date,
		Signature:      s.signature(certID, hash, recipient, course, date),
		DataHash:       hash,
		AdditionalData: data,
		CreatedAt:      time.Now().UTC(),
	}
}

// Recompute re-derives the data hash and signature for a stored record
// under the current key, for comparison against the stored values.
func (s *Signer) Recompute(rec *certkit.CertificateRecord) (dataHash, signature string) {
	dataHash = DataHash(rec.AdditionalData)
	signature = s.signature(rec.CertID, dataHash, rec.RecipientName, rec.CourseName, rec.IssueDate)
	return dataHash, signature
}

// Verify checks a stored record against the current key. Both the data
// hash and the signature must match; either failing means the record
// does not verify.
func (s *Signer) Verify(rec *certkit.CertificateRecord) bool {
	hash, sig := s.Recompute(rec)
	hashOK := hmac.Equal([]byte(hash), []byte(rec.DataHash))
	sigOK := hmac.Equal([]byte(sig), []byte(rec.Signature))
	return hashOK && sigOK
}

// VerificationURL composes the payload embedded in the verification
// symbol.
func (s *Signer) VerificationURL(certID string) string {
	return s.baseURL + "/verify/" + certID
}
