package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/sign"
	"github.com/lvillar/certkit/store"
	"github.com/lvillar/certkit/verify"
)

func newTestServer(t *testing.T, st store.Store) (*Server, *sign.Signer) {
	t.Helper()
	signer, err := sign.New(sign.Config{SecretKey: "server-test-key", BaseURL: "https://certs.example.com"})
	require.NoError(t, err)
	return New(verify.NewResolver(st, signer), nil), signer
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestVerifyFound(t *testing.T) {
	st := store.NewMemory()
	s, signer := newTestServer(t, st)

	rec, err := signer.Issue("Sara Khan", "Python Basics", "2024-01-15", map[string]string{"name": "Sara Khan"})
	require.NoError(t, err)
	require.NoError(t, st.Put(context.Background(), rec))

	w := doGet(t, s, "/api/verify/"+rec.CertID)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Found       bool `json:"found"`
		Valid       bool `json:"valid"`
		Certificate struct {
			ID        string `json:"id"`
			Recipient string `json:"recipient"`
			Course    string `json:"course"`
			IssueDate string `json:"issue_date"`
			IssuedAt  string `json:"issued_at"`
		} `json:"certificate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.True(t, body.Found)
	assert.True(t, body.Valid)
	assert.Equal(t, rec.CertID, body.Certificate.ID)
	assert.Equal(t, "Sara Khan", body.Certificate.Recipient)
	assert.Equal(t, "Python Basics", body.Certificate.Course)
	assert.Equal(t, "2024-01-15", body.Certificate.IssueDate)
	assert.NotEmpty(t, body.Certificate.IssuedAt)
}

func TestVerifyTampered(t *testing.T) {
	st := store.NewMemory()
	s, signer := newTestServer(t, st)

	rec, err := signer.Issue("Sara Khan", "Python Basics", "2024-01-15", map[string]string{"score": "95"})
	require.NoError(t, err)
	rec.AdditionalData = map[string]string{"score": "96"}
	require.NoError(t, st.Put(context.Background(), rec))

	w := doGet(t, s, "/api/verify/"+rec.CertID)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["found"])
	assert.Equal(t, false, body["valid"])
}

func TestVerifyNotFound(t *testing.T) {
	s, _ := newTestServer(t, store.NewMemory())

	w := doGet(t, s, "/api/verify/AAAAAAAAAAA")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["found"])
	assert.Equal(t, "AAAAAAAAAAA", body["cert_id"])
}

func TestVerifyMalformedID(t *testing.T) {
	s, _ := newTestServer(t, store.NewMemory())

	w := doGet(t, s, "/api/verify/not-a-real-id-at-all")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingStore struct{}

func (failingStore) Put(context.Context, *certkit.CertificateRecord) error {
	return errors.New("store down")
}
func (failingStore) Get(context.Context, string) (*certkit.CertificateRecord, error) {
	return nil, errors.New("store down")
}
func (failingStore) Close() error { return nil }

func TestVerifyLookupFailure(t *testing.T) {
	s, _ := newTestServer(t, failingStore{})

	w := doGet(t, s, "/api/verify/AAAAAAAAAAA")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, store.NewMemory())

	w := doGet(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}
