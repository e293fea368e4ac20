package store

import (
	"context"
	"sync"

	"github.com/lvillar/certkit"
)

// Memory is an in-process Store for tests and single-run batch use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*certkit.CertificateRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*certkit.CertificateRecord)}
}

// Put inserts a record, rejecting duplicate ids.
func (m *Memory) Put(_ context.Context, rec *certkit.CertificateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.CertID]; ok {
		return certkit.ErrDuplicateID
	}
	cp := *rec
	m.records[rec.CertID] = &cp
	return nil
}

// Get fetches a record by id.
func (m *Memory) Get(_ context.Context, certID string) (*certkit.CertificateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[certID]
	if !ok {
		return nil, certkit.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
