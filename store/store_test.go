package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/certkit"
)

func sampleRecord(id string) *certkit.CertificateRecord {
	return &certkit.CertificateRecord{
		CertID:        id,
		RecipientName: "Sara Khan",
		CourseName:    "Python Basics",
		IssueDate:     "2024-01-15",
		Signature:     "deadbeef",
		DataHash:      "cafebabe",
		AdditionalData: map[string]string{
			"name": "Sara Khan", "score": "95",
		},
		CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

// storeUnderTest runs the same contract checks against every
// implementation.
func storeUnderTest(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("put and get round trip", func(t *testing.T) {
		rec := sampleRecord("AAAAAAAAAAA")
		require.NoError(t, s.Put(ctx, rec))

		got, err := s.Get(ctx, "AAAAAAAAAAA")
		require.NoError(t, err)
		assert.Equal(t, rec.RecipientName, got.RecipientName)
		assert.Equal(t, rec.CourseName, got.CourseName)
		assert.Equal(t, rec.IssueDate, got.IssueDate)
		assert.Equal(t, rec.Signature, got.Signature)
		assert.Equal(t, rec.DataHash, got.DataHash)
		assert.Equal(t, rec.AdditionalData, got.AdditionalData)
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		rec := sampleRecord("BBBBBBBBBBB")
		require.NoError(t, s.Put(ctx, rec))

		err := s.Put(ctx, sampleRecord("BBBBBBBBBBB"))
		assert.ErrorIs(t, err, certkit.ErrDuplicateID)

		// The first write survives.
		got, err := s.Get(ctx, "BBBBBBBBBBB")
		require.NoError(t, err)
		assert.Equal(t, "Sara Khan", got.RecipientName)
	})

	t.Run("absent id", func(t *testing.T) {
		_, err := s.Get(ctx, "missing-id-x")
		assert.ErrorIs(t, err, certkit.ErrNotFound)
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		ids := []string{"CCCCCCCCCC1", "CCCCCCCCCC2", "CCCCCCCCCC3", "CCCCCCCCCC4"}
		var wg sync.WaitGroup
		errs := make([]error, len(ids))
		for i, id := range ids {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				errs[i] = s.Put(ctx, sampleRecord(id))
			}(i, id)
		}
		wg.Wait()
		for i, err := range errs {
			assert.NoError(t, err, "insert %d", i)
		}
		for _, id := range ids {
			_, err := s.Get(ctx, id)
			assert.NoError(t, err, "get %s", id)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "certs.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sampleRecord("DDDDDDDDDDD")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "DDDDDDDDDDD")
	require.NoError(t, err)
	assert.Equal(t, "Sara Khan", got.RecipientName)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Put(ctx, sampleRecord("EEEEEEEEEEE")))

	got, err := s.Get(ctx, "EEEEEEEEEEE")
	require.NoError(t, err)
	got.RecipientName = "mutated"

	again, err := s.Get(ctx, "EEEEEEEEEEE")
	require.NoError(t, err)
	assert.Equal(t, "Sara Khan", again.RecipientName)
}
