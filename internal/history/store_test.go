package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := Open(dataDir)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dataDir, "predictions.db"))
	assert.NoError(t, err)
}

func TestInsertAndList(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Insert("Approved", 0.8808, "Credit_History", "predict"))
	require.NoError(t, s.Insert("Rejected", 0.2113, "ApplicantIncome", "batch_predict"))

	records, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "Rejected", records[0].Prediction)
	assert.Equal(t, "batch_predict", records[0].Source)
	assert.Equal(t, "Approved", records[1].Prediction)
	assert.InDelta(t, 0.8808, records[1].Probability, 1e-9)
	assert.Equal(t, "Credit_History", records[1].TopFeature)
	assert.False(t, records[1].CreatedAt.IsZero())
}

func TestListHonorsLimit(t *testing.T) {
	s := openStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert("Approved", 0.9, "Credit_History", "predict"))
	}

	records, err := s.List(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestListDefaultsLimit(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Insert("Approved", 0.9, "Credit_History", "predict"))

	records, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListEmptyStore(t *testing.T) {
	s := openStore(t)

	records, err := s.List(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
