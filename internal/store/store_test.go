package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailvalidator/batch"
	"github.com/optimode/emailvalidator/internal/store"
)

func output(id string, detailed bool) *batch.Output {
	return &batch.Output{
		Job: batch.Job{ID: id, Detailed: detailed},
		Table: &batch.Table{
			Columns: []string{"email", "valid"},
			Rows:    [][]string{{"a@example.com", "true"}},
		},
	}
}

func TestLocal_SaveAndFind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	s, err := store.NewLocal(dir)
	require.NoError(t, err)

	_, err = s.Find("job")
	assert.ErrorIs(t, err, store.ErrNotFound)

	path, err := s.Save(context.Background(), output("job", false))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job_validated.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "email,valid\na@example.com,true\n", string(data))

	found, err := s.Find("job")
	require.NoError(t, err)
	assert.Equal(t, path, found)

	detailed, err := s.Save(context.Background(), output("job", true))
	require.NoError(t, err)
	found, err = s.Find("job")
	require.NoError(t, err)
	assert.Equal(t, detailed, found, "detailed result is preferred")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestLocal_FindRejectsPaths(t *testing.T) {
	s, err := store.NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../job", "a/b"} {
		_, err := s.Find(id)
		assert.ErrorIs(t, err, store.ErrNotFound, id)
	}
}

func TestLocal_SaveCancelled(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewLocal(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, output("job", false))
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
