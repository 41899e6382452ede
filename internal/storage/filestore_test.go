package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_RoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	handle, err := store.Save(ctx, "bank", "statement may.csv", []byte("Date,Amount\n"))
	require.NoError(t, err)
	assert.Contains(t, handle, "bank_")
	assert.Contains(t, handle, "statement_may.csv")

	data, err := store.Read(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("Date,Amount\n"), data)

	require.NoError(t, store.Delete(ctx, handle))
	_, err = store.Read(ctx, handle)
	assert.Error(t, err)
}

func TestDiskStore_HandleCannotEscapeRoot(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeName("../../etc/passwd"))
	assert.Equal(t, "q1.xlsx", sanitizeName("my report/q1.xlsx"))
	assert.Equal(t, "my_report.xlsx", sanitizeName("my report.xlsx"))
}
