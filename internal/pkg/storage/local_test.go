package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := st.Exists(ctx, "invoices/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.Get(ctx, "invoices/a.pdf")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, st.Put(ctx, "invoices/a.pdf", strings.NewReader("%PDF-1.3"), "application/pdf"))
	ok, err = st.Exists(ctx, "invoices/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := st.Get(ctx, "invoices/a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	require.NoError(t, st.Delete(ctx, "invoices/a.pdf"))
	require.NoError(t, st.Delete(ctx, "invoices/a.pdf"))
	ok, _ = st.Exists(ctx, "invoices/a.pdf")
	assert.False(t, ok)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../secret", "invoices/../../x", ""} {
		err := st.Put(context.Background(), key, strings.NewReader("x"), "text/plain")
		assert.Error(t, err, key)
	}
}
