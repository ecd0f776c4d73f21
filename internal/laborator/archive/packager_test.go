package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackagerRoundTrip(t *testing.T) {
	modified := time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC)
	p := NewAt(modified)
	payload := bytes.Repeat([]byte("zirconiu "), 4096)
	require.NoError(t, p.Append("Doctor_Ana.xlsx", payload))
	require.NoError(t, p.Append("Doctor_Bob.xlsx", []byte("bob")))

	data, err := p.Finalize()
	require.NoError(t, err)
	assert.Less(t, len(data), len(payload), "entries are deflated")

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "Doctor_Ana.xlsx", zr.File[0].Name)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)
	assert.True(t, zr.File[0].Modified.Equal(modified))

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, got)
}

func TestPackagerDuplicateNames(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Append("Doctor_Pop.xlsx", []byte{byte(i)}))
	}
	assert.Equal(t, []string{"Doctor_Pop.xlsx", "Doctor_Pop_2.xlsx", "Doctor_Pop_3.xlsx"}, p.Entries())
	_, err := p.Finalize()
	require.NoError(t, err)
}

func TestPackagerFinalizeTwice(t *testing.T) {
	p := New()
	_, err := p.Finalize()
	require.NoError(t, err)

	_, err = p.Finalize()
	require.ErrorIs(t, err, ErrFinalized)
	require.ErrorIs(t, p.Append("late.xlsx", nil), ErrFinalized)
}

func TestPackagerEmptyArchiveIsValid(t *testing.T) {
	data, err := New().Finalize()
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

func TestPackagerAbort(t *testing.T) {
	p := New()
	require.NoError(t, p.Append("a.xlsx", []byte("a")))
	p.Abort()
	p.Abort()

	require.ErrorIs(t, p.Append("b.xlsx", nil), ErrFinalized)
	_, err := p.Finalize()
	require.ErrorIs(t, err, ErrFinalized)
}
