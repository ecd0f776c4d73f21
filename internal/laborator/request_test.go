package laborator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOpenRange(t *testing.T) {
	req, err := ParseRequest(RawRequest{})
	require.NoError(t, err)
	assert.Nil(t, req.Range.Start)
	assert.Nil(t, req.Range.End)
	assert.False(t, req.Debug)
}

func TestParseRequestDateOnlyEndIsInclusive(t *testing.T) {
	req, err := ParseRequest(RawRequest{StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	require.NotNil(t, req.Range.Start)
	require.NotNil(t, req.Range.End)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *req.Range.Start)
	assert.True(t, req.Range.Contains(time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, req.Range.Contains(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseRequestRFC3339(t *testing.T) {
	req, err := ParseRequest(RawRequest{EndDate: "2025-01-31T12:00:00+02:00"})
	require.NoError(t, err)
	assert.True(t, req.Range.End.Equal(time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)))
}

func TestParseRequestRejectsBadDates(t *testing.T) {
	_, err := ParseRequest(RawRequest{StartDate: "31/01/2025"})
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "startDate", verr.Field)
}

func TestParseRequestReversedRangeIsAccepted(t *testing.T) {
	req, err := ParseRequest(RawRequest{StartDate: "2025-02-01", EndDate: "2025-01-01"})
	require.NoError(t, err)
	require.NotNil(t, req.Range.Start)
	require.NotNil(t, req.Range.End)
	assert.True(t, req.Range.End.Before(*req.Range.Start))
	assert.False(t, req.Range.Contains(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestFlagUnmarshal(t *testing.T) {
	cases := map[string]bool{
		`{"debug":true}`:    true,
		`{"debug":1}`:       true,
		`{"debug":"yes"}`:   true,
		`{"debug":"1"}`:     true,
		`{"debug":false}`:   false,
		`{"debug":0}`:       false,
		`{"debug":"false"}`: false,
		`{"debug":null}`:    false,
		`{}`:                false,
	}
	for body, want := range cases {
		var raw RawRequest
		require.NoError(t, json.Unmarshal([]byte(body), &raw), body)
		assert.Equal(t, want, bool(raw.Debug), body)
	}
}

func TestAcceptsOnlyJSON(t *testing.T) {
	assert.True(t, AcceptsOnlyJSON("application/json"))
	assert.False(t, AcceptsOnlyJSON("application/zip, application/json"))
	assert.False(t, AcceptsOnlyJSON("*/*"))
	assert.False(t, AcceptsOnlyJSON(""))
}
