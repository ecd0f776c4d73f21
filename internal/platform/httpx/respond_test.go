package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWritesJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, http.StatusTeapot, "short", "long")

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, ErrorBody{Error: "short", Details: "long"}, body)
}

func TestRespondErrorUsesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, 0, fmt.Errorf("lookup failed: %w", errors.New("timeout")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "lookup failed: timeout", body.Error)
	assert.Equal(t, "timeout", body.Details)
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ana"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "ana", target.Name)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, DecodeJSON(req, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, http.StatusBadRequest, StatusFor(err))
}

func TestMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	Message(rr, "nothing to do")
	assert.JSONEq(t, `{"message":"nothing to do"}`, rr.Body.String())
}
