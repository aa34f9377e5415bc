package httpclient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/karciss/red-social-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// pgrstError builds a PostgREST-style JSON error body. Messages often quote
// constraint names, so the body is marshaled rather than concatenated.
func pgrstError(code, message string) string {
	body, err := json.Marshal(map[string]any{
		"code":    code,
		"message": message,
		"details": nil,
		"hint":    nil,
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

func parseAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr
}

func TestParseResponseError_NotFound(t *testing.T) {
	resp := makeResponse(http.StatusNotFound, pgrstError("PGRST116", "no rows returned"))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, appErr.Message, "supabase")
}

func TestParseResponseError_BadRequest(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, pgrstError("PGRST102", "invalid body"))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestParseResponseError_UniqueViolation(t *testing.T) {
	// PostgREST reports unique violations as 409 with the Postgres error code.
	resp := makeResponse(http.StatusConflict, pgrstError("23505", `duplicate key value violates unique constraint "users_email_key"`))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "EMAIL_TAKEN", appErr.Code)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateEmail))
}

func TestParseResponseError_Unauthorized(t *testing.T) {
	resp := makeResponse(http.StatusUnauthorized, pgrstError("PGRST301", "JWT expired"))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestParseResponseError_Forbidden(t *testing.T) {
	resp := makeResponse(http.StatusForbidden, pgrstError("42501", "permission denied for table users"))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestParseResponseError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, pgrstError("XX000", "internal error"))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.Contains(t, appErr.Message, "supabase")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "Bad Gateway: upstream connection refused")
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "supabase")
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream connection refused")
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, "")
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "supabase")
	assert.Contains(t, err.Error(), "500")
}

func TestParseResponseError_HTMLBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html><body><h1>502 Bad Gateway</h1></body></html>")
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "supabase")
	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_EmptyMessage(t *testing.T) {
	// A JSON body without a message falls through to the unstructured path.
	resp := makeResponse(http.StatusBadRequest, `{"code":"","message":""}`)
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "supabase")
	assert.Contains(t, err.Error(), "400")
}

func TestParseResponseError_UnhandledStatus(t *testing.T) {
	// A 4xx status not specifically handled keeps its original status and code.
	resp := makeResponse(http.StatusTooManyRequests, pgrstError("RATE_LIMITED", "slow down"))
	err := ParseResponseError(resp, "supabase")
	require.Error(t, err)

	appErr := parseAppError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
	assert.Contains(t, appErr.Message, "supabase")
}

func TestIsClientError(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 409, 422, 429, 499} {
		assert.True(t, IsClientError(status), "status %d should be a client error", status)
	}
	for _, status := range []int{200, 204, 302, 399, 500, 503} {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}
