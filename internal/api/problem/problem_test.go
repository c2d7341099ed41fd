package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_DevIncludesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/navigate", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusNotFound, TypeUnknownRoute, "Unknown route", errors.New("no route matches /x"), "development")

	require.Equal(t, "application/problem+json", res.Result().Header.Get("Content-Type"))
	require.Equal(t, http.StatusNotFound, res.Code)

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "no route matches /x", body.Detail)
	assert.Equal(t, "/api/v1/navigate", body.Instance)
	assert.Equal(t, TypeUnknownRoute, body.Type)
}

func TestWrite_ProdSanitizesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/navigate", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusBadRequest, TypeInvalidRequest, "Bad request", errors.New("boom"), "production")

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, http.StatusText(http.StatusBadRequest), body.Detail)
}

func TestWrite_Options(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/navigate", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusBadRequest, TypeInvalidRequest, "Bad request", nil, "production",
		WithDetail("missing to"),
		WithErrors(map[string]any{"to": "required"}),
	)

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "missing to", body.Detail)
	assert.Equal(t, "required", body.Errors["to"])
}
