package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicontract "github.com/tuanvumaihuynh/product-tracker/api-contract"
	"github.com/tuanvumaihuynh/product-tracker/internal/http/apierr"
	"github.com/tuanvumaihuynh/product-tracker/internal/http/middleware"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/pkg/correlationid"
)

func TestCorrelationID(t *testing.T) {
	var seen string
	handler := middleware.CorrelationID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = correlationid.FromContext(r.Context())
	}))

	t.Run("Should keep the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlationid.Header, "abc")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc", seen)
		assert.Equal(t, "abc", rec.Header().Get(correlationid.Header))
	})

	t.Run("Should replace an oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlationid.Header, strings.Repeat("x", 200))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(correlationid.Header))
	})

	t.Run("Should generate an id when missing", func(t *testing.T) {
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
	})
}

func TestRecoverer(t *testing.T) {
	t.Run("Should answer 500 with the generic error body", func(t *testing.T) {
		handler := middleware.Recoverer(log.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body apierr.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apierr.InternalServerErr.Code, body.Code)
		assert.False(t, body.Success)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("Should reject requests beyond the burst", func(t *testing.T) {
		var rejected error
		onError := func(w http.ResponseWriter, _ *http.Request, err error) {
			rejected = err
			w.WriteHeader(http.StatusTooManyRequests)
		}
		handler := middleware.RateLimit(0.001, 2, onError)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		codes := make([]int, 0, 3)
		for range 3 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			codes = append(codes, rec.Code)
		}

		assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
		assert.Error(t, rejected)
	})
}

func TestOpenAPIValidator(t *testing.T) {
	doc, err := apicontract.Load(context.Background())
	require.NoError(t, err)

	var rejected error
	onError := func(w http.ResponseWriter, _ *http.Request, err error) {
		rejected = err
		w.WriteHeader(http.StatusBadRequest)
	}
	mw, err := middleware.OpenAPIValidator(doc, onError)
	require.NoError(t, err)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Should reject a body missing required fields", func(t *testing.T) {
		rejected = nil
		req := httptest.NewRequest(http.MethodPost, "/api/product/addProduct", strings.NewReader(`{"productName":"X"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var reqErr *openapi3filter.RequestError
		assert.True(t, errors.As(rejected, &reqErr))
	})

	t.Run("Should accept a valid path parameter", func(t *testing.T) {
		rejected = nil
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/product/12", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, rejected)
	})

	t.Run("Should pass through undocumented routes", func(t *testing.T) {
		rejected = nil
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, rejected)
	})
}
