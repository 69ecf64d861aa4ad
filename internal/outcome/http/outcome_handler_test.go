package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/conversions/internal/errors"
	outboxdomain "github.com/allisson/conversions/internal/outbox/domain"
	"github.com/allisson/conversions/internal/outcome/domain"
	"github.com/allisson/conversions/internal/outcome/http/dto"
	"github.com/allisson/conversions/internal/outcome/usecase"
	"github.com/allisson/conversions/internal/testutil"
)

type fakeOutcomeUseCase struct {
	input      usecase.ComputeOutcomeInput
	event      *domain.OutcomeEvent
	overview   *usecase.StatusOverview
	limit      int
	computeErr error
	statusErr  error
}

func (f *fakeOutcomeUseCase) ComputeCustomerOutcome(
	_ context.Context,
	input usecase.ComputeOutcomeInput,
) (*domain.OutcomeEvent, error) {
	f.input = input
	if f.computeErr != nil {
		return nil, f.computeErr
	}
	return f.event, nil
}

func (f *fakeOutcomeUseCase) StatusOverview(_ context.Context, limit int) (*usecase.StatusOverview, error) {
	f.limit = limit
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.overview, nil
}

// setupTestHandler creates a test handler with a fake use case.
func setupTestHandler(t *testing.T) (*OutcomeHandler, *fakeOutcomeUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	useCase := &fakeOutcomeUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewOutcomeHandler(useCase, logger), useCase
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func TestOutcomeHandler_ComputeHandler(t *testing.T) {
	value := 149.90

	request := dto.ComputeOutcomeRequest{
		CustomerID:  "customer-1",
		OutcomeType: "PURCHASE",
		OccurredAt:  "2025-06-15T12:30:00Z",
		Email:       "ada@example.com",
		Value:       &value,
		Currency:    "USD",
		OrderID:     "order-42",
	}

	t.Run("accepts the outcome and confirms the queued event", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.event = testutil.BuildOutcomeEvent(t)

		c, w := createTestContext(http.MethodPost, "/v1/outcomes", request)

		handler.ComputeHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)

		var response dto.ComputeOutcomeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, useCase.event.EventID, response.EventID)
		assert.Equal(t, "PURCHASE", response.OutcomeType)
		assert.Equal(t, []string{"meta", "snap", "tiktok"}, response.Platforms)
		assert.Equal(t, "queued", response.Status)

		assert.Equal(t, "customer-1", useCase.input.CustomerID)
		assert.Equal(t, "ada@example.com", useCase.input.Email)
	})

	t.Run("fills client network fields from the request when omitted", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.event = testutil.BuildOutcomeEvent(t)

		c, w := createTestContext(http.MethodPost, "/v1/outcomes", request)
		c.Request.Header.Set("User-Agent", "test-agent/1.0")
		c.Request.RemoteAddr = "203.0.113.9:51000"

		handler.ComputeHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "203.0.113.9", useCase.input.ClientIP)
		assert.Equal(t, "test-agent/1.0", useCase.input.ClientUserAgent)
	})

	t.Run("keeps client network fields provided by the caller", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.event = testutil.BuildOutcomeEvent(t)

		withClient := request
		withClient.ClientIP = "198.51.100.7"
		withClient.ClientUserAgent = "server-side/2.0"

		c, w := createTestContext(http.MethodPost, "/v1/outcomes", withClient)

		handler.ComputeHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "198.51.100.7", useCase.input.ClientIP)
		assert.Equal(t, "server-side/2.0", useCase.input.ClientUserAgent)
	})

	t.Run("returns 400 for malformed json", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodPost, "/v1/outcomes", strings.NewReader("{not-json"))
		req.Header.Set("Content-Type", "application/json")
		c.Request = req

		handler.ComputeHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad_request")
	})

	t.Run("returns 422 when the use case rejects the input", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.computeErr = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown outcome type")

		c, w := createTestContext(http.MethodPost, "/v1/outcomes", request)

		handler.ComputeHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_input")
	})

	t.Run("returns 500 without details for unexpected errors", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.computeErr = assert.AnError

		c, w := createTestContext(http.MethodPost, "/v1/outcomes", request)

		handler.ComputeHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal_error")
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}

func TestOutcomeHandler_StatusHandler(t *testing.T) {
	lastError := "timeout"
	now := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)

	overview := &usecase.StatusOverview{
		Recent: []*outboxdomain.Delivery{
			{
				EventID:    "event-1",
				Platform:   domain.PlatformMeta,
				Status:     outboxdomain.DeliveryStatusPending,
				RetryCount: 2,
				LastError:  &lastError,
				OccurredAt: now,
				UpdatedAt:  now,
			},
		},
		Summary: []outboxdomain.StatusCount{
			{
				Platform:   domain.PlatformMeta,
				Status:     outboxdomain.DeliveryStatusPending,
				Count:      4,
				AvgRetries: 1.5,
				MaxRetries: 3,
			},
		},
	}

	t.Run("reports recent deliveries and aggregates", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.overview = overview

		c, w := createTestContext(http.MethodGet, "/v1/outcomes/status", nil)

		handler.StatusHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 50, useCase.limit)

		var response dto.StatusOverviewResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Recent, 1)
		assert.Equal(t, "event-1", response.Recent[0].EventID)
		assert.Equal(t, "meta", response.Recent[0].Platform)
		assert.Equal(t, "pending", response.Recent[0].Status)
		require.NotNil(t, response.Recent[0].LastError)
		assert.Equal(t, "timeout", *response.Recent[0].LastError)
		require.Len(t, response.Summary, 1)
		assert.Equal(t, int64(4), response.Summary[0].Count)
		assert.Equal(t, 1.5, response.Summary[0].AvgRetries)
	})

	t.Run("forwards the limit query parameter", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)
		useCase.overview = overview

		c, w := createTestContext(http.MethodGet, "/v1/outcomes/status?limit=5", nil)

		handler.StatusHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, useCase.limit)
	})

	t.Run("returns 400 for an invalid limit", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/outcomes/status?limit=0", nil)

		handler.StatusHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad_request")
	})
}
