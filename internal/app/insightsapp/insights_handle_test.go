package insightsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IsaacDSC/cachefn/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	metrics domain.Metrics
	err     error
}

func (s stubStore) GetAll(ctx context.Context) (domain.Metrics, error) {
	return s.metrics, s.err
}

func TestGetInsightsHandle(t *testing.T) {
	at := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	store := stubStore{metrics: domain.Metrics{
		{Tag: "Report", Method: "_total", Outcome: domain.OutcomeStored, TimeDurationMs: 30, TimeEnded: at},
		{Tag: "Report", Method: "_total", Outcome: domain.OutcomeHit, TimeEnded: at},
	}}

	rr := httptest.NewRecorder()
	GetInsightsHandle(store).Handler(rr, httptest.NewRequest(http.MethodGet, "/insights", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var got domain.Insights
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got.TotalCalls)
	assert.Equal(t, int64(1), got.TotalHits)
	assert.Equal(t, int64(1), got.TotalStored)
}

func TestGetInsightsHandle_StoreError(t *testing.T) {
	rr := httptest.NewRecorder()
	GetInsightsHandle(stubStore{err: errors.New("redis down")}).Handler(rr, httptest.NewRequest(http.MethodGet, "/insights", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"redis down"}`, rr.Body.String())
}
