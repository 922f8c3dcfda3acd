package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarforge/coreserver/internal/persistence"
)

func TestHandleBattleReportsEmptyWhenPersistenceDisabled(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/player/alice/battle-reports", nil)
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var reports []persistence.BattleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	assert.Empty(t, reports)
}

func TestHandleMarketGuidance(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/market/guidance", nil)
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
