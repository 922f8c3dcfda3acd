package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/notify"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/pkg/config"
)

func TestHandleBuildShipsEnqueuesCommand(t *testing.T) {
	h := newTestHarness(t)
	seedPlayer(h, "alice", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	body := strings.NewReader(`{"ship_type":"light_fighter","quantity":5}`)
	req := httptest.NewRequest(http.MethodPost, "/player/alice/build-ships", body)
	req.Header.Set("X-User-Id", "alice")
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	drained := h.queue.DrainAll()
	require.Len(t, drained, 1)
	assert.Equal(t, sim.BuildShips, drained[0].Kind)
	assert.Equal(t, config.ShipType("light_fighter"), drained[0].ShipType)
	assert.Equal(t, int64(5), drained[0].Quantity)
}

func TestHandleFleetGetUnknownPlayer(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/player/nobody/fleet", nil)
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTradeOffersGetEmpty(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/trade/offers", nil)
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var offers []components.TradeOffer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &offers))
	assert.Empty(t, offers)
}

func TestHandleTradeOffersPostBlocksUntilSchedulerReplies(t *testing.T) {
	h := newTestHarness(t)
	seedPlayer(h, "alice", components.Resources{Metal: 1_000_000, Crystal: 1_000_000, Deuterium: 1_000_000})

	body := strings.NewReader(`{"offered_resource":"metal","offered_qty":100,"requested_resource":"crystal","requested_qty":50}`)
	req := httptest.NewRequest(http.MethodPost, "/trade/offers", body)
	req.Header.Set("X-User-Id", "alice")

	recCh := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		h.server.router.ServeHTTP(rec, req)
		recCh <- rec
	}()

	h.drainUntil(t, time.Now(), 2*time.Second)

	rec := <-recCh
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["offer_id"])
}

func TestHandleTradeOffersPostRejectsUnknownResource(t *testing.T) {
	h := newTestHarness(t)

	body := strings.NewReader(`{"offered_resource":"gold","offered_qty":1,"requested_resource":"crystal","requested_qty":1}`)
	req := httptest.NewRequest(http.MethodPost, "/trade/offers", body)
	req.Header.Set("X-User-Id", "alice")
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.queue.Depth())
}

func TestHandleNotificationsListAndDelete(t *testing.T) {
	h := newTestHarness(t)
	n := h.server.notify.Create("alice", "welcome", map[string]any{"text": "hello"}, notify.PriorityNormal)

	req := httptest.NewRequest(http.MethodGet, "/player/alice/notifications", nil)
	rec := httptest.NewRecorder()
	h.server.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	del := httptest.NewRequest(http.MethodDelete, "/notifications/"+strconv.FormatInt(n.ID, 10), nil)
	del.Header.Set("X-User-Id", "alice")
	delRec := httptest.NewRecorder()
	h.server.router.ServeHTTP(delRec, del)
	assert.Equal(t, http.StatusOK, delRec.Code)
}
