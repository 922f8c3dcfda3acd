package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHandleWSRejectsMissingToken(t *testing.T) {
	h := newTestHarness(t)
	ts := httptest.NewServer(h.server.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		defer conn.Close()
	}
	_ = resp

	if conn != nil {
		_, _, readErr := conn.ReadMessage()
		require.Error(t, readErr)
	}
}

func TestHandleWSWelcomeAndPing(t *testing.T) {
	h := newTestHarness(t)
	ts := httptest.NewServer(h.server.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var welcome struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "welcome", welcome.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	var pong struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong.Type)
}
