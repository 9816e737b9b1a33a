package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/api"
	"matchbook/internal/engine"
	"matchbook/internal/ws"
)

type wsEvent struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Data   json.RawMessage `json:"data"`
}

func setupWSServer(t *testing.T) *httptest.Server {
	gin.SetMode(gin.TestMode)

	books := engine.NewManager()
	hub := ws.NewHub(nil, books, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	api.RegisterRoutes(router, books, nil, nil, hub, nil, sharedMetrics())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, symbol string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + symbol
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "dial websocket")
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvents reads one websocket frame and splits it into events; the write
// pump coalesces queued messages into a single newline-separated frame.
func readEvents(t *testing.T, conn *websocket.Conn) []wsEvent {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err, "read websocket frame")

	var events []wsEvent
	for _, part := range bytes.Split(frame, []byte{'\n'}) {
		if len(part) == 0 {
			continue
		}
		var ev wsEvent
		require.NoError(t, json.Unmarshal(part, &ev), "decode event %q", part)
		events = append(events, ev)
	}
	return events
}

// waitForEvent keeps reading until an event of the wanted type arrives.
func waitForEvent(t *testing.T, conn *websocket.Conn, typ string) wsEvent {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range readEvents(t, conn) {
			if ev.Type == typ {
				return ev
			}
		}
	}
	t.Fatalf("No %q event received", typ)
	return wsEvent{}
}

func TestWebSocketSnapshotOnConnect(t *testing.T) {
	srv := setupWSServer(t)
	conn := dialWS(t, srv, "AAPL")

	ev := waitForEvent(t, conn, "snapshot")
	assert.Equal(t, "AAPL", ev.Symbol)
}

func TestWebSocketBookUpdateOnOrderEntry(t *testing.T) {
	srv := setupWSServer(t)
	conn := dialWS(t, srv, "AAPL")

	// The snapshot confirms the client is registered before the order
	// goes in, so the depth push cannot race the registration.
	waitForEvent(t, conn, "snapshot")

	body, _ := json.Marshal(api.PlaceOrderRequest{
		Symbol: "AAPL", Side: "buy", Type: "gtc", Price: 100, Quantity: 5,
	})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/orders", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authToken(t))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev := waitForEvent(t, conn, "book")
	assert.Equal(t, "AAPL", ev.Symbol)

	var book struct {
		Bids []engine.Level `json:"bids"`
		Asks []engine.Level `json:"asks"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &book))
	require.Len(t, book.Bids, 1)
	assert.Equal(t, int64(100), book.Bids[0].Price)
	assert.Equal(t, uint64(5), book.Bids[0].Quantity)
	assert.Empty(t, book.Asks)
}
