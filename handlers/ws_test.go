package handlers

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHousehold(t *testing.T, serverURL, householdID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/households/" + householdID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func TestBroadcastEventReachesOnlyItsHousehold(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewWSHandler()
	router := gin.New()
	router.GET("/ws/households/:id", handler.HandleWS)

	server := httptest.NewServer(router)
	defer server.Close()

	first := dialHousehold(t, server.URL, "household-1")
	defer first.Close()
	second := dialHousehold(t, server.URL, "household-2")
	defer second.Close()

	// Give melody a moment to register both sessions.
	time.Sleep(100 * time.Millisecond)

	handler.BroadcastEvent("household-1", "expenses_updated")

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := first.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "expenses_updated"}`, string(msg))

	// The other household must stay silent.
	require.NoError(t, second.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = second.ReadMessage()
	assert.Error(t, err)
}

func TestConcurrentConnectsKeepTheirOwnHousehold(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewWSHandler()
	router := gin.New()
	router.GET("/ws/households/:id", handler.HandleWS)

	server := httptest.NewServer(router)
	defer server.Close()

	conns := make([]*websocket.Conn, 10)
	dialErrs := make([]error, len(conns))
	var wg sync.WaitGroup
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			household := "household-1"
			if i%2 == 1 {
				household = "household-2"
			}
			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/households/" + household
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if resp != nil {
				resp.Body.Close()
			}
			conns[i], dialErrs[i] = conn, err
		}(i)
	}
	wg.Wait()
	for i, err := range dialErrs {
		require.NoError(t, err, "dial %d", i)
		defer conns[i].Close()
	}

	time.Sleep(100 * time.Millisecond)

	handler.BroadcastEvent("household-2", "expenses_updated")

	for i, conn := range conns {
		if i%2 == 1 {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err, "connection %d should receive its household's event", i)
			assert.JSONEq(t, `{"type": "expenses_updated"}`, string(msg))
		} else {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
			_, _, err := conn.ReadMessage()
			assert.Error(t, err, "connection %d belongs to another household", i)
		}
	}
}
