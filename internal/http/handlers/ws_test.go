package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
)

func TestWSHandler_Connect(t *testing.T) {
	t.Parallel()

	registry := notify.NewRegistry(logx.Nop())
	h := handlers.NewWSHandler(registry, logx.Nop())

	r := chi.NewRouter()
	r.Get("/ws/couriers/{id}", h.Connect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/couriers/7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.True(t, registry.Connected(7))

	msg := notify.Message{Type: notify.TypeOffer, OfferID: "off-1"}
	require.NoError(t, registry.Push(context.Background(), 7, msg))

	var got notify.Message
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, notify.TypeOffer, got.Type)
	require.Equal(t, "off-1", got.OfferID)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return !registry.Connected(7)
	}, time.Second, 10*time.Millisecond)
}

func TestWSHandler_Connect_InvalidID(t *testing.T) {
	t.Parallel()

	registry := notify.NewRegistry(logx.Nop())
	h := handlers.NewWSHandler(registry, logx.Nop())

	r := chi.NewRouter()
	r.Get("/ws/couriers/{id}", h.Connect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/couriers/abc"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	require.Equal(t, 400, resp.StatusCode)
}
