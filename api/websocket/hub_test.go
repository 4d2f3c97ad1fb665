package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, log.NewNopLogger(), nil)
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorillaws.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubPublishToSubscribers(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "subscribe", Channel: "pools:0"}))
	ack := readMessage(t, conn)
	require.Equal(t, "subscribed", ack.Type)
	require.Equal(t, "pools:0", ack.Channel)

	// Events for other pools are not delivered
	hub.Publish(LedgerEvent{Type: "stakepool_stake", Attributes: map[string]string{"pool_id": "1"}})
	hub.Publish(LedgerEvent{Type: "stakepool_stake", Height: 7, Attributes: map[string]string{"pool_id": "0", "amount": "100"}})

	msg := readMessage(t, conn)
	require.Equal(t, "stakepool_stake", msg.Type)
	require.Equal(t, "pools:0", msg.Channel)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 7, data["height"])
}

func TestHubSubscribeFromQuery(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "?channel=oracle")

	require.Equal(t, "subscribed", readMessage(t, conn).Type)
	require.Equal(t, 1, hub.GetChannelClientCount(ChannelOracle))

	hub.Publish(LedgerEvent{Type: "stakepool_set_rate", Attributes: map[string]string{"rate": "0.5"}})
	msg := readMessage(t, conn)
	require.Equal(t, ChannelOracle, msg.Channel)
}

func TestClientMessages(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "ping"}))
	require.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "subscribe", Channel: "ticker:BTC"}))
	msg := readMessage(t, conn)
	require.Equal(t, "error", msg.Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "dance"}))
	require.Equal(t, "error", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "subscribe", Channel: ChannelLedger}))
	require.Equal(t, "subscribed", readMessage(t, conn).Type)
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "unsubscribe", Channel: ChannelLedger}))
	require.Equal(t, "unsubscribed", readMessage(t, conn).Type)
	require.Empty(t, hub.GetChannels())
}

func TestLedgerEventChannels(t *testing.T) {
	tests := []struct {
		event LedgerEvent
		want  []string
	}{
		{
			LedgerEvent{Type: "stakepool_stake", Attributes: map[string]string{"pool_id": "2", "owner": "cosmos1abc"}},
			[]string{"ledger", "pools:2", "positions:cosmos1abc"},
		},
		{
			LedgerEvent{Type: "stakepool_set_rate", Attributes: map[string]string{"rate": "1"}},
			[]string{"ledger", "oracle"},
		},
		{
			LedgerEvent{Type: "stakepool_admin_override", Attributes: map[string]string{"position_id": "0"}},
			[]string{"ledger", "admin"},
		},
		{
			LedgerEvent{Type: "stakepool_update_params", Attributes: map[string]string{}},
			[]string{"ledger", "admin"},
		},
	}

	for _, tt := range tests {
		got := tt.event.Channels()
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("%s: Channels() = %v, want %v", tt.event.Type, got, tt.want)
		}
	}
}

func TestIsValidChannel(t *testing.T) {
	valid := []string{"ledger", "oracle", "admin", "pools:0", "positions:cosmos1abc"}
	invalid := []string{"", "pools:", "positions:", "depth:BTC", "ledger2"}

	for _, ch := range valid {
		if !IsValidChannel(ch) {
			t.Errorf("IsValidChannel(%q) = false, want true", ch)
		}
	}
	for _, ch := range invalid {
		if IsValidChannel(ch) {
			t.Errorf("IsValidChannel(%q) = true, want false", ch)
		}
	}
}

func TestSubscriptionRequestsReturnAfterStop(t *testing.T) {
	hub := NewHub(nil, log.NewNopLogger(), nil)
	client := NewClient(hub, nil, "client-1", "127.0.0.1")

	// No Run loop: fill the queues so the next request cannot be buffered
	for i := 0; i < cap(hub.subscribe); i++ {
		hub.subscribe <- &SubscriptionRequest{Client: client, Channel: "ledger"}
	}
	for i := 0; i < cap(hub.unsubscribe); i++ {
		hub.unsubscribe <- &SubscriptionRequest{Client: client, Channel: "ledger"}
	}
	hub.Stop()

	done := make(chan struct{})
	go func() {
		client.handleSubscribe("oracle")
		client.handleUnsubscribe("oracle")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription requests blocked after hub stop")
	}
	require.Empty(t, client.GetSubscriptions())
}
