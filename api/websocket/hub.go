package websocket

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/openalpha/stake-ledger/metrics"
)

// Channels clients may subscribe to. Pool and owner channels take a suffix,
// e.g. "pools:0" or "positions:cosmos1...".
const (
	ChannelLedger    = "ledger"
	ChannelOracle    = "oracle"
	ChannelAdmin     = "admin"
	ChannelPools     = "pools:"
	ChannelPositions = "positions:"
)

// Hub maintains the set of active clients and routes ledger events to channel subscribers
type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest
	stop        chan struct{}
	stopOnce    sync.Once

	mu sync.RWMutex

	config  *HubConfig
	logger  log.Logger
	metrics *metrics.Collector
}

// HubConfig contains hub configuration
type HubConfig struct {
	MaxSubscriptions int
	MessageRateLimit int // messages per second per client
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		MaxSubscriptions: 50,
		MessageRateLimit: 100,
	}
}

// SubscriptionRequest represents a subscription request
type SubscriptionRequest struct {
	Client  *Client
	Channel string
}

// NewHub creates a new Hub. collector may be nil.
func NewHub(config *HubConfig, logger log.Logger, collector *metrics.Collector) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		stop:        make(chan struct{}),
		config:      config,
		logger:      logger.With("module", "websocket"),
		metrics:     collector,
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)

		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop terminates Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.metrics != nil {
		h.metrics.RecordWSConnection(1)
	}
	h.logger.Debug("Client connected", "client", client.id, "ip", client.ip)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for channel, clients := range h.channels {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
	client.closeSend()

	if h.metrics != nil {
		h.metrics.RecordWSConnection(-1)
	}
	h.logger.Debug("Client disconnected", "client", client.id)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.unregisterClient(client)
	}
}

func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	if _, ok := h.clients[req.Client]; !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := h.channels[req.Channel]; !ok {
		h.channels[req.Channel] = make(map[*Client]bool)
	}
	h.channels[req.Channel][req.Client] = true
	h.mu.Unlock()

	req.Client.sendJSON(&WSMessage{Type: "subscribed", Channel: req.Channel})
}

func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	if _, ok := h.clients[req.Client]; !ok {
		h.mu.Unlock()
		return
	}
	if clients, ok := h.channels[req.Channel]; ok {
		delete(clients, req.Client)
		if len(clients) == 0 {
			delete(h.channels, req.Channel)
		}
	}
	h.mu.Unlock()

	req.Client.sendJSON(&WSMessage{Type: "unsubscribed", Channel: req.Channel})
}

// BroadcastToChannel sends a message to all clients subscribed to a channel
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to encode message", "channel", channel, "error", err)
		return
	}
	for _, client := range clientList {
		client.Send(data)
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage(channelKind(channel))
	}
}

// Publish routes a ledger event to every channel it concerns
func (h *Hub) Publish(event LedgerEvent) {
	for _, channel := range event.Channels() {
		h.BroadcastToChannel(channel, &WSMessage{
			Type:    event.Type,
			Channel: channel,
			Data:    event,
		})
	}
}

// ============ Message Types ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// LedgerEvent is a committed ledger event as published to subscribers
type LedgerEvent struct {
	Type       string            `json:"type"`
	Height     int64             `json:"height"`
	Time       int64             `json:"time"`
	Attributes map[string]string `json:"attributes"`
}

// Channels returns the channels the event is published on
func (e LedgerEvent) Channels() []string {
	channels := []string{ChannelLedger}
	if poolID, ok := e.Attributes["pool_id"]; ok {
		channels = append(channels, ChannelPools+poolID)
	}
	if owner, ok := e.Attributes["owner"]; ok {
		channels = append(channels, ChannelPositions+owner)
	}
	switch {
	case strings.HasSuffix(e.Type, "set_rate"):
		channels = append(channels, ChannelOracle)
	case strings.HasSuffix(e.Type, "admin_override"), strings.HasSuffix(e.Type, "update_params"):
		channels = append(channels, ChannelAdmin)
	}
	return channels
}

// IsValidChannel reports whether clients may subscribe to channel
func IsValidChannel(channel string) bool {
	switch channel {
	case ChannelLedger, ChannelOracle, ChannelAdmin:
		return true
	}
	for _, prefix := range []string{ChannelPools, ChannelPositions} {
		if strings.HasPrefix(channel, prefix) && len(channel) > len(prefix) {
			return true
		}
	}
	return false
}

func channelKind(channel string) string {
	if i := strings.IndexByte(channel, ':'); i >= 0 {
		return channel[:i]
	}
	return channel
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannels returns the channels with at least one subscriber
func (h *Hub) GetChannels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	channels := make([]string, 0, len(h.channels))
	for channel := range h.channels {
		channels = append(channels, channel)
	}
	sort.Strings(channels)
	return channels
}

// GetChannelClientCount returns the number of clients in a channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// ServeWS handles WebSocket upgrade requests
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h, conn, uuid.New().String(), clientIP(r))

	select {
	case h.register <- client:
	case <-h.stop:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	for _, channel := range r.URL.Query()["channel"] {
		client.handleSubscribe(channel)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if i := strings.LastIndexByte(ip, ':'); i >= 0 {
		return ip[:i]
	}
	return ip
}
