package webserver

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/events"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// topics which are forwarded to the websocket clients
var wsTopics = []string{
	events.MsgQueued,
	events.MsgSent,
	events.MsgReceived,
	events.DecodeError,
	events.Locked,
	events.ChannelBusy,
	events.BrokerConnStatus,
}

// wsEvent is the envelope of every message pushed to a websocket client.
type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// wsRequest is sent by a websocket client to transmit a message.
type wsRequest struct {
	Text string `json:"text"`
}

type hub struct {
	sync.Mutex
	clients map[*wsClient]bool
	closed  bool
	events  *pubsub.PubSub
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

func newHub(ps *pubsub.PubSub, logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[*wsClient]bool),
		events:  ps,
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// start subscribes to the station events and forwards them to all clients
// until stop is called.
func (h *hub) start() {
	for _, topic := range wsTopics {
		go h.forward(topic, h.events.Sub(topic))
	}
}

func (h *hub) forward(topic string, ch chan interface{}) {
	defer func() {
		// keep draining, publishers must not block while we unsubscribe
		go func() {
			for range ch {
			}
		}()
		h.events.Unsub(ch)
	}()

	for {
		select {
		case <-h.done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(topic, ev)
		}
	}
}

func (h *hub) broadcast(topic string, ev interface{}) {
	data, err := json.Marshal(wsEvent{Type: topic, Data: ev})
	if err != nil {
		h.logger.Warn("unable to marshal event", "topic", topic, "error", err)
		return
	}

	h.Lock()
	defer h.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, disconnecting")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *hub) add(c *wsClient) bool {
	h.Lock()
	defer h.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	h.logger.Debug("websocket connected", "clients", len(h.clients))
	return true
}

func (h *hub) remove(c *wsClient) {
	h.Lock()
	defer h.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("websocket disconnected", "clients", len(h.clients))
	}
}

func (h *hub) stop() {
	h.once.Do(func() {
		close(h.done)
		h.Lock()
		h.closed = true
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.Unlock()
	})
}

// request handles a message from a websocket client.
func (h *hub) request(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Warn("unable to unmarshal websocket request", "data", string(data))
		return
	}
	if req.Text == "" {
		return
	}
	h.events.Pub(req.Text, events.SendText)
}

type wsClient struct {
	ws   *websocket.Conn
	send chan []byte
	hub  *hub
}

func (c *wsClient) write() {
	defer c.ws.Close()

	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *wsClient) read() {
	defer func() {
		c.hub.remove(c)
		c.ws.Close()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.hub.request(data)
	}
}
