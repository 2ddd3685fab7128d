package webserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dh1tw/ribbit/audio/sources/modulator"
	"github.com/dh1tw/ribbit/trx"
	"github.com/gorilla/websocket"
)

// SendRequest is the body of a POST on the messages endpoint.
type SendRequest struct {
	Text *string `json:"text"`
}

var upgrader = websocket.Upgrader{}

func (web *WebServer) webSocketHdlr(w http.ResponseWriter, req *http.Request) {

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		web.logger.Warn("unable to open websocket", "remote", req.RemoteAddr, "error", err)
		return
	}

	c := &wsClient{
		ws:   conn,
		send: make(chan []byte, 16),
		hub:  web.hub,
	}

	// the current state is the first message every client receives
	if data, err := json.Marshal(wsEvent{Type: "status", Data: web.trx.Status()}); err == nil {
		c.send <- data
	}

	if !web.hub.add(c) {
		conn.Close()
		return
	}

	go c.write()
	go c.read()
}

func (web *WebServer) messagesHdlr(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	msgs := web.trx.Messages()
	if msgs == nil {
		msgs = []trx.Message{}
	}
	if err := json.NewEncoder(w).Encode(msgs); err != nil {
		web.logger.Error("unable to encode messages", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("500 - unable to encode messages"))
	}
}

func (web *WebServer) sendHdlr(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	var sr SendRequest
	if err := json.NewDecoder(req.Body).Decode(&sr); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("400 - invalid JSON"))
		return
	}
	if sr.Text == nil || *sr.Text == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("400 - invalid Request"))
		return
	}

	msg, err := web.trx.Send(*sr.Text)
	if err != nil {
		if errors.Is(err, modulator.ErrBusy) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("503 - transmit queue full"))
			return
		}
		web.logger.Error("unable to send message", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("500 - unable to send message"))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		web.logger.Error("unable to encode message", "error", err)
	}
}

func (web *WebServer) statusHdlr(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	if err := json.NewEncoder(w).Encode(web.trx.Status()); err != nil {
		web.logger.Error("unable to encode status", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("500 - unable to encode status"))
	}
}
