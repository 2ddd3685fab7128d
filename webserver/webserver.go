// Package webserver provides the HTTP API and the web interface of a
// station. State changes are pushed to the browsers through a websocket.
package webserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/trx"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed html
var content embed.FS

// Transceiver is the part of a station the web server controls.
type Transceiver interface {
	Send(text string) (trx.Message, error)
	Messages() []trx.Message
	Status() trx.Status
}

// WebServer serves the REST API, the websocket and the static web page.
type WebServer struct {
	url        string
	trx        Transceiver
	events     *pubsub.PubSub
	gatherer   prometheus.Gatherer
	router     *mux.Router
	server     *http.Server
	hub        *hub
	apiVersion string
	apiMatch   *regexp.Regexp
	logger     *slog.Logger
}

// Option configures a WebServer.
type Option func(*WebServer)

// Gatherer exposes the metrics of g on /metrics.
func Gatherer(g prometheus.Gatherer) Option {
	return func(web *WebServer) {
		web.gatherer = g
	}
}

// Logger sets the logger of the web server.
func Logger(l *slog.Logger) Option {
	return func(web *WebServer) {
		web.logger = l
	}
}

// NewWebServer is the constructor method for a WebServer. The events of
// ps are forwarded to the connected websocket clients.
func NewWebServer(host string, port int, t Transceiver, ps *pubsub.PubSub, opts ...Option) (*WebServer, error) {
	if t == nil {
		return nil, errors.New("transceiver is nil")
	}
	if ps == nil {
		return nil, errors.New("event bus is nil")
	}

	web := &WebServer{
		url:        net.JoinHostPort(host, fmt.Sprint(port)),
		trx:        t,
		events:     ps,
		router:     mux.NewRouter().StrictSlash(true),
		apiVersion: "1.0",
		apiMatch:   regexp.MustCompile(`api\/v\d\.\d\/`),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(web)
	}

	web.hub = newHub(ps, web.logger)
	web.routes()

	return web, nil
}

// Handler returns the http.Handler of the web server, including its
// middleware.
func (web *WebServer) Handler() http.Handler {
	return web.apiRedirectRouter(web.router)
}

// Start starts the websocket hub and the http server. It blocks until the
// server is shut down.
func (web *WebServer) Start() error {
	web.hub.start()

	web.server = &http.Server{
		Addr:              web.url,
		Handler:           web.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	web.logger.Info("web server listening", "url", "http://"+web.url)
	if err := web.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the http server and disconnects all websocket
// clients.
func (web *WebServer) Shutdown(ctx context.Context) error {
	web.hub.stop()
	if web.server == nil {
		return nil
	}
	return web.server.Shutdown(ctx)
}

func (web *WebServer) metricsHandler() http.Handler {
	if web.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(web.gatherer, promhttp.HandlerOpts{})
}

func staticFiles() http.Handler {
	sub, err := fs.Sub(content, "html")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
