package webserver

func (web *WebServer) routes() {
	web.router.HandleFunc("/api/v1.0/messages", web.messagesHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/messages", web.sendHdlr).Methods("POST")
	web.router.HandleFunc("/api/v1.0/status", web.statusHdlr).Methods("GET")
	web.router.HandleFunc("/ws", web.webSocketHdlr)
	web.router.Handle("/metrics", web.metricsHandler())
	web.router.PathPrefix("/").Handler(staticFiles())
}
