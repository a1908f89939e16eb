package main

import (
	"log"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
)

// sessions counts open websocket sessions for logging.
var sessions atomic.Int64

// newHandler serves the websocket endpoint at /ws, a health check and,
// if static is set, the files of that directory.
func newHandler(static string, cfg sessionConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", websocketHandler(cfg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Printf("health: %v", err)
		}
	})
	if static != "" {
		mux.Handle("/", http.FileServer(http.Dir(static)))
	}
	return mux
}

// websocketHandler upgrades the connection and runs an irpc session over it
// until the client goes away.
func websocketHandler(cfg sessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // TODO: take allowed origins from a flag before exposing publicly
		})
		if err != nil {
			log.Println(err)
			return
		}

		n := sessions.Add(1)
		log.Printf("session from %s opened (%d open)", r.RemoteAddr, n)
		defer func() {
			log.Printf("session from %s closed (%d open)", r.RemoteAddr, sessions.Add(-1))
		}()

		conn := websocket.NetConn(r.Context(), c, websocket.MessageBinary)
		if err := serveSession(r.Context(), conn, cfg); err != nil {
			log.Printf("session %s: %v", r.RemoteAddr, err)
		}
	}
}
