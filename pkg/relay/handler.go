package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the relay's HTTP routes:
//
//	GET  {Path}    WebSocket endpoint
//	POST /topic    replace the topic with the request body
//	GET  /healthz  liveness and connection count
//	GET  /metrics  Prometheus metrics
func (h *Hub) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(h.cfg.Path, h.ServeWS)
	r.Post("/topic", h.serveTopic)
	r.Get("/healthz", h.serveHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &conn{
		id:   uuid.NewString(),
		ws:   ws,
		hub:  h,
		send: make(chan []byte, h.cfg.SendQueue),
	}
	c.logger = h.logger.With("conn_id", c.id, "remote", r.RemoteAddr)

	select {
	case h.register <- c:
	case <-h.done:
		ws.Close()
		return
	}

	go c.writeLoop()
	c.readLoop()
}

func (h *Hub) serveTopic(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTopicLen+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.SetTopic(r.Context(), string(body)); err != nil {
		switch {
		case errors.Is(err, ErrTopicTooLong):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, ErrHubClosed):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health is the body of GET /healthz.
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Topic       string `json:"topic"`
}

func (h *Hub) serveHealth(w http.ResponseWriter, _ *http.Request) {
	health := Health{
		Status:      "ok",
		Connections: h.Connections(),
		Topic:       h.Topic(),
	}
	status := http.StatusOK
	select {
	case <-h.done:
		health.Status = "closed"
		status = http.StatusServiceUnavailable
	default:
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}
