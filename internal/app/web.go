package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/bus/mqttbus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/node"
)

// wsPushInterval caps how often a websocket client receives the view.
const wsPushInterval = 100 * time.Millisecond

const maxServiceBody = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// ServiceCaller forwards an encoded service request to the node.
type ServiceCaller interface {
	CallRaw(ctx context.Context, name string, body []byte) ([]byte, error)
}

// WebServer exposes the telemetry view and the node services over HTTP.
type WebServer struct {
	telemetry *Telemetry
	services  ServiceCaller
	timeout   time.Duration
	known     []string
}

func NewWebServer(t *Telemetry, services ServiceCaller, timeout time.Duration) *WebServer {
	return &WebServer{
		telemetry: t,
		services:  services,
		timeout:   timeout,
		known:     node.ServiceNames(),
	}
}

// Handler routes the API; staticDir, when not empty, is served at the root.
func (s *WebServer) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	mux.HandleFunc("GET /ws/telemetry", s.handleTelemetryWS)
	mux.HandleFunc("GET /api/services", s.handleServiceList)
	mux.HandleFunc("POST /api/service/{name}", s.handleService)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (s *WebServer) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	v := s.telemetry.Snapshot()
	if v.Updated.IsZero() {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *WebServer) handleServiceList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.known)
}

func (s *WebServer) handleService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !slices.Contains(s.known, name) {
		http.Error(w, fmt.Sprintf("unknown service %q", name), http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxServiceBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > 0 && !bus.Valid(body) {
		http.Error(w, "request body is not valid JSON", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	res, err := s.services.CallRaw(ctx, name, body)
	switch {
	case err == nil:
		writeRaw(w, http.StatusOK, res)
	case errors.Is(err, mqttbus.ErrRejected):
		writeRaw(w, http.StatusUnprocessableEntity, res)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		log.Printf("web: service %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func (s *WebServer) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates := make(chan struct{}, 1)
	stop := s.telemetry.Listen(func(string) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer stop()

	// Reads only to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()
	pending := !s.telemetry.Snapshot().Updated.IsZero()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-updates:
			pending = true
		case <-ticker.C:
			if !pending {
				continue
			}
			pending = false
			payload, err := bus.Marshal(s.telemetry.Snapshot())
			if err != nil {
				log.Printf("web: encode view: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := bus.Marshal(v)
	if err != nil {
		log.Printf("web: json encode error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, payload)
}

func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	w.Write(payload)
}

// RunWeb serves the web monitor until ctx is cancelled.
func RunWeb(ctx context.Context, cfg *config.Config, staticDir string) error {
	client, err := mqttbus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	t := NewTelemetry()
	if err := t.Subscribe(client, cfg.TopicPrefix); err != nil {
		return err
	}
	s := NewWebServer(t, mqttbus.NewClient(client, cfg.TopicPrefix), time.Duration(cfg.ServiceTimeoutMs)*time.Millisecond)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: s.Handler(staticDir),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
