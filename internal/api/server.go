// Package api provides the HTTP ingest/metrics server and an optional
// WebSocket status feed for the trading engine.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bingolead/retracement-engine/internal/dispatch"
)

// Server is the webhook ingest, metrics, and status-feed HTTP server.
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	host       string
	port       int
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	clients    map[string]*Client

	dispatcher *dispatch.Dispatcher
	requests   chan ingestRequest
	metrics    *Metrics

	closeOnce sync.Once
	closeCh   chan struct{}
}

// Client is one connected WebSocket status-feed subscriber.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Event is a fill/flatten notice broadcast to WebSocket subscribers.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type ingestRequest struct {
	bar  dispatch.Bar
	done chan error
}

// NewServer builds a Server over an already-built Metrics (so a caller can
// wrap its persistence store with WrapStore before the dispatcher, and
// therefore this Server, exists). The dispatcher's Ingest calls are all
// funneled through a single background goroutine owned by this Server, so
// every bar is still applied to strategies in receipt order even though
// HTTP requests arrive on their own per-request goroutines.
func NewServer(logger *zap.Logger, host string, port int, dispatcher *dispatch.Dispatcher, m *Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = NewMetrics()
	}
	s := &Server{
		logger:     logger.Named("api"),
		host:       host,
		port:       port,
		router:     mux.NewRouter(),
		clients:    make(map[string]*Client),
		dispatcher: dispatcher,
		requests:   make(chan ingestRequest, 256),
		metrics:    m,
		closeCh:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	go s.ingestLoop()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the CORS-wrapped router, used both by Start and by tests
// that want to drive requests without binding a real listener.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)
}

// Start blocks serving HTTP until the listener errors or Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.logger.Info("starting ingest server", zap.String("addr", addr))

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server and its WebSocket clients down.
func (s *Server) Stop(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closeCh) })

	s.mu.Lock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type webhookBody struct {
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.dispatcher.Ready() {
		http.Error(w, `{"status":"error","reason":"strategies not initialized"}`, http.StatusInternalServerError)
		return
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"status":"error","reason":"invalid body"}`, http.StatusBadRequest)
		return
	}

	req := ingestRequest{
		bar: dispatch.Bar{
			Open:  body.Open,
			High:  body.High,
			Low:   body.Low,
			Close: body.Close,
		},
		done: make(chan error, 1),
	}

	select {
	case s.requests <- req:
	case <-r.Context().Done():
		http.Error(w, `{"status":"error","reason":"request cancelled"}`, http.StatusRequestTimeout)
		return
	}

	<-req.done
	s.metrics.barsIngested.Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// ingestLoop is the single goroutine that ever calls Dispatcher.Ingest,
// serializing bars off the buffered request channel in arrival order.
func (s *Server) ingestLoop() {
	ctx := context.Background()
	seenLen := make(map[string]int)
	for {
		select {
		case req := <-s.requests:
			s.dispatcher.Ingest(ctx, req.bar)
			req.done <- nil
			s.broadcastNewHistory(seenLen)
		case <-s.closeCh:
			return
		}
	}
}

// broadcastNewHistory publishes any trade-history records appended by the
// bar just processed, so WebSocket subscribers see fills/flattens as they
// happen rather than polling.
func (s *Server) broadcastNewHistory(seenLen map[string]int) {
	for _, strat := range s.dispatcher.Strategies() {
		state := strat.State()
		prev := seenLen[strat.Name()]
		seenLen[strat.Name()] = len(state.History)
		for _, rec := range state.History[min(prev, len(state.History)):] {
			s.Broadcast("trade", map[string]interface{}{
				"strategy": strat.Name(),
				"kind":     rec.Kind.String(),
				"price":    rec.Price.String(),
				"pnl":      rec.RealizedPnL.String(),
			})
		}
	}
}

// Broadcast pushes an event to every connected WebSocket subscriber.
func (s *Server) Broadcast(eventType string, payload interface{}) {
	msg := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.Send <- encoded:
		default:
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{ID: uuid.New().String(), Conn: conn, Send: make(chan []byte, 64)}
	s.mu.Lock()
	s.clients[client.ID] = client
	s.mu.Unlock()

	s.logger.Info("websocket client connected", zap.String("id", client.ID))
	go s.writePump(client)
	go s.readPump(client)
}

func (s *Server) readPump(client *Client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, client.ID)
		s.mu.Unlock()
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(4096)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
