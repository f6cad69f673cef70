package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// TradeStream keeps a live last-traded-price table fed by the Finnhub
// trade WebSocket. It is an optional freshness layer; every analysis
// path must work with it disabled.
type TradeStream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	log     *logger.Logger
	metrics drepo.Metrics

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	last      map[string]float64
}

// NewTradeStream creates a Finnhub trade stream for the given symbols.
func NewTradeStream(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger, metrics drepo.Metrics) *TradeStream {
	return &TradeStream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
		metrics:        metrics,
		last:           make(map[string]float64),
	}
}

// Connect establishes the WebSocket connection.
func (s *TradeStream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("trade stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.log.Info("trade stream connected")
	return nil
}

// Subscribe subscribes to the configured symbols.
func (s *TradeStream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || !s.connected {
		return fmt.Errorf("trade stream not connected")
	}
	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		s.log.Info("trade stream subscribed", logger.String("symbol", sym))
	}
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Run consumes trade frames until ctx is cancelled, reconnecting on
// read failures. It blocks; callers run it in its own goroutine.
func (s *TradeStream) Run(ctx context.Context) {
	go s.pingLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.readFrame(); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("trade stream read failed, reconnecting", logger.Error(err))
			if err := s.Reconnect(ctx); err != nil {
				s.log.Error("trade stream reconnect failed", logger.Error(err))
			}
		}
	}
}

func (s *TradeStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *TradeStream) readFrame() error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("trade stream conn nil")
	}

	_, b, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("trade stream read: %w", err)
	}

	var m wsMessage
	if err := json.Unmarshal(b, &m); err != nil {
		// ignore non-JSON control frames
		return nil
	}
	if m.Type != "trade" {
		return nil
	}

	s.mu.Lock()
	for _, t := range m.Data {
		s.last[t.S] = t.P
	}
	s.mu.Unlock()

	if s.metrics != nil {
		for _, t := range m.Data {
			s.metrics.RecordLastPrice(t.S, t.P)
		}
	}
	return nil
}

// LastPrice returns the most recent traded price seen for symbol.
func (s *TradeStream) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.last[symbol]
	return p, ok
}

// Reconnect closes the current connection and dials again.
func (s *TradeStream) Reconnect(ctx context.Context) error {
	_ = s.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WebSocket connection. Last prices survive a close so
// a reconnect gap does not blank the table.
func (s *TradeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates connection status.
func (s *TradeStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
