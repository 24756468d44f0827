// Package broadcast 通过 WebSocket 向看板推送分析结果
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/metrics"
)

// Event names emitted to dashboards.
const (
	EventUpdate         = "update"
	EventAnalysisUpdate = "analysisUpdate"
	EventDailySummary   = "daily_summary"
)

// Broadcaster 向所有在线客户端推送事件，不阻塞调用方
type Broadcaster interface {
	Emit(event string, payload any)
}

// Frame 推送给客户端的消息
type Frame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// normalCloseCodes are WebSocket close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

const (
	// MaxClients 同时在线的连接上限
	MaxClients = 1000
	sendBuffer = 16
	pingPeriod = 30 * time.Second
	readWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub 管理全部 WebSocket 连接
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	done       chan struct{}
	now        func() time.Time
}

var _ Broadcaster = (*Hub)(nil)

// NewHub 创建 Hub，需调用 Run 启动
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Run 主循环，ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	logger.Log.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			metrics.RealtimeClients.Set(0)
			logger.Log.Info("realtime hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.RealtimeClients.Set(float64(n))
			logger.Log.Debugf("client connected, total %d", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.RealtimeClients.Set(float64(n))
			logger.Log.Debugf("client disconnected, total %d", n)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					if _, ok := h.clients[c]; ok {
						close(c.send)
						delete(h.clients, c)
					}
				}
				n := len(h.clients)
				h.mu.Unlock()
				metrics.RealtimeClients.Set(float64(n))
				logger.Log.Warnf("dropped %d slow clients", len(slow))
			}
		}
	}
}

// Emit implements Broadcaster
func (h *Hub) Emit(event string, payload any) {
	msg, err := json.Marshal(Frame{Type: event, Timestamp: h.now().UTC(), Data: payload})
	if err != nil {
		logger.Log.Errorf("encode %s frame failed: %v", event, err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.Log.Warnf("broadcast channel full, dropping %s", event)
	}
}

// ClientCount 当前在线连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades HTTP to WebSocket
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if h.ClientCount() >= MaxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump 只处理 pong 与关闭，客户端消息被忽略
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				logger.Log.Debugf("websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Log.Debugf("websocket write error: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
