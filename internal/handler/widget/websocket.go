// Package widget serves the storefront chat widget over a websocket. Each
// connection drives its own chatbot.Manager and receives a fresh state snapshot
// after every change.
package widget

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatbotService "github.com/zhouzirui/pawshop/internal/service/chatbot"
	"github.com/zhouzirui/pawshop/internal/storage"
)

const (
	readTimeout     = 60 * time.Second
	pingInterval    = 54 * time.Second
	maxVisitorIDLen = 64
)

// Handler WebSocket聊天组件处理器
type Handler struct {
	store    storage.Store
	endpoint chatbotService.Endpoint
	timeout  time.Duration
	upgrader websocket.Upgrader
}

// New 创建聊天组件处理器。timeout 为每次提问的超时时间，0 表示不限制。
func New(store storage.Store, endpoint chatbotService.Endpoint, timeout time.Duration) *Handler {
	return &Handler{
		store:    store,
		endpoint: endpoint,
		timeout:  timeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chatbot/{visitorID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SendPayload 发送消息的数据
type SendPayload struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection 串行化对同一个连接的写操作
type connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *connection) writeJSON(msg outgoingMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[widget] write %s failed: %v", msg.Type, err)
	}
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *connection) sendState(state chatbotService.State) {
	c.writeJSON(outgoingMessage{Type: "state", Data: state, Timestamp: time.Now().Unix()})
}

func (c *connection) sendError(message string) {
	c.writeJSON(outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	visitorID := chi.URLParam(r, "visitorID")
	if !validVisitorID(visitorID) {
		http.Error(w, "invalid visitor id", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[widget] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Printf("[widget] new connection for visitor: %s", visitorID)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &connection{conn: ws}
	store := storage.WithPrefix(h.store, "visitor:"+visitorID+":")
	manager := chatbotService.NewManager(store, h.endpoint, chatbotService.WithListener(conn.sendState))

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[widget] read error: %v", err)
			}
			return
		}

		ws.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "send":
			var payload SendPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				conn.sendError("invalid send payload")
				continue
			}
			if manager.IsLoading() {
				conn.sendError("Still waiting for the previous answer.")
				continue
			}
			inflight.Add(1)
			go func(text string) {
				defer inflight.Done()
				h.send(ctx, manager, text)
			}(payload.Text)
		case "clear":
			manager.ClearChat()
		case "sync":
			manager.Publish()
		default:
			conn.sendError("unknown message type: " + msg.Type)
		}
	}
}

func (h *Handler) send(ctx context.Context, manager *chatbotService.Manager, text string) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	manager.SendMessage(ctx, text)
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

func validVisitorID(id string) bool {
	if id == "" || len(id) > maxVisitorIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
