package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chat-team/backend/database"
	"chat-team/backend/events"
	"chat-team/backend/models"
	"chat-team/backend/utils"

	"github.com/gorilla/websocket"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBufferSize = 256
)

// upgrader 用於將 HTTP 連線升級為 WebSocket 連線
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 來源限制交給 CORS 設定
		return true
	},
}

// Client 代表一個訂閱聊天室成員事件的 WebSocket 客戶端
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID int64
	ChatID int64
}

// 只用來偵測斷線與處理 pong，客戶端送來的內容一律忽略
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Info("Error reading message", "userId", c.UserID, "error", err)
			}
			return
		}
	}
}

// 接收 Hub 廣播來的事件，丟給前端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// channel 被關閉了，送出 CloseMessage
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Info("Error writing message", "userId", c.UserID, "error", err)
				return
			}

		// 定時 ping 以偵測客戶端是否仍在線
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type broadcastMessage struct {
	chatID int64
	body   []byte
}

// Hub 維護所有活躍的 WebSocket 客戶端，並依聊天室廣播成員事件
type Hub struct {
	clientsByChat map[int64]map[*Client]bool
	broadcast     chan broadcastMessage
	registerCh    chan *Client
	unregisterCh  chan *Client
	done          chan struct{}
	log           *slog.Logger
}

var _ events.Dispatcher = (*Hub)(nil)

// NewHub 創建並返回一個新的 Hub 實例
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clientsByChat: make(map[int64]map[*Client]bool),
		broadcast:     make(chan broadcastMessage),
		registerCh:    make(chan *Client),
		unregisterCh:  make(chan *Client),
		done:          make(chan struct{}),
		log:           log,
	}
}

// Run 啟動 Hub 的運行迴圈，ctx 結束時關閉所有客戶端
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, clients := range h.clientsByChat {
			for client := range clients {
				close(client.send)
			}
		}
		h.clientsByChat = map[int64]map[*Client]bool{}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.registerCh:
			if _, ok := h.clientsByChat[client.ChatID]; !ok {
				h.clientsByChat[client.ChatID] = make(map[*Client]bool)
			}
			h.clientsByChat[client.ChatID][client] = true
			h.log.Debug("Client registered", "userId", client.UserID, "chatId", client.ChatID, "clients", len(h.clientsByChat[client.ChatID]))
		case client := <-h.unregisterCh:
			h.remove(client)
		case message := <-h.broadcast:
			for client := range h.clientsByChat[message.chatID] {
				select {
				case client.send <- message.body:
				default:
					h.log.Warn("Client channel is full, unregistering", "userId", client.UserID, "chatId", client.ChatID)
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clientsByChat[client.ChatID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clientsByChat, client.ChatID) // 如果聊天室沒有客戶端了，就刪除
	}
	close(client.send)
}

func (h *Hub) register(client *Client) bool {
	select {
	case h.registerCh <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.unregisterCh <- client:
	case <-h.done:
	}
}

// Dispatch 將事件推送給訂閱該聊天室的客戶端
func (h *Hub) Dispatch(ctx context.Context, evts ...models.DomainEvent) error {
	for _, event := range evts {
		envelope, err := events.NewEnvelope(event)
		if err != nil {
			return err
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		select {
		case h.broadcast <- broadcastMessage{chatID: event.ChatID(), body: body}:
		case <-h.done:
			return errors.New("websocket hub is stopped")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// HandleConnections 處理 WebSocket 連線請求：/ws?chatId=&token=
// 只有聊天室成員可以訂閱
func HandleConnections(hub *Hub, members database.ChatMemberStore, jwtSecret string) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		userID, err := utils.GetUserIDFromToken(r.URL.Query().Get("token"), jwtSecret)
		if err != nil {
			return models.ErrUnauthorized
		}
		chatID, err := utils.ParseID(r.URL.Query().Get("chatId"))
		if err != nil {
			return models.ErrInvalidID
		}
		if _, err := members.GetMember(r.Context(), chatID, userID); err != nil {
			if errors.Is(err, models.ErrMemberNotFound) {
				return models.ErrNotChatMember
			}
			return err
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade 失敗時已經寫出回應
			hub.log.Info("Failed to upgrade to WebSocket", "error", err)
			return nil
		}

		client := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, sendBufferSize),
			UserID: userID,
			ChatID: chatID,
		}
		if !hub.register(client) {
			// 連線已被接管，無法再回傳 HTTP 錯誤
			hub.log.Warn("websocket hub is stopped, closing connection", "userId", userID)
			conn.Close()
			return nil
		}

		go client.writePump()
		client.readPump() // readPump 會在連線關閉時自動取消註冊
		return nil
	}
}
