package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"freelanceDesk/internal/realtime"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsPongWait       = 2*wsPingPeriod + 10*time.Second
	wsMaxMessageSize = 1 << 20
	wsSendQueueSize  = 64
)

// WsHandler 负责把 WebSocket 连接接入协作 Hub。
type WsHandler struct {
	hub            *realtime.Hub
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(hub *realtime.Hub, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// wsConn 把 gorilla 连接适配为 realtime.Conn。
// 写操作全部在 writePump 中完成，Send 只负责入队。
type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWsConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendQueueSize),
		done: make(chan struct{}),
	}
}

func (w *wsConn) ID() string { return w.id }

func (w *wsConn) Open() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *wsConn) Send(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return realtime.ErrConnClosed
	}
	select {
	case w.send <- payload:
		return nil
	default:
		return realtime.ErrSendQueueFull
	}
}

func (w *wsConn) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
}

// HandleConnection 负责升级连接并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}

	wc := newWsConn(conn)
	log := h.logger.With(
		slog.String("conn_id", wc.id),
		slog.String("client_ip", c.ClientIP()),
	)

	h.hub.Connect(wc)
	log.Info("websocket connected")

	go h.writePump(wc, log)
	h.readLoop(c, wc, log)

	h.hub.Disconnect(wc)
	wc.close()
	log.Info("websocket connection closed")
}

func (h *WsHandler) readLoop(c *gin.Context, wc *wsConn, log *slog.Logger) {
	conn := wc.conn
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx := c.Request.Context()
	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", slog.Any("error", err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			log.Debug("ignore non-text websocket frame", slog.Int("frame_type", msgType))
			continue
		}
		// 任意消息都说明连接仍然活跃
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		h.hub.HandleMessage(ctx, wc, message)
	}
}

func (h *WsHandler) writePump(wc *wsConn, log *slog.Logger) {
	conn := wc.conn
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-wc.done:
			writeClose(conn, websocket.CloseNormalClosure, "")
			return
		case msg := <-wc.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("websocket write failed", slog.Any("error", err))
				wc.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				log.Warn("websocket ping failed", slog.Any("error", err))
				wc.close()
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
