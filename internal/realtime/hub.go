package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"freelanceDesk/internal/metrics"
)

// 消息类型。
const (
	TypeJoin   = "join"
	TypeJoined = "joined"
)

var mutationTypes = map[string]struct{}{
	"node_add":    {},
	"node_update": {},
	"node_remove": {},
	"edge_add":    {},
	"edge_update": {},
	"edge_remove": {},
}

// IsMutation 判断是否为需要在房间内转发的编辑事件。
func IsMutation(msgType string) bool {
	_, ok := mutationTypes[msgType]
	return ok
}

// 丢弃原因，用作指标标签。
const (
	dropMalformed   = "malformed"
	dropUnknownType = "unknown_type"
	dropNoRoom      = "no_room"
	dropBadProject  = "bad_project_id"
)

// Relay 把本实例的编辑事件发布给其他实例。
type Relay interface {
	Publish(ctx context.Context, room string, payload []byte) error
}

// Hub 维护房间与连接的对应关系。
// rooms 与 members 只在持有 mu 时修改；每个连接同一时间至多属于一个房间。
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	members map[string]string
	conns   map[string]Conn

	relay          Relay
	publishTimeout time.Duration
	logger         *slog.Logger
}

// Option 配置 Hub。
type Option func(*Hub)

// WithRelay 启用跨实例转发。
func WithRelay(r Relay) Option {
	return func(h *Hub) { h.relay = r }
}

// NewHub 创建 Hub。
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		rooms:          make(map[string]*Room),
		members:        make(map[string]string),
		conns:          make(map[string]Conn),
		publishTimeout: 2 * time.Second,
		logger:         logger.With(slog.String("component", "realtime")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type envelope struct {
	Type      string          `json:"type"`
	ProjectID json.RawMessage `json:"projectId"`
}

type joinedAck struct {
	Type      string          `json:"type"`
	ProjectID json.RawMessage `json:"projectId"`
	Status    string          `json:"status"`
}

// Connect 登记新连接，此时连接不属于任何房间。
func (h *Hub) Connect(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	n := len(h.conns)
	h.mu.Unlock()

	metrics.SetRealtimeConnections(n)
}

// Disconnect 移除连接及其房间成员关系，房间为空时删除房间。
func (h *Hub) Disconnect(c Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID())
	h.leaveLocked(c.ID())
	conns, rooms := len(h.conns), len(h.rooms)
	h.mu.Unlock()

	metrics.SetRealtimeConnections(conns)
	metrics.SetRealtimeRooms(rooms)
}

// HandleMessage 处理连接发来的一条消息。
// 非法消息只记录日志并丢弃，不会断开连接。
func (h *Hub) HandleMessage(ctx context.Context, c Conn, raw []byte) {
	log := h.logger.With(slog.String("conn_id", c.ID()))

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn("drop malformed realtime message", slog.Any("error", err))
		metrics.ObserveRealtimeDrop(dropMalformed)
		return
	}

	switch {
	case env.Type == TypeJoin:
		h.join(c, env.ProjectID, log)
	case IsMutation(env.Type):
		h.forward(ctx, c, env.Type, raw, log)
	case env.Type == "":
		log.Warn("drop realtime message without type")
		metrics.ObserveRealtimeDrop(dropMalformed)
	default:
		log.Warn("drop realtime message with unknown type", slog.String("type", env.Type))
		metrics.ObserveRealtimeDrop(dropUnknownType)
	}
}

func (h *Hub) join(c Conn, rawProjectID json.RawMessage, log *slog.Logger) {
	key, ok := roomKey(rawProjectID)
	if !ok {
		log.Warn("drop join with invalid project id", slog.String("project_id", string(rawProjectID)))
		metrics.ObserveRealtimeDrop(dropBadProject)
		return
	}

	h.mu.Lock()
	if current, joined := h.members[c.ID()]; !joined || current != key {
		// 重新加入会先离开原房间
		h.leaveLocked(c.ID())
		room, exists := h.rooms[key]
		if !exists {
			room = newRoom(key)
			h.rooms[key] = room
		}
		room.Join(c)
		h.members[c.ID()] = key
	}
	rooms := len(h.rooms)
	h.mu.Unlock()

	metrics.SetRealtimeRooms(rooms)

	ack, err := json.Marshal(joinedAck{Type: TypeJoined, ProjectID: rawProjectID, Status: "success"})
	if err != nil {
		log.Error("encode join ack failed", slog.Any("error", err))
		return
	}
	if err := c.Send(ack); err != nil {
		log.Warn("send join ack failed", slog.Any("error", err))
	}
	log.Debug("connection joined room", slog.String("room", key))
}

func (h *Hub) forward(ctx context.Context, c Conn, msgType string, raw []byte, log *slog.Logger) {
	h.mu.Lock()
	key, joined := h.members[c.ID()]
	var delivered, skipped int
	if joined {
		delivered, skipped = h.rooms[key].Broadcast(c.ID(), raw)
	}
	h.mu.Unlock()

	if !joined {
		log.Debug("drop mutation from connection without room", slog.String("type", msgType))
		metrics.ObserveRealtimeDrop(dropNoRoom)
		return
	}
	metrics.ObserveRealtimeRelay(metrics.SourceLocal, delivered)
	if skipped > 0 {
		log.Debug("skipped closed room members", slog.String("room", key), slog.Int("skipped", skipped))
	}

	if h.relay == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, h.publishTimeout)
	defer cancel()
	if err := h.relay.Publish(pubCtx, key, raw); err != nil {
		log.Warn("publish realtime message failed", slog.String("room", key), slog.Any("error", err))
	}
}

// Deliver 把其他实例转发来的事件投递给本实例房间内的全部成员。
func (h *Hub) Deliver(room string, payload []byte) int {
	h.mu.Lock()
	var delivered int
	if r, ok := h.rooms[room]; ok {
		delivered, _ = r.Broadcast("", payload)
	}
	h.mu.Unlock()

	metrics.ObserveRealtimeRelay(metrics.SourceRemote, delivered)
	return delivered
}

// RoomSize 返回房间成员数，房间不存在时为 0。
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[room]; ok {
		return r.Len()
	}
	return 0
}

// HasRoom 判断房间是否存在。
func (h *Hub) HasRoom(room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[room]
	return ok
}

// RoomCount 返回房间数量。
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// RoomOf 返回连接当前所在的房间。
func (h *Hub) RoomOf(connID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key, ok := h.members[connID]
	return key, ok
}

func (h *Hub) leaveLocked(connID string) {
	key, ok := h.members[connID]
	if !ok {
		return
	}
	delete(h.members, connID)
	if room, exists := h.rooms[key]; exists && room.Leave(connID) {
		delete(h.rooms, key)
	}
}

// roomKey 把 projectId 规范为房间标识，数字与数字字符串视为同一房间。
func roomKey(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return strconv.FormatUint(n, 10), true
		}
		return s, true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(id, 10), true
}
