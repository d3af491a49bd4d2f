// Package realtime 把 WebSocket 连接按项目划分房间，并在房间内转发思维导图的编辑事件。
package realtime

import "errors"

var (
	// ErrConnClosed 表示连接已关闭，消息被丢弃。
	ErrConnClosed = errors.New("connection closed")
	// ErrSendQueueFull 表示发送队列已满，消息被丢弃。
	ErrSendQueueFull = errors.New("send queue full")
)

// Conn 是 Hub 看到的单个连接，传输层负责实现。
// Send 必须是非阻塞的：Hub 在持锁期间调用它。
type Conn interface {
	ID() string
	Send(payload []byte) error
	Open() bool
}
