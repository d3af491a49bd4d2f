package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	realtimeRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "freelancedesk",
			Subsystem: "realtime",
			Name:      "rooms",
			Help:      "当前存在的协作房间数量。",
		},
	)

	realtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "freelancedesk",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "当前 WebSocket 连接数量。",
		},
	)

	realtimeMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freelancedesk",
			Subsystem: "realtime",
			Name:      "messages_relayed_total",
			Help:      "转发到房间成员的消息数量。",
		},
		[]string{"source"},
	)

	realtimeDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freelancedesk",
			Subsystem: "realtime",
			Name:      "messages_dropped_total",
			Help:      "被丢弃的消息数量。",
		},
		[]string{"reason"},
	)
)

// 消息来源。
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// SetRealtimeRooms 更新房间数量。
func SetRealtimeRooms(n int) { realtimeRooms.Set(float64(n)) }

// SetRealtimeConnections 更新连接数量。
func SetRealtimeConnections(n int) { realtimeConnections.Set(float64(n)) }

// ObserveRealtimeRelay 记录一次转发投递到的连接数。
func ObserveRealtimeRelay(source string, recipients int) {
	if recipients > 0 {
		realtimeMessagesTotal.WithLabelValues(source).Add(float64(recipients))
	}
}

// ObserveRealtimeDrop 记录一条被丢弃的消息。
func ObserveRealtimeDrop(reason string) {
	realtimeDroppedTotal.WithLabelValues(reason).Inc()
}
