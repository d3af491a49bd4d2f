package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute 是未命中任何路由的请求使用的标签值。
const unmatchedRoute = "unmatched"

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freelancedesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "按路由与状态码统计的请求数。",
		},
		[]string{"method", "route", "status"},
	)

	httpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freelancedesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "请求处理耗时（秒）。",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	webhookReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freelancedesk",
			Subsystem: "webhook",
			Name:      "data_received_total",
			Help:      "webhook 接收并保存的数据条数，queued 表示是否已投递处理任务。",
		},
		[]string{"queued"},
	)
)

// GinMiddleware 记录每个路由的请求数与耗时。/ws 长连接不计入。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/ws" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// ObserveWebhookReceived 记录一条已保存的 webhook 数据。
func ObserveWebhookReceived(queued bool) {
	webhookReceived.WithLabelValues(strconv.FormatBool(queued)).Inc()
}
