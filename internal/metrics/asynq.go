package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务处理结果。
const (
	outcomeSucceeded = "succeeded"
	outcomeRetried   = "retried"
	outcomeDiscarded = "discarded"
)

var (
	tasksHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freelancedesk",
			Subsystem: "worker",
			Name:      "tasks_handled_total",
			Help:      "按任务类型与结果统计的任务处理次数。",
		},
		[]string{"task_type", "outcome"},
	)

	taskLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freelancedesk",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "单次任务处理耗时（秒）。",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 15},
		},
		[]string{"task_type"},
	)

	taskAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freelancedesk",
			Subsystem: "worker",
			Name:      "task_attempt",
			Help:      "任务被处理时已重试的次数。",
			Buckets:   []float64{0, 1, 2, 3, 5},
		},
		[]string{"task_type"},
	)
)

// AsynqMetricsMiddleware 按结果统计任务：成功、等待重试、放弃重试。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			if retried, ok := asynq.GetRetryCount(ctx); ok {
				taskAttempts.WithLabelValues(taskType).Observe(float64(retried))
			}

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskLatency.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			tasksHandled.WithLabelValues(taskType, taskOutcome(ctx, err)).Inc()
			return err
		})
	}
}

func taskOutcome(ctx context.Context, err error) string {
	if err == nil {
		return outcomeSucceeded
	}
	if errors.Is(err, asynq.SkipRetry) {
		return outcomeDiscarded
	}
	retried, okRetry := asynq.GetRetryCount(ctx)
	maxRetry, okMax := asynq.GetMaxRetry(ctx)
	if okRetry && okMax && retried >= maxRetry {
		return outcomeDiscarded
	}
	return outcomeRetried
}
