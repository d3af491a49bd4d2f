package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"freelanceDesk/internal/api/middleware"
	"freelanceDesk/internal/auth"
	"freelanceDesk/internal/database"
	"freelanceDesk/internal/tasks"
)

const testAPIKey = "fdk_test-key"

type recordingQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *recordingQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func testKeyRing(t *testing.T) *auth.KeyRing {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)
	return auth.NewKeyRing([]string{string(hash)})
}

func TestWebhookRequiresConfiguredKeys(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/webhook/data", map[string]any{"source": "crm", "dataType": "lead", "content": map[string]any{}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebhookAuthentication(t *testing.T) {
	queue := &recordingQueue{}
	s := newTestServer(t, func(d *Dependencies) {
		d.Keys = testKeyRing(t)
		d.Queue = queue
	})
	body := map[string]any{"source": "crm", "dataType": "lead", "content": map[string]any{"name": "Ada"}}

	rec := s.do(t, http.MethodPost, "/api/webhook/data", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/webhook/data", body, middleware.APIKeyHeader, "fdk_wrong")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 查询参数中的密钥不被接受
	rec = s.do(t, http.MethodPost, "/api/webhook/data?api_key="+testAPIKey, body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/webhook/data", body, middleware.APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[struct {
		Message string `json:"message"`
		DataID  uint   `json:"dataId"`
	}](t, rec)
	assert.Equal(t, "Data received successfully", resp.Message)
	assert.NotZero(t, resp.DataID)

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, tasks.TypeExternalDataProcess, queue.tasks[0].Type())
	var payload tasks.ExternalDataProcessPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, resp.DataID, payload.DataID)
	assert.Equal(t, "crm", payload.Source)

	rec = s.do(t, http.MethodGet, "/api/external-data/"+itoa(resp.DataID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[database.ExternalData](t, rec)
	assert.JSONEq(t, `{"name":"Ada"}`, string(stored.Content))
	assert.False(t, stored.Processed)
}

func TestWebhookValidation(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) { d.Keys = testKeyRing(t) })

	cases := []struct {
		name  string
		body  any
		field string
	}{
		{name: "missing source", body: map[string]any{"dataType": "lead", "content": map[string]any{}}, field: "source"},
		{name: "blank data type", body: map[string]any{"source": "crm", "dataType": "  ", "content": map[string]any{}}, field: "dataType"},
		{name: "null content", body: map[string]any{"source": "crm", "dataType": "lead", "content": nil}, field: "content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/webhook/data", tc.body, middleware.APIKeyHeader, testAPIKey)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decode[errorBody](t, rec).Errors, tc.field)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/external-data", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestWebhookStoresDataWhenEnqueueFails(t *testing.T) {
	queue := &recordingQueue{err: errors.New("redis: connection refused")}
	s := newTestServer(t, func(d *Dependencies) {
		d.Keys = testKeyRing(t)
		d.Queue = queue
	})

	rec := s.do(t, http.MethodPost, "/api/webhook/data",
		map[string]any{"source": "forms", "dataType": "contact", "content": []int{1, 2}},
		middleware.APIKeyHeader, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/external-data", nil)
	items := decode[[]database.ExternalData](t, rec)
	require.Len(t, items, 1)
	assert.JSONEq(t, `[1,2]`, string(items[0].Content))

	rec = s.do(t, http.MethodPost, "/api/external-data/"+itoa(items[0].ID)+"/processed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[database.ExternalData](t, rec).Processed)

	rec = s.do(t, http.MethodPost, "/api/external-data/999/processed", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, func(d *Dependencies) {
		d.Keys = testKeyRing(t)
		d.RateCounter = rdb
		d.RateLimit = 2
	})
	body := map[string]any{"source": "crm", "dataType": "lead", "content": map[string]any{}}

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/api/webhook/data", body, middleware.APIKeyHeader, testAPIKey)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/webhook/data", body, middleware.APIKeyHeader, testAPIKey)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Redis 不可用时放行
	mr.Close()
	rec = s.do(t, http.MethodPost, "/api/webhook/data", body, middleware.APIKeyHeader, testAPIKey)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
