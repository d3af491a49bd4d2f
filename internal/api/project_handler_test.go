package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelanceDesk/internal/lifecycle"
)

func TestCreateProjectValidation(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")

	cases := []struct {
		name   string
		body   map[string]any
		status int
		field  string
	}{
		{
			name:   "unknown client",
			body:   map[string]any{"clientId": 404, "name": "Ghost"},
			status: http.StatusNotFound,
		},
		{
			name:   "invoice sent while in progress",
			body:   map[string]any{"clientId": client.ID, "name": "Early", "invoiceSent": true},
			status: http.StatusBadRequest,
			field:  "invoiceSent",
		},
		{
			name:   "legacy status",
			body:   map[string]any{"clientId": client.ID, "name": "Legacy", "status": "Completed"},
			status: http.StatusBadRequest,
			field:  "status",
		},
		{
			name:   "negative amount",
			body:   map[string]any{"clientId": client.ID, "name": "Refund", "amount": -5},
			status: http.StatusBadRequest,
			field:  "amount",
		},
		{
			name:   "missing name",
			body:   map[string]any{"clientId": client.ID},
			status: http.StatusBadRequest,
			field:  "name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/projects", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.field != "" {
				assert.Contains(t, decode[errorBody](t, rec).Errors, tc.field)
			}
		})
	}

	rec := s.do(t, http.MethodGet, "/api/projects", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateProjectDefaults(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")

	p := s.createProject(t, map[string]any{
		"clientId": client.ID,
		"name":     "Brochure",
		"deadline": "2024-03-20",
		"amount":   450,
	})
	assert.Equal(t, lifecycle.StatusInProgress, p.Status)
	assert.False(t, p.InvoiceSent)
	assert.False(t, p.IsPaid)
	require.NotNil(t, p.Deadline)
	assert.Equal(t, "2024-03-20", p.Deadline.Format("2006-01-02"))
	assert.Equal(t, 5, p.Urgency)
	assert.Equal(t, []lifecycle.Label{lifecycle.LabelInProgress}, p.Labels)
}

func TestInvoiceGateOnUpdate(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")
	p := s.createProject(t, map[string]any{"clientId": client.ID, "name": "Manual", "amount": 100})
	path := "/api/projects/" + itoa(p.ID)

	// 进行中的项目不能标记发票已发送，且不会写入任何字段
	rec := s.do(t, http.MethodPatch, path, map[string]any{"invoiceSent": true, "name": "Renamed"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Errors, "invoiceSent")

	rec = s.do(t, http.MethodGet, path, nil)
	current := decode[projectView](t, rec)
	assert.False(t, current.InvoiceSent)
	assert.Equal(t, "Manual", current.Name)

	// 同一次请求里交付并开票是允许的
	rec = s.do(t, http.MethodPatch, path, map[string]any{"status": "Delivered", "invoiceSent": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	current = decode[projectView](t, rec)
	assert.Equal(t, lifecycle.StatusDelivered, current.Status)
	assert.True(t, current.InvoiceSent)

	// 其他字段的修改不会重置 invoiceSent
	rec = s.do(t, http.MethodPatch, path, map[string]any{"status": "Delivered", "amount": 120})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[projectView](t, rec).InvoiceSent)

	// 回到进行中必须先撤销发票，不会被静默修改
	rec = s.do(t, http.MethodPatch, path, map[string]any{"status": "In Progress"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, lifecycle.StatusDelivered, decode[projectView](t, rec).Status)

	rec = s.do(t, http.MethodPatch, path, map[string]any{"status": "In Progress", "invoiceSent": false})
	require.Equal(t, http.StatusOK, rec.Code)
	current = decode[projectView](t, rec)
	assert.Equal(t, lifecycle.StatusInProgress, current.Status)
	assert.False(t, current.InvoiceSent)
}

func TestUpdateProjectClearsOptionalFields(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")
	p := s.createProject(t, map[string]any{
		"clientId":    client.ID,
		"name":        "Subtitles",
		"description": "Season 1",
		"deadline":    "2024-03-01T09:00:00Z",
	})
	require.NotNil(t, p.Deadline)

	rec := s.do(t, http.MethodPatch, "/api/projects/"+itoa(p.ID), map[string]any{"deadline": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[projectView](t, rec)
	assert.Nil(t, updated.Deadline)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Season 1", *updated.Description)
	assert.Equal(t, lifecycle.ScoreNoDeadline, updated.Urgency)

	rec = s.do(t, http.MethodPatch, "/api/projects/"+itoa(p.ID), map[string]any{"clientId": 77})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/projects/999", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjectsSortedByUrgency(t *testing.T) {
	s := newTestServer(t)
	ada := s.createClient(t, "ada")
	bob := s.createClient(t, "bob")

	paid := s.createProject(t, map[string]any{"clientId": ada.ID, "name": "paid", "status": "Paid", "deadline": "2024-03-01"})
	delivered := s.createProject(t, map[string]any{"clientId": ada.ID, "name": "delivered", "status": "Delivered", "invoiceSent": true})
	noDeadline := s.createProject(t, map[string]any{"clientId": bob.ID, "name": "open"})
	soon := s.createProject(t, map[string]any{"clientId": ada.ID, "name": "soon", "deadline": "2024-03-18T12:00:00Z"})
	overdue := s.createProject(t, map[string]any{"clientId": bob.ID, "name": "late", "deadline": "2024-03-10T12:00:00Z"})

	rec := s.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]projectView](t, rec)
	require.Len(t, items, 5)

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []uint{overdue.ID, soon.ID, noDeadline.ID, delivered.ID, paid.ID}, ids)

	assert.Equal(t, -5, items[0].Urgency)
	assert.Equal(t, []lifecycle.Label{lifecycle.LabelOverdue}, items[0].Labels)
	assert.Equal(t, 3, items[1].Urgency)
	assert.Equal(t, []lifecycle.Label{lifecycle.LabelInProgress}, items[1].Labels)
	assert.Equal(t, []lifecycle.Label{lifecycle.LabelPendingPayment}, items[3].Labels)
	assert.Equal(t, []lifecycle.Label{lifecycle.LabelPaid}, items[4].Labels)
	for _, it := range items {
		assert.LessOrEqual(t, len(it.Labels), 1)
	}

	rec = s.do(t, http.MethodGet, "/api/projects?clientId="+itoa(bob.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = decode[[]projectView](t, rec)
	require.Len(t, items, 2)
	assert.Equal(t, overdue.ID, items[0].ID)
	assert.Equal(t, noDeadline.ID, items[1].ID)

	rec = s.do(t, http.MethodGet, "/api/projects?clientId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectDetailUsesAccumulatingLabels(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")
	p := s.createProject(t, map[string]any{
		"clientId":    client.ID,
		"name":        "Catalogue",
		"status":      "Delivered",
		"invoiceSent": true,
		"isPaid":      true,
	})

	rec := s.do(t, http.MethodGet, "/api/projects/"+itoa(p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[projectView](t, rec)
	assert.Contains(t, detail.Labels, lifecycle.LabelInvoiceSent)
	assert.Contains(t, detail.Labels, lifecycle.LabelPaid)
	assert.Equal(t, lifecycle.ScorePaid, detail.Urgency)
}

func TestDeliveredYesterdayHasNoDashboardLabel(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")
	s.createProject(t, map[string]any{
		"clientId": client.ID,
		"name":     "Handbook",
		"status":   "Delivered",
		"deadline": "2024-03-14T12:00:00Z",
	})

	rec := s.do(t, http.MethodGet, "/api/projects", nil)
	items := decode[[]projectView](t, rec)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Labels)
	assert.Contains(t, rec.Body.String(), `"labels":[]`)
}

func TestDeleteProject(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")
	p := s.createProject(t, map[string]any{"clientId": client.ID, "name": "Temp"})

	rec := s.do(t, http.MethodDelete, "/api/projects/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/projects/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 项目删除后客户可以删除
	rec = s.do(t, http.MethodDelete, "/api/clients/"+itoa(client.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
