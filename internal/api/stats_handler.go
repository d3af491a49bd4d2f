package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/lifecycle"
	"freelanceDesk/internal/store"
)

// StatsHandler 汇总当前存储中的数据。
type StatsHandler struct {
	store store.Store
	now   func() time.Time
}

// NewStatsHandler 构造 StatsHandler。
func NewStatsHandler(st store.Store, now func() time.Time) *StatsHandler {
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{store: st, now: now}
}

// Stats 是仪表盘使用的汇总数据，金额保留两位小数。
type Stats struct {
	Clients                 int                      `json:"clients"`
	Projects                int                      `json:"projects"`
	ActiveProjects          int                      `json:"activeProjects"`
	ProjectsByStatus        map[lifecycle.Status]int `json:"projectsByStatus"`
	OverdueProjects         int                      `json:"overdueProjects"`
	Documents               int                      `json:"documents"`
	Resumes                 int                      `json:"resumes"`
	ExternalData            int                      `json:"externalData"`
	UnprocessedExternalData int                      `json:"unprocessedExternalData"`
	TotalAmount             float64                  `json:"totalAmount"`
	PaidAmount              float64                  `json:"paidAmount"`
	OutstandingAmount       float64                  `json:"outstandingAmount"`
}

// GetStats 返回汇总数据。
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.collect(c.Request.Context())
	if err != nil {
		Internal(c, "failed to collect stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) collect(ctx context.Context) (*Stats, error) {
	clients, err := h.store.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	projects, err := h.store.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	documents, err := h.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	resumes, err := h.store.ListResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	external, err := h.store.ListExternalData(ctx)
	if err != nil {
		return nil, fmt.Errorf("list external data: %w", err)
	}

	stats := summarizeProjects(projects, h.now())
	stats.Clients = len(clients)
	stats.Documents = len(documents)
	stats.Resumes = len(resumes)
	stats.ExternalData = len(external)
	for _, d := range external {
		if !d.Processed {
			stats.UnprocessedExternalData++
		}
	}
	return stats, nil
}

// summarizeProjects 统计项目数量与金额。已收款以 Paid 状态或 isPaid 为准。
func summarizeProjects(projects []database.Project, now time.Time) *Stats {
	stats := &Stats{ProjectsByStatus: make(map[lifecycle.Status]int, len(lifecycle.Statuses))}
	for _, s := range lifecycle.Statuses {
		stats.ProjectsByStatus[s] = 0
	}

	for _, p := range projects {
		state := p.State()
		stats.Projects++
		stats.ProjectsByStatus[p.Status]++
		if p.Status == lifecycle.StatusInProgress && !p.IsArchived {
			stats.ActiveProjects++
		}
		for _, l := range lifecycle.Labels(state, now, lifecycle.ModeExclusive) {
			if l == lifecycle.LabelOverdue {
				stats.OverdueProjects++
			}
		}
		if p.Amount == nil {
			continue
		}
		stats.TotalAmount += *p.Amount
		if state.Paid() {
			stats.PaidAmount += *p.Amount
		}
	}

	stats.TotalAmount = roundCents(stats.TotalAmount)
	stats.PaidAmount = roundCents(stats.PaidAmount)
	stats.OutstandingAmount = roundCents(stats.TotalAmount - stats.PaidAmount)
	return stats
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
