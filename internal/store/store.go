// Package store 是实体的唯一持有者，负责 CRUD 与 ID 分配。
// ID 按实体类型单调递增，删除后不会复用。
package store

import (
	"context"
	"errors"

	"freelanceDesk/internal/database"
)

var (
	// ErrNotFound 表示实体不存在。
	ErrNotFound = errors.New("record not found")
	// ErrClientHasProjects 表示客户仍被项目引用，不能删除。
	ErrClientHasProjects = errors.New("client still has projects")
)

// ProjectFilter 过滤项目列表，零值表示不过滤。
type ProjectFilter struct {
	ClientID *uint
}

// Store defines persistence operations for every entity type.
// Update 是整条记录替换，调用方必须先完成校验。
type Store interface {
	// clients
	CreateClient(ctx context.Context, c *database.Client) error
	GetClient(ctx context.Context, id uint) (*database.Client, error)
	ListClients(ctx context.Context) ([]database.Client, error)
	UpdateClient(ctx context.Context, c *database.Client) error
	DeleteClient(ctx context.Context, id uint) error

	// projects
	CreateProject(ctx context.Context, p *database.Project) error
	GetProject(ctx context.Context, id uint) (*database.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]database.Project, error)
	UpdateProject(ctx context.Context, p *database.Project) error
	DeleteProject(ctx context.Context, id uint) error

	// documents
	CreateDocument(ctx context.Context, d *database.Document) error
	GetDocument(ctx context.Context, id uint) (*database.Document, error)
	ListDocuments(ctx context.Context) ([]database.Document, error)
	UpdateDocument(ctx context.Context, d *database.Document) error
	DeleteDocument(ctx context.Context, id uint) error

	// resumes
	CreateResume(ctx context.Context, r *database.Resume) error
	GetResume(ctx context.Context, id uint) (*database.Resume, error)
	ListResumes(ctx context.Context) ([]database.Resume, error)
	UpdateResume(ctx context.Context, r *database.Resume) error
	DeleteResume(ctx context.Context, id uint) error

	// external data
	CreateExternalData(ctx context.Context, d *database.ExternalData) error
	GetExternalData(ctx context.Context, id uint) (*database.ExternalData, error)
	ListExternalData(ctx context.Context) ([]database.ExternalData, error)
	MarkExternalDataProcessed(ctx context.Context, id uint) error
}
