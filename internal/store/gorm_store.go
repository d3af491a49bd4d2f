package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"freelanceDesk/internal/database"
)

// GormStore 基于 GORM 实现 Store，生产环境使用 PostgreSQL。
// ID 由数据库自增序列分配，删除后不会复用。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 构造 GormStore。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func first[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var row T
	if err := db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func listAll[T any](ctx context.Context, db *gorm.DB) ([]T, error) {
	rows := make([]T, 0)
	if err := db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func deleteByID[T any](ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// replace 在事务中确认记录存在后整条覆盖，并保留原创建时间。
func replace[T any](ctx context.Context, db *gorm.DB, id uint, row *T, keepCreated func(old *T)) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old T
		if err := tx.First(&old, id).Error; err != nil {
			return translate(err)
		}
		keepCreated(&old)
		return tx.Save(row).Error
	})
}

func (s *GormStore) CreateClient(ctx context.Context, c *database.Client) error {
	c.ID = 0
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) GetClient(ctx context.Context, id uint) (*database.Client, error) {
	return first[database.Client](ctx, s.db, id)
}

func (s *GormStore) ListClients(ctx context.Context) ([]database.Client, error) {
	return listAll[database.Client](ctx, s.db)
}

func (s *GormStore) UpdateClient(ctx context.Context, c *database.Client) error {
	return replace(ctx, s.db, c.ID, c, func(old *database.Client) { c.CreatedAt = old.CreatedAt })
}

// DeleteClient 在同一事务内检查项目引用后删除。
func (s *GormStore) DeleteClient(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client database.Client
		if err := tx.First(&client, id).Error; err != nil {
			return translate(err)
		}
		var count int64
		if err := tx.Model(&database.Project{}).Where("client_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("count client projects: %w", err)
		}
		if count > 0 {
			return ErrClientHasProjects
		}
		return tx.Delete(&client).Error
	})
}

func (s *GormStore) CreateProject(ctx context.Context, p *database.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&database.Client{}, p.ClientID).Error; err != nil {
			return translate(err)
		}
		p.ID = 0
		return tx.Create(p).Error
	})
}

func (s *GormStore) GetProject(ctx context.Context, id uint) (*database.Project, error) {
	return first[database.Project](ctx, s.db, id)
}

func (s *GormStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]database.Project, error) {
	query := s.db.WithContext(ctx).Order("id ASC")
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	projects := make([]database.Project, 0)
	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *GormStore) UpdateProject(ctx context.Context, p *database.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old database.Project
		if err := tx.First(&old, p.ID).Error; err != nil {
			return translate(err)
		}
		if old.ClientID != p.ClientID {
			if err := tx.Select("id").First(&database.Client{}, p.ClientID).Error; err != nil {
				return translate(err)
			}
		}
		p.CreatedAt = old.CreatedAt
		return tx.Save(p).Error
	})
}

func (s *GormStore) DeleteProject(ctx context.Context, id uint) error {
	return deleteByID[database.Project](ctx, s.db, id)
}

func (s *GormStore) CreateDocument(ctx context.Context, d *database.Document) error {
	d.ID = 0
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) GetDocument(ctx context.Context, id uint) (*database.Document, error) {
	return first[database.Document](ctx, s.db, id)
}

func (s *GormStore) ListDocuments(ctx context.Context) ([]database.Document, error) {
	return listAll[database.Document](ctx, s.db)
}

func (s *GormStore) UpdateDocument(ctx context.Context, d *database.Document) error {
	return replace(ctx, s.db, d.ID, d, func(old *database.Document) { d.CreatedAt = old.CreatedAt })
}

func (s *GormStore) DeleteDocument(ctx context.Context, id uint) error {
	return deleteByID[database.Document](ctx, s.db, id)
}

func (s *GormStore) CreateResume(ctx context.Context, r *database.Resume) error {
	r.ID = 0
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) GetResume(ctx context.Context, id uint) (*database.Resume, error) {
	return first[database.Resume](ctx, s.db, id)
}

func (s *GormStore) ListResumes(ctx context.Context) ([]database.Resume, error) {
	return listAll[database.Resume](ctx, s.db)
}

func (s *GormStore) UpdateResume(ctx context.Context, r *database.Resume) error {
	return replace(ctx, s.db, r.ID, r, func(old *database.Resume) { r.CreatedAt = old.CreatedAt })
}

func (s *GormStore) DeleteResume(ctx context.Context, id uint) error {
	return deleteByID[database.Resume](ctx, s.db, id)
}

func (s *GormStore) CreateExternalData(ctx context.Context, d *database.ExternalData) error {
	d.ID = 0
	d.Processed = false
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) GetExternalData(ctx context.Context, id uint) (*database.ExternalData, error) {
	return first[database.ExternalData](ctx, s.db, id)
}

func (s *GormStore) ListExternalData(ctx context.Context) ([]database.ExternalData, error) {
	return listAll[database.ExternalData](ctx, s.db)
}

// MarkExternalDataProcessed 只写入 true，不提供回退路径。
func (s *GormStore) MarkExternalDataProcessed(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&database.ExternalData{}).
		Where("id = ?", id).
		Update("processed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
