package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"freelanceDesk/internal/database"
)

// table 是单个实体类型的内存表，nextID 只增不减。
type table[T any] struct {
	rows   map[uint]T
	nextID uint
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uint]T), nextID: 1}
}

// reserve 分配下一个 ID。
func (t *table[T]) reserve() uint {
	id := t.nextID
	t.nextID++
	return id
}

func (t *table[T]) put(id uint, v T) {
	t.rows[id] = v
}

func (t *table[T]) get(id uint) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// list 按 ID 升序返回全部记录。
func (t *table[T]) list() []T {
	ids := make([]uint, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]T, 0, len(ids))
	for _, id := range ids {
		res = append(res, t.rows[id])
	}
	return res
}

func (t *table[T]) replace(id uint, v T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = v
	return true
}

func (t *table[T]) remove(id uint) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// MemoryStore keeps entities in-process; suitable for single-user deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	clients  *table[database.Client]
	projects *table[database.Project]
	docs     *table[database.Document]
	resumes  *table[database.Resume]
	external *table[database.ExternalData]
	now      func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:  newTable[database.Client](),
		projects: newTable[database.Project](),
		docs:     newTable[database.Document](),
		resumes:  newTable[database.Resume](),
		external: newTable[database.ExternalData](),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateClient(_ context.Context, c *database.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c.CreatedAt, c.UpdatedAt = now, now
	c.ID = m.clients.reserve()
	m.clients.put(c.ID, *c)
	return nil
}

func (m *MemoryStore) GetClient(_ context.Context, id uint) (*database.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) ListClients(_ context.Context) ([]database.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients.list(), nil
}

func (m *MemoryStore) UpdateClient(_ context.Context, c *database.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.clients.get(c.ID)
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = m.now()
	m.clients.replace(c.ID, *c)
	return nil
}

// DeleteClient 在客户仍被项目引用时拒绝删除，检查与删除在同一把锁内完成。
func (m *MemoryStore) DeleteClient(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients.get(id); !ok {
		return ErrNotFound
	}
	for _, p := range m.projects.rows {
		if p.ClientID == id {
			return ErrClientHasProjects
		}
	}
	m.clients.remove(id)
	return nil
}

func (m *MemoryStore) CreateProject(_ context.Context, p *database.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients.get(p.ClientID); !ok {
		return ErrNotFound
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.ID = m.projects.reserve()
	m.projects.put(p.ID, *p)
	return nil
}

func (m *MemoryStore) GetProject(_ context.Context, id uint) (*database.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListProjects(_ context.Context, filter ProjectFilter) ([]database.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.projects.list()
	if filter.ClientID == nil {
		return all, nil
	}
	res := all[:0]
	for _, p := range all {
		if p.ClientID == *filter.ClientID {
			res = append(res, p)
		}
	}
	return res, nil
}

func (m *MemoryStore) UpdateProject(_ context.Context, p *database.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.projects.get(p.ID)
	if !ok {
		return ErrNotFound
	}
	if _, ok := m.clients.get(p.ClientID); !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = m.now()
	m.projects.replace(p.ID, *p)
	return nil
}

func (m *MemoryStore) DeleteProject(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.projects.remove(id) {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) CreateDocument(_ context.Context, d *database.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.CreatedAt = m.now()
	d.ID = m.docs.reserve()
	m.docs.put(d.ID, *d)
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id uint) (*database.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) ListDocuments(_ context.Context) ([]database.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs.list(), nil
}

func (m *MemoryStore) UpdateDocument(_ context.Context, d *database.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.docs.get(d.ID)
	if !ok {
		return ErrNotFound
	}
	d.CreatedAt = old.CreatedAt
	m.docs.replace(d.ID, *d)
	return nil
}

func (m *MemoryStore) DeleteDocument(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.docs.remove(id) {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) CreateResume(_ context.Context, r *database.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = m.now()
	r.ID = m.resumes.reserve()
	m.resumes.put(r.ID, *r)
	return nil
}

func (m *MemoryStore) GetResume(_ context.Context, id uint) (*database.Resume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resumes.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) ListResumes(_ context.Context) ([]database.Resume, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resumes.list(), nil
}

func (m *MemoryStore) UpdateResume(_ context.Context, r *database.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.resumes.get(r.ID)
	if !ok {
		return ErrNotFound
	}
	r.CreatedAt = old.CreatedAt
	m.resumes.replace(r.ID, *r)
	return nil
}

func (m *MemoryStore) DeleteResume(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.resumes.remove(id) {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) CreateExternalData(_ context.Context, d *database.ExternalData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.CreatedAt = m.now()
	d.Processed = false
	d.ID = m.external.reserve()
	m.external.put(d.ID, *d)
	return nil
}

func (m *MemoryStore) GetExternalData(_ context.Context, id uint) (*database.ExternalData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.external.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) ListExternalData(_ context.Context) ([]database.ExternalData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.external.list(), nil
}

// MarkExternalDataProcessed 只允许 false → true，重复调用是幂等的。
func (m *MemoryStore) MarkExternalDataProcessed(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.external.get(id)
	if !ok {
		return ErrNotFound
	}
	d.Processed = true
	m.external.replace(id, d)
	return nil
}
