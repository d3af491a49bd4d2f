package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/docgen"
	"freelanceDesk/internal/lifecycle"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memoryObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)
	return nil
}

func (m *memoryObjects) PresignDownload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key + "?signature=abc", nil
}

func (m *memoryObjects) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func TestGenerateInvoiceRespectsLifecycle(t *testing.T) {
	s := newTestServer(t)
	client := s.createClient(t, "ada")
	open := s.createProject(t, map[string]any{"clientId": client.ID, "name": "Open", "amount": 300})
	delivered := s.createProject(t, map[string]any{
		"clientId": client.ID, "name": "Shipped", "status": "Delivered", "amount": 1234.5, "volume": 12500,
	})

	rec := s.do(t, http.MethodPost, "/api/documents/generate", map[string]any{"type": "invoice", "projectId": open.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Errors, "projectId")

	rec = s.do(t, http.MethodPost, "/api/documents/generate", map[string]any{"type": "receipt", "projectId": delivered.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Errors, "type")

	rec = s.do(t, http.MethodPost, "/api/documents/generate", map[string]any{"type": "invoice", "projectId": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/documents/generate", map[string]any{"type": "invoice", "projectId": delivered.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[database.Document](t, rec)
	assert.Equal(t, lifecycle.DocumentInvoice, doc.Type)
	require.NotNil(t, doc.ProjectID)
	assert.Equal(t, delivered.ID, *doc.ProjectID)
	assert.Contains(t, doc.Content, "$1,234.50")
	assert.Contains(t, doc.Content, "Shipped")

	// 生成文档不会改变项目状态
	rec = s.do(t, http.MethodGet, "/api/projects/"+itoa(delivered.ID), nil)
	assert.False(t, decode[projectView](t, rec).InvoiceSent)

	rec = s.do(t, http.MethodPost, "/api/documents/generate", map[string]any{"type": "contract", "projectId": open.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/documents", nil)
	assert.Len(t, decode[[]database.Document](t, rec), 2)
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/documents", map[string]any{"type": "memo", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/documents", map[string]any{"type": "contract", "content": "x", "projectId": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/documents", map[string]any{"type": "contract", "content": "Draft terms"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[database.Document](t, rec)
	assert.Nil(t, doc.ProjectID)

	rec = s.do(t, http.MethodPatch, "/api/documents/"+itoa(doc.ID), map[string]any{"content": "Final terms"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[database.Document](t, rec)
	assert.Equal(t, "Final terms", updated.Content)
	assert.Equal(t, lifecycle.DocumentContract, updated.Type)

	rec = s.do(t, http.MethodGet, "/api/documents/"+itoa(doc.ID), nil)
	assert.Equal(t, "Final terms", decode[database.Document](t, rec).Content)

	rec = s.do(t, http.MethodDelete, "/api/documents/"+itoa(doc.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/documents/"+itoa(doc.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadLinkWithoutArchive(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/documents", map[string]any{"type": "contract", "content": "terms"})
	doc := decode[database.Document](t, rec)

	rec = s.do(t, http.MethodGet, "/api/documents/"+itoa(doc.ID)+"/download-link", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDownloadLinkForArchivedDocument(t *testing.T) {
	objects := &memoryObjects{objects: map[string]string{}}
	s := newTestServer(t, func(d *Dependencies) {
		d.Documents = docgen.NewService(d.Store, objects, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
	client := s.createClient(t, "ada")
	p := s.createProject(t, map[string]any{"clientId": client.ID, "name": "Glossary"})

	rec := s.do(t, http.MethodPost, "/api/documents/generate", map[string]any{"type": "contract", "projectId": p.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	generated := decode[database.Document](t, rec)
	assert.Equal(t, 1, objects.len())

	rec = s.do(t, http.MethodGet, "/api/documents/"+itoa(generated.ID)+"/download-link", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link := decode[struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expiresIn"`
	}](t, rec)
	assert.True(t, strings.HasPrefix(link.URL, "https://objects.test/documents/contract/"))
	assert.Equal(t, 900, link.ExpiresIn)

	// 手工录入的文档没有归档对象
	rec = s.do(t, http.MethodPost, "/api/documents", map[string]any{"type": "contract", "content": "manual"})
	manual := decode[database.Document](t, rec)
	rec = s.do(t, http.MethodGet, "/api/documents/"+itoa(manual.ID)+"/download-link", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/documents/"+itoa(generated.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, objects.len())
}
