package docgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/errcode"
	"freelanceDesk/internal/lifecycle"
	"freelanceDesk/internal/store"
)

// ObjectStorage 是归档文档所需的对象存储能力，*storage.Client 满足该接口。
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignDownload(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// Service 负责校验、生成并持久化文档。
type Service struct {
	store   store.Store
	storage ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewService 构造 Service，storage 为 nil 时不归档。
func NewService(st store.Store, storage ObjectStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate 为项目生成发票或合同并保存。
// 校验顺序：文档类型 → 项目存在 → 客户存在 → 生命周期规则。
func (s *Service) Generate(ctx context.Context, rawKind string, projectID uint) (*database.Document, error) {
	kind, err := lifecycle.ParseDocumentKind(rawKind)
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errcode.NotFoundf("project %d not found", projectID)
		}
		return nil, fmt.Errorf("load project: %w", err)
	}

	client, err := s.store.GetClient(ctx, project.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errcode.NotFoundf("client %d of project %d not found", project.ClientID, projectID)
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if err := lifecycle.CheckDocument(kind, project.State()); err != nil {
		return nil, err
	}

	content, err := Render(kind, *project, *client, s.now())
	if err != nil {
		return nil, err
	}

	doc := &database.Document{
		Type:      kind,
		ProjectID: &project.ID,
		Content:   content,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	s.archive(ctx, doc)
	return doc, nil
}

// archive 把文档正文上传到对象存储，失败只记录日志，不影响生成结果。
func (s *Service) archive(ctx context.Context, doc *database.Document) {
	if s.storage == nil {
		return
	}

	log := s.logger.With(slog.Uint64("document_id", uint64(doc.ID)))
	objectKey := fmt.Sprintf("documents/%s/%d-%s.txt", doc.Type, doc.ID, uuid.NewString())
	reader := strings.NewReader(doc.Content)
	if err := s.storage.Put(ctx, objectKey, reader, int64(reader.Len()), "text/plain; charset=utf-8"); err != nil {
		log.Error("archive document failed", slog.Any("error", err))
		return
	}

	doc.ObjectKey = objectKey
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		log.Error("record document object key failed", slog.Any("error", err))
		doc.ObjectKey = ""
		if err := s.storage.Remove(ctx, objectKey); err != nil {
			log.Warn("cleanup archived document failed", slog.Any("error", err))
		}
		return
	}
	log.Info("document archived", slog.String("object_key", objectKey))
}

// DownloadLink 返回已归档文档的限时下载链接。
func (s *Service) DownloadLink(ctx context.Context, documentID uint, ttl time.Duration) (string, error) {
	if s.storage == nil {
		return "", &errcode.Error{Kind: errcode.Unavailable, Message: "document archive is not configured"}
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errcode.NotFoundf("document %d not found", documentID)
		}
		return "", fmt.Errorf("load document: %w", err)
	}
	if doc.ObjectKey == "" {
		return "", errcode.Conflictf("document %d has not been archived", documentID)
	}

	url, err := s.storage.PresignDownload(ctx, doc.ObjectKey, downloadName(doc), ttl)
	if err != nil {
		return "", errcode.Wrap(errcode.Upstream, "failed to generate download link", err)
	}
	return url, nil
}

// Discard 删除文档记录，并清理已归档的对象。
func (s *Service) Discard(ctx context.Context, documentID uint) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errcode.NotFoundf("document %d not found", documentID)
		}
		return fmt.Errorf("load document: %w", err)
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errcode.NotFoundf("document %d not found", documentID)
		}
		return fmt.Errorf("delete document: %w", err)
	}
	if s.storage != nil && doc.ObjectKey != "" {
		if err := s.storage.Remove(ctx, doc.ObjectKey); err != nil {
			s.logger.Warn("delete archived document failed",
				slog.Uint64("document_id", uint64(documentID)),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

// downloadName 是下载时的文件名，生成的文档使用文档编号。
func downloadName(doc *database.Document) string {
	if doc.ProjectID != nil {
		return DocumentNumber(doc.Type, *doc.ProjectID, doc.CreatedAt) + ".txt"
	}
	return fmt.Sprintf("%s-%d.txt", doc.Type, doc.ID)
}
