package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/log"
	"board-ai-go/pkg/tasks"
)

const (
	defaultDownloadName = "document"
	defaultDownloadType = "application/octet-stream"
	folderType          = "folder"
	// maxPathDepth 限制沿 parent_id 向上查找的层数，防止脏数据成环。
	maxPathDepth = 64
	// originalURLExpiry 是原始文件预签名链接的有效期。
	originalURLExpiry = time.Hour
)

// PageExtractor 将 PDF 字节逐页转换为文本，由 tika.Client 实现。
type PageExtractor interface {
	ExtractPages(ctx context.Context, r io.Reader, fileName string) ([]string, error)
}

// ObjectStorage 保存上传的原始文件，由 storage.ObjectStore 实现。
type ObjectStorage interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectName string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// IndexPublisher 投递文档索引任务，由 kafka.Producer 或 pipeline.DirectPublisher 实现。
type IndexPublisher interface {
	Publish(ctx context.Context, task tasks.DocumentIndexTask) error
}

// UploadFile 是上传的单个文件。
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DownloadFile 是下载时返回给客户端的内容。
type DownloadFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

// DocumentService 接口定义了文档管理相关的业务操作，所有方法均以组织 ID 为边界。
type DocumentService interface {
	// Upload 逐个保存文件。操作不是原子的：中途失败时之前的文件已经提交。
	Upload(ctx context.Context, orgID uint, docType string, parentID *uint, files []UploadFile) ([]model.Document, error)
	CreateFolder(ctx context.Context, orgID uint, name string, parentID *uint) (*model.Document, error)
	List(ctx context.Context, orgID uint) ([]model.Document, error)
	Get(ctx context.Context, orgID, id uint) (*model.Document, error)
	// Delete 删除文档；非空文件夹返回 ErrConflict。
	Delete(ctx context.Context, orgID, id uint) error
	Download(ctx context.Context, orgID, id uint) (*DownloadFile, error)
	OriginalURL(ctx context.Context, orgID, id uint) (string, error)
}

type documentService struct {
	docRepo   repository.DocumentRepository
	extractor PageExtractor
	objects   ObjectStorage
	publisher IndexPublisher
}

// NewDocumentService 创建一个新的 DocumentService 实例。
// extractor、objects、publisher 均可为 nil，对应功能随之关闭。
func NewDocumentService(docRepo repository.DocumentRepository, extractor PageExtractor, objects ObjectStorage, publisher IndexPublisher) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		extractor: extractor,
		objects:   objects,
		publisher: publisher,
	}
}

func (s *documentService) Upload(ctx context.Context, orgID uint, docType string, parentID *uint, files []UploadFile) ([]model.Document, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrBadRequest)
	}
	if err := s.checkParent(ctx, orgID, parentID); err != nil {
		return nil, err
	}

	created := make([]model.Document, 0, len(files))
	for _, f := range files {
		contentType := resolveContentType(f.ContentType, f.Filename)
		text, err := s.extractText(ctx, f, contentType)
		if err != nil {
			log.Warnw("文档上传失败", "organization_id", orgID, "filename", f.Filename, "committed", len(created), "error", err)
			return nil, err
		}

		doc := &model.Document{
			Type:    docType,
			Content: &text,
			Metadata: model.Metadata{
				model.MetaFilename:    f.Filename,
				model.MetaContentType: contentType,
				model.MetaSize:        len(f.Data),
				model.MetaUploadDate:  time.Now().UTC().Format(time.RFC3339),
			},
			ParentID:       parentID,
			OrganizationID: orgID,
		}
		if err := s.docRepo.Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("保存文档失败: %w", err)
		}

		s.archive(ctx, doc, f, contentType)
		s.publish(ctx, tasks.ActionIndex, doc)
		created = append(created, *doc)
	}

	return s.withPaths(ctx, orgID, created)
}

// resolveContentType 优先使用客户端声明的类型。声明缺失或为 application/octet-stream 时按扩展名推断，
// 推断不出则保留 octet-stream，随后在 extractText 中以不支持的类型拒绝。
func resolveContentType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != defaultDownloadType {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text", ".log":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if declared != "" {
		return declared
	}
	return defaultDownloadType
}

func isTextType(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	}
	return false
}

func (s *documentService) extractText(ctx context.Context, f UploadFile, contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: invalid content type %q for %s", ErrBadRequest, contentType, f.Filename)
	}

	switch {
	case mediaType == "application/pdf":
		if s.extractor == nil {
			return "", fmt.Errorf("%w: PDF extraction is not available", ErrBadRequest)
		}
		pages, err := s.extractor.ExtractPages(ctx, bytes.NewReader(f.Data), f.Filename)
		if err != nil {
			// 解析服务以 4xx 拒绝的是文件本身的问题，连接失败等仍按内部错误处理
			var rejected interface{ Rejected() bool }
			if errors.As(err, &rejected) && rejected.Rejected() {
				return "", fmt.Errorf("%w: could not extract PDF text from %s: %v", ErrBadRequest, f.Filename, err)
			}
			return "", fmt.Errorf("提取 PDF 文本失败 (%s): %w", f.Filename, err)
		}
		for i, p := range pages {
			// 无法解码的页面按空页处理，不影响整个文档
			if !utf8.ValidString(p) {
				log.Warnf("[DocumentService] PDF 第 %d 页文本无效, 已忽略: %s", i+1, f.Filename)
				pages[i] = ""
			}
		}
		return strings.Join(pages, "\n"), nil
	case isTextType(mediaType):
		if !utf8.Valid(f.Data) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8 text", ErrBadRequest, f.Filename)
		}
		return string(f.Data), nil
	default:
		return "", fmt.Errorf("%w: unsupported content type %s", ErrBadRequest, mediaType)
	}
}

// archive 将原始文件保存到对象存储，失败只记录日志。
func (s *documentService) archive(ctx context.Context, doc *model.Document, f UploadFile, contentType string) {
	if s.objects == nil {
		return
	}
	name := objectName(doc)
	if err := s.objects.Put(ctx, name, bytes.NewReader(f.Data), int64(len(f.Data)), contentType); err != nil {
		log.Warnw("归档原始文件失败", "document_id", doc.ID, "object", name, "error", err)
	}
}

func (s *documentService) publish(ctx context.Context, action string, doc *model.Document) {
	if s.publisher == nil || doc.IsFolder {
		return
	}
	task := tasks.DocumentIndexTask{Action: action, DocumentID: doc.ID, OrganizationID: doc.OrganizationID}
	if err := s.publisher.Publish(ctx, task); err != nil {
		log.Warnw("投递索引任务失败", "document_id", doc.ID, "action", action, "error", err)
	}
}

func objectName(doc *model.Document) string {
	return fmt.Sprintf("documents/%d/%d/%s", doc.OrganizationID, doc.ID, doc.Metadata.String(model.MetaFilename))
}

func (s *documentService) checkParent(ctx context.Context, orgID uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.docRepo.FindByID(ctx, orgID, *parentID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: parent folder %d not found", ErrBadRequest, *parentID)
	}
	if err != nil {
		return err
	}
	if !parent.IsFolder {
		return fmt.Errorf("%w: parent %d is not a folder", ErrBadRequest, *parentID)
	}
	return nil
}

func (s *documentService) CreateFolder(ctx context.Context, orgID uint, name string, parentID *uint) (*model.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrBadRequest)
	}
	if err := s.checkParent(ctx, orgID, parentID); err != nil {
		return nil, err
	}

	folder := &model.Document{
		Type:           folderType,
		Metadata:       model.Metadata{model.MetaName: name},
		ParentID:       parentID,
		IsFolder:       true,
		OrganizationID: orgID,
	}
	if err := s.docRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("创建文件夹失败: %w", err)
	}
	docs, err := s.withPaths(ctx, orgID, []model.Document{*folder})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

func (s *documentService) List(ctx context.Context, orgID uint) ([]model.Document, error) {
	docs, err := s.docRepo.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}
	for i := range docs {
		docs[i].Path = buildPath(&docs[i], func(id uint) *model.Document { return byID[id] })
	}
	return docs, nil
}

func (s *documentService) Get(ctx context.Context, orgID, id uint) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "document")
	}
	docs, err := s.withPaths(ctx, orgID, []model.Document{*doc})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// withPaths 为少量文档逐级查询祖先并计算路径。
func (s *documentService) withPaths(ctx context.Context, orgID uint, docs []model.Document) ([]model.Document, error) {
	cache := make(map[uint]*model.Document)
	var lookupErr error
	lookup := func(id uint) *model.Document {
		if d, ok := cache[id]; ok {
			return d
		}
		d, err := s.docRepo.FindByID(ctx, orgID, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) && lookupErr == nil {
				lookupErr = err
			}
			d = nil
		}
		cache[id] = d
		return d
	}
	for i := range docs {
		docs[i].Path = buildPath(&docs[i], lookup)
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	return docs, nil
}

// buildPath 沿 parent_id 向上拼接名称，得到 "/祖先/.../名称"。
// 祖先缺失时路径从最近可达的祖先开始。
func buildPath(doc *model.Document, lookup func(id uint) *model.Document) string {
	segments := []string{doc.DisplayName()}
	seen := map[uint]bool{doc.ID: true}
	parentID := doc.ParentID
	for depth := 0; parentID != nil && depth < maxPathDepth; depth++ {
		if seen[*parentID] {
			log.Warnf("[DocumentService] 文档 %d 的父级链存在环", doc.ID)
			break
		}
		seen[*parentID] = true
		parent := lookup(*parentID)
		if parent == nil {
			break
		}
		segments = append(segments, parent.DisplayName())
		parentID = parent.ParentID
	}

	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segments[i])
	}
	return b.String()
}

func (s *documentService) Delete(ctx context.Context, orgID, id uint) error {
	doc, err := s.docRepo.FindByID(ctx, orgID, id)
	if err != nil {
		return notFound(err, "document")
	}
	if doc.IsFolder {
		children, err := s.docRepo.CountChildren(ctx, orgID, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: folder %d is not empty", ErrConflict, id)
		}
	}

	if err := s.docRepo.Delete(ctx, orgID, id); err != nil {
		return notFound(err, "document")
	}

	if s.objects != nil && !doc.IsFolder {
		if err := s.objects.Remove(ctx, objectName(doc)); err != nil {
			log.Warnw("删除原始文件失败", "document_id", id, "error", err)
		}
	}
	s.publish(ctx, tasks.ActionDelete, doc)
	return nil
}

func (s *documentService) Download(ctx context.Context, orgID, id uint) (*DownloadFile, error) {
	doc, err := s.docRepo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "document")
	}
	if doc.IsFolder {
		return nil, fmt.Errorf("%w: cannot download a folder", ErrBadRequest)
	}

	out := &DownloadFile{
		ContentType: doc.Metadata.String(model.MetaContentType),
		Filename:    doc.Metadata.String(model.MetaFilename),
	}
	if doc.Content != nil {
		out.Data = []byte(*doc.Content)
	}
	if out.ContentType == "" {
		out.ContentType = defaultDownloadType
	}
	if out.Filename == "" {
		out.Filename = defaultDownloadName
	}
	return out, nil
}

func (s *documentService) OriginalURL(ctx context.Context, orgID, id uint) (string, error) {
	doc, err := s.docRepo.FindByID(ctx, orgID, id)
	if err != nil {
		return "", notFound(err, "document")
	}
	if s.objects == nil || doc.IsFolder {
		return "", fmt.Errorf("%w: original file not available", ErrNotFound)
	}
	url, err := s.objects.PresignedURL(ctx, objectName(doc), originalURLExpiry)
	if err != nil {
		log.Warnw("生成原始文件链接失败", "document_id", id, "error", err)
		return "", fmt.Errorf("%w: original file not available", ErrNotFound)
	}
	return url, nil
}
