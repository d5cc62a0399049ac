package handler

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService     service.DocumentService
	maxUploadBytes int64
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。maxUploadMB <= 0 表示不限制请求体大小。
func NewDocumentHandler(docService service.DocumentService, maxUploadMB int64) *DocumentHandler {
	return &DocumentHandler{docService: docService, maxUploadBytes: maxUploadMB << 20}
}

// parseParentID 解析可选的 parent_id，空值表示根目录。
func parseParentID(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("invalid parent_id")
	}
	parent := uint(id)
	return &parent, nil
}

func readUploadFile(fh *multipart.FileHeader) (service.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.UploadFile{}, err
	}
	return service.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// Upload 处理 multipart 文件上传，文件字段为 files（兼容 files[]），类型字段为 type。
func (h *DocumentHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		log.Warnf("Upload: invalid multipart form, error: %v", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"code": http.StatusRequestEntityTooLarge, "detail": "upload too large"})
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}
	headers := append(form.File["files"], form.File["files[]"]...)
	if len(headers) == 0 {
		badRequest(c, "no files provided")
		return
	}
	docType := c.PostForm("type")
	if docType == "" {
		badRequest(c, "type is required")
		return
	}
	parentID, err := parseParentID(c.PostForm("parent_id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readUploadFile(fh)
		if err != nil {
			log.Warnf("Upload: 读取上传文件 '%s' 失败: %v", fh.Filename, err)
			badRequest(c, "could not read file "+fh.Filename)
			return
		}
		files = append(files, f)
	}

	docs, err := h.docService.Upload(c.Request.Context(), user.OrganizationID, docType, parentID, files)
	if err != nil {
		respondError(c, "Upload", err)
		return
	}
	log.Infow("文档上传成功", "organization_id", user.OrganizationID, "count", len(docs))
	c.JSON(http.StatusOK, docs)
}

type createFolderRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

// CreateFolder 创建文件夹。
func (h *DocumentHandler) CreateFolder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreateFolder: Invalid request payload, error: %v", err)
		badRequest(c, "name is required")
		return
	}
	folder, err := h.docService.CreateFolder(c.Request.Context(), user.OrganizationID, req.Name, req.ParentID)
	if err != nil {
		respondError(c, "CreateFolder", err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

// List 返回组织内的全部文档，按时间倒序。
func (h *DocumentHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	docs, err := h.docService.List(c.Request.Context(), user.OrganizationID)
	if err != nil {
		respondError(c, "ListDocuments", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Get 返回单个文档。
func (h *DocumentHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.docService.Get(c.Request.Context(), user.OrganizationID, id)
	if err != nil {
		respondError(c, "GetDocument", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Download 以附件形式返回文档的文本内容。
func (h *DocumentHandler) Download(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := h.docService.Download(c.Request.Context(), user.OrganizationID, id)
	if err != nil {
		respondError(c, "DownloadDocument", err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Original 返回原始上传文件的预签名下载链接。
func (h *DocumentHandler) Original(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	url, err := h.docService.OriginalURL(c.Request.Context(), user.OrganizationID, id)
	if err != nil {
		respondError(c, "OriginalDocument", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Delete 删除文档；非空文件夹返回 409。
func (h *DocumentHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.docService.Delete(c.Request.Context(), user.OrganizationID, id); err != nil {
		respondError(c, "DeleteDocument", err)
		return
	}
	log.Infow("文档删除成功", "organization_id", user.OrganizationID, "document_id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
