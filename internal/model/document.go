package model

import "time"

// 文档元数据中约定的键。
const (
	MetaFilename    = "filename"
	MetaContentType = "content_type"
	MetaSize        = "size"
	MetaUploadDate  = "upload_date"
	MetaName        = "name"
)

// Document 是组织上传的文本内容，也可以是文件夹（IsFolder=true，Content 为 NULL）。
// ParentID 指向上级文件夹，构成文件夹树。
type Document struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Type           string    `gorm:"type:varchar(100)" json:"type"`
	Content        *string   `json:"content"`
	Metadata       Metadata  `gorm:"column:doc_metadata;type:json" json:"doc_metadata"`
	ParentID       *uint     `gorm:"index" json:"parent_id"`
	IsFolder       bool      `gorm:"not null;default:false" json:"is_folder"`
	OrganizationID uint      `gorm:"index;not null" json:"organization_id"`
	Timestamp      time.Time `gorm:"autoCreateTime;index" json:"timestamp"`

	// Path 由服务层沿 ParentID 向上计算，不落库。
	Path string `gorm:"-" json:"path"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DisplayName 返回文档在路径中显示的名称：文件夹取 name，文件取 filename。
func (d *Document) DisplayName() string {
	if name := d.Metadata.String(MetaName); name != "" {
		return name
	}
	if name := d.Metadata.String(MetaFilename); name != "" {
		return name
	}
	return ""
}
