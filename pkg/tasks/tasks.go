// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "fmt"

// 文档索引任务的动作类型。
const (
	ActionIndex  = "index"
	ActionDelete = "delete"
)

// DocumentIndexTask represents a search-index job for one stored document.
// 正文不随消息传递，消费者按 DocumentID 和 OrganizationID 重新读取。
type DocumentIndexTask struct {
	Action         string `json:"action"`
	DocumentID     uint   `json:"document_id"`
	OrganizationID uint   `json:"organization_id"`
}

// Key 返回用于分区和失败计数的消息键，同一文档的任务落在同一分区以保证顺序。
func (t DocumentIndexTask) Key() string {
	return fmt.Sprintf("%d:%d", t.OrganizationID, t.DocumentID)
}
