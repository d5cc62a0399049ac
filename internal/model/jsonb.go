package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON 将数据库中的 JSON 列解析到 dest，兼容 MySQL 返回 []byte 与 Postgres 返回 string。
func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// Metadata 是文档的开放式键值元数据，例如 filename、content_type、size、upload_date。
type Metadata map[string]interface{}

// Value 实现 driver.Valuer。
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (m *Metadata) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// String 返回 key 对应的字符串值，不存在或不是字符串时返回空串。
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
