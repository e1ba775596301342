package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Metadata is a free-form JSON document stored in a single column.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported metadata column type")
	}
}

type AuditLog struct {
	ID         int64     `gorm:"primaryKey"`
	ExpenseID  *int64    `gorm:"column:expense_id"`
	ActorType  string    `gorm:"column:actor_type;not null"`
	ActorID    int64     `gorm:"column:actor_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	FromStatus *string   `gorm:"column:from_status"`
	ToStatus   *string   `gorm:"column:to_status"`
	Metadata   Metadata  `gorm:"column:metadata;type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string {
	return "expense_audit_logs"
}
