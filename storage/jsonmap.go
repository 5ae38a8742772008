package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a free-form JSON object column, used for the order table's
// fee_info field (spec.md §3). The teacher's execution/reconciler.go
// marshals/unmarshals position metadata through a plain string column by
// hand; this does the same json.Marshal/json.Unmarshal round-trip but
// implements database/sql's Scanner/Valuer so gorm can read and write it
// directly as a jsonb column instead of a text column plus manual coding
// at every call site.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("storage: unsupported JSONMap source type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// GormDataType tells gorm's migrator to use jsonb for this field.
func (JSONMap) GormDataType() string {
	return "jsonb"
}
