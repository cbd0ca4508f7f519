package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// OverrideValue is the raw JSON of an override value. SQLite gives a JSON
// column numeric affinity and hands scalars back as numbers, so the column
// is TEXT there and Scan accepts every driver representation.
type OverrideValue []byte

func (v OverrideValue) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return string(v), nil
}

func (v *OverrideValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = OverrideValue(bytes.Clone(s))
	case string:
		*v = OverrideValue(s)
	case int64:
		*v = OverrideValue(strconv.FormatInt(s, 10))
	case float64:
		*v = OverrideValue(strconv.FormatFloat(s, 'g', -1, 64))
	case bool:
		*v = OverrideValue(strconv.FormatBool(s))
	default:
		return fmt.Errorf("override value: unsupported type %T", src)
	}
	return nil
}

func (v OverrideValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *OverrideValue) UnmarshalJSON(data []byte) error {
	*v = OverrideValue(bytes.Clone(data))
	return nil
}

func (OverrideValue) GormDataType() string {
	return "json"
}

func (OverrideValue) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	default:
		return "TEXT"
	}
}
