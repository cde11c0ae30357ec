package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var (
	_ sql.Scanner   = (*UsageHistory)(nil)
	_ driver.Valuer = UsageHistory(nil)
	_ sql.Scanner   = (*ChannelInfo)(nil)
	_ driver.Valuer = ChannelInfo{}
)

// scanJSONB scans a JSONB database value into dest. It handles nil values,
// []byte, and string representations from different drivers.
func scanJSONB(dest any, value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan implements sql.Scanner. A NULL column yields an empty history.
func (h *UsageHistory) Scan(value any) error {
	if value == nil {
		*h = UsageHistory{}
		return nil
	}
	m := UsageHistory{}
	if err := scanJSONB(&m, value); err != nil {
		return err
	}
	*h = m
	return nil
}

// Value implements driver.Valuer.
func (h UsageHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]int(h))
}

// Scan implements sql.Scanner.
func (c *ChannelInfo) Scan(value any) error {
	return scanJSONB(c, value)
}

// Value implements driver.Valuer.
func (c ChannelInfo) Value() (driver.Value, error) {
	return json.Marshal(c)
}
