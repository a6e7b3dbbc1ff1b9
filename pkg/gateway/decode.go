package gateway

import (
	"fmt"
	"strconv"

	"github.com/stripe/table-gateway/pkg/sqldb"
)

// decodeColumn reads a (position, name, type, notnull, default, pk) catalog row
func decodeColumn(row sqldb.Row) (Column, error) {
	const expectedFields = 6
	if len(row) < expectedFields {
		return Column{}, fmt.Errorf("column descriptor has %d fields, expected %d", len(row), expectedFields)
	}

	position, err := asInt64(row[0])
	if err != nil {
		return Column{}, fmt.Errorf("column position: %w", err)
	}
	name, ok := asString(row[1])
	if !ok {
		return Column{}, fmt.Errorf("column name of unexpected type %T", row[1])
	}
	// SQLite leaves the type empty for columns declared without one
	typ, _ := asString(row[2])
	notNull, err := asInt64(row[3])
	if err != nil {
		return Column{}, fmt.Errorf("column %q not null flag: %w", name, err)
	}
	var def *string
	if row[4] != nil {
		val, ok := asString(row[4])
		if !ok {
			return Column{}, fmt.Errorf("column %q default of unexpected type %T", name, row[4])
		}
		def = &val
	}
	// SQLite reports the column's 1-based index within the primary key, 0 if it is not part of it
	pk, err := asInt64(row[5])
	if err != nil {
		return Column{}, fmt.Errorf("column %q primary key flag: %w", name, err)
	}

	return Column{
		Position:   int(position),
		Name:       name,
		Type:       typ,
		NotNull:    notNull != 0,
		Default:    def,
		PrimaryKey: pk > 0,
	}, nil
}

func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return "", false
	}
}

func asInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	default:
		return 0, fmt.Errorf("value of unexpected type %T", v)
	}
}
