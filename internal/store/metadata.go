package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// marshalMetadata serializes free-form vendor metadata for a TEXT column.
// Nil maps are stored as NULL rather than "null".
func marshalMetadata(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalMetadata(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
