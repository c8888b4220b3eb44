// Read queries shared by every strategy. Reads always see the durable
// state; strategies that buffer writes flush before delegating here.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

// getProvenanceData returns the full typed property map for a node. Values
// are decoded from their type codes; an unknown code fails with
// ErrUnknownTypeCode. Positional properties that share a label with an
// earlier row are keyed "label_idx" so nothing is silently dropped.
func (b *Backend) getProvenanceData(resource, key string) (map[string]types.Value, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT label, type_code, value_text, idx FROM node_props WHERE resource = ? AND key = ? ORDER BY idx, label",
		resource, key,
	)
	if err != nil {
		return nil, fmt.Errorf("querying properties of %s: %w", key, err)
	}
	defer rows.Close()

	props := make(map[string]types.Value)
	for rows.Next() {
		var label, code, text string
		var idx int
		if err := rows.Scan(&label, &code, &text, &idx); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		value, err := types.DecodeValue(code, text)
		if err != nil {
			return nil, fmt.Errorf("property %s.%s: %w", key, label, err)
		}
		name := label
		if _, taken := props[name]; taken && idx >= 0 {
			name = fmt.Sprintf("%s_%d", label, idx)
		}
		props[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return props, nil
}

// getConnectedTo returns the source keys of edges pointing at key,
// optionally filtered by label.
func (b *Backend) getConnectedTo(resource, key, label string) ([]string, error) {
	return b.neighbors(resource, key, label, "to_key", "from_key")
}

// getConnectedFrom returns the destination keys of edges originating at
// key, optionally filtered by label.
func (b *Backend) getConnectedFrom(resource, key, label string) ([]string, error) {
	return b.neighbors(resource, key, label, "from_key", "to_key")
}

// neighbors runs the adjacency query in either direction. matchCol is the
// endpoint bound to key; returnCol is the opposite endpoint. Results are in
// insertion order (edge row ids are time-ordered UUIDs).
func (b *Backend) neighbors(resource, key, label, matchCol, returnCol string) ([]string, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	query := "SELECT " + returnCol + " FROM edges WHERE resource = ? AND " + matchCol + " = ?"
	args := []any{resource, key}
	if label != "" {
		query += " AND label = ?"
		args = append(args, label)
	}
	query += " ORDER BY seq"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying neighbors of %s: %w", key, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning neighbor: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating neighbors: %w", err)
	}
	return keys, nil
}

// getSchema returns the schema value for (resource, name), or ErrNotFound.
func (b *Backend) getSchema(resource, name string) (string, error) {
	db, err := b.conn()
	if err != nil {
		return "", err
	}

	var value string
	err = db.QueryRow(
		"SELECT value FROM schemas WHERE resource = ? AND name = ?",
		resource, name,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying schema %s: %w", name, err)
	}
	return value, nil
}
