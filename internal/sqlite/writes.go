// Raw row operations shared by the direct and batched strategies. All
// inserts are INSERT OR IGNORE: a duplicate key is the idempotent
// "create if absent" path, never an error.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

// edgeSeq generates the row id for a new edge.
func edgeSeq() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// propColumns returns the typed column values (ivalue, lvalue, dvalue,
// fvalue, tvalue, tsvalue) for a property value. Columns that do not match
// the value's kind are NULL.
func propColumns(v types.Value) (any, any, any, any, any, any) {
	switch v.Code() {
	case types.CodeInt:
		return v.Native(), nil, nil, nil, nil, nil
	case types.CodeLong:
		return nil, v.Native(), nil, nil, nil, nil
	case types.CodeDouble:
		return nil, nil, v.Native(), nil, nil, nil
	case types.CodeFloat:
		return nil, nil, nil, v.Native(), nil, nil
	case types.CodeDate:
		return nil, nil, nil, nil, v.Time().Format(time.RFC3339Nano), nil
	case types.CodeTimestamp:
		return nil, nil, nil, nil, nil, v.Time().Format(time.RFC3339Nano)
	}
	return nil, nil, nil, nil, nil, nil
}

// insertNode writes one node row immediately.
func (b *Backend) insertNode(resource, key, label string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT OR IGNORE INTO nodes (key, resource, created_seq, label) VALUES (?, ?, ?, ?)",
		key, resource, b.nextNodeSeq(), label,
	)
	if err != nil {
		return fmt.Errorf("inserting node %s: %w", key, err)
	}
	return nil
}

// insertEdge writes one edge row immediately. The unique index on
// (resource, from_key, to_key, label) collapses duplicates.
func (b *Backend) insertEdge(resource, from, to, label string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT OR IGNORE INTO edges (seq, resource, from_key, to_key, label) VALUES (?, ?, ?, ?, ?)",
		edgeSeq(), resource, from, to, label,
	)
	if err != nil {
		return fmt.Errorf("inserting edge %s-[%s]->%s: %w", from, label, to, err)
	}
	return nil
}

// insertNodeProp writes one property row immediately.
func (b *Backend) insertNodeProp(resource, key, label string, value types.Value, index int) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	iv, lv, dv, fv, tv, tsv := propColumns(value)
	_, err = db.Exec(
		`INSERT OR IGNORE INTO node_props
		 (key, resource, label, value_text, type_code, ivalue, lvalue, dvalue, fvalue, tvalue, tsvalue, idx)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, resource, label, value.Text(), value.Code(), iv, lv, dv, fv, tv, tsv, index,
	)
	if err != nil {
		return fmt.Errorf("inserting property %s.%s: %w", key, label, err)
	}
	return nil
}

// insertSchema writes one schema row immediately.
func (b *Backend) insertSchema(resource, key, name, value string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT OR IGNORE INTO schemas (key, resource, name, value) VALUES (?, ?, ?, ?)",
		key, resource, name, value,
	)
	if err != nil {
		return fmt.Errorf("inserting schema %s: %w", name, err)
	}
	return nil
}

// propRow is the pooled form of a property write; node and edge pools use
// types.Node and types.Edge directly, with created_seq and seq assigned at
// insert time.
type propRow struct {
	resource string
	key      string
	label    string
	index    int
	value    types.Value
}

// maxBindVars bounds the bind variables of one multi-row insert, staying
// under SQLite's default SQLITE_MAX_VARIABLE_NUMBER of 32766. A pool larger
// than the per-statement row budget flushes in several statements inside
// the same transaction.
const maxBindVars = 32000

// bulkInsertNodes writes a pool of node rows in multi-row statements.
func (b *Backend) bulkInsertNodes(tx *sql.Tx, rows []types.Node) error {
	const paramsPerRow = 4
	for len(rows) > 0 {
		chunk := rows
		if len(chunk) > maxBindVars/paramsPerRow {
			chunk = chunk[:maxBindVars/paramsPerRow]
		}
		rows = rows[len(chunk):]

		var sb strings.Builder
		sb.WriteString("INSERT OR IGNORE INTO nodes (key, resource, created_seq, label) VALUES ")
		args := make([]any, 0, len(chunk)*paramsPerRow)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?)")
			args = append(args, r.Key, r.Resource, b.nextNodeSeq(), r.Label)
		}
		if _, err := tx.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("bulk inserting %d nodes: %w", len(chunk), err)
		}
	}
	return nil
}

// bulkInsertEdges writes a pool of edge rows in multi-row statements.
func (b *Backend) bulkInsertEdges(tx *sql.Tx, rows []types.Edge) error {
	const paramsPerRow = 5
	for len(rows) > 0 {
		chunk := rows
		if len(chunk) > maxBindVars/paramsPerRow {
			chunk = chunk[:maxBindVars/paramsPerRow]
		}
		rows = rows[len(chunk):]

		var sb strings.Builder
		sb.WriteString("INSERT OR IGNORE INTO edges (seq, resource, from_key, to_key, label) VALUES ")
		args := make([]any, 0, len(chunk)*paramsPerRow)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?)")
			args = append(args, edgeSeq(), r.Resource, r.FromKey, r.ToKey, r.Label)
		}
		if _, err := tx.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("bulk inserting %d edges: %w", len(chunk), err)
		}
	}
	return nil
}

// bulkInsertProps writes a pool of property rows in multi-row statements.
func (b *Backend) bulkInsertProps(tx *sql.Tx, rows []propRow) error {
	const paramsPerRow = 12
	for len(rows) > 0 {
		chunk := rows
		if len(chunk) > maxBindVars/paramsPerRow {
			chunk = chunk[:maxBindVars/paramsPerRow]
		}
		rows = rows[len(chunk):]

		var sb strings.Builder
		sb.WriteString(`INSERT OR IGNORE INTO node_props
		 (key, resource, label, value_text, type_code, ivalue, lvalue, dvalue, fvalue, tvalue, tsvalue, idx) VALUES `)
		args := make([]any, 0, len(chunk)*paramsPerRow)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			iv, lv, dv, fv, tv, tsv := propColumns(r.value)
			args = append(args, r.key, r.resource, r.label, r.value.Text(), r.value.Code(), iv, lv, dv, fv, tv, tsv, r.index)
		}
		if _, err := tx.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("bulk inserting %d properties: %w", len(chunk), err)
		}
	}
	return nil
}
