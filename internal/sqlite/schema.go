// Package sqlite implements the durable SQLite backend for the lineage
// provenance store, together with the direct and batched log-index
// strategies that write to it.
// See docs/ARCHITECTURE § SQLite Backend.
package sqlite

// Schema DDL for all relations. Creation is idempotent so a database
// survives process restarts; idempotent inserts rely on the primary keys
// and unique indexes declared here.
const (
	createNodes = `CREATE TABLE IF NOT EXISTS nodes (
    key TEXT NOT NULL,
    resource TEXT NOT NULL,
    created_seq INTEGER NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (resource, key)
);`

	createNodeProps = `CREATE TABLE IF NOT EXISTS node_props (
    key TEXT NOT NULL,
    resource TEXT NOT NULL,
    label TEXT NOT NULL,
    value_text TEXT NOT NULL,
    type_code TEXT NOT NULL,
    ivalue INTEGER,
    lvalue INTEGER,
    dvalue REAL,
    fvalue REAL,
    tvalue TEXT,
    tsvalue TEXT,
    idx INTEGER NOT NULL DEFAULT -1,
    PRIMARY KEY (resource, key, label, idx)
);`

	createEdges = `CREATE TABLE IF NOT EXISTS edges (
    seq TEXT NOT NULL,
    resource TEXT NOT NULL,
    from_key TEXT NOT NULL,
    to_key TEXT NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (resource, seq)
);`

	createEdgeProps = `CREATE TABLE IF NOT EXISTS edge_props (
    key TEXT NOT NULL,
    resource TEXT NOT NULL,
    label TEXT NOT NULL,
    value_text TEXT NOT NULL,
    type_code TEXT NOT NULL,
    ivalue INTEGER,
    lvalue INTEGER,
    dvalue REAL,
    fvalue REAL,
    tvalue TEXT,
    tsvalue TEXT,
    idx INTEGER NOT NULL DEFAULT -1,
    PRIMARY KEY (resource, key, label, idx)
);`

	createSchemas = `CREATE TABLE IF NOT EXISTS schemas (
    key TEXT NOT NULL,
    resource TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (resource, name)
);`
)

// Index DDL for the adjacency and lookup queries.
const (
	idxEdgesUnique = `CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_unique ON edges(resource, from_key, to_key, label);`
	idxEdgesFrom   = `CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(resource, from_key, label);`
	idxEdgesTo     = `CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(resource, to_key, label);`
	idxNodePropKey = `CREATE INDEX IF NOT EXISTS idx_node_props_key ON node_props(resource, key);`
	idxNodesLabel  = `CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(resource, label);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createNodes,
	createNodeProps,
	createEdges,
	createEdgeProps,
	createSchemas,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxEdgesUnique,
	idxEdgesFrom,
	idxEdgesTo,
	idxNodePropKey,
	idxNodesLabel,
}

// clearTableNames lists the relations emptied by ClearTables, in an order
// that keeps edge rows from outliving their endpoints.
var clearTableNames = []string{
	"edge_props",
	"edges",
	"node_props",
	"nodes",
	"schemas",
}
