// Package lineage carries module-level metadata shared by the CLI and
// library consumers.
package lineage

// Version is the semantic version of the lineage module.
const Version = "v0.1.0"
