// Package types defines the Store interface, graph entity types, the
// type-coded property value variant, and standard error types for the
// lineage provenance storage system.
// See docs/ARCHITECTURE § Main Interface, § System Components (Store API).
package types
