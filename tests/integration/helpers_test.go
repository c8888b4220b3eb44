// Package integration provides shared test helpers for integration tests.
package integration

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/lineage/pkg/prov"
	"github.com/mesh-intelligence/lineage/pkg/types"
)

// testLogger returns a logger that discards output so test runs stay quiet.
func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// pipelineConfig returns a config rooted in an isolated temp directory.
// Each test case gets its own database for isolation.
func pipelineConfig(t *testing.T) types.Config {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Resource = "pipeline-test"
	return cfg
}

// setupPipeline opens a connection over a fresh database.
func setupPipeline(t *testing.T) *prov.Connection {
	t.Helper()
	return openPipeline(t, pipelineConfig(t))
}

// openPipeline opens a connection for the given config and registers
// cleanup. Used directly by tests that reopen the same database.
func openPipeline(t *testing.T, cfg types.Config) *prov.Connection {
	t.Helper()
	conn, err := prov.Open(cfg, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// mustStoreTuple stores a stream tuple and returns its token.
func mustStoreTuple(t *testing.T, conn *prov.Connection, stream string, index int, tuple prov.Tuple) string {
	t.Helper()
	token, err := conn.StoreStreamTuple(stream, index, tuple)
	if err != nil {
		t.Fatalf("StoreStreamTuple(%s, %d): %v", stream, index, err)
	}
	return token
}

// mustStoreWindowedResult records a windowed operator result and returns
// the result token.
func mustStoreWindowedResult(t *testing.T, conn *prov.Connection, stream string, index int, tuple prov.Tuple, operator string, start, end time.Time, inputs []string) string {
	t.Helper()
	token, err := conn.StoreWindowedResult(stream, index, tuple, operator, start, end, inputs)
	if err != nil {
		t.Fatalf("StoreWindowedResult(%s, %d): %v", stream, index, err)
	}
	return token
}

// mustGetOne asserts a traversal returned exactly one token and returns it.
func mustGetOne(t *testing.T, tokens []string, err error, what string) string {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
	if len(tokens) != 1 {
		t.Fatalf("%s = %v, want exactly one token", what, tokens)
	}
	return tokens[0]
}

// sameTokens reports whether two token slices are equal element-wise.
func sameTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
