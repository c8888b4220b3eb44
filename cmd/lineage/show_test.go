package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/lineage/pkg/prov"
	"github.com/mesh-intelligence/lineage/pkg/types"
)

func testConnection(t *testing.T) *prov.Connection {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()

	log := logrus.New()
	log.SetOutput(io.Discard)

	conn, err := prov.Open(cfg, log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRunShowMissingNode(t *testing.T) {
	conn := testConnection(t)

	// An absent node reads back as an empty property map; show must report
	// it as not found rather than printing an empty node.
	token := "{" + types.DefaultNamespace + "}no-such-node"
	err := runShow(conn, token, false, io.Discard)
	if !errors.Is(err, errNodeNotFound) {
		t.Fatalf("err = %v, want errNodeNotFound", err)
	}
}

func TestRunShowText(t *testing.T) {
	conn := testConnection(t)

	token, err := conn.StoreStreamTuple("clicks", 1, prov.Tuple{
		Fields: []string{"user", "count"},
		Values: []any{"alice", int64(3)},
	})
	if err != nil {
		t.Fatalf("StoreStreamTuple: %v", err)
	}

	var buf bytes.Buffer
	if err := runShow(conn, token, false, &buf); err != nil {
		t.Fatalf("runShow: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Token: "+token) {
		t.Errorf("output missing token header:\n%s", out)
	}
	if !strings.Contains(out, "user [S]: alice") {
		t.Errorf("output missing user property:\n%s", out)
	}
	if !strings.Contains(out, "count [L]: 3") {
		t.Errorf("output missing count property:\n%s", out)
	}
}

func TestRunShowJSON(t *testing.T) {
	conn := testConnection(t)

	token, err := conn.StoreStreamTuple("clicks", 1, prov.Tuple{
		Fields: []string{"user"},
		Values: []any{"alice"},
	})
	if err != nil {
		t.Fatalf("StoreStreamTuple: %v", err)
	}

	var buf bytes.Buffer
	if err := runShow(conn, token, true, &buf); err != nil {
		t.Fatalf("runShow: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["user"] != "alice" {
		t.Errorf("decoded = %v", decoded)
	}
}
