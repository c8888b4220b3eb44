package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "unknown strategy returns ErrStrategyUnknown",
			config:  Config{Backend: BackendSQLite, Strategy: "neural"},
			wantErr: ErrStrategyUnknown,
		},
		{
			name:    "negative cache TTL returns ErrNegativeLimit",
			config:  Config{Backend: BackendSQLite, CacheTTL: -1},
			wantErr: ErrNegativeLimit,
		},
		{
			name:    "negative pool size returns ErrNegativeLimit",
			config:  Config{Backend: BackendSQLite, MaxElements: -5},
			wantErr: ErrNegativeLimit,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data", Strategy: StrategyBatched},
			wantErr: nil,
		},
		{
			name:    "empty strategy is accepted as direct",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "noop backend needs no data dir",
			config:  Config{Backend: BackendNoop},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig must validate: %v", err)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("backend = %q, want %q", cfg.Backend, BackendSQLite)
	}
	if cfg.Strategy != StrategyBatched {
		t.Errorf("strategy = %q, want %q", cfg.Strategy, StrategyBatched)
	}
	if cfg.MaxElements != DefaultMaxElements {
		t.Errorf("max elements = %d, want %d", cfg.MaxElements, DefaultMaxElements)
	}
	if cfg.Namespace == "" {
		t.Error("namespace must have a default")
	}
}

func TestIsValidNodeLabel(t *testing.T) {
	for _, label := range []string{LabelAgent, LabelActivity, LabelEntity, LabelCollection} {
		if !IsValidNodeLabel(label) {
			t.Errorf("IsValidNodeLabel(%q) = false, want true", label)
		}
	}
	if IsValidNodeLabel("process") {
		t.Error("IsValidNodeLabel(\"process\") = true, want false")
	}
}
