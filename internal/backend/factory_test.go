package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"financas/internal/collection/memory"
	"financas/internal/config"
	"financas/internal/log"
	"financas/internal/storage"
)

func TestBackendTypeIsValid(t *testing.T) {
	tests := []struct {
		bt   BackendType
		want bool
	}{
		{SQLiteBackend, true},
		{MemoryBackend, true},
		{"sheets", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.want {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.want)
		}
	}
	if got := BackendTypeNames(); len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("BackendTypeNames() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}
	if got, err := FromAppConfig(&config.Config{DataBackend: " Memory "}); err != nil || got.Type != MemoryBackend {
		t.Errorf("FromAppConfig(Memory) = %+v, %v", got, err)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("FromAppConfig() should reject unknown backends")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/x.db",
		PollInterval: 5 * time.Second,
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "changes",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.PollInterval != 5*time.Second || cfg.AMQPExchange != "changes" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"memory with amqp", Config{Type: MemoryBackend, AMQPURL: "amqp://x/"}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite with negative poll", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db", PollInterval: -time.Second}, true},
		{"sqlite amqp without exchange", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db", AMQPURL: "amqp://x/"}, true},
		{"unknown", Config{Type: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard(), nil)

	mem, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend(memory) error = %v", err)
	}
	if _, ok := mem.Collection.(*memory.Store); !ok {
		t.Errorf("memory backend collection = %T", mem.Collection)
	}
	if mem.Consume != nil {
		t.Error("memory backend should not have a consumer")
	}
	if err := mem.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}

	sql, err := f.CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "financas.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend(sqlite) error = %v", err)
	}
	if _, ok := sql.Collection.(*storage.Repository); !ok {
		t.Errorf("sqlite backend collection = %T", sql.Collection)
	}
	if sql.Consume != nil {
		t.Error("sqlite backend without AMQP should not have a consumer")
	}
	if err := sql.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}

	if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("CreateBackend() should reject an invalid config")
	}
}
