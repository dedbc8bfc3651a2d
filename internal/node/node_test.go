package node

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/config"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.tristream/key", filepath.Join(home, ".tristream/key")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = t.TempDir()
	cfg.ListenPort = 0
	cfg.NoDiscover = true
	cfg.Seeds = nil
	cfg.Mine = false
	return cfg
}

func TestNodeLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testConfig(t)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap := n.Snapshot()
	if snap.Height != 1 {
		t.Errorf("expected height 1 (genesis), got %d", snap.Height)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNodeLoadOrCreateIdentityPersists(t *testing.T) {
	cfg := testConfig(t)

	n1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id1 := n1.Identity().PublicKey()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n1.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	n2, err := New(cfg)
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n2.Shutdown(ctx)
	}()
	id2 := n2.Identity().PublicKey()

	if !bytes.Equal(id1, id2) {
		t.Error("node identity should persist across restarts")
	}
}

func TestNodeShardingDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)
	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer n.Shutdown(ctx)

	if n.Coordinator() != nil {
		t.Error("expected nil coordinator when sharding is disabled")
	}
}

func TestNodeShardingEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableSharding = true
	cfg.ShardCount = 4
	cfg.CrossShardAbortTimeout = 60 * time.Second

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer n.Shutdown(ctx)

	if n.Coordinator() == nil {
		t.Fatal("expected non-nil coordinator when sharding is enabled")
	}
}
