package config

import "testing"

func TestDefaultMainnet_PortsAndDataDir(t *testing.T) {
	cfg := DefaultMainnet()
	if cfg.ListenPort != 30303 {
		t.Errorf("expected mainnet listen port 30303, got %d", cfg.ListenPort)
	}
	if cfg.PeerRPCPort != 8545 {
		t.Errorf("expected mainnet rpc port 8545, got %d", cfg.PeerRPCPort)
	}
	if cfg.DataDir == "" {
		t.Error("expected non-empty default data dir")
	}
}

func TestDefaultTestnet_DiffersFromMainnet(t *testing.T) {
	main := DefaultMainnet()
	test := DefaultTestnet()
	if test.ListenPort == main.ListenPort {
		t.Error("expected testnet and mainnet to use different p2p ports")
	}
	if test.Network != Testnet {
		t.Errorf("expected Testnet, got %v", test.Network)
	}
}

func TestConfig_DirHelpers(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/tristream-test"}
	if cfg.StateDir() != "/tmp/tristream-test/state" {
		t.Errorf("unexpected StateDir: %s", cfg.StateDir())
	}
	if cfg.DAGDir() != "/tmp/tristream-test/dag" {
		t.Errorf("unexpected DAGDir: %s", cfg.DAGDir())
	}
	if cfg.IdentityFile() != "/tmp/tristream-test/identity.key" {
		t.Errorf("unexpected IdentityFile: %s", cfg.IdentityFile())
	}
}

func TestParseNetworkType(t *testing.T) {
	cases := []struct {
		in      string
		want    NetworkType
		wantErr bool
	}{
		{"mainnet", Mainnet, false},
		{"", Mainnet, false},
		{"testnet", Testnet, false},
		{"bogus", Mainnet, true},
	}
	for _, c := range cases {
		got, err := ParseNetworkType(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseNetworkType(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
		}
		if !c.wantErr && got != c.want {
			t.Errorf("ParseNetworkType(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
