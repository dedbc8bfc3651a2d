package config

import "testing"

func TestValidate_RejectsNilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.ListenPort = 99999
	if err := Validate(cfg); err == nil {
		t.Error("expected error for out-of-range listen_port")
	}
}

func TestValidate_RejectsMiningWithoutCoinbase(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Mine = true
	if err := Validate(cfg); err == nil {
		t.Error("expected error when mining is enabled without miner_address")
	}
}

func TestValidate_RejectsShardingWithoutCount(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.EnableSharding = true
	cfg.ShardCount = 1
	if err := Validate(cfg); err == nil {
		t.Error("expected error for sharding enabled with shard_count < 2")
	}
}

func TestValidate_RejectsUnknownOrderingPolicy(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.Mine = true
	cfg.MinerAddress[0] = 1
	cfg.OrderingPolicy = "not-a-policy"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unrecognized ordering policy")
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := Validate(DefaultMainnet()); err != nil {
		t.Errorf("default mainnet config should validate: %v", err)
	}
	if err := Validate(DefaultTestnet()); err != nil {
		t.Errorf("default testnet config should validate: %v", err)
	}
}
