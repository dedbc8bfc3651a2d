package mining

import (
	"math/big"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/block"
)

// StreamConfig is the fixed per-stream cadence/cap/reward table (spec §4.7).
type StreamConfig struct {
	Type        block.StreamType
	BlockTime   time.Duration
	MaxTxs      int
	Reward      *big.Int
	StartupWait time.Duration
}

func ether(n int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), wei)
}

// Streams is the fixed TriStream table: A (ASIC), B (CPU/GPU), C (ZK).
var Streams = []StreamConfig{
	{
		Type:        block.StreamA,
		BlockTime:   10 * time.Second,
		MaxTxs:      10_000,
		Reward:      ether(50),
		StartupWait: 100 * time.Millisecond,
	},
	{
		Type:        block.StreamB,
		BlockTime:   1 * time.Second,
		MaxTxs:      5_000,
		Reward:      ether(25),
		StartupWait: 200 * time.Millisecond,
	},
	{
		Type:        block.StreamC,
		BlockTime:   100 * time.Millisecond,
		MaxTxs:      1_000,
		Reward:      new(big.Int), // fees only
		StartupWait: 300 * time.Millisecond,
	},
}

// RewardForStream returns the fixed block reward for a stream type, so
// callers outside the engine (the committer, when applying a block received
// from a peer rather than produced locally) can recompute it deterministically
// instead of trusting a value carried on the wire.
func RewardForStream(s block.StreamType) *big.Int {
	for _, cfg := range Streams {
		if cfg.Type == s {
			return new(big.Int).Set(cfg.Reward)
		}
	}
	return new(big.Int)
}
