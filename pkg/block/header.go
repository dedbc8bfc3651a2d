package block

import (
	"encoding/json"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// StreamType identifies which of the three TriStream producers minted a block.
type StreamType byte

const (
	StreamA StreamType = iota // ASIC, 10s cadence
	StreamB                   // CPU/GPU, 1s cadence
	StreamC                   // ZK, 100ms cadence
)

// String returns the single-letter stream name.
func (s StreamType) String() string {
	switch s {
	case StreamA:
		return "A"
	case StreamB:
		return "B"
	case StreamC:
		return "C"
	default:
		return "?"
	}
}

// MaxParents is the maximum number of parent hashes a header may declare.
const MaxParents = 10

// Header is a DAG block header.
type Header struct {
	ParentHashes []types.Hash `json:"parent_hashes"`
	BlockNumber  uint64       `json:"block_number"`
	StreamType   StreamType   `json:"stream_type"`
	Difficulty   uint64       `json:"difficulty"`
	Timestamp    uint64       `json:"timestamp"`
}

// headerJSON mirrors Header with a human-readable stream type.
type headerJSON struct {
	ParentHashes []types.Hash `json:"parent_hashes"`
	BlockNumber  uint64       `json:"block_number"`
	StreamType   string       `json:"stream_type"`
	Difficulty   uint64       `json:"difficulty"`
	Timestamp    uint64       `json:"timestamp"`
}

// MarshalJSON encodes the header with a human-readable stream type.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerJSON{
		ParentHashes: h.ParentHashes,
		BlockNumber:  h.BlockNumber,
		StreamType:   h.StreamType.String(),
		Difficulty:   h.Difficulty,
		Timestamp:    h.Timestamp,
	})
}

// UnmarshalJSON decodes a header with a human-readable stream type.
func (h *Header) UnmarshalJSON(data []byte) error {
	var j headerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	h.ParentHashes = j.ParentHashes
	h.BlockNumber = j.BlockNumber
	h.Difficulty = j.Difficulty
	h.Timestamp = j.Timestamp
	switch j.StreamType {
	case "B":
		h.StreamType = StreamB
	case "C":
		h.StreamType = StreamC
	default:
		h.StreamType = StreamA
	}
	return nil
}

// Hash computes the block digest per the canonical encoding:
//
//	keccak(concat(parent_hashes) ‖ block_number_le ‖ difficulty_le ‖
//	       timestamp_le ‖ concat(tx_hashes))
//
// txHashes is supplied by the caller; Block.Hash wires it up from the
// block's transaction list.
func (h *Header) Hash(txHashes []types.Hash) types.Hash {
	var buf []byte
	for _, p := range h.ParentHashes {
		buf = append(buf, p[:]...)
	}
	buf = types.AppendUint64LE(buf, h.BlockNumber)
	buf = types.AppendUint64LE(buf, h.Difficulty)
	buf = types.AppendUint64LE(buf, h.Timestamp)
	for _, th := range txHashes {
		buf = append(buf, th[:]...)
	}
	return crypto.Hash(buf)
}

// IsGenesis reports whether the header has no parents and block number 0.
func (h *Header) IsGenesis() bool {
	return h.BlockNumber == 0 && len(h.ParentHashes) == 0
}
