// Package p2p implements authenticated block and transaction propagation
// between TriStream nodes: a length-prefixed framed TCP wire format, every
// message signed by its sender's Ed25519 identity key and replay-guarded by
// a timestamp window.
package p2p

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// ProtocolVersion is this node's wire protocol version. Peers below
// MinProtocolVersion are rejected during handshake.
const (
	ProtocolVersion    = 1
	MinProtocolVersion = 1
)

// ReplayWindow is the maximum allowed clock skew between a message's
// declared timestamp and the receiver's local clock, in either direction.
const ReplayWindow = 300 * time.Second

// MessageKind identifies the payload carried by an AuthenticatedMessage.
type MessageKind byte

const (
	KindHandshake MessageKind = iota
	KindBlock
	KindTransaction
	KindHeartbeat
	KindGetBlocks
)

func (k MessageKind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindBlock:
		return "block"
	case KindTransaction:
		return "transaction"
	case KindHeartbeat:
		return "heartbeat"
	case KindGetBlocks:
		return "get_blocks"
	default:
		return "unknown"
	}
}

// MaxMessageSize bounds a single frame, guarding against a malicious peer
// claiming an enormous length prefix.
const MaxMessageSize = 10 * 1024 * 1024

// AuthenticatedMessage is the outer envelope every wire message travels in.
// Payload is the JSON encoding of one of the Kind-specific structs below;
// JSON is deterministic here because every payload struct has a fixed field
// order and carries no maps, so SigningBytes is reproducible across nodes.
type AuthenticatedMessage struct {
	Kind      MessageKind
	Payload   []byte
	Timestamp int64
	PublicKey []byte // 32-byte Ed25519 public key of the sender
	Signature []byte // 64-byte Ed25519 signature over SigningBytes()
}

// SigningBytes returns the canonical bytes signed and verified: the fixed
// fields only, never the signature itself.
func (m *AuthenticatedMessage) SigningBytes() []byte {
	var buf []byte
	buf = append(buf, byte(m.Kind))
	buf = types.AppendUint32LE(buf, uint32(len(m.Payload)))
	buf = append(buf, m.Payload...)
	buf = types.AppendUint64LE(buf, uint64(m.Timestamp))
	buf = append(buf, m.PublicKey...)
	return buf
}

// Sign populates Timestamp, PublicKey and Signature from signer and now.
func (m *AuthenticatedMessage) Sign(signer *crypto.PrivateKey, now time.Time) error {
	m.Timestamp = now.Unix()
	m.PublicKey = signer.PublicKey()
	sig, err := signer.Sign(m.SigningBytes())
	if err != nil {
		return fmt.Errorf("sign message: %w", err)
	}
	m.Signature = sig
	return nil
}

// Verify checks the message's signature and replay window against now.
func (m *AuthenticatedMessage) Verify(now time.Time) error {
	if len(m.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad public key length %d", ErrMalformedMessage, len(m.PublicKey))
	}
	if len(m.Payload) > MaxMessageSize {
		return fmt.Errorf("%w: payload too large (%d bytes)", ErrMalformedMessage, len(m.Payload))
	}
	skew := now.Unix() - m.Timestamp
	if skew > int64(ReplayWindow.Seconds()) || skew < -int64(ReplayWindow.Seconds()) {
		return fmt.Errorf("%w: timestamp skew %ds", ErrReplayWindow, skew)
	}
	if !crypto.VerifySignature(m.SigningBytes(), m.Signature, m.PublicKey) {
		return ErrBadSignature
	}
	return nil
}

// HandshakePayload is exchanged immediately after a connection opens.
type HandshakePayload struct {
	ProtocolVersion uint32
	GenesisHash     types.Hash
	NetworkID       string
	BestHeight      uint64
	ListenPort      int
}

// HeartbeatPayload is sent periodically to keep a connection alive and
// advertise the sender's best known block height.
type HeartbeatPayload struct {
	BestHeight uint64
	Timestamp  int64
}

// BlockPayload carries a freshly mined or relayed block.
type BlockPayload struct {
	Block *block.Block
}

// TransactionPayload carries a single transaction for mempool gossip.
type TransactionPayload struct {
	Tx *tx.Transaction
}

// GetBlocksPayload requests blocks the sender is missing, by number range.
type GetBlocksPayload struct {
	FromBlockNumber uint64
	ToBlockNumber   uint64
}

// EncodePayload JSON-encodes a Kind-specific payload for embedding in an
// AuthenticatedMessage.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeHandshake decodes a handshake payload.
func DecodeHandshake(b []byte) (*HandshakePayload, error) {
	var p HandshakePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode handshake payload: %w", err)
	}
	return &p, nil
}

// DecodeHeartbeat decodes a heartbeat payload.
func DecodeHeartbeat(b []byte) (*HeartbeatPayload, error) {
	var p HeartbeatPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode heartbeat payload: %w", err)
	}
	return &p, nil
}

// DecodeBlock decodes a block payload.
func DecodeBlock(b []byte) (*BlockPayload, error) {
	var p BlockPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode block payload: %w", err)
	}
	return &p, nil
}

// DecodeTransaction decodes a transaction payload.
func DecodeTransaction(b []byte) (*TransactionPayload, error) {
	var p TransactionPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode transaction payload: %w", err)
	}
	return &p, nil
}

// DecodeGetBlocks decodes a get-blocks request payload.
func DecodeGetBlocks(b []byte) (*GetBlocksPayload, error) {
	var p GetBlocksPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode get_blocks payload: %w", err)
	}
	return &p, nil
}
