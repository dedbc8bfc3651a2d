// Package tx defines the account-model transaction type, its canonical
// encoding, and its validation pipeline.
package tx

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// MaxDataSize is the maximum length of Transaction.Data (128 KiB).
const MaxDataSize = 128 * 1024

// MinGasLimitWithData is the minimum GasLimit for a transaction carrying
// non-empty Data.
const MinGasLimitWithData = 21_000

// MultisigSignature is one signer's contribution to a contract-wallet
// transaction.
type MultisigSignature struct {
	Signer    types.Address `json:"signer"`
	Signature []byte        `json:"signature"`
	PublicKey []byte        `json:"public_key"`
}

// Transaction is a signed account-model transaction.
type Transaction struct {
	From      types.Address `json:"from"`
	To        types.Address `json:"to"`
	Value     *big.Int      `json:"value"`
	Fee       *big.Int      `json:"fee"`
	Nonce     uint64        `json:"nonce"`
	Data      []byte        `json:"data"`
	GasLimit  uint64        `json:"gas_limit"`
	Hash      types.Hash    `json:"hash"`
	Signature []byte        `json:"signature"`
	PublicKey []byte        `json:"public_key"`

	ExecuteAtBlock     *uint64        `json:"execute_at_block,omitempty"`
	ExecuteAtTimestamp *uint64        `json:"execute_at_timestamp,omitempty"`
	Sponsor            *types.Address `json:"sponsor,omitempty"`

	MultisigSignatures []MultisigSignature `json:"multisig_signatures,omitempty"`
	PrivacyData        []byte              `json:"privacy_data,omitempty"`
}

// transactionJSON mirrors Transaction but hex-encodes byte-slice fields, in
// the style of the hex-shadow-struct marshaling convention used elsewhere in
// this module.
type transactionJSON struct {
	From               types.Address       `json:"from"`
	To                 types.Address       `json:"to"`
	Value              string              `json:"value"`
	Fee                string              `json:"fee"`
	Nonce              uint64              `json:"nonce"`
	Data               string              `json:"data"`
	GasLimit           uint64              `json:"gas_limit"`
	Hash               types.Hash          `json:"hash"`
	Signature          string              `json:"signature"`
	PublicKey          string              `json:"public_key"`
	ExecuteAtBlock     *uint64             `json:"execute_at_block,omitempty"`
	ExecuteAtTimestamp *uint64             `json:"execute_at_timestamp,omitempty"`
	Sponsor            *types.Address      `json:"sponsor,omitempty"`
	MultisigSignatures []MultisigSignature `json:"multisig_signatures,omitempty"`
	PrivacyData        string              `json:"privacy_data,omitempty"`
}

// MarshalJSON encodes byte-slice fields as hex strings.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	v, f := tx.Value, tx.Fee
	if v == nil {
		v = new(big.Int)
	}
	if f == nil {
		f = new(big.Int)
	}
	j := transactionJSON{
		From:               tx.From,
		To:                 tx.To,
		Value:              v.String(),
		Fee:                f.String(),
		Nonce:              tx.Nonce,
		Data:               hex.EncodeToString(tx.Data),
		GasLimit:           tx.GasLimit,
		Hash:               tx.Hash,
		Signature:          hex.EncodeToString(tx.Signature),
		PublicKey:          hex.EncodeToString(tx.PublicKey),
		ExecuteAtBlock:     tx.ExecuteAtBlock,
		ExecuteAtTimestamp: tx.ExecuteAtTimestamp,
		Sponsor:            tx.Sponsor,
		MultisigSignatures: tx.MultisigSignatures,
		PrivacyData:        hex.EncodeToString(tx.PrivacyData),
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes hex-encoded byte-slice fields.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	val, ok := new(big.Int).SetString(j.Value, 10)
	if !ok {
		val = new(big.Int)
	}
	fee, ok := new(big.Int).SetString(j.Fee, 10)
	if !ok {
		fee = new(big.Int)
	}
	d, err := hex.DecodeString(j.Data)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return err
	}
	pub, err := hex.DecodeString(j.PublicKey)
	if err != nil {
		return err
	}
	priv, err := hex.DecodeString(j.PrivacyData)
	if err != nil {
		return err
	}
	tx.From = j.From
	tx.To = j.To
	tx.Value = val
	tx.Fee = fee
	tx.Nonce = j.Nonce
	tx.Data = d
	tx.GasLimit = j.GasLimit
	tx.Hash = j.Hash
	tx.Signature = sig
	tx.PublicKey = pub
	tx.ExecuteAtBlock = j.ExecuteAtBlock
	tx.ExecuteAtTimestamp = j.ExecuteAtTimestamp
	tx.Sponsor = j.Sponsor
	tx.MultisigSignatures = j.MultisigSignatures
	tx.PrivacyData = priv
	return nil
}

// CalculateHash computes the canonical digest covering every field except
// Hash, Signature, PublicKey, MultisigSignatures and PrivacyData:
//
//	keccak(from‖to‖value_le‖fee_le‖nonce_le‖data‖gas_limit_le‖
//	       execute_at_block_le?‖execute_at_timestamp_le?‖sponsor?)
func (tx *Transaction) CalculateHash() (types.Hash, error) {
	buf, err := tx.SigningBytes()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(buf), nil
}

// SigningBytes returns the canonical byte encoding used to compute Hash.
func (tx *Transaction) SigningBytes() ([]byte, error) {
	var buf []byte
	buf = append(buf, tx.From[:]...)
	buf = append(buf, tx.To[:]...)

	val := tx.Value
	if val == nil {
		val = new(big.Int)
	}
	fee := tx.Fee
	if fee == nil {
		fee = new(big.Int)
	}
	buf, err := types.EncodeAmountLE(buf, val)
	if err != nil {
		return nil, err
	}
	buf, err = types.EncodeAmountLE(buf, fee)
	if err != nil {
		return nil, err
	}

	buf = types.AppendUint64LE(buf, tx.Nonce)
	buf = append(buf, tx.Data...)
	buf = types.AppendUint64LE(buf, tx.GasLimit)

	if tx.ExecuteAtBlock != nil {
		buf = types.AppendUint64LE(buf, *tx.ExecuteAtBlock)
	}
	if tx.ExecuteAtTimestamp != nil {
		buf = types.AppendUint64LE(buf, *tx.ExecuteAtTimestamp)
	}
	if tx.Sponsor != nil {
		buf = append(buf, tx.Sponsor[:]...)
	}
	return buf, nil
}

// IsSystem reports whether tx originates from the zero address (a system
// transaction, e.g. a genesis allocation), which is the only sender allowed
// a fully-zero signature.
func (tx *Transaction) IsSystem() bool {
	return tx.From.IsZero()
}
