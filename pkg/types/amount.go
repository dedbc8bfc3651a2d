package types

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// AmountSize is the width in bytes of a canonical little-endian u128 amount
// encoding used in transaction and reward digests.
const AmountSize = 16

// maxU128 is the largest value representable in AmountSize bytes.
var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// EncodeAmountLE appends the canonical 16-byte little-endian encoding of
// amt to buf. amt must be non-negative and fit in 128 bits.
func EncodeAmountLE(buf []byte, amt *big.Int) ([]byte, error) {
	if amt == nil {
		amt = new(big.Int)
	}
	if amt.Sign() < 0 {
		return nil, fmt.Errorf("amount: negative value")
	}
	if amt.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("amount: exceeds 128 bits")
	}
	be := amt.FillBytes(make([]byte, AmountSize))
	le := make([]byte, AmountSize)
	for i := 0; i < AmountSize; i++ {
		le[i] = be[AmountSize-1-i]
	}
	return append(buf, le...), nil
}

// DecodeAmountLE reads a canonical 16-byte little-endian amount from the
// front of b, returning the value and the number of bytes consumed.
func DecodeAmountLE(b []byte) (*big.Int, int, error) {
	if len(b) < AmountSize {
		return nil, 0, fmt.Errorf("amount: short buffer")
	}
	be := make([]byte, AmountSize)
	for i := 0; i < AmountSize; i++ {
		be[i] = b[AmountSize-1-i]
	}
	return new(big.Int).SetBytes(be), AmountSize, nil
}

// AppendUint64LE appends an 8-byte little-endian uint64 to buf.
func AppendUint64LE(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

// AppendUint32LE appends a 4-byte little-endian uint32 to buf.
func AppendUint32LE(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}
