package tx

// EstimateFee returns the minimum recommended fee for a transaction carrying
// dataSize bytes of payload at the given fee rate (base units per byte of
// SigningBytes). Size accounting mirrors SigningBytes: two 20-byte
// addresses, two 16-byte amounts, an 8-byte nonce, the data payload, and an
// 8-byte gas limit; optional fields are sized only when present.
func EstimateFee(dataSize int, hasTimeLock, hasSponsor bool, feeRate uint64) uint64 {
	const addr = 20
	const amount = 16
	const nonce = 8
	const gasLimit = 8

	size := addr*2 + amount*2 + nonce + dataSize + gasLimit
	if hasTimeLock {
		size += nonce // execute_at_block or execute_at_timestamp, 8 bytes each when present
	}
	if hasSponsor {
		size += addr
	}
	return uint64(size) * feeRate
}

// RequiredFee returns the exact minimum fee for a built transaction at the
// given fee rate (base units per byte of SigningBytes).
func RequiredFee(t *Transaction, feeRate uint64) (uint64, error) {
	buf, err := t.SigningBytes()
	if err != nil {
		return 0, err
	}
	return uint64(len(buf)) * feeRate, nil
}
