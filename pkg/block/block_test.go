package block

import (
	"math/big"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func mustAddr(t *testing.T, s string) types.Address {
	t.Helper()
	a, err := types.HexToAddress(s)
	if err != nil {
		t.Fatalf("HexToAddress: %v", err)
	}
	return a
}

func signedTx(t *testing.T, nonce uint64) *tx.Transaction {
	t.Helper()
	key, _ := crypto.GenerateKey()
	from := crypto.AddressFromPubKey(key.PublicKey())
	to := mustAddr(t, "2222222222222222222222222222222222222222")
	signed, err := tx.NewBuilder(from).To(to).Value(big.NewInt(1)).Fee(big.NewInt(1)).
		Nonce(nonce).SetGasLimit(21000).Sign(key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return signed
}

func TestNewBlockHashIncludesTransactions(t *testing.T) {
	header := &Header{BlockNumber: 1, ParentHashes: []types.Hash{{0x01}}, StreamType: StreamB, Difficulty: 4, Timestamp: 1735689601}

	empty := NewBlock(header, nil)
	withTx := NewBlock(header, []*tx.Transaction{signedTx(t, 0)})

	if empty.Hash == withTx.Hash {
		t.Fatal("block hash should depend on transaction list")
	}
}

func TestBlockTxHashesOrder(t *testing.T) {
	t1 := signedTx(t, 0)
	t2 := signedTx(t, 1)
	header := &Header{BlockNumber: 1, ParentHashes: []types.Hash{{0x01}}, Timestamp: 1735689601}
	b := NewBlock(header, []*tx.Transaction{t1, t2})

	hashes := b.TxHashes()
	if len(hashes) != 2 || hashes[0] != t1.Hash || hashes[1] != t2.Hash {
		t.Fatalf("unexpected tx hash order: %+v", hashes)
	}
}
