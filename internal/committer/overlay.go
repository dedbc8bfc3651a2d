package committer

import (
	"math/big"

	"github.com/tristream-labs/tristream-chain/internal/state"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// overlay buffers balance/nonce mutations for a single block so a
// transaction-level or block-level revert can discard them without ever
// having applied a partial write to the backing Backend (spec §4.8, §9).
type overlay struct {
	backend  state.Backend
	balances map[types.Address]*big.Int
	nonces   map[types.Address]uint64
}

func newOverlay(backend state.Backend) *overlay {
	return &overlay{
		backend:  backend,
		balances: make(map[types.Address]*big.Int),
		nonces:   make(map[types.Address]uint64),
	}
}

func (o *overlay) GetBalance(addr types.Address) *big.Int {
	if b, ok := o.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return o.backend.GetBalance(addr)
}

func (o *overlay) GetNonce(addr types.Address) uint64 {
	if n, ok := o.nonces[addr]; ok {
		return n
	}
	return o.backend.GetNonce(addr)
}

func (o *overlay) SetBalance(addr types.Address, v *big.Int) {
	o.balances[addr] = new(big.Int).Set(v)
}

func (o *overlay) SetNonce(addr types.Address, n uint64) {
	o.nonces[addr] = n
}

// snapshot captures the current overlay deltas for the given addresses so a
// failed transaction's effects can be undone without discarding earlier
// transactions' already-applied effects.
type snapshot struct {
	balances map[types.Address]*big.Int
	nonces   map[types.Address]uint64
	hadBal   map[types.Address]bool
	hadNonce map[types.Address]bool
}

func (o *overlay) snapshot(addrs ...types.Address) snapshot {
	s := snapshot{
		balances: make(map[types.Address]*big.Int),
		nonces:   make(map[types.Address]uint64),
		hadBal:   make(map[types.Address]bool),
		hadNonce: make(map[types.Address]bool),
	}
	for _, a := range addrs {
		b, ok := o.balances[a]
		if ok {
			s.balances[a] = new(big.Int).Set(b)
		}
		s.hadBal[a] = ok
		n, ok := o.nonces[a]
		if ok {
			s.nonces[a] = n
		}
		s.hadNonce[a] = ok
	}
	return s
}

func (o *overlay) restore(s snapshot) {
	for addr, had := range s.hadBal {
		if had {
			o.balances[addr] = s.balances[addr]
		} else {
			delete(o.balances, addr)
		}
	}
	for addr, had := range s.hadNonce {
		if had {
			o.nonces[addr] = s.nonces[addr]
		} else {
			delete(o.nonces, addr)
		}
	}
}

// flush write-throughs every buffered mutation to the backend.
func (o *overlay) flush() error {
	for addr, bal := range o.balances {
		if err := o.backend.SetBalance(addr, bal); err != nil {
			return err
		}
	}
	for addr, nonce := range o.nonces {
		if err := o.backend.SetNonce(addr, nonce); err != nil {
			return err
		}
	}
	return nil
}
