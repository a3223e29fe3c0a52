package client

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

// selectorMask keeps the low 250 bits of a keccak digest.
var selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

var selectorCache sync.Map // entrypoint name -> *big.Int

// Selector returns the Starknet entry point selector for name:
// keccak256(name) truncated to 250 bits.
func Selector(name string) *big.Int {
	if v, ok := selectorCache.Load(name); ok {
		return v.(*big.Int)
	}
	sel := new(big.Int).SetBytes(crypto.Keccak256([]byte(name)))
	sel.And(sel, selectorMask)
	selectorCache.Store(name, sel)
	return sel
}
