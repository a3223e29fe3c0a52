package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// JoinUint256 assembles a 256-bit value from its low and high 128-bit words:
// high * 2^128 + low.
func JoinUint256(low, high *big.Int) *big.Int {
	out := new(big.Int)
	if high != nil {
		out.Mul(high, two128)
	}
	if low != nil {
		out.Add(out, low)
	}
	return out
}

// SplitUint256 is the inverse of JoinUint256.
func SplitUint256(v *big.Int) (low, high *big.Int) {
	high, low = new(big.Int).QuoRem(v, two128, new(big.Int))
	return low, high
}

// ReadUint256 reads a u256 encoded as two felts (low, high) starting at offset.
func ReadUint256(felts []*big.Int, offset int) (*big.Int, error) {
	if offset < 0 || offset+2 > len(felts) {
		return nil, fmt.Errorf("u256 at offset %d: have %d felts", offset, len(felts))
	}
	return JoinUint256(felts[offset], felts[offset+1]), nil
}

// ReadUint reads a value that some contracts return as one felt and others as
// a u256. A single felt is taken as is; two or more are read as a u256.
func ReadUint(felts []*big.Int) (*big.Int, error) {
	switch len(felts) {
	case 0:
		return nil, fmt.Errorf("empty result")
	case 1:
		return new(big.Int).Set(felts[0]), nil
	default:
		return ReadUint256(felts, 0)
	}
}

// ParseFelt parses a 0x-prefixed hex or a decimal field element.
// Leading zeros are accepted ("0x0004" is 4).
func ParseFelt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty felt")
	}
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return v, nil
		}
		_, ok = v.SetString(digits, 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid felt %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative felt %q", s)
	}
	return v, nil
}

// ScaleAmount converts an integer on-chain amount to a human-readable decimal:
// amount / 10^decimals. A nil amount is zero.
func ScaleAmount(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// ScaledFloat is ScaleAmount as a float64, for USD arithmetic.
func ScaledFloat(amount *big.Int, decimals uint8) float64 {
	f, _ := ScaleAmount(amount, decimals).Float64()
	return f
}
