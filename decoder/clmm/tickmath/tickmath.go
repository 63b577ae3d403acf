// Package tickmath implements the Q64.96 sqrt-price/tick conversion
// shared by every Uniswap-V3-style concentrated-liquidity fork —
// Raydium CLMM and Orca Whirlpool both use this exact fixed-point
// scheme at the account-layout level.
package tickmath

import (
	"errors"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
)

const (
	MinTick = int64(-887272)
	MaxTick = int64(887272)
)

var (
	MinSqrtRatio, _ = new(big.Int).SetString("4295128739", 10)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")

	one        = uint256.NewInt(1)
	maxUint256 = uint256.MustFromBig(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))

	// ratioConstants holds UQ128.128 factors: index 0 is 1/sqrt(1.0001)
	// (tick bit 0), index 1 is 1.0, and index i in 2..20 is
	// 1/sqrt(1.0001^(2^(i-1))) (tick bit i-1). Index 21 holds the
	// rounding mask.
	ratioConstants = [22]*uint256.Int{
		mustHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		mustHex("0x100000000000000000000000000000000"),
		mustHex("0xfff97272373d413259a46990580e213a"),
		mustHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		mustHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		mustHex("0xffcb9843d60f6159c9db58835c926644"),
		mustHex("0xff973b41fa98c081472e6896dfb254c0"),
		mustHex("0xff2ea16466c96a3843ec78b326b52861"),
		mustHex("0xfe5dee046a99a2a811c461f1969c3053"),
		mustHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		mustHex("0xf987a7253ac413176f2b074cf7815e54"),
		mustHex("0xf3392b0822b70005940c7a398e4b70f3"),
		mustHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		mustHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		mustHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		mustHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		mustHex("0x31be135f97d08fd981231505542fcfa6"),
		mustHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		mustHex("0x5d6af8dedb81196699c329225ee604"),
		mustHex("0x2216e584f5fa1ea926041bedfe98"),
		mustHex("0x48a170391f7dc42444e8fa2"),
		mustHex("0xffffffff"), // rounding mask
	}
)

// scratch holds reusable big/uint256 state so repeated conversions
// during a scan don't allocate.
type scratch struct {
	ratio *uint256.Int
	rem   *uint256.Int
	temp  *big.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{ratio: new(uint256.Int), rem: new(uint256.Int), temp: new(big.Int)}
	},
}

// GetSqrtRatioAtTick computes sqrt(1.0001^tick) * 2^96 into dest.
func GetSqrtRatioAtTick(dest *big.Int, tick int64) error {
	if tick < MinTick || tick > MaxTick {
		return ErrTickOutOfBounds
	}

	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	if absTick&0x1 != 0 {
		s.ratio.Set(ratioConstants[0])
	} else {
		s.ratio.Set(ratioConstants[1])
	}

	for i := 2; i < 21; i++ {
		if absTick&(1<<(i-1)) != 0 {
			s.ratio.Mul(s.ratio, ratioConstants[i]).Rsh(s.ratio, 128)
		}
	}

	if tick > 0 {
		s.ratio.Div(maxUint256, s.ratio)
	}

	s.rem.And(s.ratio, ratioConstants[21])
	s.ratio.Rsh(s.ratio, 32)
	if s.rem.Sign() > 0 {
		s.ratio.Add(s.ratio, one)
	}

	dest.Set(s.ratio.ToBig())
	return nil
}

// GetTickAtSqrtRatio finds the greatest tick whose sqrt ratio is <=
// sqrtPriceX96 via binary search over the valid tick range.
func GetTickAtSqrtRatio(sqrtPriceX96 *big.Int) (int64, error) {
	if sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrSqrtPriceOutOfBounds
	}

	low, high := MinTick, MaxTick
	var tick int64

	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)
	candidate := s.temp

	for low <= high {
		mid := (low + high) / 2
		if err := GetSqrtRatioAtTick(candidate, mid); err != nil {
			return 0, err
		}
		if candidate.Cmp(sqrtPriceX96) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

// PriceFromSqrtRatio returns (sqrtPriceX96 / 2^96)^2 as a float64,
// the concentrated-liquidity price-derivation rule from the per-DEX
// contract table.
func PriceFromSqrtRatio(sqrtPriceX96 *big.Int) float64 {
	q96 := new(big.Rat).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	ratio := new(big.Rat).SetInt(sqrtPriceX96)
	ratio.Quo(ratio, q96)
	f, _ := ratio.Float64()
	return f * f
}

func mustHex(s string) *uint256.Int {
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		panic("tickmath: bad hex constant " + s)
	}
	return uint256.MustFromBig(n)
}
