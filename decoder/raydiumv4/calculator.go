package raydiumv4

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// basisPointDivisor represents 100% in basis points.
var basisPointDivisor = big.NewInt(10000)

// bigIntPool reduces allocation pressure for throwaway big.Int scratch
// values, the same way protocols/uniswapv2/calculator does.
var bigIntPool = sync.Pool{
	New: func() any { return new(big.Int) },
}

var (
	ErrNilAmount             = errors.New("nil pointer passed as amount")
	ErrInvalidAmount         = errors.New("amount must be non-nil and non-negative")
	ErrInvalidState          = errors.New("invalid internal state")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
)

// Calculator holds reusable big.Int scratch space so GetAmountOut's
// intermediate products are not reallocated on every call (the fee
// value and the returned amount are still allocated); instances are
// pool-managed and not safe for concurrent use on their own.
type Calculator struct {
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
		}
	},
}

// GetAmountOut computes the constant-product swap output for
// amountIn against the pool's current reserves.
func GetAmountOut(amountIn *big.Int, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, reserveIn, reserveOut, feeBps)
}

func (c *Calculator) getAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	if amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int), nil
	}

	c.feeMultiplier.Sub(basisPointDivisor, big.NewInt(int64(feeBps)))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	return new(big.Int).Div(c.numerator, c.denominator), nil
}

// SimulateSwap returns the output amount and the post-swap reserves.
func SimulateSwap(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (amountOut, newReserveIn, newReserveOut *big.Int, err error) {
	amountOut, err = GetAmountOut(amountIn, reserveIn, reserveOut, feeBps)
	if err != nil {
		return nil, nil, nil, err
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, nil, nil, fmt.Errorf("%w: amountOut (%s) >= reserveOut (%s)", ErrInsufficientLiquidity, amountOut, reserveOut)
	}
	newReserveIn = new(big.Int).Add(reserveIn, amountIn)
	newReserveOut = new(big.Int).Sub(reserveOut, amountOut)
	return amountOut, newReserveIn, newReserveOut, nil
}

func getBig() *big.Int {
	b := bigIntPool.Get().(*big.Int)
	b.SetUint64(0)
	return b
}

func putBig(b *big.Int) {
	if b != nil {
		bigIntPool.Put(b)
	}
}
