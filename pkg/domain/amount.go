package domain

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	dErrors "tipjar/pkg/domain-errors"
)

// EtherDecimals is the number of wei digits in one ether.
const EtherDecimals = 18

// Amount is an unsigned 256-bit quantity of the native unit, counted in wei.
// The zero value is a valid zero amount. Arithmetic never wraps: Add and Sub
// report overflow and underflow as errors.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount of n wei.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// MaxAmount is the largest representable amount.
func MaxAmount() Amount {
	var a Amount
	a.v.SetAllOne()
	return a
}

// AmountFromBig converts a non-negative big integer.
//
// Errors: CodeInvalidInput for negative values, CodeArithmeticOverflow when
// the value does not fit in 256 bits.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be negative")
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, dErrors.New(dErrors.CodeArithmeticOverflow, "amount exceeds 256 bits")
	}
	return Amount{v: *v}, nil
}

// ParseAmount parses a base-10 wei string such as "3000000000000000".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount must be a base-10 wei integer")
	}
	return Amount{v: *v}, nil
}

// ParseEther parses an ether decimal such as "0.003" into wei. Precision
// beyond 18 decimal places is rejected rather than rounded.
func ParseEther(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount must be a decimal ether value")
	}
	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount has more than 18 decimal places")
	}
	return AmountFromBig(wei.BigInt())
}

// MustParseEther is ParseEther for constants and tests.
func MustParseEther(s string) Amount {
	a, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b, or CodeArithmeticOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, dErrors.New(dErrors.CodeArithmeticOverflow, "amount addition overflows")
	}
	return out, nil
}

// Sub returns a-b, or CodeArithmeticUnderflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, dErrors.New(dErrors.CodeArithmeticUnderflow, "amount subtraction underflows")
	}
	return out, nil
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) Lt(b Amount) bool {
	return a.v.Lt(&b.v)
}

func (a Amount) Gt(b Amount) bool {
	return a.v.Gt(&b.v)
}

func (a Amount) Eq(b Amount) bool {
	return a.v.Eq(&b.v)
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Big returns a copy as a big integer.
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// String returns the base-10 wei representation.
func (a Amount) String() string {
	return a.v.Dec()
}

// Ether returns the value as an ether decimal string without trailing zeros.
func (a Amount) Ether() string {
	return decimal.NewFromBigInt(a.v.ToBig(), -EtherDecimals).String()
}

// EtherFloat is a lossy view for gauges and dashboards.
func (a Amount) EtherFloat() float64 {
	f, _ := decimal.NewFromBigInt(a.v.ToBig(), -EtherDecimals).Float64()
	return f
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
